package chime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmediapipelines"
	pipetypes "github.com/aws/aws-sdk-go-v2/service/chimesdkmediapipelines/types"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmeetings"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmeetings/types"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type meetingsMock struct{ mock.Mock }

func (m *meetingsMock) CreateMeeting(_ context.Context, in *chimesdkmeetings.CreateMeetingInput, _ ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.CreateMeetingOutput, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*chimesdkmeetings.CreateMeetingOutput)
	return out, args.Error(1)
}

func (m *meetingsMock) GetMeeting(_ context.Context, in *chimesdkmeetings.GetMeetingInput, _ ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.GetMeetingOutput, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*chimesdkmeetings.GetMeetingOutput)
	return out, args.Error(1)
}

func (m *meetingsMock) CreateAttendee(_ context.Context, in *chimesdkmeetings.CreateAttendeeInput, _ ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.CreateAttendeeOutput, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*chimesdkmeetings.CreateAttendeeOutput)
	return out, args.Error(1)
}

func (m *meetingsMock) DeleteAttendee(_ context.Context, in *chimesdkmeetings.DeleteAttendeeInput, _ ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.DeleteAttendeeOutput, error) {
	args := m.Called(in)
	return &chimesdkmeetings.DeleteAttendeeOutput{}, args.Error(0)
}

func (m *meetingsMock) DeleteMeeting(_ context.Context, in *chimesdkmeetings.DeleteMeetingInput, _ ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.DeleteMeetingOutput, error) {
	args := m.Called(in)
	return &chimesdkmeetings.DeleteMeetingOutput{}, args.Error(0)
}

type pipelinesMock struct{ mock.Mock }

func (m *pipelinesMock) CreateMediaCapturePipeline(_ context.Context, in *chimesdkmediapipelines.CreateMediaCapturePipelineInput, _ ...func(*chimesdkmediapipelines.Options)) (*chimesdkmediapipelines.CreateMediaCapturePipelineOutput, error) {
	args := m.Called(in)
	out, _ := args.Get(0).(*chimesdkmediapipelines.CreateMediaCapturePipelineOutput)
	return out, args.Error(1)
}

func TestCreateMeeting(t *testing.T) {
	api := &meetingsMock{}
	api.On("CreateMeeting", mock.MatchedBy(func(in *chimesdkmeetings.CreateMeetingInput) bool {
		return aws.ToString(in.ClientRequestToken) == "tok" &&
			aws.ToString(in.ExternalMeetingId) == "tok" &&
			aws.ToString(in.MediaRegion) == "ap-southeast-1"
	})).Return(&chimesdkmeetings.CreateMeetingOutput{Meeting: &types.Meeting{
		MeetingId:      aws.String("M1"),
		MediaRegion:    aws.String("ap-southeast-1"),
		MediaPlacement: &types.MediaPlacement{AudioHostUrl: aws.String("audio.example:3478")},
	}}, nil)

	m, err := NewPlane(api).CreateMeeting(context.Background(), core.CreateMeetingRequest{
		ClientRequestToken: "tok", ExternalMeetingID: "tok", MediaRegion: "ap-southeast-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "M1", m.MeetingID)
	require.NotNil(t, m.MediaPlacement)
	assert.Equal(t, "audio.example:3478", m.MediaPlacement.AudioHostURL)
	api.AssertExpectations(t)
}

func TestNotFoundMapsToDomain(t *testing.T) {
	api := &meetingsMock{}
	nf := &types.NotFoundException{Message: aws.String("The meeting is not found")}
	api.On("GetMeeting", mock.Anything).Return(nil, nf)
	api.On("CreateAttendee", mock.Anything).Return(nil, nf)
	api.On("DeleteMeeting", mock.Anything).Return(nf)
	p := NewPlane(api)
	ctx := context.Background()

	_, err := p.GetMeeting(ctx, "gone")
	assert.ErrorIs(t, err, domain.ErrMeetingNotFound)
	_, err = p.CreateAttendee(ctx, "gone", "bob#c2")
	assert.ErrorIs(t, err, domain.ErrMeetingNotFound)
	assert.ErrorIs(t, p.DeleteMeeting(ctx, "gone"), domain.ErrMeetingNotFound)
}

func TestOtherErrorsPassThrough(t *testing.T) {
	api := &meetingsMock{}
	boom := errors.New("throttled")
	api.On("DeleteAttendee", mock.Anything).Return(boom)

	err := NewPlane(api).DeleteAttendee(context.Background(), "M1", "A1")

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrMeetingNotFound)
}

func TestCreateAttendee(t *testing.T) {
	api := &meetingsMock{}
	api.On("CreateAttendee", mock.MatchedBy(func(in *chimesdkmeetings.CreateAttendeeInput) bool {
		return aws.ToString(in.MeetingId) == "M1" && aws.ToString(in.ExternalUserId) == "alice#c1"
	})).Return(&chimesdkmeetings.CreateAttendeeOutput{Attendee: &types.Attendee{
		AttendeeId:     aws.String("A1"),
		ExternalUserId: aws.String("alice#c1"),
		JoinToken:      aws.String("jt"),
	}}, nil)

	a, err := NewPlane(api).CreateAttendee(context.Background(), "M1", "alice#c1")

	require.NoError(t, err)
	assert.Equal(t, domain.Attendee{AttendeeID: "A1", ExternalUserID: "alice#c1", JoinToken: "jt"}, *a)
}

func TestStartCapture(t *testing.T) {
	api := &pipelinesMock{}
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var got *chimesdkmediapipelines.CreateMediaCapturePipelineInput
	api.On("CreateMediaCapturePipeline", mock.Anything).
		Run(func(args mock.Arguments) {
			got = args.Get(0).(*chimesdkmediapipelines.CreateMediaCapturePipelineInput)
		}).
		Return(&chimesdkmediapipelines.CreateMediaCapturePipelineOutput{
			MediaCapturePipeline: &pipetypes.MediaCapturePipeline{
				MediaPipelineId:  aws.String("P1"),
				Status:           pipetypes.MediaPipelineStatusInitializing,
				CreatedTimestamp: &created,
			},
		}, nil)
	r := NewRecorder(api, Config{Region: "ap-southeast-1", AccountID: "123456789012", Bucket: "recordings"})

	p, err := r.StartCapture(context.Background(), "M1")

	require.NoError(t, err)
	assert.Equal(t, "P1", p.MediaPipelineID)
	assert.Equal(t, "Initializing", p.Status)
	assert.Equal(t, &created, p.CreatedTimestamp)

	require.NotNil(t, got)
	assert.Equal(t, "arn:aws:chime:ap-southeast-1:123456789012:meeting:M1", aws.ToString(got.SourceArn))
	assert.Equal(t, "arn:aws:s3:::recordings", aws.ToString(got.SinkArn))
	assert.Equal(t, pipetypes.MediaPipelineSourceTypeChimeSdkMeeting, got.SourceType)
	assert.Equal(t, pipetypes.MediaPipelineSinkTypeS3Bucket, got.SinkType)
	arts := got.ChimeSdkMeetingConfiguration.ArtifactsConfiguration
	assert.Equal(t, pipetypes.AudioMuxTypeAudioOnly, arts.Audio.MuxType)
	assert.Equal(t, pipetypes.VideoMuxTypeVideoOnly, arts.Video.MuxType)
	assert.Equal(t, pipetypes.ArtifactsStateEnabled, arts.Video.State)
	assert.Equal(t, pipetypes.ContentMuxTypeContentOnly, arts.Content.MuxType)
	assert.Equal(t, pipetypes.ArtifactsStateEnabled, arts.Content.State)
}

func TestStartCaptureError(t *testing.T) {
	api := &pipelinesMock{}
	api.On("CreateMediaCapturePipeline", mock.Anything).Return(nil, errors.New("audiovideostop"))

	_, err := NewRecorder(api, Config{}).StartCapture(context.Background(), "M1")

	assert.ErrorContains(t, err, "audiovideostop")
}
