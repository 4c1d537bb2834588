package chime

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmediapipelines"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmediapipelines/types"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type PipelinesAPI interface {
	CreateMediaCapturePipeline(ctx context.Context, in *chimesdkmediapipelines.CreateMediaCapturePipelineInput, optFns ...func(*chimesdkmediapipelines.Options)) (*chimesdkmediapipelines.CreateMediaCapturePipelineOutput, error)
}

// Recorder captures audio, video and content of a meeting into an S3 bucket
// as separate artifacts.
type Recorder struct {
	api       PipelinesAPI
	region    string
	accountID string
	bucket    string
}

var _ core.Recorder = (*Recorder)(nil)

func NewRecorder(api PipelinesAPI, cfg Config) *Recorder {
	return &Recorder{api: api, region: cfg.Region, accountID: cfg.AccountID, bucket: cfg.Bucket}
}

func (r *Recorder) SourceArn(meetingID string) string {
	return fmt.Sprintf("arn:aws:chime:%s:%s:meeting:%s", r.region, r.accountID, meetingID)
}

func (r *Recorder) SinkArn() string {
	return "arn:aws:s3:::" + r.bucket
}

func (r *Recorder) StartCapture(ctx context.Context, meetingID string) (*domain.Pipeline, error) {
	in := &chimesdkmediapipelines.CreateMediaCapturePipelineInput{
		SourceType:         types.MediaPipelineSourceTypeChimeSdkMeeting,
		SourceArn:          aws.String(r.SourceArn(meetingID)),
		SinkType:           types.MediaPipelineSinkTypeS3Bucket,
		SinkArn:            aws.String(r.SinkArn()),
		ClientRequestToken: aws.String("token-" + uuid.NewString()),
		ChimeSdkMeetingConfiguration: &types.ChimeSdkMeetingConfiguration{
			ArtifactsConfiguration: &types.ArtifactsConfiguration{
				Audio: &types.AudioArtifactsConfiguration{
					MuxType: types.AudioMuxTypeAudioOnly,
				},
				Video: &types.VideoArtifactsConfiguration{
					State:   types.ArtifactsStateEnabled,
					MuxType: types.VideoMuxTypeVideoOnly,
				},
				Content: &types.ContentArtifactsConfiguration{
					State:   types.ArtifactsStateEnabled,
					MuxType: types.ContentMuxTypeContentOnly,
				},
			},
		},
	}
	log.Debug().Str("module", "adapters.chime").Str("source", aws.ToString(in.SourceArn)).Str("sink", aws.ToString(in.SinkArn)).Msg("starting media capture pipeline")

	out, err := r.api.CreateMediaCapturePipeline(ctx, in)
	if err != nil {
		return nil, mapErr(err, "create media capture pipeline for %s", meetingID)
	}
	p := out.MediaCapturePipeline
	if p == nil {
		return &domain.Pipeline{}, nil
	}
	return &domain.Pipeline{
		MediaPipelineID:  aws.ToString(p.MediaPipelineId),
		MediaPipelineArn: aws.ToString(p.MediaPipelineArn),
		SourceArn:        aws.ToString(p.SourceArn),
		SinkArn:          aws.ToString(p.SinkArn),
		Status:           string(p.Status),
		CreatedTimestamp: p.CreatedTimestamp,
	}, nil
}
