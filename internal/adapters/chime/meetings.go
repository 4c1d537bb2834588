package chime

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmeetings"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmeetings/types"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// MeetingsAPI is the part of the chimesdkmeetings client the plane uses.
type MeetingsAPI interface {
	CreateMeeting(ctx context.Context, in *chimesdkmeetings.CreateMeetingInput, optFns ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.CreateMeetingOutput, error)
	GetMeeting(ctx context.Context, in *chimesdkmeetings.GetMeetingInput, optFns ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.GetMeetingOutput, error)
	CreateAttendee(ctx context.Context, in *chimesdkmeetings.CreateAttendeeInput, optFns ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.CreateAttendeeOutput, error)
	DeleteAttendee(ctx context.Context, in *chimesdkmeetings.DeleteAttendeeInput, optFns ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.DeleteAttendeeOutput, error)
	DeleteMeeting(ctx context.Context, in *chimesdkmeetings.DeleteMeetingInput, optFns ...func(*chimesdkmeetings.Options)) (*chimesdkmeetings.DeleteMeetingOutput, error)
}

type Plane struct {
	api MeetingsAPI
}

var _ core.ControlPlane = (*Plane)(nil)

func NewPlane(api MeetingsAPI) *Plane {
	return &Plane{api: api}
}

func (p *Plane) CreateMeeting(ctx context.Context, req core.CreateMeetingRequest) (*domain.Meeting, error) {
	out, err := p.api.CreateMeeting(ctx, &chimesdkmeetings.CreateMeetingInput{
		ClientRequestToken: aws.String(req.ClientRequestToken),
		ExternalMeetingId:  aws.String(req.ExternalMeetingID),
		MediaRegion:        aws.String(req.MediaRegion),
	})
	if err != nil {
		return nil, mapErr(err, "create meeting")
	}
	m := toMeeting(out.Meeting)
	log.Info().Str("module", "adapters.chime").Str("meeting", m.MeetingID).Str("region", m.MediaRegion).Msg("created meeting")
	return m, nil
}

func (p *Plane) GetMeeting(ctx context.Context, meetingID string) (*domain.Meeting, error) {
	out, err := p.api.GetMeeting(ctx, &chimesdkmeetings.GetMeetingInput{MeetingId: aws.String(meetingID)})
	if err != nil {
		return nil, mapErr(err, "get meeting %s", meetingID)
	}
	return toMeeting(out.Meeting), nil
}

func (p *Plane) CreateAttendee(ctx context.Context, meetingID, externalUserID string) (*domain.Attendee, error) {
	out, err := p.api.CreateAttendee(ctx, &chimesdkmeetings.CreateAttendeeInput{
		MeetingId:      aws.String(meetingID),
		ExternalUserId: aws.String(externalUserID),
	})
	if err != nil {
		return nil, mapErr(err, "create attendee in %s", meetingID)
	}
	a := &domain.Attendee{}
	if out.Attendee != nil {
		a.AttendeeID = aws.ToString(out.Attendee.AttendeeId)
		a.ExternalUserID = aws.ToString(out.Attendee.ExternalUserId)
		a.JoinToken = aws.ToString(out.Attendee.JoinToken)
	}
	return a, nil
}

func (p *Plane) DeleteAttendee(ctx context.Context, meetingID, attendeeID string) error {
	_, err := p.api.DeleteAttendee(ctx, &chimesdkmeetings.DeleteAttendeeInput{
		MeetingId:  aws.String(meetingID),
		AttendeeId: aws.String(attendeeID),
	})
	if err != nil {
		return mapErr(err, "delete attendee %s", attendeeID)
	}
	return nil
}

func (p *Plane) DeleteMeeting(ctx context.Context, meetingID string) error {
	_, err := p.api.DeleteMeeting(ctx, &chimesdkmeetings.DeleteMeetingInput{MeetingId: aws.String(meetingID)})
	if err != nil {
		return mapErr(err, "delete meeting %s", meetingID)
	}
	log.Info().Str("module", "adapters.chime").Str("meeting", meetingID).Msg("deleted meeting")
	return nil
}

func toMeeting(m *types.Meeting) *domain.Meeting {
	if m == nil {
		return &domain.Meeting{}
	}
	out := &domain.Meeting{
		MeetingID:         aws.ToString(m.MeetingId),
		ExternalMeetingID: aws.ToString(m.ExternalMeetingId),
		MediaRegion:       aws.ToString(m.MediaRegion),
	}
	if mp := m.MediaPlacement; mp != nil {
		out.MediaPlacement = &domain.MediaPlacement{
			AudioHostURL:      aws.ToString(mp.AudioHostUrl),
			AudioFallbackURL:  aws.ToString(mp.AudioFallbackUrl),
			SignalingURL:      aws.ToString(mp.SignalingUrl),
			TurnControlURL:    aws.ToString(mp.TurnControlUrl),
			ScreenDataURL:     aws.ToString(mp.ScreenDataUrl),
			ScreenViewingURL:  aws.ToString(mp.ScreenViewingUrl),
			ScreenSharingURL:  aws.ToString(mp.ScreenSharingUrl),
			EventIngestionURL: aws.ToString(mp.EventIngestionUrl),
		}
	}
	return out
}
