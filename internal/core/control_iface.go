package core

import (
	"context"

	"github.com/dkeye/Huddle/internal/domain"
)

// CreateMeetingRequest carries what the control plane needs to open a meeting.
// ClientRequestToken makes the call idempotent.
type CreateMeetingRequest struct {
	ClientRequestToken string
	ExternalMeetingID  string
	MediaRegion        string
}

// ControlPlane is the managed meeting service seen from the gateway.
// GetMeeting, DeleteMeeting and CreateAttendee report a missing meeting
// as domain.ErrMeetingNotFound.
type ControlPlane interface {
	CreateMeeting(ctx context.Context, req CreateMeetingRequest) (*domain.Meeting, error)
	GetMeeting(ctx context.Context, meetingID string) (*domain.Meeting, error)
	CreateAttendee(ctx context.Context, meetingID, externalUserID string) (*domain.Attendee, error)
	DeleteAttendee(ctx context.Context, meetingID, attendeeID string) error
	DeleteMeeting(ctx context.Context, meetingID string) error
}

// Recorder starts media capture pipelines for a meeting.
type Recorder interface {
	StartCapture(ctx context.Context, meetingID string) (*domain.Pipeline, error)
}

// ControlAPI is the gateway seen from a participant session. One value is
// bound to a single client id. No call is retried.
type ControlAPI interface {
	// CreateOrJoinMeeting creates a meeting when meetingID is empty, else
	// joins it. A meeting that no longer exists yields domain.ErrMeetingNotFound.
	CreateOrJoinMeeting(ctx context.Context, meetingID, userName string) (*domain.JoinInfo, error)
	CreateScheduledMeeting(ctx context.Context) (*domain.Meeting, error)
	RemoveAttendee(ctx context.Context, meetingID, attendeeID string) error
	EndMeeting(ctx context.Context, meetingID string) error
	BeginRecording(ctx context.Context, meetingID string) (*domain.Pipeline, error)
}
