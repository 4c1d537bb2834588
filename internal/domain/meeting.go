package domain

import "time"

// Meeting mirrors the control plane's meeting record. Field names keep the
// control plane's casing so the browser SDK can consume them as is.
type Meeting struct {
	MeetingID         string          `json:"MeetingId"`
	ExternalMeetingID string          `json:"ExternalMeetingId,omitempty"`
	MediaRegion       string          `json:"MediaRegion,omitempty"`
	MediaPlacement    *MediaPlacement `json:"MediaPlacement,omitempty"`
}

type MediaPlacement struct {
	AudioHostURL      string `json:"AudioHostUrl,omitempty"`
	AudioFallbackURL  string `json:"AudioFallbackUrl,omitempty"`
	SignalingURL      string `json:"SignalingUrl,omitempty"`
	TurnControlURL    string `json:"TurnControlUrl,omitempty"`
	ScreenDataURL     string `json:"ScreenDataUrl,omitempty"`
	ScreenViewingURL  string `json:"ScreenViewingUrl,omitempty"`
	ScreenSharingURL  string `json:"ScreenSharingUrl,omitempty"`
	EventIngestionURL string `json:"EventIngestionUrl,omitempty"`
}

// JoinInfo is what a successful create-or-join hands back.
type JoinInfo struct {
	Meeting  Meeting
	Attendee Attendee
}

// Pipeline describes a media capture pipeline started for a meeting.
type Pipeline struct {
	MediaPipelineID  string     `json:"MediaPipelineId"`
	MediaPipelineArn string     `json:"MediaPipelineArn,omitempty"`
	SourceArn        string     `json:"SourceArn,omitempty"`
	SinkArn          string     `json:"SinkArn,omitempty"`
	Status           string     `json:"Status,omitempty"`
	CreatedTimestamp *time.Time `json:"CreatedTimestamp,omitempty"`
}

type Role int

const (
	RoleGuest Role = iota
	RoleHost
)

func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "guest"
}
