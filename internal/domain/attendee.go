package domain

import "strings"

// ContentSuffix marks the pseudo-attendee that carries a screen share.
const ContentSuffix = "#content"

type AttendeeKind int

const (
	Primary AttendeeKind = iota
	ScreenShare
)

func (k AttendeeKind) String() string {
	if k == ScreenShare {
		return "screen_share"
	}
	return "primary"
}

// AttendeeID is assigned by the control plane. Screen shares show up
// under the owner's id with ContentSuffix appended.
type AttendeeID string

func (id AttendeeID) Kind() AttendeeKind {
	if strings.Contains(string(id), ContentSuffix) {
		return ScreenShare
	}
	return Primary
}

// Base returns the primary attendee behind a screen-share id, or id itself.
func (id AttendeeID) Base() AttendeeID {
	base, _, _ := strings.Cut(string(id), ContentSuffix)
	return AttendeeID(base)
}

// Attendee mirrors the control plane's attendee record.
type Attendee struct {
	AttendeeID     string `json:"AttendeeId"`
	ExternalUserID string `json:"ExternalUserId"`
	JoinToken      string `json:"JoinToken,omitempty"`
}

// PresenceEvent reports that an attendee appeared in or left the session.
type PresenceEvent struct {
	AttendeeID      AttendeeID `json:"attendeeId"`
	Present         bool       `json:"present"`
	ExternalUserID  string     `json:"externalUserId"`
	Dropped         bool       `json:"dropped,omitempty"`
	PositionInFrame *Position  `json:"posInFrame,omitempty"`
}

type Position struct {
	Index int `json:"attendeeIndex"`
	Count int `json:"attendeesInFrame"`
}
