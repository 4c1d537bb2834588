package gateway

import "github.com/dkeye/Huddle/internal/domain"

type Action string

const (
	ActionDoMeeting      Action = "DO_MEETING"
	ActionCreateMeeting  Action = "CREATE_MEETING"
	ActionDeleteAttendee Action = "DELETE_ATTENDEE"
	ActionEndMeeting     Action = "END_MEETING"
	ActionStartRecording Action = "START_RECORDING"
)

// Request is the body posted by the browser page and the control API client.
type Request struct {
	Action     Action `json:"action"`
	MeetingID  string `json:"MEETING_ID,omitempty"`
	AttendeeID string `json:"ATTENDEE_ID,omitempty"`
	Username   string `json:"USERNAME,omitempty"`
}

// Query carries the URL query parameters of a request.
type Query struct {
	ClientID  string
	MeetingID string
}

type MeetingEnvelope struct {
	Meeting domain.Meeting `json:"Meeting"`
}

type AttendeeEnvelope struct {
	Attendee domain.Attendee `json:"Attendee"`
}

type Info struct {
	Meeting  *MeetingEnvelope  `json:"Meeting,omitempty"`
	Attendee *AttendeeEnvelope `json:"Attendee,omitempty"`
}

// Reply is the success body. An empty Reply encodes as {}.
type Reply struct {
	Info *Info `json:"Info,omitempty"`
}

type ErrorReply struct {
	Error string `json:"error"`
}

// Response is a status code with a JSON-encodable body.
type Response struct {
	Status int
	Body   any
}
