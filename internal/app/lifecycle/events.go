package lifecycle

import "github.com/dkeye/Huddle/internal/domain"

// Event is everything the controller loop consumes: user actions and the
// media session's streams.
type Event interface{ isEvent() }

type (
	// Start creates a meeting (host) or joins the entry meeting (guest).
	Start struct{ UserName string }
	// Stop ends the meeting for everyone. Host only.
	Stop struct{}
	// Exit leaves the meeting. Guest only.
	Exit struct{}
	// ToggleShare starts or stops sharing the screen.
	ToggleShare struct{}
	// Record starts a media capture pipeline.
	Record struct{}
	// Schedule creates a meeting without joining it.
	Schedule struct{}
)

// Media events carry the epoch of the session that produced them.
type (
	Presence struct {
		Epoch uint64
		Event domain.PresenceEvent
	}
	TileUpdate struct {
		Epoch uint64
		Tile  domain.TileState
	}
	SessionLifecycle struct {
		Epoch      uint64
		Name       string
		Attributes map[string]any
	}
)

// Session-level event names relayed by the media session.
const (
	EventMeetingEnded       = "meetingEnded"
	EventMeetingReconnected = "meetingReconnected"
)

func (Start) isEvent()            {}
func (Stop) isEvent()             {}
func (Exit) isEvent()             {}
func (ToggleShare) isEvent()      {}
func (Record) isEvent()           {}
func (Schedule) isEvent()         {}
func (Presence) isEvent()         {}
func (TileUpdate) isEvent()       {}
func (SessionLifecycle) isEvent() {}

// observer adapts a media session's callbacks into loop events.
type observer struct {
	post  func(Event)
	epoch uint64
}

func (o observer) OnPresence(ev domain.PresenceEvent) {
	o.post(Presence{Epoch: o.epoch, Event: ev})
}

func (o observer) OnTileUpdate(ts domain.TileState) {
	o.post(TileUpdate{Epoch: o.epoch, Tile: ts})
}

func (o observer) OnSessionEvent(name string, attributes map[string]any) {
	o.post(SessionLifecycle{Epoch: o.epoch, Name: name, Attributes: attributes})
}
