package bridge

import (
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/goccy/go-json"
)

// Frame types sent by the page.
const (
	TypeAction       = "action"
	TypePresence     = "presence"
	TypeTile         = "tile"
	TypeSessionEvent = "session_event"
	TypeResult       = "result"
	TypePing         = "ping"
)

// Frame types sent to the page.
const (
	TypeHello = "hello"
	TypeCall  = "call"
	TypeView  = "view"
	TypeError = "error"
	TypePong  = "pong"
)

// UI actions carried by action frames.
const (
	ActionStart    = "start"
	ActionStop     = "stop"
	ActionExit     = "exit"
	ActionShare    = "share"
	ActionRecord   = "record"
	ActionSchedule = "schedule"
)

// Media methods the page executes on its SDK.
const (
	MethodCreateSession       = "createSession"
	MethodListAudioInputs     = "listAudioInputDevices"
	MethodListVideoInputs     = "listVideoInputDevices"
	MethodDestroyDevices      = "destroyDevices"
	MethodStartAudioInput     = "startAudioInput"
	MethodStartVideoInput     = "startVideoInput"
	MethodBindAudioOutput     = "bindAudioOutput"
	MethodStart               = "start"
	MethodStartLocalVideoTile = "startLocalVideoTile"
	MethodStartContentShare   = "startContentShare"
	MethodStopContentShare    = "stopContentShare"
	MethodBindVideoElement    = "bindVideoElement"
	MethodStop                = "stop"
)

// View operations.
const (
	OpCreateTile   = "createTile"
	OpRemoveTile   = "removeTile"
	OpClearTiles   = "clearTiles"
	OpSetAttendees = "setAttendees"
	OpSetMeeting   = "setMeeting"
	OpSetSharing   = "setSharing"
	OpAlert        = "alert"
)

type envelope struct {
	Type string `json:"type"`
}

type actionFrame struct {
	Action   string `json:"action"`
	UserName string `json:"userName,omitempty"`
}

type presenceFrame struct {
	Event domain.PresenceEvent `json:"event"`
}

type tileFrame struct {
	Tile domain.TileState `json:"tile"`
}

type sessionEventFrame struct {
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type resultFrame struct {
	ID     string          `json:"id"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// callFrame asks the page to run a media method. An empty ID means no
// result is expected.
type callFrame struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type viewFrame struct {
	Type      string        `json:"type"`
	Op        string        `json:"op"`
	Tile      *core.Element `json:"tile,omitempty"`
	TileID    domain.TileID `json:"tileId,omitempty"`
	Attendees *string       `json:"attendees,omitempty"`
	MeetingID *string       `json:"meetingId,omitempty"`
	Link      *string       `json:"link,omitempty"`
	Sharing   *bool         `json:"sharing,omitempty"`
	Message   string        `json:"message,omitempty"`
}

type helloFrame struct {
	Type      string `json:"type"`
	ClientID  string `json:"clientId"`
	Role      string `json:"role"`
	MeetingID string `json:"meetingId,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type deviceParams struct {
	DeviceID string `json:"deviceId"`
}

type bindParams struct {
	TileID    domain.TileID `json:"tileId"`
	ElementID string        `json:"elementId"`
}
