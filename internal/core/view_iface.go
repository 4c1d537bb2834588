package core

import (
	"strconv"

	"github.com/dkeye/Huddle/internal/domain"
)

// Element is one rendered tile: a container, a media element keyed by the
// tile id and a label with the owner's display name.
type Element struct {
	TileID     domain.TileID     `json:"tileId"`
	Name       string            `json:"name"`
	AttendeeID domain.AttendeeID `json:"attendeeId"`
	VideoID    string            `json:"videoId"`
	Label      string            `json:"label"`
}

// NewElement derives the element for a bound tile.
func NewElement(ts domain.TileState) Element {
	id := strconv.Itoa(int(ts.TileID))
	return Element{
		TileID:     ts.TileID,
		Name:       "div-" + id,
		AttendeeID: ts.BoundAttendeeID,
		VideoID:    "video-" + id,
		Label:      domain.DisplayName(ts.BoundExternalUserID),
	}
}

// View is the rendered page of one participant.
type View interface {
	CreateTile(Element)
	RemoveTile(domain.TileID)
	ClearTiles()
	SetAttendees(text string)
	SetMeeting(meetingID, link string)
	SetSharing(sharing bool)
	Alert(message string)
}
