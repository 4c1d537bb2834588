package domain

// TileID is assigned by the media session and only valid while bound.
type TileID int

// TileState is the media session's view of one video tile.
type TileState struct {
	TileID              TileID     `json:"tileId"`
	BoundAttendeeID     AttendeeID `json:"boundAttendeeId,omitempty"`
	BoundExternalUserID string     `json:"boundExternalUserId,omitempty"`
	LocalTile           bool       `json:"localTile,omitempty"`
	IsContent           bool       `json:"isContent,omitempty"`
	Active              bool       `json:"active,omitempty"`
}

// Bound reports whether the tile has an attendee yet.
func (t TileState) Bound() bool { return t.BoundAttendeeID != "" }
