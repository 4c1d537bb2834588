// Package coretest provides in-memory implementations of the core ports
// for tests.
package coretest

import (
	"slices"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// View records what a participant page would show.
type View struct {
	mu        sync.Mutex
	tiles     map[domain.TileID]core.Element
	created   int
	attendees string
	meetingID string
	link      string
	sharing   bool
	alerts    []string
}

func NewView() *View {
	return &View{tiles: make(map[domain.TileID]core.Element)}
}

func (v *View) CreateTile(el core.Element) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tiles[el.TileID] = el
	v.created++
}

func (v *View) RemoveTile(id domain.TileID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.tiles, id)
}

func (v *View) ClearTiles() {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.tiles)
}

func (v *View) SetAttendees(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attendees = text
}

func (v *View) SetMeeting(meetingID, link string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.meetingID = meetingID
	v.link = link
}

func (v *View) SetSharing(sharing bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sharing = sharing
}

func (v *View) Alert(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append(v.alerts, message)
}

// Tiles returns the rendered tiles ordered by id.
func (v *View) Tiles() []core.Element {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]core.Element, 0, len(v.tiles))
	for _, el := range v.tiles {
		out = append(out, el)
	}
	slices.SortFunc(out, func(a, b core.Element) int { return int(a.TileID) - int(b.TileID) })
	return out
}

// Created counts every CreateTile call, including ones later removed.
func (v *View) Created() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.created
}

func (v *View) Attendees() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.attendees
}

func (v *View) Meeting() (id, link string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.meetingID, v.link
}

func (v *View) Sharing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sharing
}

func (v *View) Alerts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.alerts)
}
