// Package presence keeps the rendered roster and video tiles of one
// participant in step with the media session's presence and tile streams.
//
// The two streams are unordered with respect to each other. A Reconciler
// is not safe for concurrent use; the lifecycle loop feeds it one event at
// a time.
package presence

import (
	"context"
	"errors"
	"slices"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog"
)

// VideoBinder attaches a tile's renderer to a rendered element.
type VideoBinder interface {
	BindVideoElement(ctx context.Context, tile domain.TileID, elementID string) error
}

type Reconciler struct {
	view   core.View
	binder VideoBinder
	logger zerolog.Logger

	roster     *Roster
	tiles      map[domain.TileID]core.Element
	byAttendee map[domain.AttendeeID]map[domain.TileID]struct{}
	// departed holds attendees whose last presence event was a departure.
	departed map[domain.AttendeeID]*departure
}

// departure remembers the tiles a departure removed and the tile updates
// that arrived for the attendee afterwards. Removed tiles stay gone; the
// held updates are applied if the attendee id becomes present again.
type departure struct {
	removed map[domain.TileID]struct{}
	held    []domain.TileState
}

func (d *departure) hold(ts domain.TileState) {
	for i, h := range d.held {
		if h.TileID == ts.TileID {
			d.held[i] = ts
			return
		}
	}
	d.held = append(d.held, ts)
}

func New(view core.View, binder VideoBinder, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		view:       view,
		binder:     binder,
		logger:     logger.With().Str("module", "app.presence").Logger(),
		roster:     NewRoster(),
		tiles:      make(map[domain.TileID]core.Element),
		byAttendee: make(map[domain.AttendeeID]map[domain.TileID]struct{}),
		departed:   make(map[domain.AttendeeID]*departure),
	}
}

// HandlePresence applies one presence event and republishes the attendee
// list. An attendee id that returns gets the tiles bound to it while it was
// away.
func (r *Reconciler) HandlePresence(ctx context.Context, ev domain.PresenceEvent) error {
	name := domain.DisplayName(ev.ExternalUserID)
	id := ev.AttendeeID

	if !ev.Present {
		r.depart(id)
		// A screen share ending says nothing about its owner.
		if id.Kind() == domain.Primary && r.roster.Remove(name, id) {
			r.logger.Info().Str("attendee", string(id)).Str("name", name).Msg("attendee left")
		}
		r.view.SetAttendees(r.roster.String())
		return nil
	}

	d := r.departed[id]
	delete(r.departed, id)
	if r.roster.Add(name, id.Base()) {
		r.logger.Info().Str("attendee", string(id)).Str("name", name).Msg("attendee joined")
	}
	r.view.SetAttendees(r.roster.String())
	if d == nil {
		return nil
	}

	var errs []error
	for _, ts := range d.held {
		r.logger.Debug().Int("tile", int(ts.TileID)).Str("attendee", string(id)).Msg("replaying held tile")
		errs = append(errs, r.HandleTile(ctx, ts))
	}
	return errors.Join(errs...)
}

// HandleTile creates the element for a newly bound tile. Unbound tiles and
// tiles already rendered are ignored. Tiles of a departed attendee are held
// unless the departure removed them.
func (r *Reconciler) HandleTile(ctx context.Context, ts domain.TileState) error {
	if !ts.Bound() {
		return nil
	}
	if d, gone := r.departed[ts.BoundAttendeeID]; gone {
		if _, removed := d.removed[ts.TileID]; removed {
			r.logger.Debug().Int("tile", int(ts.TileID)).Str("attendee", string(ts.BoundAttendeeID)).Msg("late update for removed tile dropped")
			return nil
		}
		d.hold(ts)
		r.logger.Debug().Int("tile", int(ts.TileID)).Str("attendee", string(ts.BoundAttendeeID)).Msg("tile held until attendee returns")
		return nil
	}
	if _, ok := r.tiles[ts.TileID]; ok {
		return nil
	}

	el := core.NewElement(ts)
	r.tiles[ts.TileID] = el
	owned, ok := r.byAttendee[el.AttendeeID]
	if !ok {
		owned = make(map[domain.TileID]struct{})
		r.byAttendee[el.AttendeeID] = owned
	}
	owned[ts.TileID] = struct{}{}

	r.view.CreateTile(el)
	r.logger.Info().Int("tile", int(ts.TileID)).Str("attendee", string(el.AttendeeID)).Str("label", el.Label).Msg("tile created")

	if r.binder == nil {
		return nil
	}
	return r.binder.BindVideoElement(ctx, ts.TileID, el.VideoID)
}

// depart removes the attendee's tiles and marks it departed. Repeated
// departures accumulate the removed tiles.
func (r *Reconciler) depart(id domain.AttendeeID) {
	d, ok := r.departed[id]
	if !ok {
		d = &departure{removed: make(map[domain.TileID]struct{})}
		r.departed[id] = d
	}
	for tile := range r.byAttendee[id] {
		delete(r.tiles, tile)
		d.removed[tile] = struct{}{}
		r.view.RemoveTile(tile)
		r.logger.Info().Int("tile", int(tile)).Str("attendee", string(id)).Msg("tile removed")
	}
	delete(r.byAttendee, id)
}

// Reset forgets every attendee and tile and clears the view.
func (r *Reconciler) Reset() {
	r.roster.Reset()
	clear(r.tiles)
	clear(r.byAttendee)
	clear(r.departed)
	r.view.ClearTiles()
	r.view.SetAttendees("")
}

func (r *Reconciler) Roster() []string { return r.roster.Names() }

func (r *Reconciler) AttendeesText() string { return r.roster.String() }

// Tiles returns the rendered elements ordered by tile id.
func (r *Reconciler) Tiles() []core.Element {
	out := make([]core.Element, 0, len(r.tiles))
	for _, el := range r.tiles {
		out = append(out, el)
	}
	slices.SortFunc(out, func(a, b core.Element) int { return int(a.TileID) - int(b.TileID) })
	return out
}

// HasTile reports whether tile currently has an element.
func (r *Reconciler) HasTile(tile domain.TileID) bool {
	_, ok := r.tiles[tile]
	return ok
}
