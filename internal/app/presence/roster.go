package presence

import (
	"slices"
	"strings"

	"github.com/dkeye/Huddle/internal/domain"
)

const rosterSeparator = " | "

// Roster is the ordered set of display names of the attendees currently
// present. Each name is backed by the primary attendees carrying it, so two
// tabs of one person, or a person and their screen share, count once. A
// name leaves only when its last present holder leaves.
type Roster struct {
	order   []string
	holders map[string]map[domain.AttendeeID]struct{}
}

func NewRoster() *Roster {
	return &Roster{holders: make(map[string]map[domain.AttendeeID]struct{})}
}

// Add records that attendee carries name. It reports whether name is new.
func (r *Roster) Add(name string, attendee domain.AttendeeID) bool {
	ids, ok := r.holders[name]
	if !ok {
		ids = make(map[domain.AttendeeID]struct{})
		r.holders[name] = ids
		r.order = append(r.order, name)
	}
	ids[attendee] = struct{}{}
	return !ok
}

// Remove drops attendee's claim on name. It reports whether name left.
func (r *Roster) Remove(name string, attendee domain.AttendeeID) bool {
	ids, ok := r.holders[name]
	if !ok {
		return false
	}
	delete(ids, attendee)
	if len(ids) > 0 {
		return false
	}
	delete(r.holders, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	return true
}

func (r *Roster) Contains(name string) bool {
	_, ok := r.holders[name]
	return ok
}

func (r *Roster) Len() int { return len(r.order) }

// Names returns the display names in arrival order.
func (r *Roster) Names() []string { return slices.Clone(r.order) }

func (r *Roster) String() string { return strings.Join(r.order, rosterSeparator) }

func (r *Roster) Reset() {
	r.order = nil
	clear(r.holders)
}
