package bridge

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// TabInfo describes a connected tab.
type TabInfo struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"clientId"`
	Role        string    `json:"role"`
	Entry       string    `json:"entry"`
	ConnectedAt time.Time `json:"connectedAt"`
}

type tabEntry struct {
	info   TabInfo
	cancel context.CancelFunc
}

// Registry tracks the tabs connected to this server.
type Registry struct {
	mu   sync.RWMutex
	tabs map[string]*tabEntry
}

func NewRegistry() *Registry {
	return &Registry{tabs: make(map[string]*tabEntry)}
}

func (r *Registry) Bind(id, clientID string, role domain.Role, entry string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tabs[id] = &tabEntry{
		info: TabInfo{
			ID:          id,
			ClientID:    clientID,
			Role:        role.String(),
			Entry:       entry,
			ConnectedAt: time.Now().UTC(),
		},
		cancel: cancel,
	}
	log.Info().Str("module", "bridge.registry").Str("tab", id).Str("client", clientID).Msg("bound tab")
}

func (r *Registry) Unbind(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tabs, id)
	log.Info().Str("module", "bridge.registry").Str("tab", id).Msg("unbind tab")
}

// List returns the connected tabs ordered by connection time.
func (r *Registry) List() []TabInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TabInfo, 0, len(r.tabs))
	for _, e := range r.tabs {
		out = append(out, e.info)
	}
	slices.SortFunc(out, func(a, b TabInfo) int {
		if c := a.ConnectedAt.Compare(b.ConnectedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Cancel ends the tab's session. The socket closes and any open media
// session is released.
func (r *Registry) Cancel(id string) bool {
	r.mu.RLock()
	e, ok := r.tabs[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.cancel != nil {
		e.cancel()
	}
	log.Info().Str("module", "bridge.registry").Str("tab", id).Msg("canceled tab")
	return true
}
