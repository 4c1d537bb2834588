package coretest

import (
	"context"
	"slices"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog"
)

// Devices is a DeviceController over fixed device lists.
type Devices struct {
	Audio []core.Device
	Video []core.Device

	mu        sync.Mutex
	destroyed bool
}

func (d *Devices) ListAudioInputDevices(context.Context) ([]core.Device, error) {
	return d.Audio, nil
}

func (d *Devices) ListVideoInputDevices(context.Context) ([]core.Device, error) {
	return d.Video, nil
}

func (d *Devices) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyed = true
}

func (d *Devices) Destroyed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}

// Media is a MediaSession that records calls and lets tests emit events.
type Media struct {
	Config core.SessionConfig
	// Fail makes the named call return the error.
	Fail map[string]error

	mu        sync.Mutex
	calls     []string
	bindings  map[domain.TileID]string
	observers []core.MediaObserver
}

func NewMedia(cfg core.SessionConfig) *Media {
	return &Media{Config: cfg, Fail: map[string]error{}, bindings: map[domain.TileID]string{}}
}

func (m *Media) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.Fail[call]
}

func (m *Media) StartAudioInput(_ context.Context, deviceID string) error {
	return m.record("startAudioInput:" + deviceID)
}

func (m *Media) StartVideoInput(_ context.Context, deviceID string) error {
	return m.record("startVideoInput:" + deviceID)
}

func (m *Media) BindAudioOutput(context.Context) error { return m.record("bindAudioOutput") }
func (m *Media) Start(context.Context) error           { return m.record("start") }
func (m *Media) StartLocalVideoTile(context.Context) error {
	return m.record("startLocalVideoTile")
}
func (m *Media) StartContentShare(context.Context) error { return m.record("startContentShare") }
func (m *Media) StopContentShare(context.Context) error  { return m.record("stopContentShare") }

func (m *Media) BindVideoElement(_ context.Context, tile domain.TileID, elementID string) error {
	if err := m.record("bindVideoElement"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[tile] = elementID
	return nil
}

func (m *Media) Subscribe(o core.MediaObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

func (m *Media) Stop(context.Context) error {
	err := m.record("stop")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = nil
	return err
}

func (m *Media) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

func (m *Media) Binding(tile domain.TileID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.bindings[tile]
	return id, ok
}

func (m *Media) snapshot() []core.MediaObserver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.observers)
}

func (m *Media) EmitPresence(ev domain.PresenceEvent) {
	for _, o := range m.snapshot() {
		o.OnPresence(ev)
	}
}

func (m *Media) EmitTile(ts domain.TileState) {
	for _, o := range m.snapshot() {
		o.OnTileUpdate(ts)
	}
}

func (m *Media) EmitSessionEvent(name string) {
	for _, o := range m.snapshot() {
		o.OnSessionEvent(name, nil)
	}
}

// Factory hands out Media sessions over a shared Devices template.
type Factory struct {
	Audio []core.Device
	Video []core.Device
	Err   error
	// FailOn is copied into every new session's Fail.
	FailOn map[string]error

	mu       sync.Mutex
	sessions []*Media
	devices  []*Devices
}

func (f *Factory) NewDeviceController(zerolog.Logger) core.DeviceController {
	d := &Devices{Audio: f.Audio, Video: f.Video}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = append(f.devices, d)
	return d
}

func (f *Factory) NewSession(_ context.Context, cfg core.SessionConfig, _ zerolog.Logger, _ core.DeviceController) (core.MediaSession, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	m := NewMedia(cfg)
	for call, err := range f.FailOn {
		m.Fail[call] = err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, m)
	return m, nil
}

// Last returns the most recent session, or nil.
func (f *Factory) Last() *Media {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sessions) == 0 {
		return nil
	}
	return f.sessions[len(f.sessions)-1]
}

// LastDevices returns the most recent device controller, or nil.
func (f *Factory) LastDevices() *Devices {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.devices) == 0 {
		return nil
	}
	return f.devices[len(f.devices)-1]
}

func (f *Factory) Sessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}
