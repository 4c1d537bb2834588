package core

import (
	"context"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog"
)

type Device struct {
	DeviceID string `json:"deviceId"`
	Label    string `json:"label,omitempty"`
}

// DeviceController enumerates local capture devices.
type DeviceController interface {
	ListAudioInputDevices(ctx context.Context) ([]Device, error)
	ListVideoInputDevices(ctx context.Context) ([]Device, error)
	// Destroy releases every device the controller acquired.
	Destroy()
}

// MediaObserver receives the media session's event streams. Calls may
// arrive from any goroutine and in any order across streams.
type MediaObserver interface {
	OnPresence(domain.PresenceEvent)
	OnTileUpdate(domain.TileState)
	OnSessionEvent(name string, attributes map[string]any)
}

// MediaSession is one real-time media session bound to a meeting/attendee pair.
type MediaSession interface {
	StartAudioInput(ctx context.Context, deviceID string) error
	StartVideoInput(ctx context.Context, deviceID string) error
	// BindAudioOutput routes the meeting audio to the default output.
	BindAudioOutput(ctx context.Context) error
	Start(ctx context.Context) error
	StartLocalVideoTile(ctx context.Context) error
	StartContentShare(ctx context.Context) error
	StopContentShare(ctx context.Context) error
	// BindVideoElement points the renderer of tile at the element named elementID.
	BindVideoElement(ctx context.Context, tile domain.TileID, elementID string) error
	Subscribe(MediaObserver)
	// Stop ends the session and drops every observer.
	Stop(ctx context.Context) error
}

// SessionConfig is built from the control plane's meeting/attendee pair.
type SessionConfig struct {
	Meeting  domain.Meeting  `json:"meeting"`
	Attendee domain.Attendee `json:"attendee"`
}

// SessionFactory builds media sessions and the device controllers they use.
type SessionFactory interface {
	NewDeviceController(logger zerolog.Logger) DeviceController
	NewSession(ctx context.Context, cfg SessionConfig, logger zerolog.Logger, devices DeviceController) (MediaSession, error)
}
