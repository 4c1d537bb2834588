// Package session opens the single media session a participant tab may hold.
package session

import (
	"context"
	"fmt"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog"
)

// RoleFor decides the participant's role from the meeting id found in the
// entry URL: no id means this participant hosts a new meeting.
func RoleFor(entryMeetingID string) domain.Role {
	if entryMeetingID == "" {
		return domain.RoleHost
	}
	return domain.RoleGuest
}

// SelectDevices picks the first audio and the first video input.
func SelectDevices(ctx context.Context, dc core.DeviceController) (audio, video core.Device, err error) {
	audios, err := dc.ListAudioInputDevices(ctx)
	if err != nil {
		return audio, video, fmt.Errorf("list audio inputs: %w", err)
	}
	videos, err := dc.ListVideoInputDevices(ctx)
	if err != nil {
		return audio, video, fmt.Errorf("list video inputs: %w", err)
	}
	if len(audios) == 0 {
		return audio, video, fmt.Errorf("audio input: %w", domain.ErrNoDevice)
	}
	if len(videos) == 0 {
		return audio, video, fmt.Errorf("video input: %w", domain.ErrNoDevice)
	}
	return audios[0], videos[0], nil
}

// Session is an open media session with the device controller it owns.
type Session struct {
	Config  core.SessionConfig
	Media   core.MediaSession
	Devices core.DeviceController
	// Epoch grows with every session opened by a Bootstrap.
	Epoch uint64
}

// Bootstrap holds at most one Session at a time.
type Bootstrap struct {
	factory core.SessionFactory
	logger  zerolog.Logger
	active  *Session
	epoch   uint64
}

func NewBootstrap(factory core.SessionFactory, logger zerolog.Logger) *Bootstrap {
	return &Bootstrap{
		factory: factory,
		logger:  logger.With().Str("module", "app.session").Logger(),
	}
}

// Open builds a media session for info. While a session is active it
// returns that session together with domain.ErrAlreadyInMeeting.
func (b *Bootstrap) Open(ctx context.Context, info domain.JoinInfo) (*Session, error) {
	if b.active != nil {
		return b.active, domain.ErrAlreadyInMeeting
	}

	cfg := core.SessionConfig{Meeting: info.Meeting, Attendee: info.Attendee}
	devices := b.factory.NewDeviceController(b.logger)
	media, err := b.factory.NewSession(ctx, cfg, b.logger, devices)
	if err != nil {
		devices.Destroy()
		return nil, fmt.Errorf("new media session: %w", err)
	}

	b.epoch++
	b.active = &Session{Config: cfg, Media: media, Devices: devices, Epoch: b.epoch}
	b.logger.Info().
		Str("meeting", info.Meeting.MeetingID).
		Str("attendee", info.Attendee.AttendeeID).
		Uint64("epoch", b.epoch).
		Msg("media session opened")
	return b.active, nil
}

// Active returns the open session, or nil.
func (b *Bootstrap) Active() *Session { return b.active }

// Close stops the media session and destroys its device controller.
// It is a no-op without an active session.
func (b *Bootstrap) Close(ctx context.Context) {
	s := b.active
	if s == nil {
		return
	}
	b.active = nil
	if err := s.Media.Stop(ctx); err != nil {
		b.logger.Warn().Err(err).Uint64("epoch", s.Epoch).Msg("media session stop")
	}
	s.Devices.Destroy()
	b.logger.Info().Uint64("epoch", s.Epoch).Msg("media session closed")
}
