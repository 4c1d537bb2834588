// Package lifecycle drives one participant tab through its meetings:
// it turns user actions into control-plane calls, owns the media session
// and feeds the session's events to the presence reconciler.
package lifecycle

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/app/presence"
	"github.com/dkeye/Huddle/internal/app/session"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog"
)

type State int

const (
	StateIdle State = iota
	StateInMeeting
)

func (s State) String() string {
	if s == StateInMeeting {
		return "in_meeting"
	}
	return "idle"
}

// User-facing messages.
const (
	MsgEnterUsername   = "Please enter username"
	MsgBadUsername     = "Please do not use special characters in User Name"
	MsgNameTooLong     = "User Name is too long"
	MsgMeetingEnded    = "Oops! The meeting might have ended!"
	MsgJoinFirst       = "Please start or join a meeting first!"
	MsgJoinFailed      = "Could not join the meeting, please try again"
	MsgRequestFailed   = "The meeting service could not be reached"
	MsgAlreadyJoined   = "Meeting already in progress"
	defaultCallTimeout = 10 * time.Second
	defaultMaxPending  = 4096
)

type Config struct {
	// EntryURL is the page URL the participant arrived on. A meetingId
	// query parameter in it makes the participant a guest.
	EntryURL string
	// CallTimeout bounds every control-plane and media call.
	CallTimeout time.Duration
	// MaxPending caps the events waiting for the loop.
	MaxPending int
}

// Controller is the IDLE/IN_MEETING state machine of one tab. All state is
// touched only by the goroutine running Run, or by a caller of Dispatch
// that does not also run the loop.
type Controller struct {
	api    core.ControlAPI
	boot   *session.Bootstrap
	view   core.View
	base   zerolog.Logger
	logger zerolog.Logger

	entry     *url.URL
	timeout   time.Duration
	role      domain.Role
	state     State
	meetingID string
	attendee  string
	sharing   bool
	rec       *presence.Reconciler

	queue        *queue
	overflow     chan struct{}
	overflowOnce sync.Once
}

func New(cfg Config, api core.ControlAPI, boot *session.Bootstrap, view core.View, logger zerolog.Logger) (*Controller, error) {
	entry, err := url.Parse(cfg.EntryURL)
	if err != nil {
		return nil, err
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	maxPending := cfg.MaxPending
	if maxPending <= 0 {
		maxPending = defaultMaxPending
	}
	meetingID := entry.Query().Get("meetingId")
	c := &Controller{
		api:       api,
		boot:      boot,
		view:      view,
		base:      logger,
		entry:     entry,
		timeout:   timeout,
		role:      session.RoleFor(meetingID),
		meetingID: meetingID,
		queue:     newQueue(maxPending),
		overflow:  make(chan struct{}),
	}
	c.logger = logger.With().Str("module", "app.lifecycle").Str("role", c.role.String()).Logger()
	return c, nil
}

// Post enqueues ev for the loop. Safe for concurrent use. When MaxPending
// events are already waiting, ev is dropped and Overflow is closed.
func (c *Controller) Post(ev Event) {
	if c.queue.push(ev) {
		return
	}
	c.overflowOnce.Do(func() {
		c.logger.Warn().Int("pending", c.queue.len()).Msg("event backlog full")
		close(c.overflow)
	})
}

// Overflow is closed once Post has dropped an event. The producer is
// expected to end the session.
func (c *Controller) Overflow() <-chan struct{} { return c.overflow }

// Run consumes events one at a time until ctx ends. On exit any open
// media session is released locally, without calling the control plane.
func (c *Controller) Run(ctx context.Context) error {
	defer func() {
		if c.state == StateInMeeting {
			c.logger.Info().Str("meeting", c.meetingID).Msg("loop stopped while in meeting")
			c.cleanup(context.Background())
		}
	}()
	for {
		ev, ok := c.queue.pop(ctx)
		if !ok {
			return ctx.Err()
		}
		c.Dispatch(ctx, ev)
	}
}

// Dispatch processes a single event to completion.
func (c *Controller) Dispatch(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case Start:
		c.start(ctx, e.UserName)
	case Stop:
		c.stop(ctx)
	case Exit:
		c.exit(ctx)
	case ToggleShare:
		c.toggleShare(ctx)
	case Record:
		c.record()
	case Schedule:
		c.schedule(ctx)
	case Presence:
		if c.current(e.Epoch) {
			if err := c.rec.HandlePresence(ctx, e.Event); err != nil {
				c.logger.Error().Err(err).Str("attendee", string(e.Event.AttendeeID)).Msg("bind held video element")
			}
		}
	case TileUpdate:
		if c.current(e.Epoch) {
			if err := c.rec.HandleTile(ctx, e.Tile); err != nil {
				c.logger.Error().Err(err).Int("tile", int(e.Tile.TileID)).Msg("bind video element")
			}
		}
	case SessionLifecycle:
		if c.current(e.Epoch) {
			c.sessionEvent(ctx, e)
		}
	default:
		c.logger.Warn().Type("event", ev).Msg("unknown event")
	}
}

// current reports whether epoch belongs to the open media session.
func (c *Controller) current(epoch uint64) bool {
	s := c.boot.Active()
	if s == nil || s.Epoch != epoch || c.rec == nil {
		c.logger.Debug().Uint64("epoch", epoch).Msg("stale media event dropped")
		return false
	}
	return true
}

func (c *Controller) State() State       { return c.state }
func (c *Controller) Role() domain.Role  { return c.role }
func (c *Controller) MeetingID() string  { return c.meetingID }
func (c *Controller) AttendeeID() string { return c.attendee }
func (c *Controller) Sharing() bool      { return c.sharing }
func (c *Controller) Pending() int       { return c.queue.len() }

// Reconciler returns the open session's reconciler, or nil.
func (c *Controller) Reconciler() *presence.Reconciler { return c.rec }

// Link is the address others use to join: the entry URL carrying the
// meeting id. For guests this is the URL they arrived on.
func (c *Controller) Link() string {
	if c.meetingID == "" {
		return ""
	}
	u := *c.entry
	q := u.Query()
	q.Set("meetingId", c.meetingID)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Controller) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Controller) start(ctx context.Context, name string) {
	if err := domain.ValidateUsername(name); err != nil {
		switch {
		case errors.Is(err, domain.ErrUsernameEmpty):
			c.view.Alert(MsgEnterUsername)
		case errors.Is(err, domain.ErrUsernameTooLong):
			c.view.Alert(MsgNameTooLong)
		default:
			c.view.Alert(MsgBadUsername)
		}
		return
	}
	if c.boot.Active() != nil {
		c.logger.Info().Msg("start ignored, already in a meeting")
		c.view.Alert(MsgAlreadyJoined)
		return
	}

	callCtx, cancel := c.callCtx(ctx)
	info, err := c.api.CreateOrJoinMeeting(callCtx, c.meetingID, name)
	cancel()
	if errors.Is(err, domain.ErrMeetingNotFound) {
		c.logger.Info().Str("meeting", c.meetingID).Msg("meeting was not found")
		c.view.Alert(MsgMeetingEnded)
		return
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("create or join meeting")
		c.view.Alert(MsgRequestFailed)
		return
	}

	c.meetingID = info.Meeting.MeetingID
	c.attendee = info.Attendee.AttendeeID
	c.view.SetMeeting(c.meetingID, c.Link())

	if err := c.join(ctx, *info); err != nil {
		c.logger.Error().Err(err).Str("meeting", c.meetingID).Msg("media session start failed")
		c.compensate(ctx)
		c.cleanup(ctx)
		c.view.Alert(MsgJoinFailed)
		return
	}
	c.logger.Info().Str("meeting", c.meetingID).Str("attendee", c.attendee).Msg("in meeting")
}

// join opens the media session and starts audio and video. The state is
// IN_MEETING once the session exists so that a failure can be cleaned up.
func (c *Controller) join(ctx context.Context, info domain.JoinInfo) error {
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()

	s, err := c.boot.Open(callCtx, info)
	if err != nil {
		return err
	}
	c.state = StateInMeeting
	c.rec = presence.New(c.view, s.Media, c.base)
	s.Media.Subscribe(observer{post: c.Post, epoch: s.Epoch})

	audio, video, err := session.SelectDevices(callCtx, s.Devices)
	if err != nil {
		return err
	}
	if err := s.Media.StartAudioInput(callCtx, audio.DeviceID); err != nil {
		return err
	}
	if err := s.Media.StartVideoInput(callCtx, video.DeviceID); err != nil {
		return err
	}
	if err := s.Media.BindAudioOutput(callCtx); err != nil {
		return err
	}
	if err := s.Media.Start(callCtx); err != nil {
		return err
	}
	return s.Media.StartLocalVideoTile(callCtx)
}

// compensate undoes a successful join whose media session never started,
// so no orphaned meeting or attendee is left behind.
func (c *Controller) compensate(ctx context.Context) {
	callCtx, cancel := c.callCtx(context.WithoutCancel(ctx))
	defer cancel()
	var err error
	if c.role == domain.RoleHost {
		err = c.api.EndMeeting(callCtx, c.meetingID)
	} else {
		err = c.api.RemoveAttendee(callCtx, c.meetingID, c.attendee)
	}
	if err != nil {
		c.logger.Error().Err(err).Str("meeting", c.meetingID).Msg("compensating call failed")
	}
}

func (c *Controller) stop(ctx context.Context) {
	if c.role != domain.RoleHost {
		c.logger.Warn().Msg("stop ignored, only the host ends a meeting")
		return
	}
	if c.meetingID == "" {
		c.view.Alert(MsgJoinFirst)
		return
	}
	callCtx, cancel := c.callCtx(ctx)
	err := c.api.EndMeeting(callCtx, c.meetingID)
	cancel()
	if err != nil {
		c.logger.Error().Err(err).Str("meeting", c.meetingID).Msg("end meeting")
	} else {
		c.logger.Info().Str("meeting", c.meetingID).Msg("meeting ended")
	}
	c.cleanup(ctx)
}

func (c *Controller) exit(ctx context.Context) {
	if c.role != domain.RoleGuest {
		c.logger.Warn().Msg("exit ignored, the host stops the meeting instead")
		return
	}
	if c.state != StateInMeeting {
		c.view.Alert(MsgJoinFirst)
		return
	}
	callCtx, cancel := c.callCtx(ctx)
	err := c.api.RemoveAttendee(callCtx, c.meetingID, c.attendee)
	cancel()
	if err != nil {
		c.logger.Error().Err(err).Str("meeting", c.meetingID).Msg("remove attendee")
	} else {
		c.logger.Info().Str("meeting", c.meetingID).Str("attendee", c.attendee).Msg("left meeting")
	}
	c.cleanup(ctx)
}

func (c *Controller) sessionEvent(ctx context.Context, e SessionLifecycle) {
	switch e.Name {
	case EventMeetingEnded:
		c.logger.Info().Str("meeting", c.meetingID).Interface("attributes", e.Attributes).Msg("meeting ended remotely")
		c.cleanup(ctx)
	case EventMeetingReconnected:
		c.logger.Info().Str("meeting", c.meetingID).Msg("meeting reconnected")
	default:
		c.logger.Debug().Str("event", e.Name).Msg("session event")
	}
}

// cleanup tears down everything the tab holds for the current meeting.
// Hosts forget the meeting id; guests keep it so the link still works.
func (c *Controller) cleanup(ctx context.Context) {
	c.boot.Close(ctx)
	if c.rec != nil {
		c.rec.Reset()
		c.rec = nil
	} else {
		c.view.ClearTiles()
		c.view.SetAttendees("")
	}
	if c.role == domain.RoleHost {
		c.meetingID = ""
	}
	c.attendee = ""
	if c.sharing {
		c.sharing = false
		c.view.SetSharing(false)
	}
	c.state = StateIdle
	c.view.SetMeeting(c.meetingID, "")
	c.logger.Info().Msg("cleaned up")
}

func (c *Controller) toggleShare(ctx context.Context) {
	s := c.boot.Active()
	if c.state != StateInMeeting || s == nil {
		c.view.Alert(MsgJoinFirst)
		return
	}
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()
	if c.sharing {
		if err := s.Media.StopContentShare(callCtx); err != nil {
			c.logger.Error().Err(err).Msg("stop content share")
			return
		}
		c.sharing = false
	} else {
		if err := s.Media.StartContentShare(callCtx); err != nil {
			c.logger.Error().Err(err).Msg("start content share")
			return
		}
		c.sharing = true
	}
	c.view.SetSharing(c.sharing)
}

// record starts a capture pipeline without waiting for it; the outcome
// is only logged.
func (c *Controller) record() {
	if c.meetingID == "" {
		c.view.Alert(MsgJoinFirst)
		return
	}
	meetingID, logger, timeout := c.meetingID, c.logger, c.timeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		p, err := c.api.BeginRecording(ctx, meetingID)
		if err != nil {
			logger.Error().Err(err).Str("meeting", meetingID).Msg("start recording")
			return
		}
		logger.Info().Str("meeting", meetingID).Str("pipeline", p.MediaPipelineID).Str("status", p.Status).Msg("recording started")
	}()
}

func (c *Controller) schedule(ctx context.Context) {
	if c.state == StateInMeeting {
		c.view.Alert(MsgAlreadyJoined)
		return
	}
	callCtx, cancel := c.callCtx(ctx)
	m, err := c.api.CreateScheduledMeeting(callCtx)
	cancel()
	if err != nil {
		c.logger.Error().Err(err).Msg("create scheduled meeting")
		c.view.Alert(MsgRequestFailed)
		return
	}
	c.meetingID = m.MeetingID
	c.logger.Info().Str("meeting", m.MeetingID).Msg("scheduled meeting created")
	c.view.SetMeeting(c.meetingID, c.Link())
}
