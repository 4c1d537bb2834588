package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/Huddle/internal/app/lifecycle"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Tab is the server side of one browser tab. It renders the view and
// drives the media SDK of the page, and it feeds the page's SDK events and
// UI actions back to the tab's controller.
type Tab struct {
	conn     *Conn
	calls    *calls
	clientID string
	logger   zerolog.Logger

	mu      sync.Mutex
	session *mediaSession
	post    func(lifecycle.Event)
	allow   func() bool
}

var (
	_ core.View           = (*Tab)(nil)
	_ core.SessionFactory = (*Tab)(nil)
)

func newTab(conn *Conn, clientID string, logger zerolog.Logger) *Tab {
	return &Tab{
		conn:     conn,
		calls:    newCalls(),
		clientID: clientID,
		logger:   logger,
	}
}

// attach routes UI actions to post. allow gates them and may be nil.
func (t *Tab) attach(post func(lifecycle.Event), allow func() bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.post = post
	t.allow = allow
}

func (t *Tab) hello(role domain.Role, meetingID string) {
	_ = t.conn.sendJSON(helloFrame{Type: TypeHello, ClientID: t.clientID, Role: role.String(), MeetingID: meetingID})
}

func (t *Tab) sendError(msg string) {
	_ = t.conn.sendJSON(errorFrame{Type: TypeError, Error: msg})
}

// handle routes one frame read from the page.
func (t *Tab) handle(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.logger.Error().Err(err).Msg("bad json")
		t.sendError("bad_payload")
		return
	}

	switch env.Type {
	case TypeResult:
		var r resultFrame
		if t.decode(data, &r) && !t.calls.resolve(r) {
			t.logger.Debug().Str("id", r.ID).Msg("late result dropped")
		}
	case TypePresence:
		var f presenceFrame
		if t.decode(data, &f) {
			t.observe(func(o core.MediaObserver) { o.OnPresence(f.Event) })
		}
	case TypeTile:
		var f tileFrame
		if t.decode(data, &f) {
			t.observe(func(o core.MediaObserver) { o.OnTileUpdate(f.Tile) })
		}
	case TypeSessionEvent:
		var f sessionEventFrame
		if t.decode(data, &f) {
			t.observe(func(o core.MediaObserver) { o.OnSessionEvent(f.Name, f.Attributes) })
		}
	case TypeAction:
		var f actionFrame
		if t.decode(data, &f) {
			t.action(f)
		}
	case TypePing:
		_ = t.conn.sendJSON(envelope{Type: TypePong})
	default:
		t.logger.Warn().Str("type", env.Type).Msg("unknown frame")
	}
}

func (t *Tab) decode(data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		t.logger.Error().Err(err).Msg("bad frame payload")
		t.sendError("bad_payload")
		return false
	}
	return true
}

func (t *Tab) action(f actionFrame) {
	var ev lifecycle.Event
	switch f.Action {
	case ActionStart:
		ev = lifecycle.Start{UserName: f.UserName}
	case ActionStop:
		ev = lifecycle.Stop{}
	case ActionExit:
		ev = lifecycle.Exit{}
	case ActionShare:
		ev = lifecycle.ToggleShare{}
	case ActionRecord:
		ev = lifecycle.Record{}
	case ActionSchedule:
		ev = lifecycle.Schedule{}
	default:
		t.logger.Warn().Str("action", f.Action).Msg("unknown action")
		t.sendError("unknown_action")
		return
	}

	t.mu.Lock()
	post, allow := t.post, t.allow
	t.mu.Unlock()
	if post == nil {
		return
	}
	if allow != nil && !allow() {
		t.logger.Warn().Str("action", f.Action).Msg("action rate limited")
		t.sendError("rate_limited")
		return
	}
	post(ev)
}

// observe hands an SDK event to the observers of the open session.
// Events arriving without a session are dropped.
func (t *Tab) observe(fn func(core.MediaObserver)) {
	t.mu.Lock()
	s := t.session
	t.mu.Unlock()
	if s == nil {
		t.logger.Debug().Msg("media event without session dropped")
		return
	}
	for _, o := range s.snapshot() {
		fn(o)
	}
}

// shutdown fails pending calls once the page is gone.
func (t *Tab) shutdown() {
	t.calls.close()
}

// view sends a view update. A page that cannot keep up is disconnected,
// since a partially applied view would diverge from the session state.
func (t *Tab) view(f viewFrame) {
	f.Type = TypeView
	err := t.conn.sendJSON(f)
	switch {
	case errors.Is(err, ErrBackpressure):
		t.logger.Warn().Str("op", f.Op).Msg("page too slow, closing")
		t.conn.Close()
	case err != nil:
		t.logger.Debug().Err(err).Str("op", f.Op).Msg("view update dropped")
	}
}

func (t *Tab) CreateTile(el core.Element)  { t.view(viewFrame{Op: OpCreateTile, Tile: &el}) }
func (t *Tab) RemoveTile(id domain.TileID) { t.view(viewFrame{Op: OpRemoveTile, TileID: id}) }
func (t *Tab) ClearTiles()                 { t.view(viewFrame{Op: OpClearTiles}) }
func (t *Tab) SetAttendees(text string)    { t.view(viewFrame{Op: OpSetAttendees, Attendees: &text}) }
func (t *Tab) SetSharing(sharing bool)     { t.view(viewFrame{Op: OpSetSharing, Sharing: &sharing}) }
func (t *Tab) Alert(message string)        { t.view(viewFrame{Op: OpAlert, Message: message}) }

func (t *Tab) SetMeeting(meetingID, link string) {
	t.view(viewFrame{Op: OpSetMeeting, MeetingID: &meetingID, Link: &link})
}

func (t *Tab) NewDeviceController(logger zerolog.Logger) core.DeviceController {
	return &devices{tab: t, logger: logger}
}

// NewSession asks the page to build its SDK session for cfg.
func (t *Tab) NewSession(ctx context.Context, cfg core.SessionConfig, logger zerolog.Logger, _ core.DeviceController) (core.MediaSession, error) {
	if err := t.call(ctx, MethodCreateSession, cfg, nil); err != nil {
		return nil, err
	}
	s := &mediaSession{tab: t, logger: logger}
	t.mu.Lock()
	t.session = s
	t.mu.Unlock()
	logger.Debug().Str("meeting", cfg.Meeting.MeetingID).Msg("page session created")
	return s, nil
}

func (t *Tab) release(s *mediaSession) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == s {
		t.session = nil
	}
}

type devices struct {
	tab    *Tab
	logger zerolog.Logger
}

func (d *devices) ListAudioInputDevices(ctx context.Context) ([]core.Device, error) {
	var out []core.Device
	err := d.tab.call(ctx, MethodListAudioInputs, nil, &out)
	return out, err
}

func (d *devices) ListVideoInputDevices(ctx context.Context) ([]core.Device, error) {
	var out []core.Device
	err := d.tab.call(ctx, MethodListVideoInputs, nil, &out)
	return out, err
}

func (d *devices) Destroy() {
	d.tab.notify(MethodDestroyDevices, nil)
	d.logger.Debug().Msg("devices destroyed")
}

type mediaSession struct {
	tab    *Tab
	logger zerolog.Logger

	mu        sync.Mutex
	observers []core.MediaObserver
}

func (s *mediaSession) StartAudioInput(ctx context.Context, deviceID string) error {
	return s.tab.call(ctx, MethodStartAudioInput, deviceParams{DeviceID: deviceID}, nil)
}

func (s *mediaSession) StartVideoInput(ctx context.Context, deviceID string) error {
	return s.tab.call(ctx, MethodStartVideoInput, deviceParams{DeviceID: deviceID}, nil)
}

func (s *mediaSession) BindAudioOutput(ctx context.Context) error {
	return s.tab.call(ctx, MethodBindAudioOutput, nil, nil)
}

func (s *mediaSession) Start(ctx context.Context) error {
	return s.tab.call(ctx, MethodStart, nil, nil)
}

func (s *mediaSession) StartLocalVideoTile(ctx context.Context) error {
	return s.tab.call(ctx, MethodStartLocalVideoTile, nil, nil)
}

func (s *mediaSession) StartContentShare(ctx context.Context) error {
	return s.tab.call(ctx, MethodStartContentShare, nil, nil)
}

func (s *mediaSession) StopContentShare(ctx context.Context) error {
	return s.tab.call(ctx, MethodStopContentShare, nil, nil)
}

func (s *mediaSession) BindVideoElement(ctx context.Context, tile domain.TileID, elementID string) error {
	return s.tab.call(ctx, MethodBindVideoElement, bindParams{TileID: tile, ElementID: elementID}, nil)
}

func (s *mediaSession) Subscribe(o core.MediaObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *mediaSession) snapshot() []core.MediaObserver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.MediaObserver(nil), s.observers...)
}

func (s *mediaSession) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.observers = nil
	s.mu.Unlock()
	s.tab.release(s)
	return s.tab.call(ctx, MethodStop, nil, nil)
}
