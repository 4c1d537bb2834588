// Package bridge connects a browser tab running the media SDK to a
// participant session on the server. The page forwards SDK callbacks and
// UI actions over a websocket; the server answers with view updates and
// media calls.
package bridge

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dkeye/Huddle/internal/app/lifecycle"
	"github.com/dkeye/Huddle/internal/app/session"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Config struct {
	ReadLimit   int64
	PingPeriod  time.Duration
	SendBuffer  int
	CallTimeout time.Duration
	// MaxPending caps the page events waiting for the session loop. A page
	// exceeding it is disconnected.
	MaxPending int
}

// APIFactory returns the control API used on behalf of clientID.
type APIFactory func(clientID string) core.ControlAPI

type Handler struct {
	cfg      Config
	apiFor   APIFactory
	limiter  *ActionLimiter
	tabs     *Registry
	upgrader websocket.Upgrader
}

// NewHandler returns a Handler. limiter may be nil.
func NewHandler(cfg Config, apiFor APIFactory, limiter *ActionLimiter) *Handler {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = 54 * time.Second
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 32768
	}
	return &Handler{
		cfg:     cfg,
		apiFor:  apiFor,
		limiter: limiter,
		tabs:    NewRegistry(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Tabs returns the registry of connected tabs.
func (h *Handler) Tabs() *Registry { return h.tabs }

// EntryURL is the page address the tab was opened with. The page passes
// it as the entry query parameter; without it the address is rebuilt from
// the request and its meetingId parameter.
func EntryURL(r *http.Request) string {
	if entry := r.URL.Query().Get("entry"); entry != "" {
		return entry
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: "/"}
	if id := r.URL.Query().Get("meetingId"); id != "" {
		u.RawQuery = url.Values{"meetingId": {id}}.Encode()
	}
	return u.String()
}

// Serve upgrades the request and runs a participant session until the
// socket closes or ctx ends.
func (h *Handler) Serve(ctx context.Context, c *gin.Context) {
	clientID := c.Query("clientId")
	if clientID == "" {
		clientID = c.GetString("client_token")
	}
	entry := EntryURL(c.Request)
	base := log.With().Str("client", clientID).Logger()
	logger := base.With().Str("module", "bridge").Logger()

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error().Err(err).Msg("ws upgrade")
		return
	}
	logger.Info().Str("entry", entry).Msg("new WS connection")

	conn := newConn(ws, h.cfg.SendBuffer, h.cfg.PingPeriod)
	tab := newTab(conn, clientID, logger)
	boot := session.NewBootstrap(tab, base)
	ctl, err := lifecycle.New(lifecycle.Config{EntryURL: entry, CallTimeout: h.cfg.CallTimeout, MaxPending: h.cfg.MaxPending}, h.apiFor(clientID), boot, tab, base)
	if err != nil {
		logger.Error().Err(err).Msg("bad entry url")
		conn.Close()
		return
	}
	tab.attach(ctl.Post, func() bool { return h.limiter.Allow(clientID) })
	tab.hello(ctl.Role(), ctl.MeetingID())

	tabID := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	h.tabs.Bind(tabID, clientID, ctl.Role(), entry, cancel)
	go conn.writePump(ctx)
	go func() {
		select {
		case <-ctl.Overflow():
			logger.Warn().Msg("page flooded the session, closing")
			cancel()
		case <-ctx.Done():
		}
	}()
	go func() {
		_ = ctl.Run(ctx)
		logger.Info().Msg("session loop stopped")
	}()
	go func() {
		defer func() {
			cancel()
			h.tabs.Unbind(tabID)
		}()
		conn.readPump(h.cfg.ReadLimit, tab.handle)
		tab.shutdown()
		logger.Info().Msg("WS connection closed")
	}()
}
