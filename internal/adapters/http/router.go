package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Huddle/internal/adapters/bridge"
	"github.com/dkeye/Huddle/internal/adapters/memory"
	"github.com/dkeye/Huddle/internal/app/gateway"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "ct"

// MeetingLister lists live meetings. Only the in-memory control plane
// offers it.
type MeetingLister interface {
	List() []memory.MeetingInfo
}

type Deps struct {
	Gateway  *gateway.Service
	Bridge   *bridge.Handler
	Meetings MeetingLister
}

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware keeps a per-browser client token in the session
// cookie and exposes it as client_token.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save client token")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("HuddleSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	// POST /api/meeting?clientId={id}&meetingId={id}
	api.POST("/meeting", actionHandler(deps.Gateway))
	// POST /api/recording?clientId={id}
	api.POST("/recording", actionHandler(deps.Gateway))

	if deps.Meetings != nil {
		api.GET("/meetings", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"meetings": deps.Meetings.List()})
		})
	}

	tabs := deps.Bridge.Tabs()
	api.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": tabs.List()})
	})
	// DELETE /api/sessions/{tabId}
	api.DELETE("/sessions/:id", func(c *gin.Context) {
		if !tabs.Cancel(c.Param("id")) {
			c.JSON(http.StatusNotFound, gateway.ErrorReply{Error: "session not found"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	// GET /api/ws/session?clientId={id}&entry={page url}
	api.GET("/ws/session", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws session endpoint hit")
		deps.Bridge.Serve(ctx, c)
	})

	return r
}

func actionHandler(gw *gateway.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req gateway.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gateway.ErrorReply{Error: "malformed request body"})
			return
		}
		q := gateway.Query{
			ClientID:  c.Query("clientId"),
			MeetingID: c.Query("meetingId"),
		}
		if q.ClientID == "" {
			q.ClientID = c.GetString("client_token")
		}
		res := gw.Handle(c.Request.Context(), q, req)
		c.JSON(res.Status, res.Body)
	}
}
