package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

const writeWait = 5 * time.Second

// Conn owns one websocket. Writes go through the send queue and a single
// write pump; reads happen on the read pump only.
type Conn struct {
	ws         *websocket.Conn
	send       chan []byte
	pingPeriod time.Duration

	mu     sync.RWMutex
	closed bool
}

func newConn(ws *websocket.Conn, sendBuffer int, pingPeriod time.Duration) *Conn {
	return &Conn{
		ws:         ws,
		send:       make(chan []byte, sendBuffer),
		pingPeriod: pingPeriod,
	}
}

func (c *Conn) TrySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) sendJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.TrySend(b)
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
}

func (c *Conn) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "bridge").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "bridge").Msg("writePump set deadline")
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "bridge").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "bridge").Msg("writePump ping")
				return
			}
		}
	}
}

// readPump delivers every text frame to handle until the socket fails.
func (c *Conn) readPump(readLimit int64, handle func([]byte)) {
	defer c.Close()

	pongWait := c.pingPeriod * 10 / 9
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "bridge").Msg("readPump read error")
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		handle(data)
	}
}
