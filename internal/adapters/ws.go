// Package adapters owns the transport layer: WebSocket endpoints feeding the
// coordinator raw frames and lifecycle notifications.
package adapters

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/eliote-geeks/vibestore-live/internal/core"
	"github.com/eliote-geeks/vibestore-live/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

const (
	writeWait         = 5 * time.Second
	defaultPingPeriod = 54 * time.Second
)

// pongWait is how long the read side tolerates silence; pings must fire
// comfortably inside it.
func pongWait(pingPeriod time.Duration) time.Duration {
	return pingPeriod * 10 / 9
}

// wsConn implements core.SignalConnection over a gorilla websocket.
// Outbound frames go through a buffered channel; a full buffer means the
// client is too slow and the frame is refused rather than blocking a handler.
type wsConn struct {
	conn       *websocket.Conn
	send       chan core.Frame
	pingPeriod time.Duration

	mu     sync.RWMutex
	closed bool
}

func newWSConn(conn *websocket.Conn, sendBuffer int, pingPeriod time.Duration) *wsConn {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	if pingPeriod <= 0 {
		pingPeriod = defaultPingPeriod
	}
	return &wsConn{
		conn:       conn,
		send:       make(chan core.Frame, sendBuffer),
		pingPeriod: pingPeriod,
	}
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (c *wsConn) writePump(ctx context.Context, connID domain.ConnID) {
	ticker := time.NewTicker(c.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "adapters.ws").Str("conn", string(connID)).Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "adapters.ws").Str("conn", string(connID)).Msg("writePump ping error")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "adapters.ws").Str("conn", string(connID)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
				return
			}
		}
	}
}
