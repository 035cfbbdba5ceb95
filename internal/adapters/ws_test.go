package adapters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliote-geeks/vibestore-live/internal/core"
)

func TestWSConnBackpressure(t *testing.T) {
	c := newWSConn(nil, 1, time.Minute)

	require.NoError(t, c.TrySend(core.Frame(`{"type":"heartbeat-response"}`)))
	// Buffer full: refuse instead of blocking the handler.
	assert.ErrorIs(t, c.TrySend(core.Frame(`{}`)), ErrBackpressure)
}

func TestWSConnSendAfterClose(t *testing.T) {
	c := newWSConn(nil, 4, time.Minute)
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	assert.Error(t, c.TrySend(core.Frame(`{}`)))
}

func TestWSConnKeepaliveDefaults(t *testing.T) {
	c := newWSConn(nil, 4, 0)

	assert.Equal(t, defaultPingPeriod, c.pingPeriod)
	// The read side must tolerate silence strictly longer than the ping
	// interval, otherwise healthy clients get dropped between pings.
	assert.Greater(t, pongWait(c.pingPeriod), c.pingPeriod)
}
