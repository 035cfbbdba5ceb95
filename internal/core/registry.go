package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/eliote-geeks/vibestore-live/internal/domain"
)

type connContext struct {
	Conn   SignalConnection
	RoomID domain.RoomID
}

// Registry is the reverse index from connection id to transport endpoint and
// current room. It answers "which room is this connection in" in O(1) on
// message receipt and on disconnect.
type Registry struct {
	mu      sync.RWMutex
	entries map[domain.ConnID]*connContext
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[domain.ConnID]*connContext)}
}

func (r *Registry) Add(connID domain.ConnID, conn SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[connID] = &connContext{Conn: conn}
	log.Info().Str("module", "core.registry").Str("conn", string(connID)).Msg("connection registered")
}

func (r *Registry) Conn(connID domain.ConnID) (SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[connID]
	if !ok {
		return nil, false
	}
	return e.Conn, true
}

// RoomOf reports the room a connection joined, if any.
func (r *Registry) RoomOf(connID domain.ConnID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[connID]
	if !ok || e.RoomID == "" {
		return "", false
	}
	return e.RoomID, true
}

func (r *Registry) SetRoom(connID domain.ConnID, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[connID]
	if !ok {
		return false
	}
	e.RoomID = roomID
	return true
}

func (r *Registry) ClearRoom(connID domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[connID]; ok {
		e.RoomID = ""
	}
}

// Remove forgets the connection entirely. Safe to call twice.
func (r *Registry) Remove(connID domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[connID]; !ok {
		return
	}
	delete(r.entries, connID)
	log.Info().Str("module", "core.registry").Str("conn", string(connID)).Msg("connection removed")
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
