package core

import (
	"sync"

	"github.com/eliote-geeks/vibestore-live/internal/domain"
)

// Directory owns the live room set. Rooms are created lazily on first join
// and dropped the moment they empty; there is no idle-room reaper.
type Directory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*Room
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[domain.RoomID]*Room)}
}

func (d *Directory) GetOrCreate(id domain.RoomID) *Room {
	d.mu.RLock()
	room, ok := d.rooms[id]
	d.mu.RUnlock()
	if ok {
		return room
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if room, ok = d.rooms[id]; ok {
		return room
	}
	room = NewRoom(id)
	d.rooms[id] = room
	return room
}

func (d *Directory) Get(id domain.RoomID) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[id]
	return room, ok
}

// RemoveIfEmpty deletes the room unless members remain. The room is closed
// under its own lock before deletion so a concurrent join holding the old
// handle fails and re-resolves instead of entering a deleted room. Reports
// whether the room is gone afterwards.
func (d *Directory) RemoveIfEmpty(id domain.RoomID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[id]
	if !ok {
		return true
	}
	if !room.CloseIfEmpty() {
		return false
	}
	delete(d.rooms, id)
	return true
}

func (d *Directory) List() []RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]RoomInfo, 0, len(d.rooms))
	for id, r := range d.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: r.MemberCount()})
	}
	return out
}
