package core

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/eliote-geeks/vibestore-live/internal/domain"
)

var (
	ErrNotMember         = errors.New("not a member of the room")
	ErrUserAlreadyJoined = errors.New("user already joined from another connection")
	ErrRoomClosed        = errors.New("room closed")
)

// Room is a threadsafe in-memory broadcast scope for one competition.
// Compound mutations (broadcast start/stop, preemption, member removal) are
// single locked methods so the invariants hold under concurrent handlers:
// broadcasters is a subset of members, and the performer, if set, is a
// broadcaster. The room never closes adapter-owned transport resources.
type Room struct {
	id domain.RoomID

	mu           sync.RWMutex
	closed       bool
	members      map[domain.ConnID]*Member
	broadcasters map[domain.ConnID]*domain.Broadcaster
	performer    *domain.Performer
}

func NewRoom(id domain.RoomID) *Room {
	return &Room{
		id:           id,
		members:      make(map[domain.ConnID]*Member),
		broadcasters: make(map[domain.ConnID]*domain.Broadcaster),
	}
}

func (r *Room) ID() domain.RoomID { return r.id }

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// AddMember registers a member. With allowDuplicateUser=false a second
// connection for the same user id is rejected. Joining a closed room fails
// with ErrRoomClosed: the caller holds a stale handle and must re-resolve the
// room through the directory.
func (r *Room) AddMember(m *Member, allowDuplicateUser bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomClosed
	}
	if !allowDuplicateUser {
		for _, existing := range r.members {
			if existing.Info.UserID == m.Info.UserID {
				return ErrUserAlreadyJoined
			}
		}
	}
	r.members[m.Info.ConnID] = m
	log.Info().Str("module", "core.room").Str("room", string(r.id)).
		Str("conn", string(m.Info.ConnID)).Int64("user", int64(m.Info.UserID)).
		Msg("member added")
	return nil
}

// RemoveMember drops a connection from every room structure. It reports what
// was removed so the caller can emit the matching presence events.
func (r *Room) RemoveMember(connID domain.ConnID) (removed *domain.Participant, wasPerformer bool, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[connID]
	if !ok {
		return nil, false, len(r.members)
	}
	delete(r.members, connID)
	delete(r.broadcasters, connID)
	if r.performer != nil && r.performer.ConnID == connID {
		r.performer = nil
		wasPerformer = true
	}
	info := *m.Info
	log.Info().Str("module", "core.room").Str("room", string(r.id)).
		Str("conn", string(connID)).Msg("member removed")
	return &info, wasPerformer, len(r.members)
}

// StartBroadcast marks a member as broadcasting. asPerformer additionally
// points the room's current performer at this connection.
func (r *Room) StartBroadcast(connID domain.ConnID, role domain.Role, asPerformer bool) (*domain.Broadcaster, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[connID]
	if !ok {
		return nil, ErrNotMember
	}
	b := &domain.Broadcaster{
		ConnID:    connID,
		UserID:    m.Info.UserID,
		UserName:  m.Info.UserName,
		Role:      role,
		StartedAt: time.Now(),
	}
	r.broadcasters[connID] = b
	m.Info.IsBroadcasting = true
	m.Info.Role = role
	if asPerformer {
		r.performer = &domain.Performer{
			ConnID:    connID,
			UserID:    m.Info.UserID,
			UserName:  m.Info.UserName,
			StartedAt: b.StartedAt,
		}
	}
	return b, nil
}

// StopBroadcast clears a member's broadcasting state. Returns nil if the
// connection was not broadcasting.
func (r *Room) StopBroadcast(connID domain.ConnID) (stopped *domain.Broadcaster, wasPerformer bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.broadcasters[connID]
	if !ok {
		return nil, false
	}
	delete(r.broadcasters, connID)
	if m, ok := r.members[connID]; ok {
		m.Info.IsBroadcasting = false
	}
	if r.performer != nil && r.performer.ConnID == connID {
		r.performer = nil
		wasPerformer = true
	}
	return b, wasPerformer
}

// CloseIfEmpty marks the room closed when no members remain, so a join that
// raced the last member's cleanup cannot land in a room the directory already
// deleted. Reports whether the room is now closed.
func (r *Room) CloseIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) > 0 {
		return false
	}
	r.closed = true
	return true
}

// MemberInfo returns a copy of one member's participant info.
func (r *Room) MemberInfo(connID domain.ConnID) (*domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[connID]
	if !ok {
		return nil, false
	}
	info := *m.Info
	return &info, true
}

// Performer returns a copy of the current performer, or nil.
func (r *Room) Performer() *domain.Performer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.performer == nil {
		return nil
	}
	p := *r.performer
	return &p
}

// ParticipantsSnapshot copies the participant list for read-only use.
func (r *Room) ParticipantsSnapshot() []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Participant, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, *m.Info)
	}
	return out
}

// BroadcasterConnIDs lists the connections currently sending media.
func (r *Room) BroadcasterConnIDs() []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ConnID, 0, len(r.broadcasters))
	for id := range r.broadcasters {
		out = append(out, id)
	}
	return out
}

// Recipients snapshots the transport endpoints for fan-out, excluding the
// given connections.
func (r *Room) Recipients(exclude ...domain.ConnID) []Recipient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Recipient, 0, len(r.members))
next:
	for id, m := range r.members {
		for _, ex := range exclude {
			if id == ex {
				continue next
			}
		}
		out = append(out, Recipient{ConnID: id, UserID: m.Info.UserID, Conn: m.Conn})
	}
	return out
}

// RecipientsOfUser snapshots every connection a user currently holds in the
// room (multi-device presence means there can be more than one).
func (r *Room) RecipientsOfUser(userID domain.UserID) []Recipient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Recipient
	for id, m := range r.members {
		if m.Info.UserID == userID {
			out = append(out, Recipient{ConnID: id, UserID: userID, Conn: m.Conn})
		}
	}
	return out
}

// Stats counts connections by broadcasting state.
func (r *Room) Stats() RoomStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := RoomStats{
		RoomID:           string(r.id),
		TotalConnections: len(r.members),
		Broadcasters:     len(r.broadcasters),
	}
	s.Listeners = s.TotalConnections - s.Broadcasters
	return s
}
