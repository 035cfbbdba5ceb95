package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliote-geeks/vibestore-live/internal/domain"
)

type nopConn struct{}

func (nopConn) TrySend(Frame) error { return nil }
func (nopConn) Close()              {}

func member(t *testing.T, connID string, userID int64, name string, role domain.Role) *Member {
	t.Helper()
	p, err := domain.NewParticipant(domain.ConnID(connID), domain.UserID(userID), name, role)
	require.NoError(t, err)
	return &Member{Info: p, Conn: nopConn{}}
}

func TestRoomAddRemoveMember(t *testing.T) {
	r := NewRoom("competition_7")

	require.NoError(t, r.AddMember(member(t, "c1", 1, "Amara", domain.RoleCurrentParticipant), true))
	require.NoError(t, r.AddMember(member(t, "c2", 2, "Biya", domain.RoleSpectator), true))
	assert.Equal(t, 2, r.MemberCount())

	removed, wasPerformer, remaining := r.RemoveMember("c1")
	require.NotNil(t, removed)
	assert.Equal(t, domain.UserID(1), removed.UserID)
	assert.False(t, wasPerformer)
	assert.Equal(t, 1, remaining)

	// Removing an unknown connection is a no-op.
	removed, _, remaining = r.RemoveMember("c1")
	assert.Nil(t, removed)
	assert.Equal(t, 1, remaining)
}

func TestRoomDuplicateUserRejected(t *testing.T) {
	r := NewRoom("competition_7")
	require.NoError(t, r.AddMember(member(t, "c1", 1, "Amara", domain.RoleSpectator), false))

	err := r.AddMember(member(t, "c2", 1, "Amara", domain.RoleSpectator), false)
	assert.ErrorIs(t, err, ErrUserAlreadyJoined)

	// Same user, multi-connection allowed.
	assert.NoError(t, r.AddMember(member(t, "c3", 1, "Amara", domain.RoleSpectator), true))
}

func TestRoomBroadcastLifecycle(t *testing.T) {
	r := NewRoom("competition_7")
	require.NoError(t, r.AddMember(member(t, "c1", 1, "Amara", domain.RoleCurrentParticipant), true))

	b, err := r.StartBroadcast("c1", domain.RoleCurrentParticipant, true)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID(1), b.UserID)

	info, ok := r.MemberInfo("c1")
	require.True(t, ok)
	assert.True(t, info.IsBroadcasting)

	p := r.Performer()
	require.NotNil(t, p)
	assert.Equal(t, domain.ConnID("c1"), p.ConnID)
	assert.Equal(t, "Amara", p.UserName)

	stopped, wasPerformer := r.StopBroadcast("c1")
	require.NotNil(t, stopped)
	assert.True(t, wasPerformer)
	assert.Nil(t, r.Performer())

	info, _ = r.MemberInfo("c1")
	assert.False(t, info.IsBroadcasting)

	// Stopping twice is a silent no-op.
	stopped, _ = r.StopBroadcast("c1")
	assert.Nil(t, stopped)
}

func TestRoomStartBroadcastRequiresMembership(t *testing.T) {
	r := NewRoom("competition_7")
	_, err := r.StartBroadcast("ghost", domain.RoleCurrentParticipant, true)
	assert.ErrorIs(t, err, ErrNotMember)
	assert.Nil(t, r.Performer())
}

func TestRoomRemoveMemberClearsBroadcastState(t *testing.T) {
	r := NewRoom("competition_7")
	require.NoError(t, r.AddMember(member(t, "c1", 1, "Amara", domain.RoleCurrentParticipant), true))
	_, err := r.StartBroadcast("c1", domain.RoleCurrentParticipant, true)
	require.NoError(t, err)

	_, wasPerformer, _ := r.RemoveMember("c1")
	assert.True(t, wasPerformer)
	assert.Nil(t, r.Performer())
	assert.Empty(t, r.BroadcasterConnIDs())
}

func TestRoomRecipientsExcludes(t *testing.T) {
	r := NewRoom("competition_7")
	require.NoError(t, r.AddMember(member(t, "c1", 1, "Amara", domain.RoleSpectator), true))
	require.NoError(t, r.AddMember(member(t, "c2", 2, "Biya", domain.RoleSpectator), true))
	require.NoError(t, r.AddMember(member(t, "c3", 2, "Biya", domain.RoleSpectator), true))

	rcpts := r.Recipients("c2")
	assert.Len(t, rcpts, 2)
	for _, rc := range rcpts {
		assert.NotEqual(t, domain.ConnID("c2"), rc.ConnID)
	}

	// Multi-device: every connection of the user is a relay target.
	assert.Len(t, r.RecipientsOfUser(2), 2)
	assert.Empty(t, r.RecipientsOfUser(99))
}

func TestRoomStats(t *testing.T) {
	r := NewRoom("competition_42")
	require.NoError(t, r.AddMember(member(t, "c1", 1, "Amara", domain.RoleCurrentParticipant), true))
	require.NoError(t, r.AddMember(member(t, "c2", 2, "Biya", domain.RoleSpectator), true))
	_, err := r.StartBroadcast("c1", domain.RoleCurrentParticipant, true)
	require.NoError(t, err)

	s := r.Stats()
	assert.Equal(t, "competition_42", s.RoomID)
	assert.Equal(t, 2, s.TotalConnections)
	assert.Equal(t, 1, s.Broadcasters)
	assert.Equal(t, 1, s.Listeners)
}

func TestDirectoryLifecycle(t *testing.T) {
	d := NewDirectory()
	r1 := d.GetOrCreate("competition_1")
	assert.Same(t, r1, d.GetOrCreate("competition_1"))

	require.NoError(t, r1.AddMember(member(t, "c1", 1, "Amara", domain.RoleSpectator), true))
	assert.False(t, d.RemoveIfEmpty("competition_1"))

	r1.RemoveMember("c1")
	assert.True(t, d.RemoveIfEmpty("competition_1"))
	_, ok := d.Get("competition_1")
	assert.False(t, ok)

	// Removing an absent room reports it gone.
	assert.True(t, d.RemoveIfEmpty("competition_404"))
}

func TestDirectoryClosesRoomOnRemoval(t *testing.T) {
	d := NewDirectory()
	r1 := d.GetOrCreate("competition_1")
	require.True(t, d.RemoveIfEmpty("competition_1"))

	// A join holding the removed handle must fail and re-resolve.
	err := r1.AddMember(member(t, "c1", 1, "Amara", domain.RoleSpectator), true)
	assert.ErrorIs(t, err, ErrRoomClosed)

	r2 := d.GetOrCreate("competition_1")
	assert.NotSame(t, r1, r2)
	assert.NoError(t, r2.AddMember(member(t, "c1", 1, "Amara", domain.RoleSpectator), true))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Add("c1", nopConn{})

	_, ok := reg.RoomOf("c1")
	assert.False(t, ok)

	require.True(t, reg.SetRoom("c1", "competition_1"))
	roomID, ok := reg.RoomOf("c1")
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("competition_1"), roomID)

	reg.ClearRoom("c1")
	_, ok = reg.RoomOf("c1")
	assert.False(t, ok)

	reg.Remove("c1")
	reg.Remove("c1")
	assert.Equal(t, 0, reg.Count())

	assert.False(t, reg.SetRoom("ghost", "competition_1"))
}
