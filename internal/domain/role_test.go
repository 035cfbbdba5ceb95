package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleGrants(t *testing.T) {
	tests := []struct {
		role                 Role
		canBroadcast         bool
		canChangeParticipant bool
	}{
		{RoleCurrentParticipant, true, false},
		{RoleCompetitionAdmin, true, true},
		{RolePlatformAdmin, true, true},
		{RoleSpectator, false, false},
		{Role("dj_invite"), false, false},
		{Role(""), false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.canBroadcast, tt.role.CanBroadcast())
			assert.Equal(t, tt.canChangeParticipant, tt.role.CanChangeParticipant())
		})
	}
}

func TestCompetitionID(t *testing.T) {
	assert.Equal(t, "42", RoomID("competition_42").CompetitionID())
	assert.Equal(t, "backstage", RoomID("backstage").CompetitionID())
	assert.Equal(t, RoomID("competition_42"), RoomIDForCompetition("42"))
	assert.Equal(t, RoomID("competition_42"), RoomIDForCompetition("competition_42"))
}

func TestNewParticipantValidation(t *testing.T) {
	_, err := NewParticipant("c1", 1, "", RoleSpectator)
	assert.ErrorIs(t, err, ErrUserNameEmpty)

	long := make([]byte, MaxUserNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = NewParticipant("c1", 1, string(long), RoleSpectator)
	assert.ErrorIs(t, err, ErrUserNameTooLong)

	p, err := NewParticipant("c1", 1, "Amara", RoleSpectator)
	assert.NoError(t, err)
	assert.True(t, p.IsListening)
	assert.False(t, p.IsBroadcasting)
}
