package domain

// Role is a caller-supplied capability token. The coordinator never checks it
// against a user store; it only consults the grants table below.
type Role string

const (
	RoleSpectator          Role = "spectator"
	RoleCurrentParticipant Role = "current_participant"
	RoleCompetitionAdmin   Role = "competition_admin"
	RolePlatformAdmin      Role = "platform_admin"
)

// Grants describes what a role may do inside a room.
type Grants struct {
	CanBroadcast         bool
	CanChangeParticipant bool
}

var roleGrants = map[Role]Grants{
	RoleCurrentParticipant: {CanBroadcast: true},
	RoleCompetitionAdmin:   {CanBroadcast: true, CanChangeParticipant: true},
	RolePlatformAdmin:      {CanBroadcast: true, CanChangeParticipant: true},
}

// GrantsFor returns the grants table entry for a role. Unknown roles get the
// zero Grants, same as a spectator.
func GrantsFor(r Role) Grants {
	return roleGrants[r]
}

func (r Role) CanBroadcast() bool         { return GrantsFor(r).CanBroadcast }
func (r Role) CanChangeParticipant() bool { return GrantsFor(r).CanChangeParticipant }
