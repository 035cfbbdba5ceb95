package app

import "github.com/eliote-geeks/vibestore-live/internal/domain"

// Authorizer decides privileged actions. The default consults the static role
// grants table; deployments swap in a real policy call here.
type Authorizer interface {
	CanBroadcast(role domain.Role) bool
	CanChangeParticipant(role domain.Role) bool
}

type RolePolicy struct{}

func (RolePolicy) CanBroadcast(role domain.Role) bool         { return role.CanBroadcast() }
func (RolePolicy) CanChangeParticipant(role domain.Role) bool { return role.CanChangeParticipant() }
