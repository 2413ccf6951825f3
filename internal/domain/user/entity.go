package user

import "github.com/google/uuid"

// Actor is the authenticated caller of a booking operation.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

func NewActor(userID uuid.UUID, role Role) Actor {
	return Actor{UserID: userID, Role: role}
}

func SystemActor() Actor {
	return Actor{UserID: uuid.Nil, Role: RoleSystem}
}

func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a Actor) IsSystem() bool { return a.Role == RoleSystem }

// IsPrivileged actors bypass per-center authorization.
func (a Actor) IsPrivileged() bool {
	return a.IsAdmin() || a.IsSystem()
}
