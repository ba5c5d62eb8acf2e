package domain

import (
	"slices"
	"time"
)

// Account models a registered user. Email is unique and compared exactly as
// stored; ID and Email never change after creation.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
	LastLoginAt  *time.Time
	// Version is maintained by the store for optimistic concurrency. Zero
	// means the account has never been persisted.
	Version int64
}

// HasRole reports whether the account already holds a role with this name.
func (a *Account) HasRole(name string) bool {
	return slices.ContainsFunc(a.Roles, func(r Role) bool { return r.Name == name })
}

// AddRole appends the role to the account. It returns ErrBadRequest if the
// role is already held; duplicate assignment is never a silent no-op.
func (a *Account) AddRole(role Role) error {
	if a.HasRole(role.Name) {
		return ErrBadRequest
	}
	a.Roles = append(a.Roles, role)
	return nil
}

// RoleNames returns the names of the held roles in assignment order.
func (a *Account) RoleNames() []string {
	names := make([]string, 0, len(a.Roles))
	for _, r := range a.Roles {
		names = append(names, r.Name)
	}
	return names
}

// Profile is the read projection of an Account returned to callers and
// stored in the profile cache.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// ToProfile projects the account. Roles is never nil so an account without
// roles serialises as an empty set.
func (a *Account) ToProfile() *Profile {
	return &Profile{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Roles:     a.RoleNames(),
		CreatedAt: a.CreatedAt,
	}
}
