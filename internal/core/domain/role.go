package domain

import "strings"

// RolePrefix marks every stored role name.
const RolePrefix = "ROLE_"

const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// Role is a named grant. Names are unique and always stored normalized.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NormalizeRoleName upper-cases name and prepends RolePrefix when missing, so
// "admin", "Admin" and "ROLE_ADMIN" all become "ROLE_ADMIN".
func NormalizeRoleName(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(n, RolePrefix) {
		n = RolePrefix + n
	}
	return n
}
