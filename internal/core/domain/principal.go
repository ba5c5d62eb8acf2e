package domain

import (
	"context"
	"slices"
	"strings"
)

// Principal is the identity resolved from a verified session token.
type Principal struct {
	Subject string
	Roles   []string
}

// NewPrincipal splits a comma-joined role claim into a Principal.
func NewPrincipal(subject, roleClaim string) *Principal {
	p := &Principal{Subject: subject}
	for _, r := range strings.Split(roleClaim, ",") {
		if r = strings.TrimSpace(r); r != "" {
			p.Roles = append(p.Roles, r)
		}
	}
	return p
}

// HasRole reports whether the principal carries the role.
func (p *Principal) HasRole(role string) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

// RoleClaim joins role names into the token claim format.
func RoleClaim(roles []string) string {
	return strings.Join(roles, ",")
}

type principalKey struct{}

// ContextWithPrincipal attaches p to ctx.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached by the access guard.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
