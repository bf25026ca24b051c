// Package tenancy carries the resolved tenant context of a unit of work.
//
// A Context is derived from a validated access token or built explicitly for
// internal flows with System. It is never taken from request parameters, and
// the zero value is the anonymous context that sees no tenant data.
package tenancy

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSuperAdmin   Role = "SuperAdmin"
	RoleBranchAdmin  Role = "BranchAdmin"
	RoleSectionAdmin Role = "SectionAdmin"
)

var roleRank = map[Role]int{
	RoleSuperAdmin:   3,
	RoleBranchAdmin:  2,
	RoleSectionAdmin: 1,
}

func ParseRole(s string) (Role, bool) {
	for r := range roleRank {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, true
		}
	}
	return "", false
}

func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank orders roles by privilege; unknown roles rank 0.
func (r Role) Rank() int {
	return roleRank[r]
}

// BranchScoped reports whether holders of r act within a single branch.
func (r Role) BranchScoped() bool {
	return r == RoleBranchAdmin || r == RoleSectionAdmin
}

type Context struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     Role
	BranchID uuid.UUID
}

// Anonymous is the context of an unauthenticated caller.
var Anonymous = Context{}

// System scopes internal flows (registration, refresh, invite acceptance) to
// a tenant without acting as any user.
func System(tenantID uuid.UUID) Context {
	return Context{TenantID: tenantID}
}

func (c Context) IsAnonymous() bool {
	return c.TenantID == uuid.Nil
}

// IsUser reports whether the context belongs to an authenticated user.
func (c Context) IsUser() bool {
	return c.TenantID != uuid.Nil && c.UserID != uuid.Nil
}

func (c Context) HasBranch() bool {
	return c.BranchID != uuid.Nil
}

type ctxKey struct{}

func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// Use returns the tenant context attached to ctx or Anonymous.
func Use(ctx context.Context) Context {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	if !ok {
		return Anonymous
	}
	return tc
}
