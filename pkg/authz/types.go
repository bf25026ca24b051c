package authz

import (
	"strings"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
)

// Permission names an action on an object, e.g. branches/create.
type Permission struct {
	Object string
	Action string
}

func (p Permission) String() string {
	return p.Object + ":" + p.Action
}

// Request encapsulates all parameters required to evaluate a Casbin rule.
type Request struct {
	Subject string
	Object  string
	Action  string
}

// NewRequest builds the enforcement request for a role and permission.
func NewRequest(role tenancy.Role, p Permission) Request {
	return Request{
		Subject: SubjectForRole(role),
		Object:  strings.ToLower(p.Object),
		Action:  strings.ToLower(p.Action),
	}
}

// SubjectForRole maps a role onto its casbin subject.
func SubjectForRole(role tenancy.Role) string {
	return "role:" + strings.ToLower(string(role))
}
