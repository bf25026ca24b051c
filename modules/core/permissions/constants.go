// Package permissions lists what each operation of the core module requires
// and the default role policy.
package permissions

import (
	_ "embed"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/authz"
)

const (
	ObjectTenant   = "tenant"
	ObjectBranches = "branches"
	ObjectUsers    = "users"
)

var (
	TenantOnboard = authz.Permission{Object: ObjectTenant, Action: "onboard"}

	BranchRead   = authz.Permission{Object: ObjectBranches, Action: "read"}
	BranchCreate = authz.Permission{Object: ObjectBranches, Action: "create"}
	BranchUpdate = authz.Permission{Object: ObjectBranches, Action: "update"}
	BranchDelete = authz.Permission{Object: ObjectBranches, Action: "delete"}

	UserRead    = authz.Permission{Object: ObjectUsers, Action: "read"}
	UserInvite  = authz.Permission{Object: ObjectUsers, Action: "invite"}
	UserSuspend = authz.Permission{Object: ObjectUsers, Action: "suspend"}
	UserDelete  = authz.Permission{Object: ObjectUsers, Action: "delete"}
)

// Policy is the built-in role policy in casbin CSV form.
//
//go:embed policy.csv
var Policy string
