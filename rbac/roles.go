package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRole indicates a role outside the three-tier system.
var ErrInvalidRole = errors.New("rbac: invalid role")

// Role is a user's access tier on a project.
type Role string

const (
	// RoleAdmin has full access: project lifecycle, user management,
	// and all data operations.
	RoleAdmin Role = "admin"

	// RoleEditor has read and write access to project data but cannot
	// manage users or the project itself.
	RoleEditor Role = "editor"

	// RoleViewer has read-only access to project data.
	RoleViewer Role = "viewer"
)

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the role is one of the defined tiers.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Validate returns an error if the role is not a defined tier.
func (r Role) Validate() error {
	if !r.IsValid() {
		return fmt.Errorf("%w: %q (must be admin, editor, or viewer)", ErrInvalidRole, r)
	}
	return nil
}

// ParseRole converts a string to a Role, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(s))
	if err := r.Validate(); err != nil {
		return "", err
	}
	return r, nil
}

// Permission is a granular capability checked against the role matrix.
type Permission string

const (
	PermissionCreateProject  Permission = "create_project"
	PermissionDeleteProject  Permission = "delete_project"
	PermissionArchiveProject Permission = "archive_project"

	PermissionReadData   Permission = "read_data"
	PermissionWriteData  Permission = "write_data"
	PermissionDeleteData Permission = "delete_data"

	PermissionGrantAccess  Permission = "grant_access"
	PermissionRevokeAccess Permission = "revoke_access"

	PermissionViewAuditLog    Permission = "view_audit_log"
	PermissionManageTemplates Permission = "manage_templates"
)

// rolePermissions maps each role to the permissions it carries.
var rolePermissions = map[Role]map[Permission]struct{}{
	RoleAdmin: {
		PermissionCreateProject: {}, PermissionDeleteProject: {}, PermissionArchiveProject: {},
		PermissionReadData: {}, PermissionWriteData: {}, PermissionDeleteData: {},
		PermissionGrantAccess: {}, PermissionRevokeAccess: {},
		PermissionViewAuditLog: {}, PermissionManageTemplates: {},
	},
	RoleEditor: {
		PermissionReadData: {}, PermissionWriteData: {}, PermissionDeleteData: {},
	},
	RoleViewer: {
		PermissionReadData: {},
	},
}

// Has reports whether the role carries the given permission. An
// undefined role carries nothing.
func (r Role) Has(p Permission) bool {
	perms, ok := rolePermissions[r]
	if !ok {
		return false
	}
	_, ok = perms[p]
	return ok
}

// Permissions returns the permissions carried by the role.
func (r Role) Permissions() []Permission {
	perms := rolePermissions[r]
	out := make([]Permission, 0, len(perms))
	for p := range perms {
		out = append(out, p)
	}
	return out
}
