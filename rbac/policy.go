package rbac

import (
	"context"
	"time"
)

// Policy is the access control surface enforcement points consume.
// AccessControl implements it; AllowAll satisfies it for deployments
// running without access control.
type Policy interface {
	// CanRead is the synchronous fast path. It consults cached state
	// only and never blocks on the network; a miss reads as false.
	// Callers wanting an authoritative answer use CanAccess.
	CanRead(userID, projectID string) bool

	// CanAccess reports whether the user holds any role on the project.
	CanAccess(ctx context.Context, userID, projectID string) (bool, error)

	// CanWrite reports whether the user can modify project data.
	CanWrite(ctx context.Context, userID, projectID string) (bool, error)

	// CanManageUsers reports whether the user can administer the
	// project, which also gates project deletion.
	CanManageUsers(ctx context.Context, userID, projectID string) (bool, error)

	// BootstrapOwner issues the admin grant for a project's creator.
	// It only succeeds while the project has no grants.
	BootstrapOwner(ctx context.Context, userID, projectID string) (*AccessGrant, error)
}

var _ Policy = (*AccessControl)(nil)
var _ Policy = AllowAll{}

// AllowAll is a Policy that approves everything. It backs
// deployments that opt out of access control.
type AllowAll struct{}

func (AllowAll) CanRead(userID, projectID string) bool { return true }

func (AllowAll) CanAccess(ctx context.Context, userID, projectID string) (bool, error) {
	return true, nil
}

func (AllowAll) CanWrite(ctx context.Context, userID, projectID string) (bool, error) {
	return true, nil
}

func (AllowAll) CanManageUsers(ctx context.Context, userID, projectID string) (bool, error) {
	return true, nil
}

func (AllowAll) BootstrapOwner(ctx context.Context, userID, projectID string) (*AccessGrant, error) {
	return &AccessGrant{
		UserID:    userID,
		ProjectID: projectID,
		Role:      RoleAdmin,
		GrantedBy: userID,
		GrantedAt: time.Now(),
	}, nil
}
