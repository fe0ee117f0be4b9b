package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAccessControl(t *testing.T) *AccessControl {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ac, err := New(Options{Client: client})
	require.NoError(t, err)
	return ac
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("ADMIN")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	_, err = ParseRole("superuser")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRolePermissionMatrix(t *testing.T) {
	assert.True(t, RoleAdmin.Has(PermissionGrantAccess))
	assert.True(t, RoleAdmin.Has(PermissionDeleteProject))
	assert.True(t, RoleAdmin.Has(PermissionViewAuditLog))

	assert.True(t, RoleEditor.Has(PermissionReadData))
	assert.True(t, RoleEditor.Has(PermissionWriteData))
	assert.False(t, RoleEditor.Has(PermissionGrantAccess))
	assert.False(t, RoleEditor.Has(PermissionViewAuditLog))

	assert.True(t, RoleViewer.Has(PermissionReadData))
	assert.False(t, RoleViewer.Has(PermissionWriteData))

	assert.False(t, Role("superuser").Has(PermissionReadData))
}

func TestBootstrapOwner(t *testing.T) {
	ac := setupAccessControl(t)
	ctx := context.Background()

	// A fresh project's creator receives the admin grant.
	grant, err := ac.BootstrapOwner(ctx, "u1", "client_a")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, grant.Role)
	assert.Equal(t, "u1", grant.GrantedBy)

	ok, err := ac.CanManageUsers(ctx, "u1", "client_a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBootstrapDeniedOnClaimedProject(t *testing.T) {
	ac := setupAccessControl(t)
	ctx := context.Background()

	_, err := ac.BootstrapOwner(ctx, "u1", "client_a")
	require.NoError(t, err)

	// Project already has grants, so a second bootstrap is an escalation attempt.
	_, err = ac.BootstrapOwner(ctx, "u2", "client_a")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	ok, err := ac.CanAccess(ctx, "u2", "client_a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelfGrantAlwaysDenied(t *testing.T) {
	ac := setupAccessControl(t)
	ctx := context.Background()

	// GrantAccess never bootstraps, even on a project with no grants.
	// Admin on a fresh project comes only from BootstrapOwner.
	_, err := ac.GrantAccess(ctx, "u1", "orphan_proj", RoleAdmin, "u1", nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	ok, err := ac.CanManageUsers(ctx, "u1", "orphan_proj")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGrantByNonAdminDenied(t *testing.T) {
	ac := setupAccessControl(t)
	ctx := context.Background()

	_, err := ac.BootstrapOwner(ctx, "u1", "client_a")
	require.NoError(t, err)
	_, err = ac.GrantAccess(ctx, "u2", "client_a", RoleEditor, "u1", nil)
	require.NoError(t, err)

	// Editors cannot grant.
	_, err = ac.GrantAccess(ctx, "u3", "client_a", RoleViewer, "u2", nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestViewerPermissions(t *testing.T) {
	ac := setupAccessControl(t)
	ctx := context.Background()

	_, err := ac.BootstrapOwner(ctx, "u1", "client_a")
	require.NoError(t, err)
	_, err = ac.GrantAccess(ctx, "u2", "client_a", RoleViewer, "u1", nil)
	require.NoError(t, err)

	canWrite, err := ac.CanWrite(ctx, "u2", "client_a")
	require.NoError(t, err)
	assert.False(t, canWrite)

	canDelete, err := ac.CanDelete(ctx, "u2", "client_a")
	require.NoError(t, err)
	assert.False(t, canDelete)

	canRead, err := ac.HasPermission(ctx, "u2", "client_a", PermissionReadData)
	require.NoError(t, err)
	assert.True(t, canRead)
}

func TestRevokeAccess(t *testing.T) {
	ac := setupAccessControl(t)
	ctx := context.Background()

	_, err := ac.BootstrapOwner(ctx, "admin", "client_a")
	require.NoError(t, err)
	_, err = ac.GrantAccess(ctx, "u2", "client_a", RoleEditor, "admin", nil)
	require.NoError(t, err)

	existed, err := ac.RevokeAccess(ctx, "u2", "client_a", "admin")
	require.NoError(t, err)
	assert.True(t, existed)

	ok, err := ac.HasPermission(ctx, "u2", "client_a", PermissionWriteData)
	require.NoError(t, err)
	assert.False(t, ok)

	// Revoking again reports no grant existed.
	existed, err = ac.RevokeAccess(ctx, "u2", "client_a", "admin")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestRevokeByViewerDenied(t *testing.T) {
	ac := setupAccessControl(t)
	ctx := context.Background()

	_, err := ac.BootstrapOwner(ctx, "admin", "client_a")
	require.NoError(t, err)
	_, err = ac.GrantAccess(ctx, "u2", "client_a", RoleViewer, "admin", nil)
	require.NoError(t, err)

	_, err = ac.RevokeAccess(ctx, "admin", "client_a", "u2")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestExpiredGrant(t *testing.T) {
	ac := setupAccessControl(t)
	ctx := context.Background()

	_, err := ac.BootstrapOwner(ctx, "u1", "client_a")
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	_, err = ac.GrantAccess(ctx, "u2", "client_a", RoleEditor, "u1", &past)
	require.NoError(t, err)

	ok, err := ac.HasPermission(ctx, "u2", "client_a", PermissionReadData)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ac.CanAccess(ctx, "u2", "client_a")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.False(t, ac.CanRead("u2", "client_a"))
}

func TestCanReadFastPath(t *testing.T) {
	ac := setupAccessControl(t)
	ctx := context.Background()

	// Unknown user: cache miss reads as false.
	assert.False(t, ac.CanRead("ghost", "client_a"))

	_, err := ac.BootstrapOwner(ctx, "u1", "client_a")
	require.NoError(t, err)
	_, err = ac.GrantAccess(ctx, "u2", "client_a", RoleViewer, "u1", nil)
	require.NoError(t, err)

	// The grant writes populated the local tier.
	assert.True(t, ac.CanRead("u1", "client_a"))
	assert.True(t, ac.CanRead("u2", "client_a"))
}

func TestGetUserRole(t *testing.T) {
	ac := setupAccessControl(t)
	ctx := context.Background()

	_, err := ac.BootstrapOwner(ctx, "u1", "client_a")
	require.NoError(t, err)
	_, err = ac.GrantAccess(ctx, "u2", "client_a", RoleEditor, "u1", nil)
	require.NoError(t, err)

	role, err := ac.GetUserRole(ctx, "u2", "client_a")
	require.NoError(t, err)
	assert.Equal(t, RoleEditor, role)

	role, err = ac.GetUserRole(ctx, "ghost", "client_a")
	require.NoError(t, err)
	assert.Empty(t, role)
}

func TestGetUserProjectsAndProjectUsers(t *testing.T) {
	ac := setupAccessControl(t)
	ctx := context.Background()

	_, err := ac.BootstrapOwner(ctx, "u1", "client_a")
	require.NoError(t, err)
	_, err = ac.BootstrapOwner(ctx, "u1", "client_b")
	require.NoError(t, err)
	_, err = ac.GrantAccess(ctx, "u2", "client_a", RoleViewer, "u1", nil)
	require.NoError(t, err)

	projects, err := ac.GetUserProjects(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"client_a", "client_b"}, projects)

	users, err := ac.GetProjectUsers(ctx, "client_a")
	require.NoError(t, err)
	require.Len(t, users, 2)

	roles := map[string]Role{}
	for _, g := range users {
		roles[g.UserID] = g.Role
	}
	assert.Equal(t, RoleAdmin, roles["u1"])
	assert.Equal(t, RoleViewer, roles["u2"])
}

func TestAuditTrail(t *testing.T) {
	ac := setupAccessControl(t)
	ctx := context.Background()

	_, err := ac.BootstrapOwner(ctx, "u1", "client_a")
	require.NoError(t, err)
	_, err = ac.GrantAccess(ctx, "u2", "client_a", RoleViewer, "u1", nil)
	require.NoError(t, err)
	_, err = ac.GrantAccess(ctx, "u3", "client_a", RoleAdmin, "u3", nil)
	require.Error(t, err)

	entries, err := ac.GetAuditLog(ctx, "u1", 10, "")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first: the denied attempt is on top.
	assert.Equal(t, "grant_access", entries[0].Action)
	assert.Equal(t, AuditDenied, entries[0].Result)
	assert.Equal(t, "u3", entries[0].UserID)
	assert.NotEmpty(t, entries[0].ID)

	assert.Equal(t, AuditSuccess, entries[1].Result)
	assert.Equal(t, "u2", entries[1].TargetUserID)

	assert.Equal(t, "bootstrap_owner", entries[2].Action)
	assert.Equal(t, AuditSuccess, entries[2].Result)
}

func TestAuditLogProjectFilterGated(t *testing.T) {
	ac := setupAccessControl(t)
	ctx := context.Background()

	_, err := ac.BootstrapOwner(ctx, "u1", "client_a")
	require.NoError(t, err)
	_, err = ac.GrantAccess(ctx, "u2", "client_a", RoleViewer, "u1", nil)
	require.NoError(t, err)

	// Admin can read the project-filtered audit log.
	entries, err := ac.GetAuditLog(ctx, "u1", 10, "client_a")
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	// Viewer cannot.
	_, err = ac.GetAuditLog(ctx, "u2", 10, "client_a")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestAuditDisabled(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ac, err := New(Options{Client: client, DisableAudit: true})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = ac.BootstrapOwner(ctx, "u1", "client_a")
	require.NoError(t, err)

	entries, err := ac.GetAuditLog(ctx, "u1", 10, "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInvalidRoleRejected(t *testing.T) {
	ac := setupAccessControl(t)

	_, err := ac.GrantAccess(context.Background(), "u1", "client_a", Role("root"), "u1", nil)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestCanReadCtx(t *testing.T) {
	ac := setupAccessControl(t)
	ctx := context.Background()

	_, err := ac.BootstrapOwner(ctx, "owner", "client_a")
	require.NoError(t, err)
	_, err = ac.GrantAccess(ctx, "viewer", "client_a", RoleViewer, "owner", nil)
	require.NoError(t, err)

	ok, err := ac.CanReadCtx(ctx, "viewer", "client_a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ac.CanReadCtx(ctx, "stranger", "client_a")
	require.NoError(t, err)
	assert.False(t, ok)
}
