package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/tessera-labs/graphgate/cache"
)

// ErrPermissionDenied indicates the acting user lacks the permission
// an operation requires.
var ErrPermissionDenied = errors.New("rbac: permission denied")

// DefaultCacheTTL is how long grant lookups are cached when no TTL is
// configured.
const DefaultCacheTTL = 5 * time.Minute

// Options configures an AccessControl instance.
type Options struct {
	// RedisURL is the Redis connection string. Defaults to
	// "redis://localhost:6379". Ignored when Client is set.
	RedisURL string

	// Client overrides URL-based connection, mainly for tests.
	Client *redis.Client

	// CacheTTL bounds grant cache entries. Defaults to DefaultCacheTTL.
	CacheTTL time.Duration

	// DisableAudit turns off the audit trail.
	DisableAudit bool

	// Logger receives structured access control events. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Meter provides access control counters. Defaults to a no-op meter.
	Meter metric.Meter
}

// AccessControl manages user to project role mappings with
// Redis-backed storage, a two-tier permission cache, and an audit
// trail. All methods are safe for concurrent use.
type AccessControl struct {
	client       *redis.Client
	grants       *cache.Cache
	cacheTTL     time.Duration
	auditEnabled bool
	logger       *slog.Logger

	grantsIssued  metric.Int64Counter
	checksDenied  metric.Int64Counter
	ownConnection bool
}

// New creates an AccessControl and verifies the Redis connection.
func New(opts Options) (*AccessControl, error) {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Meter == nil {
		opts.Meter = noop.Meter{}
	}

	client := opts.Client
	ownConnection := false
	if client == nil {
		url := opts.RedisURL
		if url == "" {
			url = "redis://localhost:6379"
		}

		redisOpts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		client = redis.NewClient(redisOpts)
		ownConnection = true

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}

	grantsIssued, err := opts.Meter.Int64Counter("rbac.grants.issued",
		metric.WithDescription("Access grants issued"))
	if err != nil {
		return nil, fmt.Errorf("failed to create grants counter: %w", err)
	}
	checksDenied, err := opts.Meter.Int64Counter("rbac.checks.denied",
		metric.WithDescription("Permission checks and operations denied"))
	if err != nil {
		return nil, fmt.Errorf("failed to create denials counter: %w", err)
	}

	ac := &AccessControl{
		client:        client,
		grants:        cache.New(client, opts.CacheTTL, opts.Logger),
		cacheTTL:      opts.CacheTTL,
		auditEnabled:  !opts.DisableAudit,
		logger:        opts.Logger,
		grantsIssued:  grantsIssued,
		checksDenied:  checksDenied,
		ownConnection: ownConnection,
	}

	ac.logger.Info("access control initialized",
		"cache_ttl", opts.CacheTTL,
		"audit_enabled", ac.auditEnabled)

	return ac, nil
}

// Close releases the Redis connection if this instance opened it.
func (ac *AccessControl) Close() error {
	if !ac.ownConnection {
		return nil
	}
	return ac.client.Close()
}

// GrantAccess grants a user a role on a project. The grantor must hold
// the grant_access permission on the project; a project's first admin
// comes from BootstrapOwner during project creation, never from here.
//
// Grants without an expiration are stored with the cache TTL as their
// Redis expiry; expiring grants are stored without Redis expiry and
// filtered at read time so the recorded ExpiresAt stays authoritative.
func (ac *AccessControl) GrantAccess(ctx context.Context, userID, projectID string, role Role, grantedBy string, expiresAt *time.Time) (*AccessGrant, error) {
	if err := role.Validate(); err != nil {
		return nil, err
	}

	allowed, err := ac.HasPermission(ctx, grantedBy, projectID, PermissionGrantAccess)
	if err != nil {
		return nil, err
	}
	if !allowed {
		ac.checksDenied.Add(ctx, 1)
		ac.recordAudit(ctx, AuditEntry{
			UserID:       grantedBy,
			Action:       "grant_access",
			ProjectID:    projectID,
			TargetUserID: userID,
			Result:       AuditDenied,
			Details:      map[string]any{"reason": "insufficient_permissions"},
		})
		return nil, fmt.Errorf("%w: user %s cannot grant access to project %s",
			ErrPermissionDenied, grantedBy, projectID)
	}

	grant := &AccessGrant{
		UserID:    userID,
		ProjectID: projectID,
		Role:      role,
		GrantedBy: grantedBy,
		GrantedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
	if err := ac.storeGrant(ctx, grant); err != nil {
		return nil, err
	}

	ac.grantsIssued.Add(ctx, 1)
	details := map[string]any{"role": role.String()}
	if expiresAt != nil {
		details["expires_at"] = expiresAt.Format(time.RFC3339)
	}
	ac.recordAudit(ctx, AuditEntry{
		UserID:       grantedBy,
		Action:       "grant_access",
		ProjectID:    projectID,
		TargetUserID: userID,
		Result:       AuditSuccess,
		Details:      details,
	})

	ac.logger.Info("access granted",
		"user_id", userID,
		"project_id", projectID,
		"role", role,
		"granted_by", grantedBy)

	return grant, nil
}

// BootstrapOwner issues the admin grant for a project's creator. It
// only succeeds while the project has no grants at all; once any grant
// exists, access changes go through GrantAccess and its permission
// check.
func (ac *AccessControl) BootstrapOwner(ctx context.Context, userID, projectID string) (*AccessGrant, error) {
	hasGrants, err := ac.projectHasGrants(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if hasGrants {
		ac.checksDenied.Add(ctx, 1)
		ac.recordAudit(ctx, AuditEntry{
			UserID:       userID,
			Action:       "bootstrap_owner",
			ProjectID:    projectID,
			TargetUserID: userID,
			Result:       AuditDenied,
			Details:      map[string]any{"reason": "project_already_claimed"},
		})
		return nil, fmt.Errorf("%w: project %s already has grants",
			ErrPermissionDenied, projectID)
	}

	grant := &AccessGrant{
		UserID:    userID,
		ProjectID: projectID,
		Role:      RoleAdmin,
		GrantedBy: userID,
		GrantedAt: time.Now(),
	}
	if err := ac.storeGrant(ctx, grant); err != nil {
		return nil, err
	}

	ac.grantsIssued.Add(ctx, 1)
	ac.recordAudit(ctx, AuditEntry{
		UserID:       userID,
		Action:       "bootstrap_owner",
		ProjectID:    projectID,
		TargetUserID: userID,
		Result:       AuditSuccess,
		Details:      map[string]any{"role": RoleAdmin.String()},
	})

	ac.logger.Info("project owner bootstrapped",
		"user_id", userID,
		"project_id", projectID)

	return grant, nil
}

// storeGrant writes the grant record to Redis. Grants without an
// expiration get the cache TTL as their Redis expiry.
func (ac *AccessControl) storeGrant(ctx context.Context, grant *AccessGrant) error {
	data, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("failed to marshal grant: %w", err)
	}

	ttl := ac.cacheTTL
	if grant.ExpiresAt != nil {
		ttl = 0
	}
	if err := ac.grants.Set(ctx, grantKey(grant.UserID, grant.ProjectID), string(data), ttl); err != nil {
		return fmt.Errorf("failed to store grant: %w", err)
	}
	return nil
}

// RevokeAccess removes a user's grant on a project. The revoker must
// hold the revoke_access permission. Returns whether a grant existed.
func (ac *AccessControl) RevokeAccess(ctx context.Context, userID, projectID, revokedBy string) (bool, error) {
	allowed, err := ac.HasPermission(ctx, revokedBy, projectID, PermissionRevokeAccess)
	if err != nil {
		return false, err
	}
	if !allowed {
		ac.checksDenied.Add(ctx, 1)
		ac.recordAudit(ctx, AuditEntry{
			UserID:       revokedBy,
			Action:       "revoke_access",
			ProjectID:    projectID,
			TargetUserID: userID,
			Result:       AuditDenied,
			Details:      map[string]any{"reason": "insufficient_permissions"},
		})
		return false, fmt.Errorf("%w: user %s cannot revoke access to project %s",
			ErrPermissionDenied, revokedBy, projectID)
	}

	key := grantKey(userID, projectID)
	existed, err := ac.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check grant: %w", err)
	}
	if err := ac.grants.Delete(ctx, key); err != nil {
		return false, fmt.Errorf("failed to delete grant: %w", err)
	}

	ac.recordAudit(ctx, AuditEntry{
		UserID:       revokedBy,
		Action:       "revoke_access",
		ProjectID:    projectID,
		TargetUserID: userID,
		Result:       AuditSuccess,
	})

	ac.logger.Info("access revoked",
		"user_id", userID,
		"project_id", projectID,
		"revoked_by", revokedBy,
		"existed", existed > 0)

	return existed > 0, nil
}

// HasPermission reports whether the user holds a specific permission
// on a project. Expired grants read as no permission.
func (ac *AccessControl) HasPermission(ctx context.Context, userID, projectID string, permission Permission) (bool, error) {
	grant, err := ac.getGrant(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	if grant == nil {
		return false, nil
	}

	if grant.Expired(time.Now()) {
		ac.logger.Warn("expired grant accessed",
			"user_id", userID,
			"project_id", projectID)
		return false, nil
	}

	return grant.Role.Has(permission), nil
}

// CanRead reports whether the user can read project data, consulting
// the in-process cache only. It never blocks on the network: a cache
// miss reads as false and the caller falls back to CanAccess.
func (ac *AccessControl) CanRead(userID, projectID string) bool {
	raw, ok := ac.grants.GetLocal(grantKey(userID, projectID))
	if !ok {
		return false
	}

	var grant AccessGrant
	if err := json.Unmarshal([]byte(raw), &grant); err != nil {
		return false
	}
	if grant.Expired(time.Now()) {
		return false
	}
	return grant.Role.Has(PermissionReadData)
}

// CanReadCtx is the context-aware variant of CanRead. It falls through
// to Redis on a local cache miss.
func (ac *AccessControl) CanReadCtx(ctx context.Context, userID, projectID string) (bool, error) {
	return ac.HasPermission(ctx, userID, projectID, PermissionReadData)
}

// CanAccess reports whether the user holds any unexpired role on the
// project.
func (ac *AccessControl) CanAccess(ctx context.Context, userID, projectID string) (bool, error) {
	grant, err := ac.getGrant(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	return grant != nil && !grant.Expired(time.Now()), nil
}

// CanWrite reports whether the user can write project data.
func (ac *AccessControl) CanWrite(ctx context.Context, userID, projectID string) (bool, error) {
	return ac.HasPermission(ctx, userID, projectID, PermissionWriteData)
}

// CanDelete reports whether the user can delete project data.
func (ac *AccessControl) CanDelete(ctx context.Context, userID, projectID string) (bool, error) {
	return ac.HasPermission(ctx, userID, projectID, PermissionDeleteData)
}

// CanManageUsers reports whether the user can grant and revoke access
// on the project.
func (ac *AccessControl) CanManageUsers(ctx context.Context, userID, projectID string) (bool, error) {
	return ac.HasPermission(ctx, userID, projectID, PermissionGrantAccess)
}

// GetUserRole returns the user's role on a project, or "" when the
// user holds no grant.
func (ac *AccessControl) GetUserRole(ctx context.Context, userID, projectID string) (Role, error) {
	grant, err := ac.getGrant(ctx, userID, projectID)
	if err != nil {
		return "", err
	}
	if grant == nil {
		return "", nil
	}
	return grant.Role, nil
}

// GetUserProjects returns the IDs of all projects the user holds a
// grant on.
func (ac *AccessControl) GetUserProjects(ctx context.Context, userID string) ([]string, error) {
	pattern := grantKey(userID, "*")
	projects := []string{}

	iter := ac.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		parts := strings.Split(iter.Val(), ":")
		if len(parts) == 4 {
			projects = append(projects, parts[3])
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan user grants: %w", err)
	}

	ac.logger.Debug("user projects retrieved", "user_id", userID, "count", len(projects))
	return projects, nil
}

// GetProjectUsers returns every grant held on a project.
func (ac *AccessControl) GetProjectUsers(ctx context.Context, projectID string) ([]AccessGrant, error) {
	pattern := grantKey("*", projectID)
	grants := []AccessGrant{}

	iter := ac.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		raw, err := ac.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read grant %s: %w", iter.Val(), err)
		}

		var grant AccessGrant
		if err := json.Unmarshal([]byte(raw), &grant); err != nil {
			ac.logger.Warn("skipping malformed grant", "key", iter.Val(), "error", err)
			continue
		}
		grants = append(grants, grant)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan project grants: %w", err)
	}

	ac.logger.Debug("project users retrieved", "project_id", projectID, "count", len(grants))
	return grants, nil
}

// getGrant fetches a grant through the two-tier cache. A missing grant
// is (nil, nil).
func (ac *AccessControl) getGrant(ctx context.Context, userID, projectID string) (*AccessGrant, error) {
	raw, ok, err := ac.grants.Get(ctx, grantKey(userID, projectID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var grant AccessGrant
	if err := json.Unmarshal([]byte(raw), &grant); err != nil {
		return nil, fmt.Errorf("failed to parse grant: %w", err)
	}
	return &grant, nil
}

// projectHasGrants reports whether any user holds a grant on the
// project.
func (ac *AccessControl) projectHasGrants(ctx context.Context, projectID string) (bool, error) {
	iter := ac.client.Scan(ctx, 0, grantKey("*", projectID), 1).Iterator()
	if iter.Next(ctx) {
		return true, nil
	}
	if err := iter.Err(); err != nil {
		return false, fmt.Errorf("failed to scan project grants: %w", err)
	}
	return false, nil
}
