package rbac

import (
	"fmt"
	"time"
)

// AccessGrant is a user's access to a single project.
type AccessGrant struct {
	// UserID is the user holding the grant.
	UserID string `json:"user_id"`

	// ProjectID is the project the grant applies to.
	ProjectID string `json:"project_id"`

	// Role is the access tier granted.
	Role Role `json:"role"`

	// GrantedBy is the user who issued the grant.
	GrantedBy string `json:"granted_by"`

	// GrantedAt is when the grant was issued.
	GrantedAt time.Time `json:"granted_at"`

	// ExpiresAt is an optional expiration. A nil value means the grant
	// does not expire.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the grant has passed its expiration.
func (g *AccessGrant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && now.After(*g.ExpiresAt)
}

// grantKey builds the Redis key holding a user's grant on a project.
// Format: access:grant:{user_id}:{project_id}
func grantKey(userID, projectID string) string {
	return fmt.Sprintf("access:grant:%s:%s", userID, projectID)
}
