package rbac

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// auditKey is the Redis list holding the audit trail, newest first.
	auditKey = "access:audit_log"

	// auditMaxEntries caps the audit trail length.
	auditMaxEntries = 1000
)

// Audit result values.
const (
	AuditSuccess = "success"
	AuditDenied  = "denied"
)

// AuditEntry records one access control event.
type AuditEntry struct {
	// ID uniquely identifies the entry.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// UserID is the user who performed the action.
	UserID string `json:"user_id"`

	// Action is the operation name (grant_access, revoke_access, ...).
	Action string `json:"action"`

	// ProjectID is the project the action targeted.
	ProjectID string `json:"project_id"`

	// TargetUserID is set when the action affects another user.
	TargetUserID string `json:"target_user_id,omitempty"`

	// Result is AuditSuccess or AuditDenied.
	Result string `json:"result"`

	// Details carries additional context.
	Details map[string]any `json:"details,omitempty"`
}

// recordAudit appends an entry to the audit trail and trims it to the
// cap. Audit writes are best effort: a failure is logged, never
// surfaced, so an unreachable audit trail cannot block access control
// operations.
func (ac *AccessControl) recordAudit(ctx context.Context, entry AuditEntry) {
	if !ac.auditEnabled {
		return
	}

	entry.ID = uuid.NewString()
	entry.Timestamp = time.Now()

	data, err := json.Marshal(entry)
	if err != nil {
		ac.logger.Warn("failed to marshal audit entry",
			"action", entry.Action,
			"error", err)
		return
	}

	if err := ac.client.LPush(ctx, auditKey, data).Err(); err != nil {
		ac.logger.Warn("failed to write audit entry",
			"action", entry.Action,
			"error", err)
		return
	}

	if err := ac.client.LTrim(ctx, auditKey, 0, auditMaxEntries-1).Err(); err != nil {
		ac.logger.Warn("failed to trim audit trail", "error", err)
	}

	ac.logger.Info("access audit",
		"user_id", entry.UserID,
		"action", entry.Action,
		"project_id", entry.ProjectID,
		"result", entry.Result)
}

// GetAuditLog returns up to limit audit entries, newest first,
// optionally filtered to one project. Filtering by project requires
// the caller to hold the view_audit_log permission on that project.
// An unfiltered read is not gated; deployments that need a gate on the
// global trail wrap it at a higher layer.
func (ac *AccessControl) GetAuditLog(ctx context.Context, userID string, limit int, projectID string) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	if projectID != "" {
		allowed, err := ac.HasPermission(ctx, userID, projectID, PermissionViewAuditLog)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: user %s cannot view audit log for project %s",
				ErrPermissionDenied, userID, projectID)
		}
	}

	raw, err := ac.client.LRange(ctx, auditKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read audit trail: %w", err)
	}

	entries := make([]AuditEntry, 0, len(raw))
	for _, item := range raw {
		var entry AuditEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			ac.logger.Warn("skipping malformed audit entry", "error", err)
			continue
		}
		if projectID != "" && entry.ProjectID != projectID {
			continue
		}
		entries = append(entries, entry)
	}

	ac.logger.Debug("audit log retrieved", "user_id", userID, "count", len(entries))
	return entries, nil
}
