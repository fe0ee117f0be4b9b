package partition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/tessera-labs/graphgate/graph"
	"github.com/tessera-labs/graphgate/rbac"
)

// Sentinel errors for partition operations.
var (
	// ErrInvalidProjectID indicates a malformed or reserved project ID.
	ErrInvalidProjectID = errors.New("partition: invalid project ID")

	// ErrProjectNotFound indicates the project's partition does not exist.
	ErrProjectNotFound = errors.New("partition: project not found")

	// ErrProjectExists indicates a create collided with an existing project.
	ErrProjectExists = errors.New("partition: project already exists")

	// ErrNotMounted indicates a query was attempted with no partition
	// mounted.
	ErrNotMounted = errors.New("partition: no project mounted")

	// ErrConfirmRequired indicates a destructive operation was called
	// without explicit confirmation.
	ErrConfirmRequired = errors.New("partition: confirmation required")

	// ErrTemplateNotFound indicates the clone source partition does not
	// exist.
	ErrTemplateNotFound = errors.New("partition: template not found")
)

// graphPrefix namespaces project partitions inside the shared store.
const graphPrefix = "project_"

// projectIDPattern restricts IDs to alphanumerics and underscores.
var projectIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// reservedNames cannot be used as project IDs. They cover legacy
// memory partitions, the ontology template, and system namespaces.
var reservedNames = map[string]struct{}{
	"personal_memory":   {},
	"work_memory":       {},
	"sap_ontology_base": {},
	"system":            {},
	"admin":             {},
}

// Context is an active project mount: a lightweight handle on the
// project's partition.
type Context struct {
	ProjectID string
	GraphName string
	MountedAt time.Time
	Metadata  map[string]any

	partition graph.Partition
}

// Partition returns the mounted graph partition handle.
func (c *Context) Partition() graph.Partition {
	return c.partition
}

// Options configures a Manager.
type Options struct {
	// Store is the shared multi-partition graph store. Required.
	Store graph.Store

	// Policy gates mount, create, and delete when callers pass a user
	// ID. Defaults to rbac.AllowAll.
	Policy rbac.Policy

	// Logger receives structured partition events. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Tracer wraps query execution in spans. Defaults to a no-op tracer.
	Tracer trace.Tracer

	// ExtraReserved adds deployment-specific names to the built-in
	// reserved set.
	ExtraReserved []string
}

// CreateOptions configures project creation.
type CreateOptions struct {
	// CloneFrom names an existing partition to copy, typically the
	// ontology base template. Empty creates an empty partition.
	CloneFrom string

	// Metadata is attached to the mounted context.
	Metadata map[string]any

	// UserID enables the access control path: the creator must be an
	// admin somewhere (unless no projects exist yet) and receives an
	// admin grant on the new project.
	UserID string
}

// Manager owns the one-mounted-partition state machine over a shared
// graph store. Not safe for concurrent use.
type Manager struct {
	store    graph.Store
	policy   rbac.Policy
	logger   *slog.Logger
	tracer   trace.Tracer
	reserved map[string]struct{}
	active   *Context
	handles  map[string]graph.Partition
}

// NewManager creates a Manager over the given store.
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("partition: store is required")
	}
	if opts.Policy == nil {
		opts.Policy = rbac.AllowAll{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = tracenoop.NewTracerProvider().Tracer("partition")
	}

	reserved := make(map[string]struct{}, len(reservedNames)+len(opts.ExtraReserved))
	for name := range reservedNames {
		reserved[name] = struct{}{}
	}
	for _, name := range opts.ExtraReserved {
		reserved[name] = struct{}{}
	}

	m := &Manager{
		store:    opts.Store,
		policy:   opts.Policy,
		logger:   opts.Logger,
		tracer:   opts.Tracer,
		reserved: reserved,
		handles:  make(map[string]graph.Partition),
	}

	m.logger.Info("partition manager initialized")
	return m, nil
}

// ValidateProjectID checks a project ID's shape and reservation
// status.
func (m *Manager) ValidateProjectID(projectID string) error {
	if projectID == "" {
		return fmt.Errorf("%w: empty project ID", ErrInvalidProjectID)
	}
	if _, reserved := m.reserved[projectID]; reserved {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidProjectID, projectID)
	}
	if !projectIDPattern.MatchString(projectID) {
		return fmt.Errorf("%w: %q (only alphanumerics and underscores allowed)",
			ErrInvalidProjectID, projectID)
	}
	return nil
}

// Mount switches the manager to a project's partition. All subsequent
// queries run against it until Unmount or another Mount. An empty
// userID skips the access check.
//
// The access check consults cached permission state only and never
// waits on the network, so a cold cache denies the mount. Callers
// wanting an authoritative check run CanAccess first to warm the
// cache.
func (m *Manager) Mount(ctx context.Context, projectID, userID string, metadata map[string]any) (*Context, error) {
	if err := m.ValidateProjectID(projectID); err != nil {
		return nil, err
	}

	if userID != "" {
		if !m.policy.CanRead(userID, projectID) {
			return nil, fmt.Errorf("%w: user %s has no access to project %s",
				rbac.ErrPermissionDenied, userID, projectID)
		}
		m.logger.Debug("mount permission granted",
			"user_id", userID,
			"project_id", projectID)
	}

	graphName := graphPrefix + projectID
	exists, err := m.partitionExists(ctx, graphName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s (create it first)", ErrProjectNotFound, projectID)
	}

	handle, ok := m.handles[graphName]
	if !ok {
		handle = m.store.Select(graphName)
		m.handles[graphName] = handle
	}

	m.active = &Context{
		ProjectID: projectID,
		GraphName: graphName,
		MountedAt: time.Now(),
		Metadata:  metadata,
		partition: handle,
	}

	m.logger.Info("project mounted",
		"project_id", projectID,
		"graph_name", graphName,
		"user_id", userID)

	return m.active, nil
}

// Unmount clears the mounted partition. Unmounting when nothing is
// mounted is a no-op.
func (m *Manager) Unmount() {
	if m.active != nil {
		m.logger.Info("project unmounted", "project_id", m.active.ProjectID)
		m.active = nil
		return
	}
	m.logger.Debug("unmount with no active context")
}

// Current returns the mounted context, or ErrNotMounted.
func (m *Manager) Current() (*Context, error) {
	if m.active == nil {
		return nil, fmt.Errorf("%w: mount a project before querying", ErrNotMounted)
	}
	return m.active, nil
}

// Mounted reports whether a partition is mounted and its project ID.
func (m *Manager) Mounted() (string, bool) {
	if m.active == nil {
		return "", false
	}
	return m.active.ProjectID, true
}

// Query runs a query against the mounted partition. With nothing
// mounted it fails rather than guessing a target.
func (m *Manager) Query(ctx context.Context, text string, params map[string]any) (*graph.Result, error) {
	active, err := m.Current()
	if err != nil {
		return nil, err
	}

	ctx, span := m.tracer.Start(ctx, "partition.query",
		trace.WithAttributes(attribute.String("project.id", active.ProjectID)))
	defer span.End()

	result, err := active.partition.Query(ctx, text, params)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		m.logger.Error("query failed",
			"project_id", active.ProjectID,
			"error", err,
			"query", preview(text, 200))
		return nil, fmt.Errorf("query on project %s failed: %w", active.ProjectID, err)
	}

	m.logger.Debug("query executed",
		"project_id", active.ProjectID,
		"query", preview(text, 100))

	return result, nil
}

// CreateProject creates a new isolated partition for a project,
// optionally cloned from a template, and mounts it.
//
// With a user ID set, creation requires the user to be an admin on at
// least one existing project; the very first project is exempt so a
// fresh deployment can bootstrap. The creator receives an admin grant
// on the new project.
func (m *Manager) CreateProject(ctx context.Context, projectID string, opts CreateOptions) (*Context, error) {
	if err := m.ValidateProjectID(projectID); err != nil {
		return nil, err
	}

	if opts.UserID != "" {
		if err := m.checkCreatePermission(ctx, opts.UserID); err != nil {
			return nil, err
		}
	}

	graphName := graphPrefix + projectID
	exists, err := m.partitionExists(ctx, graphName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s (mount it instead)", ErrProjectExists, projectID)
	}

	if opts.CloneFrom != "" {
		templateExists, err := m.partitionExists(ctx, opts.CloneFrom)
		if err != nil {
			return nil, err
		}
		if !templateExists {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, opts.CloneFrom)
		}

		m.logger.Info("cloning project from template",
			"project_id", projectID,
			"template", opts.CloneFrom,
			"user_id", opts.UserID)

		handle, err := m.store.Select(opts.CloneFrom).Copy(ctx, graphName)
		if err != nil {
			return nil, fmt.Errorf("failed to clone project %s: %w", projectID, err)
		}
		m.handles[graphName] = handle
	} else {
		m.logger.Info("creating empty project",
			"project_id", projectID,
			"user_id", opts.UserID)

		handle := m.store.Select(graphName)
		// Partitions materialize lazily; a marker write forces creation.
		if _, err := handle.Query(ctx, "CREATE (:_InitMarker {initialized: true})", nil); err != nil {
			return nil, fmt.Errorf("failed to initialize project %s: %w", projectID, err)
		}
		m.handles[graphName] = handle
	}

	m.logger.Info("project created",
		"project_id", projectID,
		"graph_name", graphName,
		"cloned_from", opts.CloneFrom,
		"user_id", opts.UserID)

	if opts.UserID != "" {
		if _, err := m.policy.BootstrapOwner(ctx, opts.UserID, projectID); err != nil {
			// The partition exists but the creator holds no grant on
			// it. Surface the failure instead of leaving an orphan
			// silently.
			return nil, fmt.Errorf("project %s created but admin grant failed: %w", projectID, err)
		}
		m.logger.Info("project creator granted admin",
			"user_id", opts.UserID,
			"project_id", projectID)
	}

	return m.Mount(ctx, projectID, opts.UserID, opts.Metadata)
}

// DeleteProject destroys a project's partition. Irreversible, so the
// caller must pass confirm. With a user ID set, deletion requires
// admin on the project.
func (m *Manager) DeleteProject(ctx context.Context, projectID string, confirm bool, userID string) error {
	if !confirm {
		return fmt.Errorf("%w: deleting project %s destroys all its data",
			ErrConfirmRequired, projectID)
	}
	if err := m.ValidateProjectID(projectID); err != nil {
		return err
	}

	if userID != "" {
		allowed, err := m.policy.CanManageUsers(ctx, userID, projectID)
		if err != nil {
			return fmt.Errorf("access check failed for project %s: %w", projectID, err)
		}
		if !allowed {
			return fmt.Errorf("%w: user %s cannot delete project %s",
				rbac.ErrPermissionDenied, userID, projectID)
		}
	}

	graphName := graphPrefix + projectID
	if m.active != nil && m.active.ProjectID == projectID {
		m.Unmount()
	}
	delete(m.handles, graphName)

	if err := m.store.Select(graphName).Delete(ctx); err != nil {
		if errors.Is(err, graph.ErrPartitionNotFound) {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		return fmt.Errorf("failed to delete project %s: %w", projectID, err)
	}

	m.logger.Warn("project deleted",
		"project_id", projectID,
		"graph_name", graphName,
		"user_id", userID)

	return nil
}

// ListProjects returns all project IDs, sorted.
func (m *Manager) ListProjects(ctx context.Context) ([]string, error) {
	names, err := m.store.ListPartitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}

	projects := []string{}
	for _, name := range names {
		if strings.HasPrefix(name, graphPrefix) {
			projects = append(projects, strings.TrimPrefix(name, graphPrefix))
		}
	}
	sort.Strings(projects)

	m.logger.Debug("projects listed", "count", len(projects))
	return projects, nil
}

// Info describes a project partition.
type Info struct {
	ProjectID string
	GraphName string
	NodeCount int64
	EdgeCount int64
	Mounted   bool
}

// GetProjectInfo returns basic statistics for a project.
func (m *Manager) GetProjectInfo(ctx context.Context, projectID string) (*Info, error) {
	if err := m.ValidateProjectID(projectID); err != nil {
		return nil, err
	}

	graphName := graphPrefix + projectID
	exists, err := m.partitionExists(ctx, graphName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}

	handle, ok := m.handles[graphName]
	if !ok {
		handle = m.store.Select(graphName)
	}

	info := &Info{
		ProjectID: projectID,
		GraphName: graphName,
		Mounted:   m.active != nil && m.active.ProjectID == projectID,
	}

	info.NodeCount, err = m.countQuery(ctx, handle, "MATCH (n) RETURN count(n) as count")
	if err != nil {
		return nil, fmt.Errorf("failed to count nodes in project %s: %w", projectID, err)
	}
	info.EdgeCount, err = m.countQuery(ctx, handle, "MATCH ()-[r]->() RETURN count(r) as count")
	if err != nil {
		return nil, fmt.Errorf("failed to count edges in project %s: %w", projectID, err)
	}

	return info, nil
}

func (m *Manager) countQuery(ctx context.Context, handle graph.Partition, text string) (int64, error) {
	result, err := handle.Query(ctx, text, nil)
	if err != nil {
		return 0, err
	}
	if result.Empty() || len(result.Rows[0]) == 0 {
		return 0, nil
	}
	switch v := result.Rows[0][0].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}

func (m *Manager) partitionExists(ctx context.Context, graphName string) (bool, error) {
	names, err := m.store.ListPartitions(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list partitions: %w", err)
	}
	for _, name := range names {
		if name == graphName {
			return true, nil
		}
	}
	return false, nil
}

// checkCreatePermission requires the creator to be an admin on at
// least one existing project. A store with no projects is exempt.
func (m *Manager) checkCreatePermission(ctx context.Context, userID string) error {
	existing, err := m.ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return nil
	}

	for _, projectID := range existing {
		allowed, err := m.policy.CanManageUsers(ctx, userID, projectID)
		if err != nil {
			m.logger.Warn("admin check failed",
				"user_id", userID,
				"project_id", projectID,
				"error", err)
			continue
		}
		if allowed {
			m.logger.Debug("create project permission granted", "user_id", userID)
			return nil
		}
	}

	return fmt.Errorf("%w: user %s must be an admin to create projects",
		rbac.ErrPermissionDenied, userID)
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
