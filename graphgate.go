package graphgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/tessera-labs/graphgate/config"
	"github.com/tessera-labs/graphgate/cypher"
	"github.com/tessera-labs/graphgate/graph"
	"github.com/tessera-labs/graphgate/isolation"
	"github.com/tessera-labs/graphgate/ontology"
	"github.com/tessera-labs/graphgate/partition"
	"github.com/tessera-labs/graphgate/rbac"
)

// Gateway is the top-level entry point. It wires the partition manager,
// access control, isolation guard, and ontology templates into a single
// facade and normalizes their errors into *GateError values.
//
// A Gateway carries the single mounted-partition context of its
// partition manager and is not safe for concurrent use.
type Gateway struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      graph.Store
	policy     rbac.Policy
	partitions *partition.Manager
	guard      *isolation.Guard
	templates  *ontology.TemplateManager

	// ownAccess is set when the gateway constructed its own Redis-backed
	// access control and therefore owns its lifecycle.
	ownAccess *rbac.AccessControl
}

// New creates a new Gateway with the provided options.
//
// Example:
//
//	gw, err := graphgate.New(
//	    graphgate.WithConfig("/etc/graphgate"),
//	    graphgate.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gw.Close()
func New(opts ...Option) (*Gateway, error) {
	const op = "gateway.New"

	gc := &gatewayConfig{}
	for _, opt := range opts {
		opt(gc)
	}

	if gc.logger == nil {
		gc.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	cfg := gc.config
	if cfg == nil {
		if gc.configPath != "" {
			loaded, err := config.Load(gc.configPath)
			if err != nil {
				return nil, NewConfigurationError(op, err)
			}
			cfg = loaded
		} else {
			cfg = config.Default()
		}
	}

	store := gc.store
	if store == nil {
		gc.logger.Warn("no graph store configured, using in-memory store")
		store = graph.NewMemStore()
	}

	policy := gc.policy
	var ownAccess *rbac.AccessControl
	if policy == nil {
		if cfg.RedisURL != "" {
			ttl := gc.cacheTTL
			if ttl == 0 {
				ttl = cfg.CacheTTL()
			}
			ac, err := rbac.New(rbac.Options{
				RedisURL:     cfg.RedisURL,
				CacheTTL:     ttl,
				DisableAudit: !cfg.AuditEnabled(),
				Logger:       gc.logger,
				Meter:        gc.meter,
			})
			if err != nil {
				return nil, NewConfigurationError(op, err)
			}
			policy = ac
			ownAccess = ac
		} else {
			gc.logger.Warn("no access control configured, all access allowed")
			policy = rbac.AllowAll{}
		}
	}

	partitions, err := partition.NewManager(partition.Options{
		Store:         store,
		Policy:        policy,
		Logger:        gc.logger,
		Tracer:        gc.tracer,
		ExtraReserved: cfg.ReservedNames,
	})
	if err != nil {
		if ownAccess != nil {
			CloseWithLog(ownAccess, gc.logger, "access control")
		}
		return nil, NewConfigurationError(op, err)
	}

	guard, err := isolation.NewGuard(isolation.Options{
		Manager:       partitions,
		Logger:        gc.logger,
		Meter:         gc.meter,
		ContextWindow: cfg.GetContextWindow(),
	})
	if err != nil {
		if ownAccess != nil {
			CloseWithLog(ownAccess, gc.logger, "access control")
		}
		return nil, NewConfigurationError(op, err)
	}

	return &Gateway{
		cfg:        cfg,
		logger:     gc.logger,
		store:      store,
		policy:     policy,
		partitions: partitions,
		guard:      guard,
		templates:  ontology.NewTemplateManager(store, gc.logger),
		ownAccess:  ownAccess,
	}, nil
}

// Close releases resources owned by the gateway. Access control passed
// in through WithAccessControl is not closed; the caller owns it.
func (gw *Gateway) Close() error {
	if gw.ownAccess != nil {
		return gw.ownAccess.Close()
	}
	return nil
}

// Partitions returns the underlying partition manager for operations
// not covered by the facade methods.
func (gw *Gateway) Partitions() *partition.Manager {
	return gw.partitions
}

// Access returns the access policy in use. It is an *rbac.AccessControl
// when Redis-backed RBAC is configured.
func (gw *Gateway) Access() rbac.Policy {
	return gw.policy
}

// Guard returns the isolation guard.
func (gw *Gateway) Guard() *isolation.Guard {
	return gw.guard
}

// Templates returns the ontology template manager.
func (gw *Gateway) Templates() *ontology.TemplateManager {
	return gw.templates
}

// Config returns the effective configuration.
func (gw *Gateway) Config() *config.Config {
	return gw.cfg
}

// NewQuery returns a fresh whitelist-validated query builder.
func (gw *Gateway) NewQuery() *cypher.Builder {
	return cypher.NewBuilder()
}

// Queries returns the prebuilt query template set.
func (gw *Gateway) Queries() cypher.Templates {
	return cypher.Templates{}
}

// Mount switches the gateway to the given project's partition after an
// access check. Any previously mounted project is unmounted first.
func (gw *Gateway) Mount(ctx context.Context, projectID, userID string) (*partition.Context, error) {
	pc, err := gw.partitions.Mount(ctx, projectID, userID, nil)
	if err != nil {
		return nil, wrapErr("gateway.Mount", err)
	}
	return pc, nil
}

// Unmount clears the current project context. Safe to call when nothing
// is mounted.
func (gw *Gateway) Unmount() {
	gw.partitions.Unmount()
}

// MountedProject reports the currently mounted project, if any.
func (gw *Gateway) MountedProject() (string, bool) {
	return gw.partitions.Mounted()
}

// Query executes a read or write query against the mounted partition.
// It fails with KindNotMounted when no project is mounted.
func (gw *Gateway) Query(ctx context.Context, text string, params map[string]any) (*graph.Result, error) {
	res, err := gw.partitions.Query(ctx, text, params)
	if err != nil {
		return nil, wrapErr("gateway.Query", err)
	}
	return res, nil
}

// CreateProject provisions a new partition for the project and mounts
// it. See partition.CreateOptions for cloning and metadata. When no
// CloneFrom is set and the configuration names a base template, new
// projects clone from it.
func (gw *Gateway) CreateProject(ctx context.Context, projectID string, opts partition.CreateOptions) (*partition.Context, error) {
	if opts.CloneFrom == "" {
		opts.CloneFrom = gw.cfg.BaseTemplate
	}
	pc, err := gw.partitions.CreateProject(ctx, projectID, opts)
	if err != nil {
		return nil, wrapErr("gateway.CreateProject", err)
	}
	return pc, nil
}

// DeleteProject permanently removes a project's partition. The confirm
// flag must be true. Registered isolation entities for the project are
// cleared on success.
func (gw *Gateway) DeleteProject(ctx context.Context, projectID string, confirm bool, userID string) error {
	if err := gw.partitions.DeleteProject(ctx, projectID, confirm, userID); err != nil {
		return wrapErr("gateway.DeleteProject", err)
	}
	if removed := gw.guard.ClearProjectEntities(projectID); removed > 0 {
		gw.logger.Info("cleared isolation entities for deleted project",
			slog.String("project_id", projectID),
			slog.Int("removed", removed))
	}
	return nil
}

// ListProjects returns the IDs of all projects in the store.
func (gw *Gateway) ListProjects(ctx context.Context) ([]string, error) {
	ids, err := gw.partitions.ListProjects(ctx)
	if err != nil {
		return nil, wrapErr("gateway.ListProjects", err)
	}
	return ids, nil
}

// ProjectInfo returns partition statistics for the project.
func (gw *Gateway) ProjectInfo(ctx context.Context, projectID string) (*partition.Info, error) {
	info, err := gw.partitions.GetProjectInfo(ctx, projectID)
	if err != nil {
		return nil, wrapErr("gateway.ProjectInfo", err)
	}
	return info, nil
}

// InitializeOntology creates the base ontology template partition.
// Returns false with a nil error when the template already exists.
func (gw *Gateway) InitializeOntology(ctx context.Context) (bool, error) {
	created, err := gw.templates.CreateBaseTemplate(ctx)
	if err != nil {
		return false, NewStorageError("gateway.InitializeOntology", err)
	}
	return created, nil
}

// RegisterProjectEntities loads identifying entities from the mounted
// project's graph into the isolation guard. The project must be
// mounted or mountable by the given user.
func (gw *Gateway) RegisterProjectEntities(ctx context.Context, projectID string) (int, error) {
	n, err := gw.guard.AutoRegisterFromGraph(ctx, projectID)
	if err != nil {
		return n, wrapErr("gateway.RegisterProjectEntities", err)
	}
	return n, nil
}

// ValidateResponse scans outgoing text for entities belonging to other
// projects. It fails with KindNotMounted when no project is mounted.
func (gw *Gateway) ValidateResponse(text string) (bool, []isolation.Violation, error) {
	project, ok := gw.partitions.Mounted()
	if !ok {
		return false, nil, wrapErr("gateway.ValidateResponse", partition.ErrNotMounted)
	}
	clean, violations := gw.guard.ValidateResponse(text, project)
	return clean, violations, nil
}

// CheckResponse is like ValidateResponse but returns a KindContamination
// error when leaked entities are found in the text.
func (gw *Gateway) CheckResponse(text string) error {
	project, ok := gw.partitions.Mounted()
	if !ok {
		return wrapErr("gateway.CheckResponse", partition.ErrNotMounted)
	}
	if err := gw.guard.CheckResponse(text, project); err != nil {
		return wrapErr("gateway.CheckResponse", err)
	}
	return nil
}

// wrapErr normalizes lower-layer sentinel errors into *GateError kinds.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, partition.ErrInvalidProjectID),
		errors.Is(err, partition.ErrProjectExists),
		errors.Is(err, partition.ErrConfirmRequired),
		errors.Is(err, rbac.ErrInvalidRole),
		errors.Is(err, cypher.ErrInvalidParamName):
		return NewValidationError(op, err)
	case errors.Is(err, rbac.ErrPermissionDenied):
		return NewPermissionError(op, err)
	case errors.Is(err, partition.ErrProjectNotFound),
		errors.Is(err, partition.ErrTemplateNotFound),
		errors.Is(err, graph.ErrPartitionNotFound):
		return NewNotFoundError(op, err)
	case errors.Is(err, partition.ErrNotMounted):
		return NewError(op, KindNotMounted, err)
	case errors.Is(err, isolation.ErrContaminated):
		return NewError(op, KindContamination, err)
	case errors.Is(err, graph.ErrUnsupportedQuery):
		return NewValidationError(op, err)
	default:
		return NewStorageError(op, err)
	}
}

// Version is the gateway library version.
const Version = "0.3.1"

// String returns a short human-readable description of the gateway
// state, useful in logs.
func (gw *Gateway) String() string {
	if project, ok := gw.partitions.Mounted(); ok {
		return fmt.Sprintf("graphgate(mounted=%s)", project)
	}
	return "graphgate(unmounted)"
}
