package isolation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/tessera-labs/graphgate/cypher"
	"github.com/tessera-labs/graphgate/partition"
)

// ErrContaminated is returned by CheckResponse when text mentions
// another project's entities.
var ErrContaminated = errors.New("isolation: cross-project contamination detected")

// DefaultContextWindow is how many characters around a leak are
// captured for the violation report.
const DefaultContextWindow = 50

type entityKey struct {
	typ   string
	value string
}

// Options configures a Guard.
type Options struct {
	// Manager enables the graph-backed features (auto-registration and
	// verification). Optional.
	Manager *partition.Manager

	// Logger receives structured isolation events. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Meter provides validation counters. Defaults to a no-op meter.
	Meter metric.Meter

	// ContextWindow overrides DefaultContextWindow.
	ContextWindow int
}

// Guard maintains the entity ownership registry and scans outbound
// text for leaks. Safe for concurrent use.
type Guard struct {
	manager       *partition.Manager
	logger        *slog.Logger
	contextWindow int

	mu       sync.RWMutex
	registry map[string]map[entityKey]EntityRef
	reverse  map[entityKey]string
	audit    []auditRecord

	validationsPerformed int
	violationsDetected   int
	entitiesRegistered   int

	validations metric.Int64Counter
	violations  metric.Int64Counter
}

type auditRecord struct {
	timestamp  time.Time
	projectID  string
	textLength int
	violations int
}

// AuditRecord is one validation check, as reported by GetAuditLog.
type AuditRecord struct {
	Timestamp  time.Time
	ProjectID  string
	TextLength int
	Violations int
	Clean      bool
}

// NewGuard creates a Guard.
func NewGuard(opts Options) (*Guard, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Meter == nil {
		opts.Meter = noop.Meter{}
	}
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = DefaultContextWindow
	}

	validations, err := opts.Meter.Int64Counter("isolation.validations",
		metric.WithDescription("Response validations performed"))
	if err != nil {
		return nil, fmt.Errorf("failed to create validations counter: %w", err)
	}
	violations, err := opts.Meter.Int64Counter("isolation.violations",
		metric.WithDescription("Cross-project leaks detected"))
	if err != nil {
		return nil, fmt.Errorf("failed to create violations counter: %w", err)
	}

	g := &Guard{
		manager:       opts.Manager,
		logger:        opts.Logger,
		contextWindow: opts.ContextWindow,
		registry:      make(map[string]map[entityKey]EntityRef),
		reverse:       make(map[entityKey]string),
		validations:   validations,
		violations:    violations,
	}

	g.logger.Info("isolation guard initialized")
	return g, nil
}

// RegisterEntity records that a project owns a typed entity value. If
// another project previously registered the same value, ownership
// moves to the new project.
func (g *Guard) RegisterEntity(projectID, entityType, entityValue string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.registerLocked(projectID, entityType, entityValue)

	g.logger.Debug("entity registered",
		"project_id", projectID,
		"entity_type", entityType,
		"entity_value", entityValue)
}

// RegisterEntities records a batch of entities for a project.
func (g *Guard) RegisterEntities(projectID string, entities []Entity) {
	g.mu.Lock()
	for _, e := range entities {
		g.registerLocked(projectID, e.Type, e.Value)
	}
	g.mu.Unlock()

	g.logger.Info("entities registered",
		"project_id", projectID,
		"count", len(entities))
}

func (g *Guard) registerLocked(projectID, entityType, entityValue string) {
	key := entityKey{typ: entityType, value: entityValue}

	if prev, ok := g.reverse[key]; ok && prev != projectID {
		delete(g.registry[prev], key)
	}

	if g.registry[projectID] == nil {
		g.registry[projectID] = make(map[entityKey]EntityRef)
	}
	g.registry[projectID][key] = EntityRef{
		Type:         entityType,
		Value:        entityValue,
		ProjectID:    projectID,
		RegisteredAt: time.Now(),
	}
	g.reverse[key] = projectID
	g.entitiesRegistered++
}

// Owner reports which project owns an entity.
func (g *Guard) Owner(entityType, entityValue string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	owner, ok := g.reverse[entityKey{typ: entityType, value: entityValue}]
	return owner, ok
}

// DetectLeakage scans text for registered entities owned by projects
// other than currentProject. Each occurrence becomes one violation
// with surrounding context. Matching is case-insensitive on word
// boundaries.
func (g *Guard) DetectLeakage(text, currentProject string) []Violation {
	g.mu.RLock()
	keys := make([]entityKey, 0, len(g.reverse))
	for key, owner := range g.reverse {
		if owner != currentProject {
			keys = append(keys, key)
		}
	}
	owners := make(map[entityKey]string, len(keys))
	for _, key := range keys {
		owners[key] = g.reverse[key]
	}
	g.mu.RUnlock()

	// Stable violation order regardless of map iteration.
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].typ != keys[j].typ {
			return keys[i].typ < keys[j].typ
		}
		return keys[i].value < keys[j].value
	})

	var violations []Violation
	for _, key := range keys {
		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(key.value) + `\b`)
		if err != nil {
			continue
		}

		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			start := loc[0] - g.contextWindow
			if start < 0 {
				start = 0
			}
			end := loc[1] + g.contextWindow
			if end > len(text) {
				end = len(text)
			}
			// The window is measured in bytes, so snap both edges to
			// rune boundaries to keep the snippet valid UTF-8.
			for start > 0 && !utf8.RuneStart(text[start]) {
				start--
			}
			for end < len(text) && !utf8.RuneStart(text[end]) {
				end++
			}

			v := Violation{
				Entity: EntityRef{
					Type:      key.typ,
					Value:     key.value,
					ProjectID: owners[key],
				},
				FoundInProject: currentProject,
				Context:        text[start:end],
				Severity:       severityFor(key.typ),
			}
			violations = append(violations, v)

			g.logger.Warn("cross-project contamination detected",
				"entity_type", key.typ,
				"entity_value", key.value,
				"owner_project", owners[key],
				"found_in_project", currentProject)
		}
	}

	g.mu.Lock()
	g.violationsDetected += len(violations)
	g.mu.Unlock()
	g.violations.Add(context.Background(), int64(len(violations)))

	return violations
}

// ValidateResponse reports whether text is free of cross-project
// contamination. Violations are logged and counted; the text itself is
// left to the caller.
func (g *Guard) ValidateResponse(text, currentProject string) (bool, []Violation) {
	violations := g.DetectLeakage(text, currentProject)

	g.mu.Lock()
	g.validationsPerformed++
	g.audit = append(g.audit, auditRecord{
		timestamp:  time.Now(),
		projectID:  currentProject,
		textLength: len(text),
		violations: len(violations),
	})
	g.mu.Unlock()
	g.validations.Add(context.Background(), 1)

	if len(violations) > 0 {
		g.logger.Error("response validation failed",
			"project_id", currentProject,
			"violations", len(violations))
		return false, violations
	}

	g.logger.Debug("response validation passed",
		"project_id", currentProject,
		"text_length", len(text))
	return true, nil
}

// CheckResponse is the strict form of ValidateResponse: any violation
// becomes an ErrContaminated error summarizing up to three leaks.
func (g *Guard) CheckResponse(text, currentProject string) error {
	clean, violations := g.ValidateResponse(text, currentProject)
	if clean {
		return nil
	}

	summary := make([]string, 0, 3)
	for i, v := range violations {
		if i == 3 {
			break
		}
		summary = append(summary, v.String())
	}
	return fmt.Errorf("%w:\n%s", ErrContaminated, strings.Join(summary, "\n"))
}

// Redact replaces every leaked entity value in text with replacement.
// Use it as a fallback when contaminated text still has to be
// returned. An empty replacement defaults to "[REDACTED]".
func Redact(text string, violations []Violation, replacement string) string {
	if replacement == "" {
		replacement = "[REDACTED]"
	}

	for _, v := range violations {
		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(v.Entity.Value) + `\b`)
		if err != nil {
			continue
		}
		text = pattern.ReplaceAllString(text, replacement)
	}
	return text
}

// ProjectEntities returns the entities registered for a project,
// sorted by type then value.
func (g *Guard) ProjectEntities(projectID string) []EntityRef {
	g.mu.RLock()
	defer g.mu.RUnlock()

	entities := make([]EntityRef, 0, len(g.registry[projectID]))
	for _, ref := range g.registry[projectID] {
		entities = append(entities, ref)
	}
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Type != entities[j].Type {
			return entities[i].Type < entities[j].Type
		}
		return entities[i].Value < entities[j].Value
	})
	return entities
}

// ClearProjectEntities drops a project's registrations, typically when
// the project is deleted. Returns how many entities were removed.
func (g *Guard) ClearProjectEntities(projectID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	entities := g.registry[projectID]
	for key := range entities {
		delete(g.reverse, key)
	}
	delete(g.registry, projectID)

	g.logger.Info("project entities cleared",
		"project_id", projectID,
		"entities_removed", len(entities))
	return len(entities)
}

// Stats summarizes guard activity.
type Stats struct {
	ValidationsPerformed int
	ViolationsDetected   int
	EntitiesRegistered   int
	RegisteredProjects   int
	TotalEntities        int
	AuditLogSize         int
}

// Statistics returns a snapshot of guard activity.
func (g *Guard) Statistics() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	total := 0
	for _, entities := range g.registry {
		total += len(entities)
	}
	return Stats{
		ValidationsPerformed: g.validationsPerformed,
		ViolationsDetected:   g.violationsDetected,
		EntitiesRegistered:   g.entitiesRegistered,
		RegisteredProjects:   len(g.registry),
		TotalEntities:        total,
		AuditLogSize:         len(g.audit),
	}
}

// GetAuditLog returns validation checks, most recent first, optionally
// filtered by project.
func (g *Guard) GetAuditLog(projectID string, limit int) []AuditRecord {
	if limit <= 0 {
		limit = 100
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	records := make([]AuditRecord, 0, limit)
	for i := len(g.audit) - 1; i >= 0 && len(records) < limit; i-- {
		r := g.audit[i]
		if projectID != "" && r.projectID != projectID {
			continue
		}
		records = append(records, AuditRecord{
			Timestamp:  r.timestamp,
			ProjectID:  r.projectID,
			TextLength: r.textLength,
			Violations: r.violations,
			Clean:      r.violations == 0,
		})
	}
	return records
}

// AutoRegisterFromGraph mounts a project and registers the entities
// its graph holds: system SIDs, hostnames and IPs, and database SIDs.
// All discovery queries go through the whitelisted templates. Returns
// how many entities were registered.
func (g *Guard) AutoRegisterFromGraph(ctx context.Context, projectID string) (int, error) {
	if g.manager == nil {
		return 0, errors.New("isolation: auto-registration requires a partition manager")
	}

	if _, err := g.manager.Mount(ctx, projectID, "", nil); err != nil {
		return 0, err
	}

	var templates cypher.Templates
	registered := 0

	systems, err := templates.SystemIdentifiers()
	if err != nil {
		return 0, err
	}
	result, err := g.manager.Query(ctx, systems.Query, systems.Parameters)
	if err != nil {
		return registered, err
	}
	for _, row := range result.Rows {
		if sid, ok := stringAt(row, 0); ok {
			g.RegisterEntity(projectID, "SAPSystem", sid)
			registered++
		}
	}

	hosts, err := templates.HostIdentifiers()
	if err != nil {
		return registered, err
	}
	result, err = g.manager.Query(ctx, hosts.Query, hosts.Parameters)
	if err != nil {
		return registered, err
	}
	for _, row := range result.Rows {
		if hostname, ok := stringAt(row, 0); ok {
			g.RegisterEntity(projectID, "Host", hostname)
			registered++
		}
		if ip, ok := stringAt(row, 1); ok {
			g.RegisterEntity(projectID, "IPAddress", ip)
			registered++
		}
	}

	databases, err := templates.DatabaseIdentifiers()
	if err != nil {
		return registered, err
	}
	result, err = g.manager.Query(ctx, databases.Query, databases.Parameters)
	if err != nil {
		return registered, err
	}
	for _, row := range result.Rows {
		if dbSID, ok := stringAt(row, 0); ok {
			g.RegisterEntity(projectID, "Database", dbSID)
			registered++
		}
	}

	g.logger.Info("auto-registration complete",
		"project_id", projectID,
		"entities_registered", registered)

	return registered, nil
}

// Report renders a human-readable status summary.
func (g *Guard) Report() string {
	stats := g.Statistics()

	var b strings.Builder
	divider := strings.Repeat("=", 60)
	fmt.Fprintln(&b, divider)
	fmt.Fprintln(&b, "ISOLATION GUARD STATUS REPORT")
	fmt.Fprintln(&b, divider)
	fmt.Fprintf(&b, "Registered Projects: %d\n", stats.RegisteredProjects)
	fmt.Fprintf(&b, "Total Entities: %d\n", stats.TotalEntities)
	fmt.Fprintf(&b, "Validations Performed: %d\n", stats.ValidationsPerformed)
	fmt.Fprintf(&b, "Violations Detected: %d\n", stats.ViolationsDetected)
	if stats.ValidationsPerformed > 0 {
		rate := float64(stats.ViolationsDetected) / float64(stats.ValidationsPerformed) * 100
		fmt.Fprintf(&b, "Contamination Rate: %.2f%%\n", rate)
	}
	b.WriteString(divider)
	return b.String()
}

// GraphValidation reports how registered entities compare against the
// project's graph.
type GraphValidation struct {
	ProjectID  string
	Registered int
	Verified   int
	Missing    int
}

// verificationProperty maps an entity type to the property its lookup
// query filters on. Types outside this map are skipped.
var verificationProperty = map[string]string{
	"SAPSystem": "sid",
	"Host":      "hostname",
	"Database":  "db_sid",
}

// ValidateWithGraph mounts a project and cross-checks its registered
// entities against the graph, reporting how many still exist.
func (g *Guard) ValidateWithGraph(ctx context.Context, projectID string) (*GraphValidation, error) {
	if g.manager == nil {
		return nil, errors.New("isolation: graph validation requires a partition manager")
	}

	if _, err := g.manager.Mount(ctx, projectID, "", nil); err != nil {
		return nil, err
	}

	entities := g.ProjectEntities(projectID)
	validation := &GraphValidation{ProjectID: projectID, Registered: len(entities)}

	for _, entity := range entities {
		property, ok := verificationProperty[entity.Type]
		if !ok {
			continue
		}

		built, err := cypher.NewBuilder().
			MatchNodes(entity.Type, map[string]any{property: entity.Value}, "n").
			ReturnNodes("n").
			Build()
		if err != nil {
			return nil, err
		}

		result, err := g.manager.Query(ctx, built.Query, built.Parameters)
		if err != nil {
			return nil, err
		}

		if result.Empty() {
			validation.Missing++
			g.logger.Warn("registered entity not in graph",
				"project_id", projectID,
				"entity_type", entity.Type,
				"entity_value", entity.Value)
		} else {
			validation.Verified++
		}
	}

	g.logger.Info("graph validation complete",
		"project_id", projectID,
		"verified", validation.Verified,
		"missing", validation.Missing)

	return validation, nil
}

func stringAt(row []any, index int) (string, bool) {
	if index >= len(row) {
		return "", false
	}
	s, ok := row[index].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
