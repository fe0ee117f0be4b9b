package ontology

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tessera-labs/graphgate/graph"
)

// BaseTemplateName is the partition new projects clone to inherit the
// SAP structure.
const BaseTemplateName = "sap_ontology_base"

// TemplateManager creates and documents the base template partition.
type TemplateManager struct {
	store  graph.Store
	logger *slog.Logger
}

// NewTemplateManager creates a TemplateManager over the given store.
func NewTemplateManager(store graph.Store, logger *slog.Logger) *TemplateManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateManager{store: store, logger: logger}
}

// CreateBaseTemplate creates the base template partition, seeded with
// a metadata node and one example node per core type. One-time setup:
// returns false without touching anything if the template already
// exists.
func (tm *TemplateManager) CreateBaseTemplate(ctx context.Context) (bool, error) {
	names, err := tm.store.ListPartitions(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list partitions: %w", err)
	}
	for _, name := range names {
		if name == BaseTemplateName {
			tm.logger.Warn("base template already exists, skipping creation")
			return false, nil
		}
	}

	tm.logger.Info("creating base template", "partition", BaseTemplateName)
	template := tm.store.Select(BaseTemplateName)

	labels := make([]string, len(nodeTypes))
	for i, nt := range nodeTypes {
		labels[i] = nt.Label
	}
	relTypes := make([]string, len(relationshipTypes))
	for i, rt := range relationshipTypes {
		relTypes[i] = rt.Type
	}

	seeds := []struct {
		text   string
		params map[string]any
	}{
		{
			text: "CREATE (:TemplateMetadata {name: $name, version: $version, node_types: $node_types, relationship_types: $relationship_types})",
			params: map[string]any{
				"name":               "SAP Ontology Base",
				"version":            "4.0",
				"node_types":         labels,
				"relationship_types": relTypes,
			},
		},
		{text: "CREATE (:SAPSystem {sid: 'EXAMPLE', system_type: 'S/4HANA', landscape_tier: 'TEMPLATE', status: 'TEMPLATE'})"},
		{text: "CREATE (:Host {hostname: 'example-host', os_type: 'SLES', os_version: '15 SP5'})"},
		{text: "CREATE (:Database {db_type: 'HANA', db_sid: 'HDB', db_version: '2.0 SPS07'})"},
	}

	for _, seed := range seeds {
		if _, err := template.Query(ctx, seed.text, seed.params); err != nil {
			return false, fmt.Errorf("failed to seed base template: %w", err)
		}
	}

	tm.logger.Info("base template created",
		"node_types", len(nodeTypes),
		"relationship_types", len(relationshipTypes))

	return true, nil
}

// Reference renders a human-readable guide to the ontology.
func Reference() string {
	var b strings.Builder
	divider := strings.Repeat("=", 70)

	fmt.Fprintln(&b, divider)
	fmt.Fprintln(&b, "SAP ONTOLOGY REFERENCE")
	fmt.Fprintln(&b, divider)

	fmt.Fprintln(&b, "\nNODE TYPES:")
	for _, nt := range nodeTypes {
		fmt.Fprintf(&b, "\n%s\n", nt.Label)
		fmt.Fprintf(&b, "  Description: %s\n", nt.Description)
		fmt.Fprintf(&b, "  Required: %s\n", strings.Join(nt.Required, ", "))
		if len(nt.Optional) > 0 {
			fmt.Fprintf(&b, "  Optional: %s\n", strings.Join(nt.Optional, ", "))
		}
	}

	fmt.Fprintln(&b, "\nRELATIONSHIP TYPES:")
	for _, rt := range relationshipTypes {
		fmt.Fprintf(&b, "\n%s\n", rt.Type)
		fmt.Fprintf(&b, "  Description: %s\n", rt.Description)
		fmt.Fprintf(&b, "  Pattern: (%s)-[:%s]->(%s)\n", rt.FromLabel, rt.Type, rt.ToLabel)
		if len(rt.Properties) > 0 {
			fmt.Fprintf(&b, "  Properties: %s\n", strings.Join(rt.Properties, ", "))
		}
	}

	b.WriteString(divider)
	return b.String()
}
