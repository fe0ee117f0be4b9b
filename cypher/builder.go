package cypher

import (
	"fmt"
	"sort"
	"strings"
)

// Complexity weights per clause kind. More than three node aliases in
// one query adds a join penalty on top.
const (
	matchCost        = 10
	relationshipCost = 15
	whereCost        = 5
	joinPenalty      = 10
	aliasThreshold   = 3

	// limitWarnThreshold is the LIMIT above which a performance warning
	// is attached instead of failing the build.
	limitWarnThreshold = 1000
)

// Builder assembles a parameterized query clause by clause. Values are
// never interpolated into the text: each property value receives a
// fresh, monotonically numbered parameter name and is placed in the
// parameter map only.
//
// Builder is not safe for concurrent use; build one per query. The
// first validation failure sticks and is returned from Build, so a
// chain can be written without intermediate error checks.
type Builder struct {
	clauses    []string
	parameters map[string]any
	paramCount int
	complexity int
	warnings   []string
	aliases    []string
	err        error
}

// NewBuilder creates an empty query builder.
func NewBuilder() *Builder {
	return &Builder{parameters: make(map[string]any)}
}

// nextParam reserves a fresh parameter name with the given prefix.
func (b *Builder) nextParam(prefix string) string {
	b.paramCount++
	return fmt.Sprintf("%s_%d", prefix, b.paramCount)
}

// fail records the first error and keeps the chain fluent.
func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// bindProps emits `key: $param` fragments for the given properties in
// sorted key order, binding each value under a generated name.
func (b *Builder) bindProps(props map[string]any, prefix string) ([]string, error) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := ValidateProperty(key); err != nil {
			return nil, err
		}
		name := b.nextParam(prefix + key)
		parts = append(parts, fmt.Sprintf("%s: $%s", key, name))
		b.parameters[name] = props[key]
	}
	return parts, nil
}

// MatchNodes adds a MATCH clause for nodes with the given label.
// Property values are parameterized; the label and property names are
// whitelist-checked. The alias defaults to "n" when empty.
func (b *Builder) MatchNodes(label string, properties map[string]any, alias string) *Builder {
	if b.err != nil {
		return b
	}
	if err := ValidateLabel(label); err != nil {
		return b.fail(err)
	}
	if alias == "" {
		alias = "n"
	}
	b.aliases = append(b.aliases, alias)

	parts, err := b.bindProps(properties, "")
	if err != nil {
		return b.fail(err)
	}
	propString := ""
	if len(parts) > 0 {
		propString = " {" + strings.Join(parts, ", ") + "}"
	}
	b.clauses = append(b.clauses, fmt.Sprintf("MATCH (%s:%s%s)", alias, label, propString))
	b.complexity += matchCost
	return b
}

// RelationshipPattern configures a MatchRelationship clause. Zero
// values fall back to the conventional aliases n, r, and m.
type RelationshipPattern struct {
	Properties  map[string]any
	SourceAlias string
	RelAlias    string
	TargetAlias string
}

// MatchRelationship adds a MATCH clause traversing a relationship of
// the given type toward a target label, in the given direction.
func (b *Builder) MatchRelationship(relType, targetLabel string, direction Direction, pattern RelationshipPattern) *Builder {
	if b.err != nil {
		return b
	}
	if err := ValidateRelationship(relType); err != nil {
		return b.fail(err)
	}
	if err := ValidateLabel(targetLabel); err != nil {
		return b.fail(err)
	}
	if !direction.IsValid() {
		return b.fail(fmt.Errorf("%w: %d", ErrInvalidDirection, int(direction)))
	}

	source := pattern.SourceAlias
	if source == "" {
		source = "n"
	}
	rel := pattern.RelAlias
	if rel == "" {
		rel = "r"
	}
	target := pattern.TargetAlias
	if target == "" {
		target = "m"
	}
	b.aliases = append(b.aliases, target)

	parts, err := b.bindProps(pattern.Properties, "rel_")
	if err != nil {
		return b.fail(err)
	}
	propString := ""
	if len(parts) > 0 {
		propString = " {" + strings.Join(parts, ", ") + "}"
	}

	relFragment := fmt.Sprintf("[%s:%s%s]", rel, relType, propString)
	targetFragment := fmt.Sprintf("(%s:%s)", target, targetLabel)

	var clause string
	switch direction {
	case Outgoing:
		clause = fmt.Sprintf("MATCH (%s)-%s->%s", source, relFragment, targetFragment)
	case Incoming:
		clause = fmt.Sprintf("MATCH (%s)<-%s-%s", source, relFragment, targetFragment)
	case Both:
		clause = fmt.Sprintf("MATCH (%s)-%s-%s", source, relFragment, targetFragment)
	}
	b.clauses = append(b.clauses, clause)
	b.complexity += relationshipCost
	return b
}

// Where adds a WHERE clause. The condition text must reference values
// only through $name placeholders; the values themselves travel in
// params. Parameter names are shape-checked, the free-form condition
// text is not re-validated beyond that — prefer the prebuilt templates
// for anything caller-influenced.
func (b *Builder) Where(condition string, params map[string]any) *Builder {
	if b.err != nil {
		return b
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ValidateParamName(name); err != nil {
			return b.fail(err)
		}
		if _, exists := b.parameters[name]; exists {
			b.warnings = append(b.warnings, fmt.Sprintf("parameter %s already exists, overwriting", name))
		}
		b.parameters[name] = params[name]
	}
	b.clauses = append(b.clauses, "WHERE "+condition)
	b.complexity += whereCost
	return b
}

// ReturnNodes adds a RETURN clause for the given aliases, defaulting to
// every alias matched so far.
func (b *Builder) ReturnNodes(aliases ...string) *Builder {
	if b.err != nil {
		return b
	}
	if len(aliases) == 0 {
		aliases = b.aliases
	}
	b.clauses = append(b.clauses, "RETURN "+strings.Join(aliases, ", "))
	return b
}

// ReturnProperties adds a RETURN clause projecting specific properties
// of one alias. Property names are whitelist-checked.
func (b *Builder) ReturnProperties(alias string, properties []string) *Builder {
	if b.err != nil {
		return b
	}
	refs := make([]string, 0, len(properties))
	for _, prop := range properties {
		if err := ValidateProperty(prop); err != nil {
			return b.fail(err)
		}
		refs = append(refs, alias+"."+prop)
	}
	b.clauses = append(b.clauses, "RETURN "+strings.Join(refs, ", "))
	return b
}

// OrderBy adds an ORDER BY clause on an alias.property reference.
func (b *Builder) OrderBy(alias, property string, descending bool) *Builder {
	if b.err != nil {
		return b
	}
	if err := ValidateProperty(property); err != nil {
		return b.fail(err)
	}
	order := "ASC"
	if descending {
		order = "DESC"
	}
	b.clauses = append(b.clauses, fmt.Sprintf("ORDER BY %s.%s %s", alias, property, order))
	return b
}

// Limit adds a LIMIT clause. Counts below 1 fail; counts above 1000
// succeed with a performance warning.
func (b *Builder) Limit(count int) *Builder {
	if b.err != nil {
		return b
	}
	if count < 1 {
		return b.fail(fmt.Errorf("%w: limit must be at least 1, got %d", ErrInvalidLimit, count))
	}
	if count > limitWarnThreshold {
		b.warnings = append(b.warnings, fmt.Sprintf("large limit (%d) may impact performance", count))
	}
	b.clauses = append(b.clauses, fmt.Sprintf("LIMIT %d", count))
	return b
}

// Skip adds a SKIP clause for pagination. Negative counts fail.
func (b *Builder) Skip(count int) *Builder {
	if b.err != nil {
		return b
	}
	if count < 0 {
		return b.fail(fmt.Errorf("%w: skip must be non-negative, got %d", ErrInvalidLimit, count))
	}
	b.clauses = append(b.clauses, fmt.Sprintf("SKIP %d", count))
	return b
}

// Build concatenates the accumulated clauses and returns the final
// query with its parameter map, complexity score, and warnings. A
// builder with zero clauses, or one whose chain recorded a validation
// failure, returns an error instead.
func (b *Builder) Build() (*Result, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.clauses) == 0 {
		return nil, ErrEmptyQuery
	}

	complexity := b.complexity
	if len(b.aliases) > aliasThreshold {
		complexity += joinPenalty
	}

	return &Result{
		Query:      strings.Join(b.clauses, "\n"),
		Parameters: b.parameters,
		Complexity: complexity,
		Warnings:   b.warnings,
	}, nil
}
