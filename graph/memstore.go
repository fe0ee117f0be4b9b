package graph

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// MemStore is an in-memory Store implementation. It mimics the lazy
// materialization behavior of multi-graph stores: Select hands out a
// handle immediately, but the partition only appears in ListPartitions
// after its first write.
//
// MemStore is safe for concurrent use. Query evaluation covers exactly
// the clause shapes the GraphGate query builder and partition manager
// emit; anything else returns ErrUnsupportedQuery.
type MemStore struct {
	mu    sync.RWMutex
	parts map[string]*memPartition
}

// NewMemStore creates an empty in-memory graph store.
func NewMemStore() *MemStore {
	return &MemStore{parts: make(map[string]*memPartition)}
}

// ListPartitions returns the sorted names of all materialized partitions.
func (s *MemStore) ListPartitions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.parts))
	for name := range s.parts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Select returns a handle to the named partition, existing or not.
func (s *MemStore) Select(name string) Partition {
	return &memPartition{store: s, name: name}
}

type memNode struct {
	label string
	props map[string]any
}

type memPartition struct {
	store *MemStore
	name  string
	nodes []memNode
}

func (p *memPartition) Name() string { return p.name }

// materialized returns the backing partition registered in the store,
// or nil if nothing has been written under this name yet.
func (p *memPartition) materialized() *memPartition {
	return p.store.parts[p.name]
}

// materialize registers the partition in the store on first write.
func (p *memPartition) materialize() *memPartition {
	if existing := p.store.parts[p.name]; existing != nil {
		return existing
	}
	backing := &memPartition{store: p.store, name: p.name}
	p.store.parts[p.name] = backing
	return backing
}

func (p *memPartition) Copy(_ context.Context, newName string) (Partition, error) {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	src := p.materialized()
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrPartitionNotFound, p.name)
	}
	if _, taken := p.store.parts[newName]; taken {
		return nil, fmt.Errorf("%w: %s", ErrPartitionExists, newName)
	}

	dst := &memPartition{store: p.store, name: newName}
	dst.nodes = make([]memNode, len(src.nodes))
	for i, n := range src.nodes {
		props := make(map[string]any, len(n.props))
		for k, v := range n.props {
			props[k] = v
		}
		dst.nodes[i] = memNode{label: n.label, props: props}
	}
	p.store.parts[newName] = dst
	return &memPartition{store: p.store, name: newName}, nil
}

func (p *memPartition) Delete(_ context.Context) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	if p.materialized() == nil {
		return fmt.Errorf("%w: %s", ErrPartitionNotFound, p.name)
	}
	delete(p.store.parts, p.name)
	return nil
}

// Clause patterns for the restricted query subset.
var (
	reClauseSplit = regexp.MustCompile(`\b(CREATE|MATCH|WHERE|RETURN|ORDER BY|LIMIT|SKIP)\b`)
	reCreateNode  = regexp.MustCompile(`^CREATE \((?:\w+)?:(\w+)\s*(\{.*\})?\s*\)$`)
	reMatchNode   = regexp.MustCompile(`^MATCH \((\w+):(\w+)\s*(\{.*\})?\s*\)$`)
	reMatchAny    = regexp.MustCompile(`^MATCH \((\w*)\)$`)
	reMatchEdges  = regexp.MustCompile(`^MATCH \(\)-\[(\w+)\]->\(\)$`)
	reReturnCount = regexp.MustCompile(`^RETURN count\((\w+)\)(?: (?:as|AS) (\w+))?$`)
	reOrderBy     = regexp.MustCompile(`^ORDER BY (\w+)\.(\w+) (ASC|DESC)$`)
)

func (p *memPartition) Query(_ context.Context, text string, params map[string]any) (*Result, error) {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	normalized := strings.Join(strings.Fields(text), " ")
	clauses := splitClauses(normalized)
	if len(clauses) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedQuery, text)
	}

	eval := &memQuery{partition: p, params: params}
	for _, clause := range clauses {
		if err := eval.apply(clause); err != nil {
			return nil, err
		}
	}
	return eval.result()
}

// splitClauses cuts a normalized query string at clause keywords.
func splitClauses(q string) []string {
	locs := reClauseSplit.FindAllStringIndex(q, -1)
	if len(locs) == 0 || locs[0][0] != 0 {
		return nil
	}
	var clauses []string
	for i, loc := range locs {
		end := len(q)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		clauses = append(clauses, strings.TrimSpace(q[loc[0]:end]))
	}
	return clauses
}

// memQuery accumulates clause effects for a single evaluation.
type memQuery struct {
	partition *memPartition
	params    map[string]any

	alias     string
	matched   []memNode
	hasMatch  bool
	countEdge bool

	returnCols []string
	returnProj func(memNode) []any
	countAlias string
	doCount    bool

	limit, skip int
	hasLimit    bool
}

func (q *memQuery) apply(clause string) error {
	switch {
	case strings.HasPrefix(clause, "CREATE"):
		return q.applyCreate(clause)
	case strings.HasPrefix(clause, "MATCH"):
		return q.applyMatch(clause)
	case strings.HasPrefix(clause, "RETURN"):
		return q.applyReturn(clause)
	case strings.HasPrefix(clause, "ORDER BY"):
		return q.applyOrderBy(clause)
	case strings.HasPrefix(clause, "LIMIT"):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(clause, "LIMIT")))
		if err != nil {
			return fmt.Errorf("%w: %q", ErrUnsupportedQuery, clause)
		}
		q.limit, q.hasLimit = n, true
		return nil
	case strings.HasPrefix(clause, "SKIP"):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(clause, "SKIP")))
		if err != nil {
			return fmt.Errorf("%w: %q", ErrUnsupportedQuery, clause)
		}
		q.skip = n
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedQuery, clause)
	}
}

func (q *memQuery) applyCreate(clause string) error {
	m := reCreateNode.FindStringSubmatch(clause)
	if m == nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedQuery, clause)
	}
	props, err := parseProps(m[2], q.params)
	if err != nil {
		return err
	}
	backing := q.partition.materialize()
	backing.nodes = append(backing.nodes, memNode{label: m[1], props: props})
	return nil
}

func (q *memQuery) applyMatch(clause string) error {
	if q.hasMatch {
		// Multi-pattern matches are beyond the double's subset.
		return fmt.Errorf("%w: %q", ErrUnsupportedQuery, clause)
	}
	q.hasMatch = true

	backing := q.partition.materialized()

	if m := reMatchEdges.FindStringSubmatch(clause); m != nil {
		q.alias = m[1]
		q.countEdge = true
		return nil
	}
	if m := reMatchAny.FindStringSubmatch(clause); m != nil {
		q.alias = m[1]
		if backing != nil {
			q.matched = append(q.matched, backing.nodes...)
		}
		return nil
	}
	m := reMatchNode.FindStringSubmatch(clause)
	if m == nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedQuery, clause)
	}
	q.alias = m[1]
	filter, err := parseProps(m[3], q.params)
	if err != nil {
		return err
	}
	if backing == nil {
		return nil
	}
	for _, n := range backing.nodes {
		if n.label != m[2] {
			continue
		}
		if nodeMatches(n, filter) {
			q.matched = append(q.matched, n)
		}
	}
	return nil
}

func (q *memQuery) applyReturn(clause string) error {
	if m := reReturnCount.FindStringSubmatch(clause); m != nil {
		q.doCount = true
		q.countAlias = m[2]
		if q.countAlias == "" {
			q.countAlias = "count(" + m[1] + ")"
		}
		return nil
	}

	items := strings.Split(strings.TrimSpace(strings.TrimPrefix(clause, "RETURN")), ",")
	var cols []string
	var props []string
	wholeNode := false
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == q.alias {
			wholeNode = true
			cols = append(cols, item)
			props = append(props, "")
			continue
		}
		alias, prop, ok := strings.Cut(item, ".")
		if !ok || alias != q.alias {
			return fmt.Errorf("%w: %q", ErrUnsupportedQuery, clause)
		}
		cols = append(cols, item)
		props = append(props, prop)
	}
	q.returnCols = cols
	q.returnProj = func(n memNode) []any {
		row := make([]any, len(props))
		for i, prop := range props {
			if wholeNode && prop == "" {
				copied := make(map[string]any, len(n.props))
				for k, v := range n.props {
					copied[k] = v
				}
				row[i] = copied
				continue
			}
			row[i] = n.props[prop]
		}
		return row
	}
	return nil
}

func (q *memQuery) applyOrderBy(clause string) error {
	m := reOrderBy.FindStringSubmatch(clause)
	if m == nil || m[1] != q.alias {
		return fmt.Errorf("%w: %q", ErrUnsupportedQuery, clause)
	}
	prop, desc := m[2], m[3] == "DESC"
	sort.SliceStable(q.matched, func(i, j int) bool {
		a, b := fmt.Sprint(q.matched[i].props[prop]), fmt.Sprint(q.matched[j].props[prop])
		if desc {
			return a > b
		}
		return a < b
	})
	return nil
}

func (q *memQuery) result() (*Result, error) {
	if q.doCount {
		count := len(q.matched)
		if q.countEdge {
			count = 0 // the double stores no relationships
		}
		return &Result{Columns: []string{q.countAlias}, Rows: [][]any{{count}}}, nil
	}

	nodes := q.matched
	if q.skip > 0 {
		if q.skip >= len(nodes) {
			nodes = nil
		} else {
			nodes = nodes[q.skip:]
		}
	}
	if q.hasLimit && q.limit < len(nodes) {
		nodes = nodes[:q.limit]
	}

	if q.returnProj == nil {
		// CREATE-only queries return an empty result.
		return &Result{}, nil
	}
	rows := make([][]any, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, q.returnProj(n))
	}
	return &Result{Columns: q.returnCols, Rows: rows}, nil
}

// nodeMatches reports whether every filter property equals the node's.
// Comparison is by printed value so parameter numeric types need not
// match stored types exactly.
func nodeMatches(n memNode, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := n.props[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// parseProps parses an inline `{k: v, ...}` property block. Values may
// be $param references, quoted strings, booleans, or numbers.
func parseProps(block string, params map[string]any) (map[string]any, error) {
	props := make(map[string]any)
	block = strings.TrimSpace(block)
	if block == "" {
		return props, nil
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(block, "{"), "}")
	for _, pair := range strings.Split(inner, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, raw, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("%w: property %q", ErrUnsupportedQuery, pair)
		}
		key, raw = strings.TrimSpace(key), strings.TrimSpace(raw)
		val, err := parseValue(raw, params)
		if err != nil {
			return nil, err
		}
		props[key] = val
	}
	return props, nil
}

func parseValue(raw string, params map[string]any) (any, error) {
	switch {
	case strings.HasPrefix(raw, "$"):
		name := raw[1:]
		val, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing parameter $%s", ErrUnsupportedQuery, name)
		}
		return val, nil
	case strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'"):
		return strings.Trim(raw, "'"), nil
	case strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`):
		return strings.Trim(raw, `"`), nil
	case raw == "true":
		return true, nil
	case raw == "false":
		return false, nil
	default:
		if n, err := strconv.Atoi(raw); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f, nil
		}
		return nil, fmt.Errorf("%w: literal %q", ErrUnsupportedQuery, raw)
	}
}
