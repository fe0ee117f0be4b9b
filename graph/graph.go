package graph

import (
	"context"
	"errors"
)

// Sentinel errors for graph store operations.
var (
	// ErrPartitionNotFound is returned when a named partition does not exist.
	ErrPartitionNotFound = errors.New("graph: partition not found")

	// ErrPartitionExists is returned when a copy target already exists.
	ErrPartitionExists = errors.New("graph: partition already exists")

	// ErrUnsupportedQuery is returned by test doubles when a query shape
	// is outside the subset they can evaluate.
	ErrUnsupportedQuery = errors.New("graph: unsupported query shape")
)

// Result holds the rows returned by a partition query.
// Rows are positional: column i of row j is Rows[j][i], named by Columns[i].
type Result struct {
	Columns []string
	Rows    [][]any
}

// Empty reports whether the result contains no rows.
func (r *Result) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// Store provides access to a multi-partition graph database.
// Implementations wrap an already-connected client; GraphGate never
// dials or authenticates on its own.
type Store interface {
	// ListPartitions returns the names of all materialized partitions.
	ListPartitions(ctx context.Context) ([]string, error)

	// Select returns a handle to the named partition. Selecting does not
	// materialize the partition; stores that create partitions lazily
	// materialize them on the first write.
	Select(name string) Partition
}

// Partition is a handle to one isolated graph namespace.
type Partition interface {
	// Name returns the partition's name within the store.
	Name() string

	// Query executes a parameterized query against this partition only.
	Query(ctx context.Context, text string, params map[string]any) (*Result, error)

	// Copy atomically duplicates this partition under a new name.
	// Returns ErrPartitionExists if the target name is taken.
	Copy(ctx context.Context, newName string) (Partition, error)

	// Delete irreversibly removes this partition and all its data.
	Delete(ctx context.Context) error
}
