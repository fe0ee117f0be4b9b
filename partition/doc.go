// Package partition manages per-project graph partitions with
// one-mounted-partition semantics.
//
// Each project owns a dedicated named graph ("project_{id}") inside a
// shared multi-partition store, so isolation is physical rather than
// filtered. A Manager holds at most one mounted partition at a time
// and refuses to run queries while nothing is mounted, which turns
// "query against the wrong tenant" into an explicit error instead of
// a silent leak.
//
// A Manager models a single agent's point of view and is not safe for
// concurrent use. Callers that share a store across goroutines create
// one Manager per goroutine; the underlying graph.Store carries its
// own synchronization.
package partition
