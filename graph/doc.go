// Package graph defines the opaque handles GraphGate uses to talk to a
// multi-partition graph store, along with an in-memory implementation
// suitable for tests and local development.
//
// The store is assumed to be already authenticated and connected;
// connection setup is the consuming service's responsibility. Each
// partition is a fully isolated named namespace: queries executed
// against one partition can never observe another partition's data.
//
// The two interfaces mirror the primitives GraphGate relies on:
//
//   - Store: enumerate partitions and obtain partition handles
//   - Partition: execute parameterized queries, copy, delete
//
// MemStore implements both against process memory. It evaluates only
// the restricted query shapes GraphGate itself emits (single-node
// CREATE and MATCH clauses, property returns, count aggregates, LIMIT
// and SKIP). It is not a Cypher engine; unsupported query shapes
// return an error rather than a wrong answer.
package graph
