// Package cache provides a two-tier cache over Redis with a local
// in-process tier for synchronous lookups.
//
// The local tier is a TTL-bounded map guarded by a read-write mutex.
// Reads that must not block on the network (permission checks on the
// hot path) use GetLocal and see only entries that a prior Get or Set
// populated. Get falls through to Redis on a local miss and refills
// the local tier, so repeated lookups for the same key converge to
// memory speed.
//
// Writes always go to Redis first. A write that fails in Redis is not
// applied locally, keeping the local tier a strict subset of what
// Redis holds (modulo expiry skew).
package cache
