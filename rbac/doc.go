// Package rbac implements role-based access control for project
// partitions, backed by Redis.
//
// The model is a three-tier role system (admin, editor, viewer) mapped
// onto granular permissions through a fixed matrix. A user's access to
// a project is an AccessGrant stored under a per-user per-project
// Redis key and cached in process for fast checks. Every grant,
// revocation, and denial is appended to a capped audit trail.
//
// Grant lookups go through a two-tier cache, so the synchronous
// CanRead check never touches the network. Callers on a hot path use
// CanRead for an optimistic answer and fall back to the context-aware
// checks when it misses.
//
// The Policy interface is what enforcement points consume. AllowAll
// satisfies it with unconditional approval for deployments that run
// without access control.
package rbac
