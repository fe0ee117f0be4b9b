// Package cypher provides an injection-safe query builder for the
// partitioned graph store.
//
// The builder makes it structurally impossible for a caller-supplied
// value to alter query shape: every value travels through the
// parameter map under a generated parameter name, and only identifiers
// present in the closed whitelists (node labels, relationship types,
// property names) may appear literally in the emitted text. An
// identifier outside its whitelist fails the build; it is never
// sanitized or guessed at.
//
// Builder methods record the first validation failure and return it
// from Build, so chains stay fluent:
//
//	result, err := cypher.NewBuilder().
//	    MatchNodes("SAPSystem", map[string]any{"sid": "PRD"}, "sys").
//	    ReturnNodes("sys").
//	    Build()
//
// The Templates type covers the common read patterns so that typical
// call sites never hand-write Where conditions. Where itself trusts
// the caller to use $placeholder syntax and should only be reached
// from internal code paths.
package cypher
