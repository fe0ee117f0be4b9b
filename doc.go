// Package graphgate is a multi-tenant isolation gateway for shared
// multi-partition graph stores.
//
// Each tenant project owns a physically separate graph partition. The
// Gateway composes four layers of defense around that separation:
//
//   - partition: one-mounted-partition context enforcement, so queries
//     cannot run without an explicit tenant context
//   - rbac: Redis-backed role grants with cached permission checks and
//     an audit trail
//   - cypher: a whitelist-validated, fully parameterized query builder
//     that makes structural injection unexpressible
//   - isolation: response scanning that detects one tenant's entities
//     leaking into another tenant's output
//
// # Getting Started
//
// Construct a Gateway with New and functional options:
//
//	gw, err := graphgate.New(
//	    graphgate.WithGraphStore(store),
//	    graphgate.WithAccessControl(ac),
//	    graphgate.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gw.Close()
//
//	if _, err := gw.Mount(ctx, "client_a", "user123"); err != nil {
//	    // no access, or the project does not exist
//	}
//
// # Error Handling
//
// Gateway errors are *GateError values carrying the failed operation
// and an error kind, and they unwrap to package-level sentinels for
// errors.Is checks:
//
//	if err != nil {
//	    if errors.Is(err, partition.ErrNotMounted) {
//	        // mount a project first
//	    }
//	}
//
// # Thread Safety
//
// A Gateway wraps a single mounted-partition context and is therefore
// not safe for concurrent use. Create one Gateway per goroutine or
// serialize access externally; the rbac and isolation layers underneath
// are independently safe for concurrent use.
package graphgate
