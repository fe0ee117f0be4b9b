// Package isolation detects cross-project data leaks in outbound text.
//
// The store already isolates projects physically and the partition
// manager enforces a mounted context, so this layer exists to catch
// programming errors: a response assembled for one project that
// mentions another project's entities. The Guard keeps an ownership
// registry of typed entity values per project and scans text for
// values owned elsewhere, reporting each hit as a violation with
// surrounding context.
//
// Registration is either explicit or discovered from a project's
// graph through whitelisted query templates. Validation fails safe:
// the Guard reports and redacts, and only the strict check turns a
// violation into an error.
package isolation
