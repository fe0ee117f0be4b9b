package isolation

import (
	"fmt"
	"time"
)

// Violation severities.
const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
)

// sensitiveEntityTypes always score HIGH when leaked.
var sensitiveEntityTypes = map[string]struct{}{
	"SAPSystem":      {},
	"Host":           {},
	"IPAddress":      {},
	"Database":       {},
	"Client":         {},
	"RFCDestination": {},
}

// Entity is a typed identifier, the unit of registration.
type Entity struct {
	Type  string
	Value string
}

// EntityRef is a registered entity together with the project that
// owns it.
type EntityRef struct {
	Type         string
	Value        string
	ProjectID    string
	RegisteredAt time.Time
}

// Violation is one detected cross-project leak.
type Violation struct {
	// Entity is the leaked entity and its owning project.
	Entity EntityRef

	// FoundInProject is the project whose output contained the entity.
	FoundInProject string

	// Context is the text surrounding the hit.
	Context string

	// Severity is SeverityHigh for sensitive entity types,
	// SeverityMedium otherwise.
	Severity string
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] entity %q from project %q leaked into %q",
		v.Severity, v.Entity.Value, v.Entity.ProjectID, v.FoundInProject)
}

// severityFor maps an entity type to a violation severity.
func severityFor(entityType string) string {
	if _, ok := sensitiveEntityTypes[entityType]; ok {
		return SeverityHigh
	}
	return SeverityMedium
}
