package cypher

import (
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for whitelist validation failures.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrInvalidLabel indicates a node label outside the whitelist.
	ErrInvalidLabel = errors.New("cypher: invalid node label")

	// ErrInvalidRelationship indicates a relationship type outside the whitelist.
	ErrInvalidRelationship = errors.New("cypher: invalid relationship type")

	// ErrInvalidProperty indicates a property name outside the whitelist.
	ErrInvalidProperty = errors.New("cypher: invalid property name")

	// ErrInvalidParamName indicates a malformed parameter name.
	ErrInvalidParamName = errors.New("cypher: invalid parameter name")

	// ErrInvalidDirection indicates a relationship direction outside the
	// three-way enumeration.
	ErrInvalidDirection = errors.New("cypher: invalid relationship direction")

	// ErrEmptyQuery is returned by Build when no clauses were added.
	ErrEmptyQuery = errors.New("cypher: cannot build empty query")

	// ErrInvalidLimit indicates a LIMIT below 1 or a negative SKIP.
	ErrInvalidLimit = errors.New("cypher: invalid limit or skip")
)

// Closed whitelists of structural identifiers. Only these may ever
// appear literally in emitted query text; everything else travels
// through the parameter map. The sets derive from the ontology's node
// and relationship definitions.
var (
	allowedLabels = map[string]struct{}{
		"SAPSystem": {}, "SAPInstance": {}, "Host": {}, "Database": {},
		"Client": {}, "TransportRoute": {}, "NetworkSegment": {},
		"RFCDestination": {}, "Entity": {},
	}

	allowedRelationships = map[string]struct{}{
		"HAS_INSTANCE": {}, "RUNS_ON": {}, "USES_DATABASE": {}, "HOSTED_ON": {},
		"HAS_CLIENT": {}, "TRANSPORTS_TO": {}, "DEPENDS_ON": {}, "FAILOVER_FOR": {},
		"BELONGS_TO_NETWORK": {}, "CONNECTS_VIA": {}, "TARGETS": {}, "RELATES_TO": {},
	}

	allowedProperties = map[string]struct{}{
		// System properties
		"sid": {}, "system_type": {}, "landscape_tier": {}, "description": {},
		// Instance properties
		"instance_number": {}, "instance_type": {}, "hostname": {}, "status": {},
		"port": {}, "start_priority": {},
		// Host properties
		"ip": {}, "ip_address": {}, "os_type": {}, "cpu_cores": {}, "ram_gb": {},
		// Database properties
		"db_type": {}, "db_version": {}, "db_name": {}, "db_sid": {},
		// Client properties
		"client_number": {}, "client_role": {},
		// Common properties
		"name": {}, "created_at": {}, "updated_at": {}, "active": {}, "tags": {},
		// Network properties
		"cidr": {}, "subnet": {}, "vlan_id": {}, "zone": {},
		// Transport properties
		"source_system": {}, "target_system": {}, "route_type": {},
		// RFC properties
		"rfc_name": {}, "connection_type": {}, "target_host": {}, "program_id": {},
	}

	paramNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// ValidateLabel checks a node label against the whitelist.
func ValidateLabel(label string) error {
	if _, ok := allowedLabels[label]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return nil
}

// ValidateRelationship checks a relationship type against the whitelist.
func ValidateRelationship(relType string) error {
	if _, ok := allowedRelationships[relType]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidRelationship, relType)
	}
	return nil
}

// ValidateProperty checks a property name against the whitelist.
func ValidateProperty(name string) error {
	if _, ok := allowedProperties[name]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidProperty, name)
	}
	return nil
}

// ValidateParamName checks a parameter name's shape. Parameter names
// must be identifier-like; their values are never inspected here.
func ValidateParamName(name string) error {
	if !paramNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidParamName, name)
	}
	return nil
}

// AllowedLabels returns a copy of the node label whitelist.
func AllowedLabels() []string {
	return setToSlice(allowedLabels)
}

// AllowedRelationships returns a copy of the relationship type whitelist.
func AllowedRelationships() []string {
	return setToSlice(allowedRelationships)
}

// AllowedProperties returns a copy of the property name whitelist.
func AllowedProperties() []string {
	return setToSlice(allowedProperties)
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}
