package cypher

// Templates provides prebuilt parameterized queries for the common
// read patterns, so typical call sites never hand-write Where clauses.
// Every template validates its identifiers through the same whitelists
// as the raw builder.
type Templates struct{}

// SystemBySID looks up a system by its three-character system ID.
func (Templates) SystemBySID(sid string) (*Result, error) {
	return NewBuilder().
		MatchNodes("SAPSystem", map[string]any{"sid": sid}, "sys").
		ReturnNodes("sys").
		Build()
}

// SystemInstances returns a system together with all of its instances.
func (Templates) SystemInstances(sid string) (*Result, error) {
	return NewBuilder().
		MatchNodes("SAPSystem", map[string]any{"sid": sid}, "sys").
		MatchRelationship("HAS_INSTANCE", "SAPInstance", Outgoing, RelationshipPattern{
			SourceAlias: "sys",
			TargetAlias: "inst",
		}).
		ReturnNodes("sys", "inst").
		Build()
}

// ProductionSystems lists every system in the production tier.
func (Templates) ProductionSystems() (*Result, error) {
	return NewBuilder().
		MatchNodes("SAPSystem", nil, "sys").
		Where("sys.landscape_tier = $tier", map[string]any{"tier": "PRD"}).
		ReturnNodes("sys").
		OrderBy("sys", "sid", false).
		Build()
}

// InstanceDependencies finds what a named instance depends on.
func (Templates) InstanceDependencies(instanceName string) (*Result, error) {
	return NewBuilder().
		MatchNodes("SAPInstance", map[string]any{"name": instanceName}, "inst").
		MatchRelationship("DEPENDS_ON", "SAPInstance", Outgoing, RelationshipPattern{
			SourceAlias: "inst",
			TargetAlias: "dep",
		}).
		ReturnNodes("inst", "dep").
		Build()
}

// HostInstances returns all instances running on a host.
func (Templates) HostInstances(hostname string) (*Result, error) {
	return NewBuilder().
		MatchNodes("Host", map[string]any{"hostname": hostname}, "host").
		MatchRelationship("HOSTED_ON", "SAPInstance", Incoming, RelationshipPattern{
			SourceAlias: "host",
			TargetAlias: "inst",
		}).
		ReturnNodes("host", "inst").
		Build()
}

// PortConflicts finds instances bound to a specific port and the hosts
// they run on.
func (Templates) PortConflicts(port int) (*Result, error) {
	return NewBuilder().
		MatchNodes("SAPInstance", nil, "inst").
		MatchRelationship("RUNS_ON", "Host", Outgoing, RelationshipPattern{
			SourceAlias: "inst",
			TargetAlias: "host",
		}).
		Where("inst.port = $port", map[string]any{"port": port}).
		ReturnNodes("inst", "host").
		Build()
}

// SystemIdentifiers projects the system IDs of all systems. Used by
// the isolation guard's entity discovery.
func (Templates) SystemIdentifiers() (*Result, error) {
	return NewBuilder().
		MatchNodes("SAPSystem", nil, "n").
		ReturnProperties("n", []string{"sid"}).
		Build()
}

// HostIdentifiers projects hostname and IP of all hosts. Used by the
// isolation guard's entity discovery.
func (Templates) HostIdentifiers() (*Result, error) {
	return NewBuilder().
		MatchNodes("Host", nil, "n").
		ReturnProperties("n", []string{"hostname", "ip"}).
		Build()
}

// DatabaseIdentifiers projects the database SIDs of all databases.
// Used by the isolation guard's entity discovery.
func (Templates) DatabaseIdentifiers() (*Result, error) {
	return NewBuilder().
		MatchNodes("Database", nil, "n").
		ReturnProperties("n", []string{"db_sid"}).
		Build()
}

// NodeByProperty looks up nodes of one label filtered by a single
// property value, limited to the given count. The label and property
// are whitelist-checked like every other identifier.
func (Templates) NodeByProperty(label, property string, value any, limit int) (*Result, error) {
	return NewBuilder().
		MatchNodes(label, map[string]any{property: value}, "n").
		ReturnNodes("n").
		Limit(limit).
		Build()
}
