package ontology

// NodeType describes a node label in the SAP landscape ontology.
type NodeType struct {
	Label       string
	Description string
	Required    []string
	Optional    []string
}

// RelationshipType describes an edge type in the SAP landscape
// ontology, including which labels it connects.
type RelationshipType struct {
	Type        string
	Description string
	FromLabel   string
	ToLabel     string
	Properties  []string
}

var nodeTypes = []NodeType{
	{
		Label:       "SAPSystem",
		Description: "An SAP system identified by its SID (3-character system ID)",
		Required:    []string{"sid", "system_type", "landscape_tier"},
		Optional: []string{
			"description", "usage_type", "kernel_version", "kernel_patch",
			"basis_release", "client_numbers", "status", "created_at", "updated_at",
		},
	},
	{
		Label:       "SAPInstance",
		Description: "An SAP instance (ASCS, PAS, AAS, HDB, etc.)",
		Required:    []string{"instance_type", "instance_number"},
		Optional: []string{
			"features", "start_priority", "status", "virtual_hostname",
			"process_count", "memory_gb", "created_at",
		},
	},
	{
		Label:       "Host",
		Description: "Physical or virtual server running SAP instances",
		Required:    []string{"hostname"},
		Optional: []string{
			"fqdn", "os_type", "os_version", "ip", "ip_address", "cpu_cores",
			"ram_gb", "environment", "cloud_instance_type", "datacenter",
			"created_at", "updated_at",
		},
	},
	{
		Label:       "Database",
		Description: "Database system (HANA, Oracle, etc.)",
		Required:    []string{"db_type", "db_sid"},
		Optional: []string{
			"db_version", "db_name", "tenant_name", "memory_allocated_gb",
			"backup_strategy", "port", "created_at", "updated_at",
		},
	},
	{
		Label:       "Client",
		Description: "SAP client/mandant within a system",
		Required:    []string{"client_number", "description"},
		Optional:    []string{"client_role", "is_open", "is_production", "created_at"},
	},
	{
		Label:       "TransportRoute",
		Description: "Transport route between systems",
		Required:    []string{"route_type"},
		Optional:    []string{"source_system", "target_system", "description", "created_at"},
	},
	{
		Label:       "NetworkSegment",
		Description: "Network subnet or VLAN",
		Required:    []string{"subnet"},
		Optional:    []string{"cidr", "vlan_id", "zone", "description", "firewall_rules"},
	},
	{
		Label:       "RFCDestination",
		Description: "RFC connection configuration",
		Required:    []string{"rfc_name", "connection_type"},
		Optional: []string{
			"target_host", "target_client", "program_id", "is_trusted",
			"load_balancing", "description", "created_at",
		},
	},
}

var relationshipTypes = []RelationshipType{
	{
		Type:        "HAS_INSTANCE",
		Description: "System contains instance",
		FromLabel:   "SAPSystem",
		ToLabel:     "SAPInstance",
		Properties:  []string{"created_at"},
	},
	{
		Type:        "RUNS_ON",
		Description: "Instance runs on host",
		FromLabel:   "SAPInstance",
		ToLabel:     "Host",
		Properties:  []string{"valid_from", "valid_to", "created_at"},
	},
	{
		Type:        "USES_DATABASE",
		Description: "System uses database",
		FromLabel:   "SAPSystem",
		ToLabel:     "Database",
		Properties:  []string{"connection_type", "schema_owner", "created_at"},
	},
	{
		Type:        "HOSTED_ON",
		Description: "Database hosted on server",
		FromLabel:   "Database",
		ToLabel:     "Host",
		Properties:  []string{"valid_from", "valid_to"},
	},
	{
		Type:        "HAS_CLIENT",
		Description: "System has client/mandant",
		FromLabel:   "SAPSystem",
		ToLabel:     "Client",
		Properties:  []string{"created_at"},
	},
	{
		Type:        "TRANSPORTS_TO",
		Description: "Transport route between systems",
		FromLabel:   "SAPSystem",
		ToLabel:     "SAPSystem",
		Properties:  []string{"route_type", "transport_layer", "created_at"},
	},
	{
		Type:        "DEPENDS_ON",
		Description: "Instance dependency (startup order)",
		FromLabel:   "SAPInstance",
		ToLabel:     "SAPInstance",
		Properties:  []string{"dependency_type", "is_critical"},
	},
	{
		Type:        "FAILOVER_FOR",
		Description: "Failover and high-availability pairing",
		FromLabel:   "SAPInstance",
		ToLabel:     "SAPInstance",
		Properties:  []string{"failover_mode", "sync_mode"},
	},
	{
		Type:        "BELONGS_TO_NETWORK",
		Description: "Host belongs to network segment",
		FromLabel:   "Host",
		ToLabel:     "NetworkSegment",
		Properties:  []string{"created_at"},
	},
	{
		Type:        "CONNECTS_VIA",
		Description: "System uses RFC destination",
		FromLabel:   "SAPSystem",
		ToLabel:     "RFCDestination",
		Properties:  []string{"created_at"},
	},
	{
		Type:        "TARGETS",
		Description: "RFC destination targets system",
		FromLabel:   "RFCDestination",
		ToLabel:     "SAPSystem",
		Properties:  []string{"created_at"},
	},
	{
		Type:        "RELATES_TO",
		Description: "Generic association between entities",
		FromLabel:   "Entity",
		ToLabel:     "Entity",
		Properties:  []string{"created_at"},
	},
}

// NodeTypes returns the ontology's node type definitions.
func NodeTypes() []NodeType {
	out := make([]NodeType, len(nodeTypes))
	copy(out, nodeTypes)
	return out
}

// RelationshipTypes returns the ontology's relationship type
// definitions.
func RelationshipTypes() []RelationshipType {
	out := make([]RelationshipType, len(relationshipTypes))
	copy(out, relationshipTypes)
	return out
}

// NodeTypeByLabel looks up a node type definition.
func NodeTypeByLabel(label string) (NodeType, bool) {
	for _, nt := range nodeTypes {
		if nt.Label == label {
			return nt, true
		}
	}
	return NodeType{}, false
}

// RelationshipTypeByName looks up a relationship type definition.
func RelationshipTypeByName(name string) (RelationshipType, bool) {
	for _, rt := range relationshipTypes {
		if rt.Type == name {
			return rt, true
		}
	}
	return RelationshipType{}, false
}
