// Package ontology defines the SAP landscape vocabulary: the node and
// relationship types projects model, and the base template partition
// new projects clone.
//
// The definitions here are the source of truth for the query layer's
// whitelist. Every node label and relationship type the builder
// accepts corresponds to a definition in this package.
package ontology
