// Package ontology holds the fixed vocabulary namespaces the exporter
// writes into (SAREF core, SAREF4BLDG, the Home Assistant extension
// profile) and read-only access to the master reference ontology that
// is consulted before new Property classes are minted.
package ontology
