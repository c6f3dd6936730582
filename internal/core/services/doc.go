// Package services implements the driving ports: ingestion of evidence
// from the three source kinds, derived-entity generation through the
// external collaborator, record search, and the background task
// orchestrator that serialises generation work per case and kind.
//
// Services depend only on the domain types and the driven ports; every
// adapter is injected at construction.
package services
