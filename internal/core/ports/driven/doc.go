// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EvidenceStore: Evidence record persistence and search
//   - TimelineStore, RecommendationStore, ReportStore: Derived entities
//   - TaskStore: Generation task persistence
//   - Generator: External text-generation collaborator
//
// # Optional Interfaces
//
//   - MailProvider: Remote message fetching. Without it, ingest_email
//     tasks are rejected.
//   - Extractor: PDF text extraction. Without it, PDF uploads must
//     arrive pre-extracted.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
