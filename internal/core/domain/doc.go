// Package domain defines the core business entities for Casefile.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - EvidenceRecord: One normalised unit of ingested material
//   - Timeline: An ordered reconstruction of events
//   - EvidenceRecommendation: Collaborator-scored relevant evidence
//   - Report: A generated document combining the above
//   - GenerationTask: A tracked unit of asynchronous work
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
