// Package store provides SQLite-backed storage for planning inputs.
//
// The store holds everything a plan preview is built from:
//   - Workspace config: a single JSON document
//   - Categories and deliverables: the classification registries
//   - Records and line items: the commercial records being planned
//   - Templates and rules: the task catalog
//
// *Store satisfies engine.Source; the planner reads through it and never
// writes. Writes come from `taskplan import`.
//
// # Critical Patterns
//
// Deterministic Query Results
//   - Every list query has a total ORDER BY ending in a BINARY-collated key
//   - Line items are ordered by position, then uri
//
// Idempotent Writes
//   - Every Put is an upsert keyed by the natural key
//   - Importing the same catalog or fixture twice leaves the same rows
//
// Registry Reads Include Inactive Rows
//   - Categories and Deliverables return inactive entries so the classifier
//     can warn "inactive" rather than "unknown"
//   - Templates and Rules return active rows only
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
