// Package repositories implements SQLite persistence for the reference backend.
//
// Each repository handles CRUD operations with atomic sequence generation for stable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [QuoteRepository] : Quotes owned by a user
//   - [TaskRepository] : Tasks owned by a user
//   - [PlaylistRepository] : Named, ordered lists of quote identifiers
//
// Sequence numbers give lists a stable creation order independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
