// Package models defines the canonical entity shapes shared by every layer of focusync.
//
// The package contains three categories of types:
//
// 1. Entities: user-owned domain objects that flow through the reconciler and mutation pipeline
//   - [Quote] : a saved quote with author and category
//   - [Task] : a to-do item with completion state and priority
//   - [Playlist] : a named, ordered list of entity identifiers
//
// 2. Store records: the persisted, user-scoped state for one entity type
//   - [Record] : local-only entities, the cached remote mirror, favorites, playlists and rotation cursors
//
// 3. Patches: field-level updates ([Patch]) applied optimistically and reverted field by field
//
// Every entity implements [Entity], so the reconciler only ever operates on one canonical shape.
// Wire payloads are converted to these types at the source boundary (see the services package).
//
// Identifiers are either remote (assigned by the backend) or temporary (minted by the client with a "tmp_" prefix
// and valid only until promoted). [IsTemporaryID] distinguishes the two.
package models
