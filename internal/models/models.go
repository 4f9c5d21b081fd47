// package models defines the data model for the focusync sync engine
package models

import (
	"time"

	"github.com/desertthunder/focusync/internal/shared"
)

// Kind names an entity type. It doubles as the remote collection name.
type Kind string

const (
	KindQuote    Kind = "quotes"
	KindTask     Kind = "tasks"
	KindPlaylist Kind = "playlists"
)

// Entity is the canonical shape every source is normalized into before reconciliation.
type Entity interface {
	EntityID() string             // EntityID returns the remote or temporary identifier
	Created() time.Time           // Created returns the creation timestamp used for ordering
	IsLocalOnly() bool            // IsLocalOnly reports whether the remote has not confirmed this entity yet
	SortValue(field string) string // SortValue returns the value of a designated field for lexicographic sorting
}

// Item is an [Entity] that can be copied with a new identity and patched field by field.
//
// Implementations use value receivers and return modified copies; stored values are never mutated in place.
type Item[E any] interface {
	Entity
	WithID(id string) E         // WithID returns a copy carrying id
	WithLocalOnly(local bool) E // WithLocalOnly returns a copy with the local-only flag set
	WithCreatedAt(t time.Time) E
	// Apply returns a patched copy and the previous values of exactly the touched fields.
	Apply(p Patch) (E, Patch, error)
	// Fields returns the current value of every patchable field.
	Fields() Patch
	// References returns identifiers of other entities this entity points at.
	References() []string
	// Rewrite returns a copy with references to from replaced by to. An empty to drops the reference.
	Rewrite(from, to string) E
}

// Repository defines the interface for backend data access operations.
// Implementations handle database interactions for a specific entity type.
type Repository[T Entity] interface {
	Create(userID string, model T) (T, error)                 // Create inserts a new model and assigns its identifier
	Get(id string) (T, error)                                 // Get retrieves a model by its ID
	Update(id string, patch Patch) (T, error)                 // Update applies a field-level patch
	Delete(id string) error                                   // Delete removes a model by its ID
	List(userID string, criteria map[string]any) ([]T, error) // List retrieves all models owned by userID matching criteria
}

// IsTemporaryID reports whether id is a client-minted identifier awaiting promotion.
func IsTemporaryID(id string) bool {
	return shared.IsTempID(id)
}
