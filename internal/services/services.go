// package services defines the remote collaborator contract and its HTTP implementation.
package services

import (
	"context"

	"github.com/desertthunder/focusync/internal/models"
)

// Remote is the authoritative backend for one entity type.
//
// Identifiers returned by Create are opaque strings unique within the entity type. Implementations return errors
// wrapping [shared.ErrRemoteUnavailable] for transport failures and [shared.ErrRemoteRejected] for refused requests.
type Remote[E any] interface {
	// List returns the user's entities. A non-empty filter is an expression evaluated against each entity.
	List(ctx context.Context, userID, filter string) ([]E, error)

	// Create stores entity and returns the server-assigned identifier.
	Create(ctx context.Context, userID string, entity E) (string, error)

	// Update applies a field-level patch.
	Update(ctx context.Context, id string, patch models.Patch) error

	// Delete removes an entity.
	Delete(ctx context.Context, id string) error

	// Subscribe pushes the user's full collection after every change until ctx is done.
	// The channel is closed when the subscription ends.
	Subscribe(ctx context.Context, userID string) (<-chan []E, error)
}
