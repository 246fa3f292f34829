package status

import "context"

// Store defines the interface for status persistence.
// The engine persists exactly one record, so the store addresses a fixed
// "current status" slot rather than a keyed collection.
type Store interface {
	// Get retrieves the current status.
	// Returns ErrStatusNotFound if no status has been persisted yet.
	Get(ctx context.Context) (*Status, error)

	// Save creates or replaces the current status.
	Save(ctx context.Context, s *Status) error

	// Delete removes the current status.
	// Deleting an absent status is not an error.
	Delete(ctx context.Context) error
}
