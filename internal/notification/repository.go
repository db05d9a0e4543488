package notification

import "context"

// Repository persists notification records.
type Repository interface {
	// Save stores a record. Saving an existing ID replaces it.
	Save(ctx context.Context, rec Record) error

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}
