package audit

import "context"

// Repository persists audit entries.
type Repository interface {
	Append(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
