package birthday

import (
	"context"
	"errors"
	"fmt"
)

// ErrStore marks any failure of the record store (connectivity, query, decode).
var ErrStore = errors.New("record store error")

// ErrRecordNotFound is returned by UpdateIdempotenceFields for an unknown id.
// It wraps ErrStore so callers can treat both the same way.
var ErrRecordNotFound = fmt.Errorf("%w: record not found", ErrStore)

// Repository is the record store the scheduler reads from and writes back to.
type Repository interface {
	// FetchAll returns every record. Order is not significant.
	FetchAll(ctx context.Context) ([]*Record, error)
	// UpdateIdempotenceFields sets the markers of one record and increments its
	// notificationCount in a single write, returning the stored count.
	UpdateIdempotenceFields(ctx context.Context, id string, fields IdempotenceFields) (int, error)
	// Ping checks connectivity for health reporting.
	Ping(ctx context.Context) error
}
