// internal/domain/notification/repository.go
package notification

import "context"

// Sink receives run results and reports. Sinks are write-mostly; nothing in the
// scheduling decision depends on what they store.
type Sink interface {
	WriteRun(ctx context.Context, run *RunResult) error
	// rendered is the human-readable version stored next to the data.
	WriteReport(ctx context.Context, report *Report, rendered string) error
	// LastRun returns the most recent run written today, or nil.
	LastRun(ctx context.Context) (*RunResult, error)
	// ErrorsToday counts failed sends and fatal runs recorded today.
	ErrorsToday(ctx context.Context) (int, error)
}
