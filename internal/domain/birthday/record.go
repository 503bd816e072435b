package birthday

import (
	"database/sql"
	"time"
)

// Record is one roster entry whose birthday recurs every year.
type Record struct {
	ID           string
	Date         string // YYYY-MM-DD, or MM-DD when the year is unknown
	Name         string
	Graduation   string // rank / grade shown in the reminder
	Relationship string
	Unit         string
	Phone        string

	// Optional per-record overrides. Empty means "use the configured default".
	NotificationTiming string
	SendTime           string

	// Written back by the dispatcher after a successful send.
	LastNotifiedAt    sql.NullTime
	NotificationCount int
	LastExecutionID   string

	CreatedAt time.Time
}

// DisplayName is the rank followed by the name, the way reminders address people.
func (r *Record) DisplayName() string {
	if r.Graduation == "" {
		return r.Name
	}
	return r.Graduation + " " + r.Name
}

// IdempotenceFields are the markers the scheduler writes to a record after a send.
// notificationCount is not among them: the store increments it in the same write.
type IdempotenceFields struct {
	LastNotifiedAt  time.Time
	LastExecutionID string
}
