package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"birthday_notification_bot/internal/domain/birthday"
)

// Guard enforces at most one successful reminder per record per calendar day.
type Guard struct {
	repo birthday.Repository
	loc  *time.Location
}

func NewGuard(repo birthday.Repository, loc *time.Location) *Guard {
	if loc == nil {
		loc = time.UTC
	}
	return &Guard{repo: repo, loc: loc}
}

// AlreadySent reports whether the record was notified on today (in the guard's zone).
func (g *Guard) AlreadySent(r *birthday.Record, today birthday.Date) bool {
	if !r.LastNotifiedAt.Valid {
		return false
	}
	return birthday.Today(r.LastNotifiedAt.Time, g.loc) == today
}

// Partition splits candidates into those still to send and those already notified today.
func (g *Guard) Partition(cands []Candidate, today birthday.Date) (pending, skipped []Candidate) {
	for _, c := range cands {
		if g.AlreadySent(c.Record, today) {
			skipped = append(skipped, c)
			continue
		}
		pending = append(pending, c)
	}
	return pending, skipped
}

// MarkSent persists lastNotifiedAt and increments the stored counter in one write,
// then mirrors the stored values onto r. On error r is left untouched.
func (g *Guard) MarkSent(ctx context.Context, r *birthday.Record, at time.Time, executionID string) error {
	fields := birthday.IdempotenceFields{LastNotifiedAt: at, LastExecutionID: executionID}
	count, err := g.repo.UpdateIdempotenceFields(ctx, r.ID, fields)
	if err != nil {
		return fmt.Errorf("failed to mark record %s as notified: %w", r.ID, err)
	}
	r.LastNotifiedAt = sql.NullTime{Time: at, Valid: true}
	r.NotificationCount = count
	r.LastExecutionID = executionID
	return nil
}
