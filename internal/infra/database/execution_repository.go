// internal/infra/database/execution_repository.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"birthday_notification_bot/internal/domain/birthday"
	"birthday_notification_bot/internal/domain/notification"
)

// SQLExecutionRepository keeps run results and daily reports next to the roster.
// It implements notification.Sink.
type SQLExecutionRepository struct {
	db  *sql.DB
	d   dialect
	loc *time.Location // "today" for LastRun and ErrorsToday
}

func NewPostgresExecutionRepository(db *sql.DB, loc *time.Location) *SQLExecutionRepository {
	return &SQLExecutionRepository{db: db, d: postgresDialect, loc: orUTC(loc)}
}

func NewSQLiteExecutionRepository(db *sql.DB, loc *time.Location) *SQLExecutionRepository {
	return &SQLExecutionRepository{db: db, d: sqliteDialect, loc: orUTC(loc)}
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

func (r *SQLExecutionRepository) WriteRun(ctx context.Context, run *notification.RunResult) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("error encoding run %s: %w", run.ExecutionID, err)
	}
	failed := run.Failed
	if run.Status == notification.RunStatusError {
		failed++
	}
	query := r.d.rebind(`INSERT INTO executions (execution_id, started_at, status, sent, failed, result)
               VALUES ($1, $2, $3, $4, $5, $6)
               ON CONFLICT (execution_id) DO UPDATE SET
                status = excluded.status, sent = excluded.sent, failed = excluded.failed, result = excluded.result`)
	if _, err := r.db.ExecContext(ctx, query, run.ExecutionID, r.d.timeArg(run.StartedAt), string(run.Status), run.Sent, failed, string(data)); err != nil {
		return fmt.Errorf("%w: error saving run %s: %w", birthday.ErrStore, run.ExecutionID, err)
	}
	return nil
}

func (r *SQLExecutionRepository) WriteReport(ctx context.Context, rep *notification.Report, rendered string) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("error encoding report %s: %w", rep.Date, err)
	}
	query := r.d.rebind(`INSERT INTO daily_reports (report_date, generated_at, data, rendered)
               VALUES ($1, $2, $3, $4)
               ON CONFLICT (report_date) DO UPDATE SET
                generated_at = excluded.generated_at, data = excluded.data, rendered = excluded.rendered`)
	if _, err := r.db.ExecContext(ctx, query, rep.Date, r.d.timeArg(rep.GeneratedAt), string(data), rendered); err != nil {
		return fmt.Errorf("%w: error saving report %s: %w", birthday.ErrStore, rep.Date, err)
	}
	return nil
}

func (r *SQLExecutionRepository) LastRun(ctx context.Context) (*notification.RunResult, error) {
	query := r.d.rebind(`SELECT result FROM executions
               WHERE started_at >= $1 ORDER BY started_at DESC LIMIT 1`)
	var data string
	err := r.db.QueryRowContext(ctx, query, r.d.timeArg(r.startOfToday())).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: error getting last run: %w", birthday.ErrStore, err)
	}
	run := &notification.RunResult{}
	if err := json.Unmarshal([]byte(data), run); err != nil {
		return nil, fmt.Errorf("error decoding last run: %w", err)
	}
	return run, nil
}

func (r *SQLExecutionRepository) ErrorsToday(ctx context.Context) (int, error) {
	query := r.d.rebind(`SELECT COALESCE(SUM(failed), 0) FROM executions WHERE started_at >= $1`)
	var n int
	if err := r.db.QueryRowContext(ctx, query, r.d.timeArg(r.startOfToday())).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: error counting today's errors: %w", birthday.ErrStore, err)
	}
	return n, nil
}

func (r *SQLExecutionRepository) startOfToday() time.Time {
	now := time.Now().In(r.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
}
