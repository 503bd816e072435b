package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"birthday_notification_bot/internal/domain/birthday"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SQLBirthdayRepository stores the roster in the birthdays table of Postgres or SQLite.
type SQLBirthdayRepository struct {
	db *sql.DB
	d  dialect
}

func NewPostgresBirthdayRepository(db *sql.DB) *SQLBirthdayRepository {
	return &SQLBirthdayRepository{db: db, d: postgresDialect}
}

func NewSQLiteBirthdayRepository(db *sql.DB) *SQLBirthdayRepository {
	return &SQLBirthdayRepository{db: db, d: sqliteDialect}
}

func (r *SQLBirthdayRepository) FetchAll(ctx context.Context) ([]*birthday.Record, error) {
	query := `SELECT id, date, name, graduation, relationship, unit, phone,
                     notification_timing, send_time, last_notified_at,
                     notification_count, last_execution_id, created_at
               FROM birthdays ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: error listing birthdays: %w", birthday.ErrStore, err)
	}
	defer rows.Close()

	var records []*birthday.Record
	for rows.Next() {
		rec := &birthday.Record{}
		var last, created dbTime
		if err := rows.Scan(
			&rec.ID, &rec.Date, &rec.Name, &rec.Graduation, &rec.Relationship, &rec.Unit, &rec.Phone,
			&rec.NotificationTiming, &rec.SendTime, &last,
			&rec.NotificationCount, &rec.LastExecutionID, &created,
		); err != nil {
			return nil, fmt.Errorf("%w: error scanning birthday row: %w", birthday.ErrStore, err)
		}
		rec.LastNotifiedAt = sql.NullTime{Time: last.Time, Valid: last.Valid}
		rec.CreatedAt = created.Time
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating birthday rows: %w", birthday.ErrStore, err)
	}
	return records, nil
}

// UpdateIdempotenceFields writes the markers and bumps the counter in a single statement.
func (r *SQLBirthdayRepository) UpdateIdempotenceFields(ctx context.Context, id string, f birthday.IdempotenceFields) (int, error) {
	query := r.d.rebind(`UPDATE birthdays
               SET last_notified_at = $1, notification_count = notification_count + 1, last_execution_id = $2
               WHERE id = $3
               RETURNING notification_count`)
	var count int
	err := r.db.QueryRowContext(ctx, query, r.d.timeArg(f.LastNotifiedAt), f.LastExecutionID, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", birthday.ErrRecordNotFound, id)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: error updating birthday %s: %w", birthday.ErrStore, id, err)
	}
	return count, nil
}

func (r *SQLBirthdayRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", birthday.ErrStore, err)
	}
	return nil
}

// Upsert inserts rec or replaces its roster fields. Idempotence fields of an existing row are kept.
// An empty ID gets a fresh UUID.
func (r *SQLBirthdayRepository) Upsert(ctx context.Context, rec *birthday.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	query := r.d.rebind(`INSERT INTO birthdays
               (id, date, name, graduation, relationship, unit, phone, notification_timing, send_time,
                last_notified_at, notification_count, last_execution_id, created_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
               ON CONFLICT (id) DO UPDATE SET
                date = excluded.date, name = excluded.name, graduation = excluded.graduation,
                relationship = excluded.relationship, unit = excluded.unit, phone = excluded.phone,
                notification_timing = excluded.notification_timing, send_time = excluded.send_time`)
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Date, rec.Name, rec.Graduation, rec.Relationship, rec.Unit, rec.Phone,
		rec.NotificationTiming, rec.SendTime,
		r.d.nullTimeArg(rec.LastNotifiedAt.Time, rec.LastNotifiedAt.Valid), rec.NotificationCount, rec.LastExecutionID,
		r.d.timeArg(rec.CreatedAt),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" { // integrity constraint violation
			return &birthday.DataError{RecordID: rec.ID, Field: pqErr.Column, Reason: pqErr.Message}
		}
		return fmt.Errorf("%w: error saving birthday %s: %w", birthday.ErrStore, rec.ID, err)
	}
	return nil
}
