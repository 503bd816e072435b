package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"birthday_notification_bot/internal/domain/birthday"
)

func newSQLiteRepo(t *testing.T) *SQLBirthdayRepository {
	t.Helper()
	db, err := NewSQLiteConnection(filepath.Join(t.TempDir(), "data", "birthdays.db"))
	if err != nil {
		t.Fatalf("NewSQLiteConnection: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteBirthdayRepository(db)
}

func TestSQLiteBirthdayRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newSQLiteRepo(t)

	silva := &birthday.Record{Date: "1980-03-15", Name: "Silva", Graduation: "Sgt", Phone: "+5571999990000", NotificationTiming: "1-week"}
	if err := repo.Upsert(ctx, silva); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if silva.ID == "" {
		t.Fatal("Upsert did not assign an ID")
	}
	if err := repo.Upsert(ctx, &birthday.Record{ID: "fixed", Date: "03-16", Name: "Almeida"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	records, err := repo.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(records) != 2 || records[0].Name != "Almeida" || records[1].NotificationTiming != "1-week" {
		t.Fatalf("records = %+v", records)
	}
	if records[0].LastNotifiedAt.Valid || records[0].CreatedAt.IsZero() {
		t.Fatalf("fresh record = %+v", records[0])
	}

	at := time.Date(2024, time.March, 8, 12, 0, 0, 0, time.UTC)
	count, err := repo.UpdateIdempotenceFields(ctx, silva.ID, birthday.IdempotenceFields{LastNotifiedAt: at, LastExecutionID: "exec-1"})
	if err != nil {
		t.Fatalf("UpdateIdempotenceFields: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	// Re-importing the roster must not reset the notification marker.
	silva.Phone = "+5571888880000"
	silva.LastNotifiedAt.Valid = false
	silva.NotificationCount = 0
	if err := repo.Upsert(ctx, silva); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}

	records, err = repo.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	got := records[1]
	if got.Phone != "+5571888880000" || got.NotificationCount != 1 || got.LastExecutionID != "exec-1" {
		t.Fatalf("record after update = %+v", got)
	}
	if !got.LastNotifiedAt.Valid || !got.LastNotifiedAt.Time.Equal(at) {
		t.Fatalf("LastNotifiedAt = %+v, want %s", got.LastNotifiedAt, at)
	}
}

func TestSQLiteUpdateIncrementsStoredCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newSQLiteRepo(t)
	if err := repo.Upsert(ctx, &birthday.Record{ID: "a", Date: "03-15", Name: "Silva", NotificationCount: 4}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	for want := 5; want <= 6; want++ {
		got, err := repo.UpdateIdempotenceFields(ctx, "a", birthday.IdempotenceFields{LastNotifiedAt: time.Now()})
		if err != nil {
			t.Fatalf("UpdateIdempotenceFields: %v", err)
		}
		if got != want {
			t.Fatalf("count = %d, want %d", got, want)
		}
	}
}

func TestSQLiteUpdateMissingRecord(t *testing.T) {
	t.Parallel()

	repo := newSQLiteRepo(t)
	_, err := repo.UpdateIdempotenceFields(context.Background(), "nope", birthday.IdempotenceFields{LastNotifiedAt: time.Now()})
	if !errors.Is(err, birthday.ErrRecordNotFound) || !errors.Is(err, birthday.ErrStore) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
}

func TestSQLitePing(t *testing.T) {
	t.Parallel()

	if err := newSQLiteRepo(t).Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestRebind(t *testing.T) {
	t.Parallel()

	q := "UPDATE t SET a = $1, b = $2 WHERE id = $10 AND note = '$'"
	if got, want := sqliteDialect.rebind(q), "UPDATE t SET a = ?1, b = ?2 WHERE id = ?10 AND note = '$'"; got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}
	if got := postgresDialect.rebind(q); got != q {
		t.Fatalf("postgres rebind changed the query: %q", got)
	}
}

func TestDBTimeScan(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, time.March, 8, 12, 30, 0, 0, time.UTC)
	for _, src := range []any{want, want.Format(sqliteTimeLayout), []byte(want.Format(time.RFC3339Nano))} {
		var ts dbTime
		if err := ts.Scan(src); err != nil {
			t.Fatalf("Scan(%v): %v", src, err)
		}
		if !ts.Valid || !ts.Time.Equal(want) {
			t.Fatalf("Scan(%v) = %+v", src, ts)
		}
	}
	var ts dbTime
	if err := ts.Scan(nil); err != nil || ts.Valid {
		t.Fatalf("Scan(nil) = %+v, %v", ts, err)
	}
	if err := ts.Scan(3.5); err == nil {
		t.Fatal("Scan(float) should fail")
	}
}
