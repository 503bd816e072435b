package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"birthday_notification_bot/internal/domain/birthday"
)

const sampleRoster = `birthdays:
  - id: "1"
    date: "1980-03-15"
    name: Silva
    graduation: Sgt
    unit: 1º BPM
    phone: "+5571999990000"
    notificationTiming: 1-week
  - date: "03-16"
    name: Almeida
`

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "birthdays.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return path
}

func TestFetchAllAssignsIDs(t *testing.T) {
	t.Parallel()

	path := writeRoster(t, sampleRoster)
	repo := New(path)

	recs, err := repo.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "1" || recs[0].Unit != "1º BPM" || recs[0].NotificationTiming != "1-week" {
		t.Fatalf("records = %+v", recs)
	}
	if recs[1].ID == "" {
		t.Fatal("missing id was not assigned")
	}

	again, err := repo.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if again[1].ID != recs[1].ID {
		t.Fatalf("assigned id not persisted: %q then %q", recs[1].ID, again[1].ID)
	}
}

func TestUpdateIdempotenceFieldsPersists(t *testing.T) {
	t.Parallel()

	path := writeRoster(t, sampleRoster)
	repo := New(path)
	at := time.Date(2024, time.March, 8, 12, 0, 0, 0, time.UTC)

	count, err := repo.UpdateIdempotenceFields(context.Background(), "1", birthday.IdempotenceFields{
		LastNotifiedAt: at, LastExecutionID: "exec-9",
	})
	if err != nil {
		t.Fatalf("UpdateIdempotenceFields: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	recs, err := New(path).FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	got := recs[0]
	if !got.LastNotifiedAt.Valid || !got.LastNotifiedAt.Time.Equal(at) || got.NotificationCount != 1 || got.LastExecutionID != "exec-9" {
		t.Fatalf("record = %+v", got)
	}
	if got.Name != "Silva" || got.Phone != "+5571999990000" {
		t.Fatalf("roster fields lost on write: %+v", got)
	}

	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "lastNotificationSent") {
		t.Fatalf("file does not carry the marker:\n%s", raw)
	}
}

func TestUpdateUnknownRecord(t *testing.T) {
	t.Parallel()

	repo := New(writeRoster(t, sampleRoster))
	_, err := repo.UpdateIdempotenceFields(context.Background(), "missing", birthday.IdempotenceFields{})
	if !errors.Is(err, birthday.ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
}

func TestBrokenRosterIsStoreError(t *testing.T) {
	t.Parallel()

	tests := map[string]*Repository{
		"missing file": New(filepath.Join(t.TempDir(), "none.yaml")),
		"bad yaml":     New(writeRoster(t, "birthdays: [unterminated")),
	}
	for name, repo := range tests {
		if _, err := repo.FetchAll(context.Background()); !errors.Is(err, birthday.ErrStore) {
			t.Fatalf("%s: FetchAll err = %v, want ErrStore", name, err)
		}
		if err := repo.Ping(context.Background()); err == nil {
			t.Fatalf("%s: Ping succeeded", name)
		}
	}
}

func TestJSONRosterIsAccepted(t *testing.T) {
	t.Parallel()

	recs, err := ReadRecords(writeRoster(t, `{"birthdays":[{"id":"x","date":"12-25","name":"Natal"}]}`))
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(recs) != 1 || recs[0].Date != "12-25" {
		t.Fatalf("records = %+v", recs)
	}
}

func TestUpdateIdempotenceFieldsIncrementsStoredCount(t *testing.T) {
	t.Parallel()

	path := writeRoster(t, sampleRoster)
	ctx := context.Background()
	at := time.Date(2024, time.March, 8, 12, 0, 0, 0, time.UTC)

	// A second process with its own Repository over the same file.
	for i, repo := range []*Repository{New(path), New(path)} {
		if _, err := repo.FetchAll(ctx); err != nil {
			t.Fatalf("FetchAll: %v", err)
		}
		count, err := repo.UpdateIdempotenceFields(ctx, "1", birthday.IdempotenceFields{LastNotifiedAt: at})
		if err != nil {
			t.Fatalf("UpdateIdempotenceFields: %v", err)
		}
		if count != i+1 {
			t.Fatalf("update %d: count = %d, want %d", i+1, count, i+1)
		}
	}

	recs, err := New(path).FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if recs[0].NotificationCount != 2 {
		t.Fatalf("stored count = %d, want 2", recs[0].NotificationCount)
	}
}
