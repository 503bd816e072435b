package runlog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"birthday_notification_bot/internal/domain/clock"
	"birthday_notification_bot/internal/domain/notification"
)

func newSink(t *testing.T, now time.Time) (*FileSink, string) {
	t.Helper()
	dir := t.TempDir()
	return NewFileSink(filepath.Join(dir, "logs"), filepath.Join(dir, "reports"), clock.Fixed{T: now}), dir
}

func TestFileSinkRuns(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BRT", -3*3600)
	now := time.Date(2024, time.March, 14, 10, 0, 0, 0, loc)
	sink, dir := newSink(t, now)
	ctx := context.Background()

	if run, err := sink.LastRun(ctx); err != nil || run != nil {
		t.Fatalf("LastRun on empty log = %v, %v", run, err)
	}

	runs := []*notification.RunResult{
		{ExecutionID: "a", Status: notification.RunStatusCompleted, StartedAt: now.Add(-time.Hour), Sent: 2, Failed: 1},
		{ExecutionID: "b", Status: notification.RunStatusError, StartedAt: now.Add(-time.Minute)},
		// 02:30 UTC on the 15th is still the 14th in BRT
		{ExecutionID: "c", Status: notification.RunStatusCompleted, StartedAt: time.Date(2024, time.March, 15, 2, 30, 0, 0, time.UTC), Failed: 1},
	}
	for _, r := range runs {
		if err := sink.WriteRun(ctx, r); err != nil {
			t.Fatalf("WriteRun(%s): %v", r.ExecutionID, err)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "logs", "execution-2024-03-14.jsonl")); err != nil {
		t.Fatalf("execution log missing: %v", err)
	}
	last, err := sink.LastRun(ctx)
	if err != nil || last == nil || last.ExecutionID != "c" {
		t.Fatalf("LastRun = %+v, %v", last, err)
	}
	n, err := sink.ErrorsToday(ctx)
	if err != nil || n != 3 {
		t.Fatalf("ErrorsToday = %d, %v; want 3", n, err)
	}
}

func TestFileSinkReport(t *testing.T) {
	t.Parallel()

	sink, dir := newSink(t, time.Date(2024, time.March, 14, 8, 0, 0, 0, time.UTC))
	rep := &notification.Report{Date: "2024-03-14", TotalRecords: 4}
	if err := sink.WriteReport(context.Background(), rep, "# Relatório"); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	md, err := os.ReadFile(filepath.Join(dir, "reports", "daily-report-2024-03-14.md"))
	if err != nil || string(md) != "# Relatório" {
		t.Fatalf("report = %q, %v", md, err)
	}
	js, err := os.ReadFile(filepath.Join(dir, "reports", "daily-data-2024-03-14.json"))
	if err != nil || !strings.Contains(string(js), `"totalBirthdays": 4`) {
		t.Fatalf("report data = %s, %v", js, err)
	}
}

type stubSink struct {
	last    *notification.RunResult
	errs    int
	err     error
	written int
}

func (s *stubSink) WriteRun(context.Context, *notification.RunResult) error {
	s.written++
	return s.err
}

func (s *stubSink) WriteReport(context.Context, *notification.Report, string) error {
	s.written++
	return s.err
}

func (s *stubSink) LastRun(context.Context) (*notification.RunResult, error) { return s.last, s.err }
func (s *stubSink) ErrorsToday(context.Context) (int, error)                 { return s.errs, s.err }

func TestMulti(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	broken := &stubSink{err: boom}
	ok := &stubSink{last: &notification.RunResult{ExecutionID: "x"}, errs: 5}
	m := Multi{broken, ok}
	ctx := context.Background()

	if err := m.WriteRun(ctx, &notification.RunResult{}); !errors.Is(err, boom) {
		t.Fatalf("WriteRun err = %v", err)
	}
	if broken.written != 1 || ok.written != 1 {
		t.Fatalf("writes = %d/%d; every sink must be written", broken.written, ok.written)
	}
	if run, err := m.LastRun(ctx); err != nil || run.ExecutionID != "x" {
		t.Fatalf("LastRun = %+v, %v", run, err)
	}
	if n, err := m.ErrorsToday(ctx); err != nil || n != 5 {
		t.Fatalf("ErrorsToday = %d, %v", n, err)
	}
}
