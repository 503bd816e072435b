package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"birthday_notification_bot/internal/domain/birthday"
	"birthday_notification_bot/internal/domain/clock"
	"birthday_notification_bot/internal/domain/notification"
)

func newReportHarness(clk clock.Clock, recs ...*birthday.Record) (*ReportService, *memSink, *fakeTransport) {
	repo := newMemRepo(recs...)
	sink := &memSink{}
	tr := &fakeTransport{}
	hs := NewHealthService(repo, tr, sink, nil, clk, testLogger())
	rs := NewReportService(repo, NewGuard(repo, brt), hs, sink, tr, clk, defaultSettings(), "+5511999999999", testLogger())
	return rs, sink, tr
}

func TestReportGenerate(t *testing.T) {
	t.Parallel()

	a := rec("a", "1990-03-14", "p") // today
	a.Unit = "1º BPM"
	b := rec("b", "1985-03-15", "p") // tomorrow, due now under 1-day
	b.Unit = "1º BPM"
	c := rec("c", "03-20", "p") // 6 days
	c.Graduation = "Cb"
	d := rec("d", "1970-04-10", "p") // 27 days
	d.Unit = "1º BPM"
	e := rec("e", "06-01", "p")      // out of range
	bad := rec("bad", "xx", "p")

	rs, _, _ := newReportHarness(fixedClock(2024, time.March, 14, 10, 0), a, b, c, d, e, bad)
	rep, err := rs.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if rep.TotalRecords != 6 || rep.InvalidRecords != 1 {
		t.Fatalf("total/invalid = %d/%d, want 6/1", rep.TotalRecords, rep.InvalidRecords)
	}
	if len(rep.Today) != 1 || rep.Today[0].RecordID != "a" || rep.Today[0].NextAge != 34 {
		t.Fatalf("today = %+v", rep.Today)
	}
	if len(rep.Next7Days) != 3 || len(rep.Next15Days) != 3 || len(rep.Next30Days) != 4 {
		t.Fatalf("next 7/15/30 = %d/%d/%d, want 3/3/4", len(rep.Next7Days), len(rep.Next15Days), len(rep.Next30Days))
	}
	if rep.Next7Days[0].DaysUntil != 0 || rep.Next7Days[2].DaysUntil != 6 {
		t.Fatalf("next 7 days not sorted: %+v", rep.Next7Days)
	}
	if rep.ThisWeekCount() != 3 || len(rep.ThisWeek[1]) != 1 {
		t.Fatalf("this week = %+v", rep.ThisWeek)
	}
	if rep.NotificationsToday != 1 || rep.QueueNow != 1 {
		t.Fatalf("notifications/queue = %d/%d, want 1/1", rep.NotificationsToday, rep.QueueNow)
	}
	// March: a (34), b (38), c (unknown year).
	if rep.ThisMonthCount != 3 || rep.ThisMonthAvgAge != 36 {
		t.Fatalf("this month = %d avg %.1f, want 3 avg 36", rep.ThisMonthCount, rep.ThisMonthAvgAge)
	}
	if rep.ByUnit[0] != (notification.Count{Label: "1º BPM", Count: 3}) {
		t.Fatalf("by unit = %+v", rep.ByUnit)
	}
	if rep.ByGraduation[0] != (notification.Count{Label: "Sd", Count: 4}) {
		t.Fatalf("by graduation = %+v", rep.ByGraduation)
	}
	if rep.Health.Store != notification.HealthHealthy || rep.Health.NextExecution != "15/03/2024 09:00" {
		t.Fatalf("health = %+v", rep.Health)
	}
}

func TestReportPublish(t *testing.T) {
	t.Parallel()

	rs, sink, tr := newReportHarness(fixedClock(2024, time.March, 14, 8, 0), rec("a", "1990-03-14", "p"))
	if _, err := rs.Publish(context.Background(), true); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(sink.reports) != 1 {
		t.Fatalf("saved reports = %d, want 1", len(sink.reports))
	}
	msgs := tr.messages()
	if len(msgs) != 1 || msgs[0].To != "+5511999999999" {
		t.Fatalf("messages = %+v, want the short report to the recipient", msgs)
	}
	if !strings.Contains(msgs[0].Body, "RELATÓRIO DIÁRIO PM") || !strings.Contains(msgs[0].Body, "Sd Nome a (34 anos)") {
		t.Fatalf("short report:\n%s", msgs[0].Body)
	}
}

func TestRenderReport(t *testing.T) {
	t.Parallel()

	rep := &notification.Report{
		Date:         "2024-03-14",
		TotalRecords: 2,
		Next7Days: []notification.ReportEntry{
			{Name: "Silva", Graduation: "Sgt", DaysUntil: 1, NextAge: 40},
		},
		ByUnit:   []notification.Count{{Label: "2º BPM", Count: 1}},
		ThisWeek: map[int][]notification.ReportEntry{},
	}
	out := RenderReport(rep)
	for _, want := range []string{"Nenhum aniversário hoje", "📅 AMANHÃ: Sgt Silva (40 anos)", "2º BPM: 1 policial\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}
