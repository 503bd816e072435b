package scheduler

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"birthday_notification_bot/internal/app"
	"birthday_notification_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

type fakeService struct {
	scheduled atomic.Int32
	err       error
}

func (f *fakeService) RunScheduled(ctx context.Context) (*notification.RunResult, error) {
	f.scheduled.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return nil, context.DeadlineExceeded
	}
	return &notification.RunResult{ExecutionID: "x", Status: notification.RunStatusWaiting}, f.err
}

func (f *fakeService) RunOnDemand(context.Context, app.RunOptions) (*notification.RunResult, error) {
	return nil, nil
}

func (f *fakeService) PreviewQueue(context.Context) (*app.QueuePreview, error) { return nil, nil }

type fakePublisher struct {
	sends []bool
}

func (f *fakePublisher) Publish(_ context.Context, send bool) (*notification.Report, error) {
	f.sends = append(f.sends, send)
	return &notification.Report{}, nil
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestStartRejectsBadCronExpression(t *testing.T) {
	t.Parallel()

	s := NewNotificationScheduler(&fakeService{}, &fakePublisher{}, quietLogger(), Config{CheckSpec: "not a spec"})
	if err := s.Start(); err == nil {
		t.Fatal("Start accepted an invalid cron spec")
	}
}

func TestNextCheckInZone(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BRT", -3*3600)
	s := NewNotificationScheduler(&fakeService{}, nil, quietLogger(), Config{Location: loc, CheckSpec: "0 9 * * *"})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	next := s.NextCheck().In(loc)
	if next.Hour() != 9 || next.Minute() != 0 {
		t.Fatalf("next check = %s, want 09:00 BRT", next)
	}
}

func TestJobsCallServices(t *testing.T) {
	t.Parallel()

	svc := &fakeService{err: app.ErrRunInProgress}
	pub := &fakePublisher{}
	s := NewNotificationScheduler(svc, pub, quietLogger(), Config{CheckSpec: "@hourly", ReportSpec: "@daily", SendDailyReport: true})

	s.runCheck()
	s.runReport()

	if svc.scheduled.Load() != 1 {
		t.Fatalf("RunScheduled calls = %d", svc.scheduled.Load())
	}
	if len(pub.sends) != 1 || !pub.sends[0] {
		t.Fatalf("Publish calls = %v", pub.sends)
	}
}
