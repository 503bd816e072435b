// internal/app/notification_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"birthday_notification_bot/internal/domain/birthday"
	"birthday_notification_bot/internal/domain/clock"
	"birthday_notification_bot/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NotificationService defines the operations every entry point (cron, HTTP, CLI, Telegram) drives.
type NotificationService interface {
	// RunScheduled is the time-gated run. Each record is sent from the start of its own
	// send hour, less the tolerance, until the end of its eligibility day.
	RunScheduled(ctx context.Context) (*notification.RunResult, error)
	// RunOnDemand runs the pipeline immediately.
	RunOnDemand(ctx context.Context, opts RunOptions) (*notification.RunResult, error)
	// PreviewQueue lists today's reminders without sending anything.
	PreviewQueue(ctx context.Context) (*QueuePreview, error)
}

// Settings are the run-wide defaults, resolved from configuration once at startup.
type Settings struct {
	DefaultPolicy birthday.TimingPolicy
	SendAt        birthday.TimeOfDay
	// Tolerance lets a scheduled run send this long ahead of a record's send time.
	Tolerance time.Duration
	Enabled   bool
	TestMode  bool
	ForceSend bool
}

type RunOptions struct {
	// Force skips the send-time gate. The day check and the already-sent guard still apply.
	// Without it an on-demand run sends only records whose send time has passed.
	Force bool
	// TestMode composes and logs messages without sending or writing back.
	TestMode bool
}

// NotificationServiceImpl implements the NotificationService interface.
type NotificationServiceImpl struct {
	repo       birthday.Repository
	filter     EligibilityFilter
	guard      *Guard
	dispatcher *Dispatcher
	sink       notification.Sink
	clock      clock.Clock
	settings   Settings
	logger     *logrus.Entry
	newID      func() string
}

func NewNotificationServiceImpl(
	repo birthday.Repository,
	guard *Guard,
	dispatcher *Dispatcher,
	sink notification.Sink, // may be nil
	clk clock.Clock,
	settings Settings,
	logger *logrus.Entry,
) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		repo:       repo,
		filter:     EligibilityFilter{DefaultPolicy: settings.DefaultPolicy, DefaultSendAt: settings.SendAt},
		guard:      guard,
		dispatcher: dispatcher,
		sink:       sink,
		clock:      clk,
		settings:   settings,
		logger:     logger,
		newID:      uuid.NewString,
	}
}

func (s *NotificationServiceImpl) RunScheduled(ctx context.Context) (*notification.RunResult, error) {
	return s.run(ctx, RunOptions{Force: s.settings.ForceSend, TestMode: s.settings.TestMode}, true)
}

func (s *NotificationServiceImpl) RunOnDemand(ctx context.Context, opts RunOptions) (*notification.RunResult, error) {
	opts.Force = opts.Force || s.settings.ForceSend
	opts.TestMode = opts.TestMode || s.settings.TestMode
	return s.run(ctx, opts, false)
}

func (s *NotificationServiceImpl) run(ctx context.Context, opts RunOptions, timeGated bool) (*notification.RunResult, error) {
	started := time.Now()
	now := s.clock.Now()
	loc := s.clock.Location()
	today := birthday.Today(now, loc)
	nowAt := birthday.TimeOfDayOf(now.In(loc))

	res := &notification.RunResult{
		ExecutionID: s.newID(),
		StartedAt:   now,
		CurrentTime: nowAt.String(),
		SendTime:    s.settings.SendAt.String(),
		Timing:      s.settings.DefaultPolicy.String(),
		TestMode:    opts.TestMode,
		Forced:      opts.Force,
	}
	log := s.logger.WithFields(logrus.Fields{"execution_id": res.ExecutionID, "date": today.String()})

	// 1. Global switch
	if !s.settings.Enabled {
		res.Status = notification.RunStatusDisabled
		res.Message = "notifications are disabled"
		log.Info("Notifications disabled, nothing to do")
		return s.finish(ctx, res, started, log), nil
	}

	// 2. Fetch all records
	records, err := s.repo.FetchAll(ctx)
	if err != nil {
		res.Status = notification.RunStatusError
		res.Error = err.Error()
		log.WithError(err).Error("Failed to fetch birthdays")
		s.finish(ctx, res, started, log)
		return res, fmt.Errorf("failed to fetch birthdays: %w", err)
	}
	res.TotalRecords = len(records)
	log.Infof("Fetched %d birthday records", len(records))

	// 3. Eligibility, each record's send time and the already-sent guard
	filter := s.filter
	if timeGated {
		filter.ByHour = true
		filter.Early = s.settings.Tolerance
	}
	cands, dataErrs := filter.Filter(records, today, nowAt, opts.Force)
	for _, de := range dataErrs {
		log.WithError(de).Warn("Skipping record with invalid data")
		res.DataErrors = append(res.DataErrors, notification.DataErrorInfo{
			RecordID: de.RecordID, Field: de.Field, Value: de.Value, Reason: de.Reason,
		})
	}
	pending, skipped := s.guard.Partition(cands, today)
	res.Skipped = len(skipped)
	for _, c := range skipped {
		log.WithField("record_id", c.Record.ID).Info("Already notified today, skipping")
	}
	if len(pending) == 0 && !opts.Force {
		if waiting := s.waiting(records, today, nowAt); waiting > 0 {
			res.Status = notification.RunStatusWaiting
			res.Message = fmt.Sprintf("%d reminders waiting for their send time", waiting)
			log.WithField("current_time", nowAt.String()).Debugf("%d reminders not due yet", waiting)
			return s.finish(ctx, res, started, log), nil
		}
	}
	if len(pending) == 0 {
		res.Status = notification.RunStatusNoNotifications
		res.Message = "no reminders due"
		log.Info("No reminders due")
		return s.finish(ctx, res, started, log), nil
	}

	// 4. Dispatch
	log.Infof("Dispatching %d reminders", len(pending))
	var d *notification.RunResult
	if opts.TestMode {
		d = s.dispatcher.DryRun(res.ExecutionID, pending)
	} else {
		d = s.dispatcher.Dispatch(ctx, res.ExecutionID, pending)
	}
	res.Eligible = d.Eligible
	res.Sent = d.Sent
	res.Failed = d.Failed
	res.Tested = d.Tested
	res.Aborted = d.Aborted
	res.Outcomes = d.Outcomes

	if res.Aborted {
		res.Status = notification.RunStatusAborted
		res.Error = "run cancelled"
		s.finish(ctx, res, started, log)
		return res, fmt.Errorf("run %s aborted: %w", res.ExecutionID, ctx.Err())
	}
	res.Status = notification.RunStatusCompleted
	res.Message = fmt.Sprintf("%d sent, %d failed", res.Sent, res.Failed)
	return s.finish(ctx, res, started, log), nil
}

// waiting counts records eligible today and not yet notified. Called only when
// none of them is due, so all of them are waiting for their send time.
func (s *NotificationServiceImpl) waiting(records []*birthday.Record, today birthday.Date, now birthday.TimeOfDay) int {
	all, _ := s.filter.Filter(records, today, now, true)
	pending, _ := s.guard.Partition(all, today)
	return len(pending)
}

func (s *NotificationServiceImpl) finish(ctx context.Context, res *notification.RunResult, started time.Time, log *logrus.Entry) *notification.RunResult {
	res.Duration = time.Since(started)
	log.WithFields(logrus.Fields{
		"status":    res.Status,
		"eligible":  res.Eligible,
		"sent":      res.Sent,
		"failed":    res.Failed,
		"skipped":   res.Skipped,
		"tested":    res.Tested,
		"duration":  res.Duration,
		"test_mode": res.TestMode,
	}).Info("Run finished")

	if s.sink != nil {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.sink.WriteRun(wctx, res); err != nil {
			log.WithError(err).Warn("Failed to write execution log")
		}
	}
	return res
}

// QueueItem is one reminder due today, sent or not.
type QueueItem struct {
	RecordID       string `json:"recordId"`
	Name           string `json:"name"`
	Date           string `json:"date"`
	DaysUntilEvent int    `json:"daysUntil"`
	Age            int    `json:"age,omitempty"`
	Timing         string `json:"timing"`
	SendAt         string `json:"sendTime"`
	Due            bool   `json:"due"` // send time reached
	AlreadySent    bool   `json:"alreadySent"`
}

type QueuePreview struct {
	Date        string                       `json:"date"`
	CurrentTime string                       `json:"currentTime"`
	Items       []QueueItem                  `json:"queue"`
	DataErrors  []notification.DataErrorInfo `json:"dataErrors,omitempty"`
}

func (s *NotificationServiceImpl) PreviewQueue(ctx context.Context) (*QueuePreview, error) {
	now := s.clock.Now()
	loc := s.clock.Location()
	today := birthday.Today(now, loc)
	nowAt := birthday.TimeOfDayOf(now.In(loc))

	records, err := s.repo.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch birthdays: %w", err)
	}

	cands, dataErrs := s.filter.Filter(records, today, nowAt, true)
	p := &QueuePreview{Date: today.String(), CurrentTime: nowAt.String(), Items: make([]QueueItem, 0, len(cands))}
	for _, c := range cands {
		p.Items = append(p.Items, QueueItem{
			RecordID:       c.Record.ID,
			Name:           c.Record.DisplayName(),
			Date:           c.Occurrence.String(),
			DaysUntilEvent: c.DaysUntilEvent,
			Age:            birthday.AgeAt(c.Schedule.Birth, c.Occurrence),
			Timing:         c.Schedule.Policy.String(),
			SendAt:         c.Schedule.SendAt.String(),
			Due:            nowAt >= c.Schedule.SendAt,
			AlreadySent:    s.guard.AlreadySent(c.Record, today),
		})
	}
	for _, de := range dataErrs {
		p.DataErrors = append(p.DataErrors, notification.DataErrorInfo{
			RecordID: de.RecordID, Field: de.Field, Value: de.Value, Reason: de.Reason,
		})
	}
	return p, nil
}
