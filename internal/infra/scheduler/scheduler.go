package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"birthday_notification_bot/internal/app"
	"birthday_notification_bot/internal/domain/notification"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReportPublisher builds and stores the daily report, optionally sending the summary.
type ReportPublisher interface {
	Publish(ctx context.Context, send bool) (*notification.Report, error)
}

type Config struct {
	// BaseContext is cancelled on shutdown, which aborts a batch in flight.
	BaseContext     context.Context
	Location        *time.Location
	CheckSpec       string // e.g. "0 * * * *", hourly birthday check
	ReportSpec      string // e.g. "0 8 * * *", daily report; empty disables it
	SendDailyReport bool
	CheckTimeout    time.Duration
	ReportTimeout   time.Duration
}

type NotificationScheduler struct {
	cronEngine   *cron.Cron
	notifService app.NotificationService
	reports      ReportPublisher
	logger       *logrus.Entry
	cfg          Config
	checkID      cron.EntryID
}

func NewNotificationScheduler(
	notifService app.NotificationService,
	reports ReportPublisher,
	logger *logrus.Entry,
	cfg Config,
) *NotificationScheduler {
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = 10 * time.Minute
	}
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = 2 * time.Minute
	}
	cronLogger := cron.PrintfLogger(logger)
	return &NotificationScheduler{
		cronEngine: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		notifService: notifService,
		reports:      reports,
		logger:       logger,
		cfg:          cfg,
	}
}

// Start registers the jobs and starts the cron engine. An invalid cron expression is an error and nothing is started.
func (s *NotificationScheduler) Start() error {
	s.logger.Info("Starting notification scheduler...")

	checkID, err := s.cronEngine.AddFunc(s.cfg.CheckSpec, s.runCheck)
	if err != nil {
		return fmt.Errorf("could not add birthday check cron job %q: %w", s.cfg.CheckSpec, err)
	}
	s.checkID = checkID
	if s.cfg.ReportSpec != "" && s.reports != nil {
		if _, err := s.cronEngine.AddFunc(s.cfg.ReportSpec, s.runReport); err != nil {
			return fmt.Errorf("could not add daily report cron job %q: %w", s.cfg.ReportSpec, err)
		}
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"check":    s.cfg.CheckSpec,
		"report":   s.cfg.ReportSpec,
		"timezone": s.cfg.Location.String(),
	}).Info("Notification scheduler started with jobs.")
	return nil
}

// NextCheck is when the birthday check fires next, zero when no check job is registered.
func (s *NotificationScheduler) NextCheck() time.Time {
	e := s.cronEngine.Entry(s.checkID)
	if e.Next.IsZero() && e.Schedule != nil {
		return e.Schedule.Next(time.Now().In(s.cfg.Location))
	}
	return e.Next
}

func (s *NotificationScheduler) runCheck() {
	s.logger.Debug("Cron job triggered for birthday check.")
	ctx, cancel := context.WithTimeout(s.cfg.BaseContext, s.cfg.CheckTimeout)
	defer cancel()

	res, err := s.notifService.RunScheduled(ctx)
	switch {
	case errors.Is(err, app.ErrRunInProgress):
		s.logger.Info("Birthday check skipped, another run is in progress.")
	case err != nil:
		s.logger.WithError(err).Error("Error during birthday check")
	case res != nil:
		s.logger.WithFields(logrus.Fields{
			"execution_id": res.ExecutionID,
			"status":       res.Status,
		}).Debug("Birthday check finished.")
	}
}

func (s *NotificationScheduler) runReport() {
	s.logger.Info("Cron job triggered for daily report.")
	ctx, cancel := context.WithTimeout(s.cfg.BaseContext, s.cfg.ReportTimeout)
	defer cancel()

	if _, err := s.reports.Publish(ctx, s.cfg.SendDailyReport); err != nil {
		s.logger.WithError(err).Error("Error during daily report")
	}
}

func (s *NotificationScheduler) Stop() {
	s.logger.Info("Stopping notification scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Notification scheduler gracefully stopped.")
}
