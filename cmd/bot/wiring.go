package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"birthday_notification_bot/internal/app"
	"birthday_notification_bot/internal/domain/birthday"
	"birthday_notification_bot/internal/domain/clock"
	"birthday_notification_bot/internal/domain/messaging"
	"birthday_notification_bot/internal/domain/notification"
	"birthday_notification_bot/internal/infra/config"
	idb "birthday_notification_bot/internal/infra/database"
	"birthday_notification_bot/internal/infra/filestore"
	ifs "birthday_notification_bot/internal/infra/firestore"
	"birthday_notification_bot/internal/infra/logger"
	"birthday_notification_bot/internal/infra/runlog"
	"birthday_notification_bot/internal/infra/telegram"
	"birthday_notification_bot/internal/infra/twilio"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// recordWriter is implemented by the stores that can take roster imports.
type recordWriter interface {
	Upsert(ctx context.Context, rec *birthday.Record) error
}

// components is everything a command needs, wired from configuration.
type components struct {
	cfg           *config.AppConfig
	clock         clock.Clock
	repo          birthday.Repository
	writer        recordWriter // nil when the store does not support imports
	transport     messaging.Transport
	bot           *telebot.Bot // nil without TELEGRAM_TOKEN
	sink          notification.Sink
	notifications *app.ExclusiveRunner
	health        *app.HealthService
	reports       *app.ReportService
	admin         *app.AdminService
	closers       []func() error
}

func loadConfig() (*config.AppConfig, *logrus.Entry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	logger.Configure(cfg)
	return cfg, logger.For("main"), nil
}

func build(ctx context.Context, cfg *config.AppConfig, mainLogger *logrus.Entry) (*components, error) {
	c := &components{cfg: cfg, clock: clock.NewZoned(cfg.Location)}

	// 1. Record store
	var execRepo notification.Sink
	switch cfg.StoreDriver {
	case config.StoreFirestore:
		client, err := ifs.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirebaseCredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("could not connect to firestore: %w", err)
		}
		c.closers = append(c.closers, client.Close)
		repo := ifs.NewRepository(client, cfg.FirestoreCollection)
		c.repo, c.writer = repo, repo
	case config.StorePostgres:
		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("could not connect to database: %w", err)
		}
		c.closers = append(c.closers, db.Close)
		repo := idb.NewPostgresBirthdayRepository(db)
		c.repo, c.writer = repo, repo
		execRepo = idb.NewPostgresExecutionRepository(db, cfg.Location)
	case config.StoreSQLite:
		db, err := idb.NewSQLiteConnection(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("could not open sqlite database: %w", err)
		}
		c.closers = append(c.closers, db.Close)
		repo := idb.NewSQLiteBirthdayRepository(db)
		c.repo, c.writer = repo, repo
		execRepo = idb.NewSQLiteExecutionRepository(db, cfg.Location)
	case config.StoreFile:
		c.repo = filestore.New(cfg.RosterFile)
	}
	mainLogger.WithField("store", cfg.StoreDriver).Info("Record store initialized.")

	// 2. Telegram bot, used as transport and/or operator console
	if cfg.TelegramToken != "" {
		bot, err := newTelegramBot(cfg.TelegramToken, logger.For("telebot"))
		if err != nil {
			if cfg.Transport == config.TransportTelegram {
				return nil, fmt.Errorf("could not create Telegram bot: %w", err)
			}
			mainLogger.WithError(err).Warn("Telegram bot unavailable, operator commands disabled")
		} else {
			c.bot = bot
		}
	}

	// 3. Transport
	switch cfg.Transport {
	case config.TransportTelegram:
		if c.bot == nil {
			return nil, errors.New("the telegram transport needs TELEGRAM_TOKEN")
		}
		c.transport = telegram.NewTelebotAdapter(c.bot)
	default:
		c.transport = twilio.NewClient(twilio.Config{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioFrom,
			BaseURL:    cfg.TwilioBaseURL,
			RatePerSec: cfg.TwilioRatePerSec,
			Timeout:    cfg.Timeout,
		}, logger.For("twilio"))
	}
	mainLogger.WithField("transport", c.transport.Name()).Info("Transport initialized.")

	// 4. Run log
	fileSink := runlog.NewFileSink(cfg.LogDir, cfg.ReportDir, c.clock)
	c.sink = fileSink
	if execRepo != nil {
		c.sink = runlog.Multi{fileSink, execRepo}
	}

	// 5. Services
	settings := app.Settings{
		DefaultPolicy: cfg.NotificationTiming,
		SendAt:        cfg.NotificationTime,
		Tolerance:     cfg.SendTolerance,
		Enabled:       cfg.NotificationsEnabled,
		TestMode:      cfg.TestMode,
		ForceSend:     cfg.ForceSend,
	}
	guard := app.NewGuard(c.repo, cfg.Location)
	dispatcher := app.NewDispatcher(
		c.transport,
		guard,
		app.NewComposer(cfg.Location),
		c.clock,
		app.DispatcherConfig{Delay: cfg.RateLimitDelay, Destination: cfg.Recipient()},
		logger.For("dispatcher"),
	)
	c.notifications = app.NewExclusiveRunner(app.NewNotificationServiceImpl(
		c.repo, guard, dispatcher, c.sink, c.clock, settings, logger.For("notifications"),
	))
	c.health = app.NewHealthService(c.repo, c.transport, c.sink, cfg.Warnings, c.clock, logger.For("health"))
	c.reports = app.NewReportService(
		c.repo, guard, c.health, c.sink, c.transport, c.clock, settings, cfg.Recipient(), logger.For("report"),
	)
	c.admin = app.NewAdminService(c.notifications, c.reports, c.health, cfg.AdminTelegramID)
	mainLogger.Info("Application services initialized.")
	return c, nil
}

func newTelegramBot(token string, log *logrus.Entry) (*telebot.Bot, error) {
	return telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := log.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			}
			entry.Error("telebot error")
		},
	})
}

func (c *components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && !errors.Is(err, sql.ErrConnDone) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
