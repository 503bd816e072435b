package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"birthday_notification_bot/internal/infra/httpapi"
	"birthday_notification_bot/internal/infra/logger"
	"birthday_notification_bot/internal/infra/scheduler"
	"birthday_notification_bot/internal/infra/telegram"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the daemon: cron jobs, HTTP API and Telegram operator bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context())
		},
	}
}

func runDaemon(parent context.Context) error {
	cfg, mainLogger, err := loadConfig()
	if err != nil {
		return err
	}
	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"timezone":    cfg.Timezone,
		"test_mode":   cfg.TestMode,
	}).Info("Birthday Notification Bot starting...")

	// Cancelled on SIGINT/SIGTERM; an in-flight batch stops before its next send.
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := build(ctx, cfg, mainLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			mainLogger.WithError(err).Warn("Error closing resources")
		}
	}()

	notifScheduler := scheduler.NewNotificationScheduler(
		c.notifications,
		c.reports,
		logger.For("scheduler"),
		scheduler.Config{
			BaseContext:     ctx,
			Location:        cfg.Location,
			CheckSpec:       cfg.CronSpecCheck,
			ReportSpec:      cfg.CronSpecReport,
			SendDailyReport: cfg.SendDailyReport,
		},
	)
	if err := notifScheduler.Start(); err != nil {
		return err
	}
	mainLogger.WithField("next_check", notifScheduler.NextCheck()).Info("Scheduler running.")

	var srv *http.Server
	serverErr := make(chan error, 1)
	if cfg.HTTPAddr != "" {
		router := httpapi.NewRouter(httpapi.Deps{
			BaseContext:   ctx,
			Notifications: c.notifications,
			Health:        c.health,
			Reports:       c.reports,
			PublicConfig:  cfg.Public,
			APIKeys:       cfg.APIKeys,
			Logger:        logger.For("http"),
		})
		// WriteTimeout covers a forced run, which answers only after the whole batch.
		srv = &http.Server{
			Addr:           cfg.HTTPAddr,
			Handler:        router,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   10 * time.Minute,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		go func() {
			mainLogger.WithField("addr", cfg.HTTPAddr).Info("Starting HTTP server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	if c.bot != nil {
		botLogger := logger.For("telegram")
		telegram.RegisterBotCommands(c.bot, c.admin, botLogger)
		telegram.RegisterAdminHandlers(ctx, c.bot, c.admin, botLogger)
		go c.bot.Start()
		mainLogger.Info("Telegram command handlers registered.")
	}

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		mainLogger.WithError(err).Warn("sd_notify READY failed")
	} else if ok {
		mainLogger.Debug("Notified systemd: READY")
	}
	mainLogger.Info("Application setup complete.")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
		mainLogger.WithError(runErr).Error("HTTP server failed")
		stop()
	}

	mainLogger.Info("Shutting down application...")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			mainLogger.WithError(err).Warn("HTTP server shutdown failed")
		}
		cancel()
	}
	if c.bot != nil {
		c.bot.Stop()
	}
	notifScheduler.Stop()
	mainLogger.Info("Application shut down gracefully.")
	return runErr
}
