package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"birthday_notification_bot/internal/app"
	"birthday_notification_bot/internal/domain/notification"
	"birthday_notification_bot/internal/infra/config"
	idb "birthday_notification_bot/internal/infra/database"
	"birthday_notification_bot/internal/infra/filestore"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var errUnhealthy = errors.New("system is UNHEALTHY")

// withComponents loads configuration, wires everything and hands it to fn.
func withComponents(ctx context.Context, fn func(ctx context.Context, c *components, log *logrus.Entry) error) error {
	cfg, mainLogger, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := build(ctx, cfg, mainLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			mainLogger.WithError(err).Warn("Error closing resources")
		}
	}()
	return fn(ctx, c, mainLogger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newCheckCmd() *cobra.Command {
	var force, testMode bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the notification pipeline once, now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd.Context(), func(ctx context.Context, c *components, log *logrus.Entry) error {
				res, err := c.notifications.RunOnDemand(ctx, app.RunOptions{Force: force, TestMode: testMode})
				if res != nil {
					if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "ignore the configured send time")
	cmd.Flags().BoolVar(&testMode, "test-mode", false, "compose messages without sending or marking records")
	return cmd
}

func newQueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "List today's reminders and whether each was already sent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd.Context(), func(ctx context.Context, c *components, log *logrus.Entry) error {
				p, err := c.notifications.PreviewQueue(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), p)
			})
		},
	}
}

func newReportCmd() *cobra.Command {
	var send, asJSON bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate and save the daily report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd.Context(), func(ctx context.Context, c *components, log *logrus.Entry) error {
				rep, err := c.reports.Publish(ctx, send)
				if rep == nil {
					return err
				}
				if asJSON {
					if perr := printJSON(cmd.OutOrStdout(), rep); perr != nil {
						return perr
					}
				} else {
					fmt.Fprint(cmd.OutOrStdout(), app.RenderReport(rep))
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&send, "send", false, "also send the short report to the configured recipient")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report data instead of the rendered text")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check store, transport, configuration and recent executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd.Context(), func(ctx context.Context, c *components, log *logrus.Entry) error {
				rep := c.health.Check(ctx)
				if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
					return err
				}
				if rep.Status == notification.HealthUnhealthy {
					return errUnhealthy
				}
				return nil
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations (postgres store)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mainLogger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.StorePostgres {
				mainLogger.WithField("store", cfg.StoreDriver).Info("Nothing to migrate for this store")
				return nil
			}
			version, err := idb.RunPostgresMigrations(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			mainLogger.WithField("version", version).Info("Database migrations applied")
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <roster.yaml>",
		Short: "Load a YAML roster into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := filestore.ReadRecords(args[0])
			if err != nil {
				return err
			}
			return withComponents(cmd.Context(), func(ctx context.Context, c *components, log *logrus.Entry) error {
				if c.writer == nil {
					return fmt.Errorf("store %q does not support imports", c.cfg.StoreDriver)
				}
				var errs []error
				imported := 0
				for _, rec := range records {
					if err := c.writer.Upsert(ctx, rec); err != nil {
						log.WithError(err).WithField("name", rec.Name).Warn("Record not imported")
						errs = append(errs, err)
						continue
					}
					imported++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d records\n", imported, len(records))
				return errors.Join(errs...)
			})
		},
	}
}
