// Package logger owns the process-wide logrus logger. Code asks it for an entry
// tagged with its component and never touches the logger itself.
package logger

import (
	"io"
	"os"

	"birthday_notification_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
)

const componentField = "component"

var root = newRoot(os.Stderr)

func newRoot(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out) // stdout belongs to command output
	return l
}

// For returns an entry for the named component.
func For(component string) *logrus.Entry {
	return root.WithField(componentField, component)
}

// Configure applies the level and format from cfg, then logs the warnings config collected.
func Configure(cfg *config.AppConfig) {
	configure(root, cfg)
}

func configure(l *logrus.Logger, cfg *config.AppConfig) {
	log := l.WithField(componentField, "config")

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Invalid log level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch cfg.Environment {
	case "production", "staging":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}

	log.WithFields(logrus.Fields{"log_level": level.String(), "environment": cfg.Environment}).Debug("Logger configured")
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}
}
