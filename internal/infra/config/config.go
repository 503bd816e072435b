package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"birthday_notification_bot/internal/domain/birthday"

	"github.com/joho/godotenv"
)

const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreSQLite    = "sqlite"
	StoreFile      = "file"

	TransportTwilio   = "twilio"
	TransportTelegram = "telegram"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	// Scheduling
	Timezone             string
	Location             *time.Location
	NotificationTiming   birthday.TimingPolicy
	NotificationTime     birthday.TimeOfDay
	SendTolerance        time.Duration
	NotificationsEnabled bool
	TestMode             bool
	ForceSend            bool
	RateLimitDelay       time.Duration
	Timeout              time.Duration

	LogLevel    string
	Environment string

	// Record store
	StoreDriver             string
	DatabaseURL             string
	SQLitePath              string
	FirestoreProjectID      string
	FirebaseCredentialsPath string // empty means application default credentials
	FirestoreCollection     string
	RosterFile              string

	// Transport
	Transport        string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	TwilioTo         string
	TwilioBaseURL    string
	TwilioRatePerSec int
	TelegramToken    string
	TelegramChatID   int64
	AdminTelegramID  int64

	// Daemon
	CronSpecCheck   string
	CronSpecReport  string
	SendDailyReport bool
	HTTPAddr        string // empty disables the HTTP server
	APIKeys         map[string]struct{}
	LogDir          string
	ReportDir       string

	// Warnings are problems that do not stop startup. The health check reports them.
	Warnings []string
}

// ConfigError is one invalid or missing setting.
type ConfigError struct {
	Key    string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("%s=%q: %s", e.Key, e.Value, e.Reason)
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()
	return Parse(os.Getenv)
}

// Parse builds the configuration from getenv and validates it.
// Every problem is reported; the returned error joins one *ConfigError per setting.
func Parse(getenv func(string) string) (*AppConfig, error) {
	p := &parser{getenv: getenv}
	cfg := &AppConfig{}

	cfg.Timezone = p.str("TIMEZONE", "America/Sao_Paulo")
	if loc, err := time.LoadLocation(cfg.Timezone); err != nil {
		p.fail("TIMEZONE", cfg.Timezone, err.Error())
	} else {
		cfg.Location = loc
	}

	timing := p.str("NOTIFICATION_TIMING", string(birthday.TimingOneDay))
	if tp, err := birthday.ParseTimingPolicy(timing); err != nil {
		p.fail("NOTIFICATION_TIMING", timing, err.Error())
	} else {
		cfg.NotificationTiming = tp
	}

	sendTime := p.str("NOTIFICATION_TIME", "09:00")
	if at, err := birthday.ParseTimeOfDay(sendTime); err != nil {
		p.fail("NOTIFICATION_TIME", sendTime, "must be HH:MM")
	} else {
		cfg.NotificationTime = at
	}

	cfg.SendTolerance = time.Duration(p.nonNegInt("SEND_TOLERANCE_MINUTES", 30)) * time.Minute
	cfg.NotificationsEnabled = p.flag("NOTIFICATIONS_ENABLED", true)
	cfg.TestMode = p.flag("TEST_MODE", false)
	cfg.ForceSend = p.flag("FORCE_SEND", false)
	cfg.RateLimitDelay = time.Duration(p.nonNegInt("RATE_LIMIT_DELAY", 2000)) * time.Millisecond
	cfg.Timeout = time.Duration(p.positiveInt("TIMEOUT", 30000)) * time.Millisecond

	cfg.LogLevel = strings.ToLower(p.str("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(p.str("ENVIRONMENT", "development"))

	// Record store
	cfg.StoreDriver = strings.ToLower(p.str("STORE_DRIVER", StoreFirestore))
	cfg.DatabaseURL = p.str("DATABASE_URL", "")
	cfg.SQLitePath = p.str("SQLITE_PATH", "birthdays.db")
	cfg.FirestoreProjectID = p.str("FIRESTORE_PROJECT_ID", p.str("FIREBASE_PROJECT_ID", ""))
	cfg.FirebaseCredentialsPath = p.str("FIREBASE_CREDENTIALS_PATH", "")
	cfg.FirestoreCollection = p.str("FIRESTORE_COLLECTION", "birthdays")
	cfg.RosterFile = p.str("ROSTER_FILE", "birthdays.yaml")
	switch cfg.StoreDriver {
	case StoreFirestore:
		p.require("FIRESTORE_PROJECT_ID", cfg.FirestoreProjectID)
	case StorePostgres:
		p.require("DATABASE_URL", cfg.DatabaseURL)
	case StoreSQLite, StoreFile:
	default:
		p.fail("STORE_DRIVER", cfg.StoreDriver, "must be one of firestore, postgres, sqlite, file")
	}

	// Transport. In test mode nothing is sent, so credential problems only warn.
	cfg.Transport = strings.ToLower(p.str("TRANSPORT", TransportTwilio))
	cfg.TwilioAccountSID = p.str("TWILIO_ACCOUNT_SID", "")
	cfg.TwilioAuthToken = p.str("TWILIO_AUTH_TOKEN", "")
	cfg.TwilioFrom = p.str("TWILIO_FROM", "")
	cfg.TwilioTo = p.str("TWILIO_TO", "")
	cfg.TwilioBaseURL = p.str("TWILIO_BASE_URL", "https://api.twilio.com")
	cfg.TwilioRatePerSec = p.positiveInt("TWILIO_RATE_PER_SEC", 1)
	cfg.TelegramToken = p.str("TELEGRAM_TOKEN", "")
	cfg.TelegramChatID = p.id("TELEGRAM_CHAT_ID")
	cfg.AdminTelegramID = p.id("ADMIN_TELEGRAM_ID")

	credErr := p.fail
	if cfg.TestMode {
		credErr = p.warn
	}
	switch cfg.Transport {
	case TransportTwilio:
		if !strings.HasPrefix(cfg.TwilioAccountSID, "AC") {
			credErr("TWILIO_ACCOUNT_SID", "", "must start with AC")
		}
		if len(cfg.TwilioAuthToken) < 32 {
			credErr("TWILIO_AUTH_TOKEN", "", "must be at least 32 characters")
		}
		if !strings.HasPrefix(cfg.TwilioFrom, "whatsapp:") {
			credErr("TWILIO_FROM", cfg.TwilioFrom, "must start with whatsapp:")
		}
		if cfg.TwilioTo != "" && !strings.HasPrefix(strings.TrimPrefix(cfg.TwilioTo, "whatsapp:"), "+55") {
			p.warn("TWILIO_TO", cfg.TwilioTo, "is not a Brazilian number (+55...)")
		}
	case TransportTelegram:
		if cfg.TelegramToken == "" {
			credErr("TELEGRAM_TOKEN", "", "is required for the telegram transport")
		}
	default:
		p.fail("TRANSPORT", cfg.Transport, "must be twilio or telegram")
	}

	// Daemon
	cfg.CronSpecCheck = p.str("CRON_SPEC_CHECK", "0 * * * *")
	cfg.CronSpecReport = p.str("CRON_SPEC_REPORT", "0 8 * * *")
	cfg.SendDailyReport = p.flag("SEND_DAILY_REPORT", true)
	cfg.HTTPAddr = p.str("HTTP_ADDR", "")
	cfg.APIKeys = parseKeys(p.str("API_KEYS", ""))
	cfg.LogDir = p.str("LOG_DIR", "logs")
	cfg.ReportDir = p.str("REPORT_DIR", "reports")
	if cfg.HTTPAddr != "" && len(cfg.APIKeys) == 0 {
		p.warn("API_KEYS", "", "is empty, the HTTP API accepts unauthenticated requests")
	}

	cfg.Warnings = p.warnings
	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	return cfg, nil
}

// Recipient is where reminders and reports go when a single destination is configured.
// Empty means each reminder goes to the record's own phone.
func (c *AppConfig) Recipient() string {
	switch c.Transport {
	case TransportTelegram:
		if c.TelegramChatID != 0 {
			return strconv.FormatInt(c.TelegramChatID, 10)
		}
		return ""
	default:
		return c.TwilioTo
	}
}

// Public is the configuration as shown to operators, with every secret masked.
func (c *AppConfig) Public() map[string]any {
	return map[string]any{
		"timezone":             c.Timezone,
		"notificationTiming":   c.NotificationTiming,
		"notificationTime":     c.NotificationTime.String(),
		"sendToleranceMinutes": int(c.SendTolerance / time.Minute),
		"notificationsEnabled": c.NotificationsEnabled,
		"testMode":             c.TestMode,
		"forceSend":            c.ForceSend,
		"rateLimitDelayMs":     c.RateLimitDelay.Milliseconds(),
		"timeoutMs":            c.Timeout.Milliseconds(),
		"environment":          c.Environment,
		"storeDriver":          c.StoreDriver,
		"transport":            c.Transport,
		"twilioAccountSid":     mask(c.TwilioAccountSID),
		"twilioFrom":           c.TwilioFrom,
		"recipient":            mask(c.Recipient()),
		"cronSpecCheck":        c.CronSpecCheck,
		"cronSpecReport":       c.CronSpecReport,
		"sendDailyReport":      c.SendDailyReport,
		"warnings":             c.Warnings,
	}
}

// mask keeps the last four characters.
func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

type parser struct {
	getenv   func(string) string
	errs     []error
	warnings []string
}

func (p *parser) fail(key, value, reason string) {
	p.errs = append(p.errs, &ConfigError{Key: key, Value: value, Reason: reason})
}

func (p *parser) warn(key, value, reason string) {
	p.warnings = append(p.warnings, (&ConfigError{Key: key, Value: value, Reason: reason}).Error())
}

func (p *parser) require(key, value string) {
	if value == "" {
		p.fail(key, "", "is not set")
	}
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) flag(key string, def bool) bool {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, "must be true or false")
		return def
	}
	return b
}

func (p *parser) nonNegInt(key string, def int) int {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		p.fail(key, v, "must be a non-negative integer")
		return def
	}
	return n
}

func (p *parser) positiveInt(key string, def int) int {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		p.fail(key, v, "must be a positive integer")
		return def
	}
	return n
}

func (p *parser) id(key string) int64 {
	v := p.str(key, "")
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, v, "must be an integer")
		return 0
	}
	return n
}

func parseKeys(csv string) map[string]struct{} {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return map[string]struct{}{}
	}
	m := make(map[string]struct{})
	for _, k := range strings.Split(csv, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			m[k] = struct{}{}
		}
	}
	return m
}
