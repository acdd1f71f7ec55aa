// Package config loads the bot configuration from an optional YAML file
// overlaid with environment variables, then validates it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/myfimport/citabot/booking/schedule"
)

// TelegramConfig holds Telegram transport settings. An empty token
// disables the Telegram channel.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"TELEGRAM_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// Webhook settings apply when run_mode is "webhook".
	WebhookURL    string `yaml:"webhook_url" envconfig:"TELEGRAM_WEBHOOK_URL"`
	WebhookListen string `yaml:"webhook_listen" envconfig:"TELEGRAM_WEBHOOK_LISTEN"`
	WebhookPort   int    `yaml:"webhook_port" envconfig:"TELEGRAM_WEBHOOK_PORT"`
}

// WebhookConfig specifies the HTTP listener that receives Twilio-style
// WhatsApp and SMS callbacks.
type WebhookConfig struct {
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	Dir    string `yaml:"dir" envconfig:"LOG_DIR"`
	File   string `yaml:"file" envconfig:"LOG_FILE"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// HourRangeConfig is one weekday's open/close pair in fractional hours.
type HourRangeConfig struct {
	Open  float64 `yaml:"open"`
	Close float64 `yaml:"close"`
}

// BookingConfig owns the scheduling rules consumed by the engine.
type BookingConfig struct {
	ConflictWindowMinutes int                        `yaml:"conflict_window_minutes" envconfig:"CONFLICT_WINDOW_MINUTES"`
	Hours                 map[string]HourRangeConfig `yaml:"hours"`
}

// SheetsConfig points at the shared spreadsheet mirror. An empty
// spreadsheet id disables the remote store.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"GOOGLE_SHEET_ID"`
	SheetName       string `yaml:"sheet_name" envconfig:"GOOGLE_SHEET_NAME"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"GOOGLE_CREDENTIALS_FILE"`
	Email           string `yaml:"email" envconfig:"GOOGLE_SERVICE_ACCOUNT_EMAIL"`
	PrivateKey      string `yaml:"private_key" envconfig:"GOOGLE_PRIVATE_KEY"`
}

// StorageConfig locates the durable local appointment log.
type StorageConfig struct {
	AppointmentsFile string `yaml:"appointments_file" envconfig:"APPOINTMENTS_FILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// Config aggregates everything the bot needs at startup.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Logging  LoggingConfig  `yaml:"logging"`
	Booking  BookingConfig  `yaml:"booking"`
	Sheets   SheetsConfig   `yaml:"sheets"`
	Storage  StorageConfig  `yaml:"storage"`
}

// Load reads configuration from a YAML file and environment variables.
// A missing file is not an error: the original deployment configured
// everything through the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// env-only setup
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Telegram.WebhookURL) == "" {
			return fmt.Errorf("telegram.webhook_url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Telegram.WebhookListen) == "" {
			return fmt.Errorf("telegram.webhook_listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Telegram.WebhookPort <= 0 {
			return fmt.Errorf("telegram.webhook_port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.Webhook.Port == 0 {
		cfg.Webhook.Port = 3000
	}
	if cfg.Webhook.Port < 0 {
		return fmt.Errorf("webhook.port must be > 0")
	}

	if cfg.Booking.ConflictWindowMinutes == 0 {
		cfg.Booking.ConflictWindowMinutes = 60
	}
	if cfg.Booking.ConflictWindowMinutes < 0 {
		return fmt.Errorf("booking.conflict_window_minutes must be > 0")
	}
	for day, rng := range cfg.Booking.Hours {
		if _, ok := parseWeekday(day); !ok {
			return fmt.Errorf("invalid booking.hours day %q", day)
		}
		if rng.Open < 0 || rng.Close > 24 || rng.Open >= rng.Close {
			return fmt.Errorf("invalid booking.hours range for %s: open=%v close=%v", day, rng.Open, rng.Close)
		}
	}

	if cfg.Storage.AppointmentsFile == "" {
		cfg.Storage.AppointmentsFile = "citas_agendadas.csv"
	}
	if cfg.Sheets.SheetName == "" {
		cfg.Sheets.SheetName = "Sheet1"
	}
	return nil
}

// ConflictWindow returns the slot exclusivity window as a duration.
func (c *Config) ConflictWindow() time.Duration {
	return time.Duration(c.Booking.ConflictWindowMinutes) * time.Minute
}

// WeeklyHours converts the configured schedule into the policy type,
// falling back to the default workshop hours when unset.
func (c *Config) WeeklyHours() schedule.WeeklyHours {
	if len(c.Booking.Hours) == 0 {
		return schedule.DefaultWeeklyHours()
	}
	hours := make(schedule.WeeklyHours, len(c.Booking.Hours))
	for day, rng := range c.Booking.Hours {
		wd, ok := parseWeekday(day)
		if !ok {
			continue
		}
		hours[wd] = schedule.HourRange{Open: rng.Open, Close: rng.Close}
	}
	return hours
}

// RemoteStoreEnabled reports whether sheet mirroring is configured.
func (c *Config) RemoteStoreEnabled() bool {
	return strings.TrimSpace(c.Sheets.SpreadsheetID) != ""
}

// TelegramEnabled reports whether the Telegram transport should start.
func (c *Config) TelegramEnabled() bool {
	return strings.TrimSpace(c.Telegram.Token) != ""
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(name string) (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	return wd, ok
}
