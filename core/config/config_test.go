package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run_mode = %q, want longpoll default", cfg.Telegram.RunMode)
	}
	if cfg.Webhook.Port != 3000 {
		t.Fatalf("webhook port = %d, want 3000", cfg.Webhook.Port)
	}
	if cfg.Booking.ConflictWindowMinutes != 60 {
		t.Fatalf("conflict window = %d, want 60", cfg.Booking.ConflictWindowMinutes)
	}
	if cfg.Storage.AppointmentsFile != "citas_agendadas.csv" {
		t.Fatalf("appointments file = %q", cfg.Storage.AppointmentsFile)
	}
	if cfg.Sheets.SheetName != "Sheet1" {
		t.Fatalf("sheet name = %q, want Sheet1", cfg.Sheets.SheetName)
	}
	if cfg.ConflictWindow() != time.Hour {
		t.Fatalf("ConflictWindow() = %v, want 1h", cfg.ConflictWindow())
	}
}

func TestNormalizeRunModeAliases(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.RunMode = "Polling"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run_mode = %q, want longpoll", cfg.Telegram.RunMode)
	}

	cfg = &Config{}
	cfg.Telegram.RunMode = "carrier-pigeon"
	if err := Normalize(cfg); err == nil {
		t.Fatal("unknown run_mode must be rejected")
	}
}

func TestNormalizeWebhookModeRequiresEndpoint(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(cfg); err == nil {
		t.Fatal("webhook mode without url must fail")
	}

	cfg = &Config{}
	cfg.Telegram.RunMode = RunModeWebhook
	cfg.Telegram.WebhookURL = "https://bot.example.com/tg"
	cfg.Telegram.WebhookListen = "0.0.0.0"
	cfg.Telegram.WebhookPort = 8443
	if err := Normalize(cfg); err != nil {
		t.Fatalf("complete webhook config rejected: %v", err)
	}
}

func TestNormalizeHoursValidation(t *testing.T) {
	cfg := &Config{}
	cfg.Booking.Hours = map[string]HourRangeConfig{
		"monday": {Open: 17, Close: 9},
	}
	if err := Normalize(cfg); err == nil {
		t.Fatal("inverted hour range must be rejected")
	}

	cfg = &Config{}
	cfg.Booking.Hours = map[string]HourRangeConfig{
		"lunes": {Open: 9, Close: 17},
	}
	if err := Normalize(cfg); err == nil {
		t.Fatal("unknown weekday name must be rejected")
	}
}

func TestWeeklyHoursConversion(t *testing.T) {
	cfg := &Config{}
	cfg.Booking.Hours = map[string]HourRangeConfig{
		"Monday":   {Open: 9.5, Close: 13.25},
		"saturday": {Open: 9, Close: 12},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	hours := cfg.WeeklyHours()
	if got := hours[time.Monday]; got.Open != 9.5 || got.Close != 13.25 {
		t.Fatalf("monday = %+v", got)
	}
	if _, ok := hours[time.Sunday]; ok {
		t.Fatal("unset day must stay closed")
	}

	// No configured hours falls back to the default workshop week.
	empty := &Config{}
	if _, ok := empty.WeeklyHours()[time.Monday]; !ok {
		t.Fatal("default hours must cover monday")
	}
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
telegram:
  run_mode: longpoll
webhook:
  port: 4000
booking:
  conflict_window_minutes: 30
storage:
  appointments_file: citas.csv
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PORT", "5000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Webhook.Port != 5000 {
		t.Fatalf("env must override YAML, port = %d", cfg.Webhook.Port)
	}
	if cfg.Booking.ConflictWindowMinutes != 30 {
		t.Fatalf("conflict window = %d, want 30 from YAML", cfg.Booking.ConflictWindowMinutes)
	}
	if cfg.ConflictWindow() != 30*time.Minute {
		t.Fatalf("ConflictWindow() = %v", cfg.ConflictWindow())
	}
	if cfg.Storage.AppointmentsFile != "citas.csv" {
		t.Fatalf("appointments file = %q", cfg.Storage.AppointmentsFile)
	}
}

func TestLoadMissingFileIsEnvOnly(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must not fail Load: %v", err)
	}
	if !cfg.TelegramEnabled() {
		t.Fatal("token from env must enable telegram")
	}
	if cfg.RemoteStoreEnabled() {
		t.Fatal("remote store must stay off without a sheet id")
	}
}
