package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range keys {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
	t.Setenv(ConfigFileEnv, "")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", " secret ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TelegramToken != "secret" || cfg.DatabaseURL != "smart_reminder.db" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ReportInterval != 5*time.Hour || cfg.ReminderOffsetMinutes != 5 || !cfg.RemindersEnabled || cfg.CountdownInterval != time.Second {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Location != time.Local {
		t.Fatalf("expected local time zone, got %v", cfg.Location)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected an error without TELEGRAM_TOKEN")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "secret")
	t.Setenv("REPORT_INTERVAL_HOURS", "0")
	t.Setenv("REPORT_TIME", "07:30")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("REMINDER_OFFSET_MINUTES", "15")
	t.Setenv("REMINDERS_ENABLED", "false")
	t.Setenv("COUNTDOWN_INTERVAL", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ReportInterval != 0 || cfg.ReportTime != "07:30" || cfg.Location != time.UTC {
		t.Fatalf("unexpected schedule settings: %+v", cfg)
	}
	if cfg.ReminderOffsetMinutes != 15 || cfg.RemindersEnabled || cfg.CountdownInterval != 5*time.Second {
		t.Fatalf("unexpected reminder settings: %+v", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "reminder.yaml")
	body := "telegram_token: from-file\ndatabase_url: data/app.db\nreminder_offset_minutes: 10\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("REMINDER_OFFSET_MINUTES", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TelegramToken != "from-file" || cfg.DatabaseURL != "data/app.db" {
		t.Fatalf("file values not read: %+v", cfg)
	}
	if cfg.ReminderOffsetMinutes != 20 {
		t.Fatalf("environment must win over the file, got %d", cfg.ReminderOffsetMinutes)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "secret")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an unknown time zone")
	}
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("REMINDER_OFFSET_MINUTES", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a negative offset")
	}
}

func TestParseInterval(t *testing.T) {
	cases := map[string]time.Duration{"": 0, "2": 2 * time.Hour, "0.5": 30 * time.Minute, "-1": 0, "x": 0}
	for raw, want := range cases {
		if got := parseInterval(raw); got != want {
			t.Fatalf("parseInterval(%q) = %s, want %s", raw, got, want)
		}
	}
}
