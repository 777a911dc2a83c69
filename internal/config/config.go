package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"smart-reminder/internal/model"
)

// ConfigFileEnv names the optional yaml/toml file read before the environment.
const ConfigFileEnv = "SMART_REMINDER_CONFIG"

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken         string
	DatabaseURL           string
	ReportInterval        time.Duration
	ReportTime            string
	Location              *time.Location
	ReminderOffsetMinutes int
	RemindersEnabled      bool
	CountdownInterval     time.Duration
}

var keys = map[string]string{
	"telegram_token":          "TELEGRAM_TOKEN",
	"database_url":            "DATABASE_URL",
	"report_interval_hours":   "REPORT_INTERVAL_HOURS",
	"report_time":             "REPORT_TIME",
	"timezone":                "TIMEZONE",
	"reminder_offset_minutes": "REMINDER_OFFSET_MINUTES",
	"reminders_enabled":       "REMINDERS_ENABLED",
	"countdown_interval":      "COUNTDOWN_INTERVAL",
}

// Load reads the optional config file, then environment variables, with sane
// defaults.
func Load() (Config, error) {
	v := viper.New()
	v.SetDefault("database_url", "smart_reminder.db")
	v.SetDefault("report_interval_hours", "5")
	v.SetDefault("timezone", "Local")
	v.SetDefault("reminder_offset_minutes", model.DefaultReminderOffsetMinutes)
	v.SetDefault("reminders_enabled", true)
	v.SetDefault("countdown_interval", "1s")

	for key, env := range keys {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			var pathErr *os.PathError
			if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg := Config{
		TelegramToken:         strings.TrimSpace(v.GetString("telegram_token")),
		DatabaseURL:           strings.TrimSpace(v.GetString("database_url")),
		ReportInterval:        parseInterval(strings.TrimSpace(v.GetString("report_interval_hours"))),
		ReportTime:            strings.TrimSpace(v.GetString("report_time")),
		ReminderOffsetMinutes: v.GetInt("reminder_offset_minutes"),
		RemindersEnabled:      v.GetBool("reminders_enabled"),
		CountdownInterval:     v.GetDuration("countdown_interval"),
	}

	loc, err := time.LoadLocation(strings.TrimSpace(v.GetString("timezone")))
	if err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "smart_reminder.db"
	}
	if cfg.ReminderOffsetMinutes < 0 {
		return cfg, fmt.Errorf("REMINDER_OFFSET_MINUTES must be >= 0, got %d", cfg.ReminderOffsetMinutes)
	}
	if cfg.CountdownInterval <= 0 {
		cfg.CountdownInterval = time.Second
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

// parseInterval reads a number of hours; "0" disables periodic reports.
func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
