package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// SourceConfig holds message-source (WhatsApp HTTP API) settings.
type SourceConfig struct {
	BaseURL    string `toml:"base_url"`
	InstanceID string `toml:"instance_id"`
	APIToken   string `toml:"api_token"`
}

// CalendarConfig holds external calendar API credentials.
type CalendarConfig struct {
	BaseURL      string `toml:"base_url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
	TokenURL     string `toml:"token_url"`
}

// Config represents the global ~/.wacal/config.toml.
type Config struct {
	SessionGapMinutes       int    `toml:"session_gap_minutes"`
	MinEventDurationMinutes int    `toml:"min_event_duration_minutes"`
	OperatorTimezone        string `toml:"operator_timezone"`
	OperatorLabel           string `toml:"operator_label"`
	TargetCalendarID        string `toml:"target_calendar_id"`
	InterChatDelaySeconds   int    `toml:"inter_chat_delay_seconds"`
	PerFetchDelaySeconds    int    `toml:"per_fetch_delay_seconds"`
	FetchTimeoutSeconds     int    `toml:"fetch_timeout_seconds"`
	CalendarTimeoutSeconds  int    `toml:"calendar_timeout_seconds"`
	UpsertRetryAttempts     int    `toml:"upsert_retry_attempts"`
	UpsertRetryBaseSeconds  int    `toml:"upsert_retry_base_seconds"`
	UpsertRetryCapSeconds   int    `toml:"upsert_retry_cap_seconds"`

	Source   SourceConfig   `toml:"source"`
	Calendar CalendarConfig `toml:"calendar"`
}

// ErrMissingCalendarID is returned by Validate when target_calendar_id is empty.
var ErrMissingCalendarID = errors.New("target_calendar_id is required")

// Default returns a config populated with documented defaults.
func Default() *Config {
	return &Config{
		SessionGapMinutes:       60,
		MinEventDurationMinutes: 5,
		OperatorTimezone:        "Asia/Jerusalem",
		OperatorLabel:           "אייל",
		InterChatDelaySeconds:   2,
		PerFetchDelaySeconds:    2,
		FetchTimeoutSeconds:     30,
		CalendarTimeoutSeconds:  30,
		UpsertRetryAttempts:     3,
		UpsertRetryBaseSeconds:  1,
		UpsertRetryCapSeconds:   10,
	}
}

// Load reads config from the given path. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.TargetCalendarID == "" {
		return ErrMissingCalendarID
	}
	return nil
}

// SessionGap returns the sessionizer gap as a duration.
func (c *Config) SessionGap() time.Duration {
	return time.Duration(c.SessionGapMinutes) * time.Minute
}

// MinEventDuration returns the minimum calendar event duration.
func (c *Config) MinEventDuration() time.Duration {
	return time.Duration(c.MinEventDurationMinutes) * time.Minute
}

// InterChatDelay returns the pause between chats during a full sync.
func (c *Config) InterChatDelay() time.Duration {
	return time.Duration(c.InterChatDelaySeconds) * time.Second
}

// PerFetchDelay returns the minimum spacing between source fetches.
func (c *Config) PerFetchDelay() time.Duration {
	return time.Duration(c.PerFetchDelaySeconds) * time.Second
}

// FetchTimeout returns the per-call message-source timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// CalendarTimeout returns the per-call calendar timeout.
func (c *Config) CalendarTimeout() time.Duration {
	return time.Duration(c.CalendarTimeoutSeconds) * time.Second
}

// Location resolves the operator timezone. Falls back to UTC on error.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.OperatorTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
