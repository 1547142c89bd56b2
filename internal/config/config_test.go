package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.SessionGapMinutes != 60 {
		t.Errorf("SessionGapMinutes = %d, want 60", cfg.SessionGapMinutes)
	}
	if cfg.MinEventDurationMinutes != 5 {
		t.Errorf("MinEventDurationMinutes = %d, want 5", cfg.MinEventDurationMinutes)
	}
	if cfg.OperatorTimezone != "Asia/Jerusalem" {
		t.Errorf("OperatorTimezone = %q", cfg.OperatorTimezone)
	}
	if cfg.OperatorLabel != "אייל" {
		t.Errorf("OperatorLabel = %q", cfg.OperatorLabel)
	}
	if got := cfg.SessionGap(); got != time.Hour {
		t.Errorf("SessionGap() = %v, want 1h", got)
	}
	if got := cfg.MinEventDuration(); got != 5*time.Minute {
		t.Errorf("MinEventDuration() = %v, want 5m", got)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.TargetCalendarID = "cal@group.calendar.google.com"
	cfg.SessionGapMinutes = 45
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.TargetCalendarID != "cal@group.calendar.google.com" {
		t.Errorf("TargetCalendarID = %q", loaded.TargetCalendarID)
	}
	if loaded.SessionGapMinutes != 45 {
		t.Errorf("SessionGapMinutes = %d, want 45", loaded.SessionGapMinutes)
	}
	// Keys not present in the file keep their defaults.
	if loaded.UpsertRetryAttempts != 3 {
		t.Errorf("UpsertRetryAttempts = %d, want 3", loaded.UpsertRetryAttempts)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "target_calendar_id = \"primary\"\noperator_label = \"Dana\"\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OperatorLabel != "Dana" {
		t.Errorf("OperatorLabel = %q, want Dana", cfg.OperatorLabel)
	}
	if cfg.InterChatDelaySeconds != 2 {
		t.Errorf("InterChatDelaySeconds = %d, want 2", cfg.InterChatDelaySeconds)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load("/nonexistent/config.toml"); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != ErrMissingCalendarID {
		t.Errorf("Validate() = %v, want ErrMissingCalendarID", err)
	}
	cfg.TargetCalendarID = "primary"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestLocationFallback(t *testing.T) {
	cfg := Default()
	cfg.OperatorTimezone = "Not/AZone"
	if loc := cfg.Location(); loc != time.UTC {
		t.Errorf("Location() = %v, want UTC fallback", loc)
	}
}
