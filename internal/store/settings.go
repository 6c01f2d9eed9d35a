package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/rotapost/rotapost/internal/clock"
)

// Settings keys. Cursor and pacing state share the table with the
// scheduler configuration.
const (
	keyEnabled     = "scheduler_enabled"
	keyStartTime   = "scheduler_start_time"
	keyEndTime     = "scheduler_end_time"
	keyMinInterval = "scheduler_min_interval_minutes"
	keyRotationGap = "scheduler_rotation_gap_minutes"
	keyCursor      = "rotation_cursor"
	keyLastSentAt  = "last_sent_at"
)

// Settings is the persisted scheduler configuration.
type Settings struct {
	Enabled            bool   `json:"enabled"`
	StartTime          string `json:"start_time"` // HH:MM
	EndTime            string `json:"end_time"`   // HH:MM
	MinIntervalMinutes int    `json:"min_interval_minutes"`
	RotationGapMinutes int    `json:"rotation_gap_minutes"`
}

// DefaultSettings are used until an operator saves their own.
func DefaultSettings() Settings {
	return Settings{
		Enabled:            false,
		StartTime:          "09:00",
		EndTime:            "18:00",
		MinIntervalMinutes: 30,
		RotationGapMinutes: 0,
	}
}

// Validate rejects invalid configuration at the write boundary, so the
// planner never sees a malformed window.
func (s Settings) Validate() error {
	start, err := clock.ParseHHMM(s.StartTime)
	if err != nil {
		return fmt.Errorf("start_time: %w", err)
	}
	end, err := clock.ParseHHMM(s.EndTime)
	if err != nil {
		return fmt.Errorf("end_time: %w", err)
	}
	if end <= start {
		return fmt.Errorf("end_time %s must be after start_time %s", s.EndTime, s.StartTime)
	}
	if s.MinIntervalMinutes < 1 {
		return fmt.Errorf("min_interval_minutes must be at least 1, got %d", s.MinIntervalMinutes)
	}
	if s.RotationGapMinutes < 0 {
		return fmt.Errorf("rotation_gap_minutes must not be negative, got %d", s.RotationGapMinutes)
	}
	return nil
}

type SettingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) get(key string) (string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SettingsRepository) set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now(),
	)
	return err
}

// Load reads the scheduler settings, filling defaults for unset keys.
func (r *SettingsRepository) Load() (Settings, error) {
	s := DefaultSettings()

	if v, err := r.get(keyEnabled); err != nil {
		return s, err
	} else if v != "" {
		s.Enabled = v == "true"
	}
	if v, err := r.get(keyStartTime); err != nil {
		return s, err
	} else if v != "" {
		s.StartTime = v
	}
	if v, err := r.get(keyEndTime); err != nil {
		return s, err
	} else if v != "" {
		s.EndTime = v
	}
	if v, err := r.get(keyMinInterval); err != nil {
		return s, err
	} else if v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.MinIntervalMinutes = n
		}
	}
	if v, err := r.get(keyRotationGap); err != nil {
		return s, err
	} else if v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.RotationGapMinutes = n
		}
	}

	return s, nil
}

// Save validates and persists the scheduler settings.
func (r *SettingsRepository) Save(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	if err := r.set(keyEnabled, strconv.FormatBool(s.Enabled)); err != nil {
		return err
	}
	if err := r.set(keyStartTime, s.StartTime); err != nil {
		return err
	}
	if err := r.set(keyEndTime, s.EndTime); err != nil {
		return err
	}
	if err := r.set(keyMinInterval, strconv.Itoa(s.MinIntervalMinutes)); err != nil {
		return err
	}
	return r.set(keyRotationGap, strconv.Itoa(s.RotationGapMinutes))
}

// Cursor returns the persisted rotation cursor, 0 when unset.
func (r *SettingsRepository) Cursor() (int, error) {
	v, err := r.get(keyCursor)
	if err != nil || v == "" {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("corrupt rotation cursor %q: %w", v, err)
	}
	return n, nil
}

func (r *SettingsRepository) SetCursor(cursor int) error {
	return r.set(keyCursor, strconv.Itoa(cursor))
}

// LastSentAt returns the time of the last successful send, zero when
// nothing has been sent yet.
func (r *SettingsRepository) LastSentAt() (time.Time, error) {
	v, err := r.get(keyLastSentAt)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt last_sent_at %q: %w", v, err)
	}
	return t, nil
}

func (r *SettingsRepository) SetLastSentAt(t time.Time) error {
	return r.set(keyLastSentAt, t.Format(time.RFC3339Nano))
}
