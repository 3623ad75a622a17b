package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// NoCamera marks a camera role with no device assigned.
const NoCamera = -1

// MinCheckIntervalSeconds is the shortest allowed monitoring interval.
const MinCheckIntervalSeconds = 30

// Settings are the user-facing settings edited from the UI.
type Settings struct {
	MonitoringEnabled          bool   `json:"monitoringEnabled"`
	CheckIntervalSeconds       int    `json:"checkIntervalSeconds"`
	AlertPlugin                string `json:"alertPlugin"`
	NotifyOnPoor               bool   `json:"notifyOnPoor"`
	NotifyOnRecovery           bool   `json:"notifyOnRecovery"`
	PoorThreshold              int    `json:"poorThreshold"`
	GoodThreshold              int    `json:"goodThreshold"`
	ConsecutivePoorBeforeAlert int    `json:"consecutivePoorBeforeAlert"`
	FrontCamera                int    `json:"frontCamera"`
	SideCamera                 int    `json:"sideCamera"`
	CaptureWidth               int    `json:"captureWidth"`
	CaptureHeight              int    `json:"captureHeight"`
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{
		MonitoringEnabled:          false,
		CheckIntervalSeconds:       60,
		AlertPlugin:                "notify",
		NotifyOnPoor:               true,
		NotifyOnRecovery:           true,
		PoorThreshold:              40,
		GoodThreshold:              75,
		ConsecutivePoorBeforeAlert: 2,
		FrontCamera:                NoCamera,
		SideCamera:                 NoCamera,
		CaptureWidth:               640,
		CaptureHeight:              480,
	}
}

// Validate checks ranges and cross-field constraints.
func (s Settings) Validate() error {
	if s.CheckIntervalSeconds < MinCheckIntervalSeconds {
		return fmt.Errorf("check interval must be at least %d seconds", MinCheckIntervalSeconds)
	}
	if s.PoorThreshold < 0 || s.GoodThreshold > 100 {
		return errors.New("thresholds must be within 0-100")
	}
	if s.PoorThreshold > s.GoodThreshold {
		return errors.New("poor threshold must not exceed good threshold")
	}
	if s.ConsecutivePoorBeforeAlert < 1 {
		return errors.New("consecutive poor checks before alert must be at least 1")
	}
	if s.CaptureWidth <= 0 || s.CaptureHeight <= 0 {
		return errors.New("capture size must be positive")
	}
	return nil
}

// SettingsRepository reads and writes the settings table.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the raw JSON value stored under key.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores a raw JSON value under key.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Load returns the stored settings over DefaultSettings.
func (r *SettingsRepository) Load() (Settings, error) {
	return r.LoadWithDefaults(DefaultSettings())
}

// LoadWithDefaults returns the stored settings; keys never saved take their
// value from defaults.
func (r *SettingsRepository) LoadWithDefaults(defaults Settings) (Settings, error) {
	merged, err := toFields(defaults)
	if err != nil {
		return Settings{}, err
	}

	rows, err := r.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return Settings{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, err
		}
		if _, known := merged[key]; known {
			merged[key] = json.RawMessage(value)
		}
	}
	if err := rows.Err(); err != nil {
		return Settings{}, err
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return Settings{}, err
	}
	out := defaults
	if err := json.Unmarshal(data, &out); err != nil {
		return Settings{}, fmt.Errorf("failed to decode stored settings: %w", err)
	}
	return out, nil
}

// Save writes every field of settings.
func (r *SettingsRepository) Save(settings Settings) error {
	fields, err := toFields(settings)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range fields {
		if _, err := tx.Exec(
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, string(value),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func toFields(s Settings) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
