package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/shrimpwatch/internal/posture"
)

// CalibrationRecord is the stored baseline of one camera role.
type CalibrationRecord struct {
	ID           string            `json:"id"`
	Role         posture.Role      `json:"role"`
	Baseline     *posture.Baseline `json:"baseline"`
	Version      int               `json:"version"`
	CalibratedAt time.Time         `json:"calibratedAt"`
}

// CalibrationRepository stores per-role baselines.
type CalibrationRepository struct {
	db *sql.DB
}

// Calibrations returns the calibration repository for this store.
func (s *Store) Calibrations() *CalibrationRepository {
	return &CalibrationRepository{db: s.db}
}

// Save replaces the baseline of role. The version is one above the highest
// stored version so every recalibration is distinguishable.
func (r *CalibrationRepository) Save(role posture.Role, b *posture.Baseline, at time.Time) (*CalibrationRecord, error) {
	if b == nil {
		return nil, errors.New("baseline is nil")
	}
	means, err := json.Marshal(b.Means)
	if err != nil {
		return nil, err
	}
	stddevs, err := json.Marshal(b.StdDevs)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(version), 0) + 1 FROM calibrations`).Scan(&version); err != nil {
		return nil, err
	}

	rec := &CalibrationRecord{
		ID:           uuid.New().String(),
		Role:         role,
		Baseline:     b,
		Version:      version,
		CalibratedAt: at,
	}

	_, err = tx.Exec(
		`INSERT INTO calibrations (role, id, means, stddevs, samples, version, calibrated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(role) DO UPDATE SET
			id = excluded.id, means = excluded.means, stddevs = excluded.stddevs,
			samples = excluded.samples, version = excluded.version,
			calibrated_at = excluded.calibrated_at`,
		string(role), rec.ID, string(means), string(stddevs), b.Samples, version, at,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns the stored baseline for role.
func (r *CalibrationRepository) Get(role posture.Role) (*CalibrationRecord, error) {
	row := r.db.QueryRow(
		`SELECT id, role, means, stddevs, samples, version, calibrated_at
		 FROM calibrations WHERE role = ?`,
		string(role),
	)
	rec, err := scanCalibration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List returns every stored baseline.
func (r *CalibrationRepository) List() ([]*CalibrationRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, role, means, stddevs, samples, version, calibrated_at
		 FROM calibrations ORDER BY role`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*CalibrationRecord
	for rows.Next() {
		rec, err := scanCalibration(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Load assembles the stored baselines into a calibration. It returns
// ErrNotFound when no role has been calibrated.
func (r *CalibrationRepository) Load() (*posture.Calibration, error) {
	records, err := r.List()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}

	cal := &posture.Calibration{}
	for _, rec := range records {
		cal.SetBaseline(rec.Role, rec.Baseline)
		if rec.CalibratedAt.After(cal.CalibratedAt) {
			cal.CalibratedAt = rec.CalibratedAt
		}
		if rec.Version > cal.Version {
			cal.Version = rec.Version
		}
	}
	return cal, nil
}

// Delete removes the baseline of role.
func (r *CalibrationRepository) Delete(role posture.Role) error {
	result, err := r.db.Exec(`DELETE FROM calibrations WHERE role = ?`, string(role))
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every baseline.
func (r *CalibrationRepository) DeleteAll() error {
	_, err := r.db.Exec(`DELETE FROM calibrations`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalibration(row rowScanner) (*CalibrationRecord, error) {
	rec := &CalibrationRecord{Baseline: &posture.Baseline{}}
	var role, means, stddevs string

	err := row.Scan(&rec.ID, &role, &means, &stddevs, &rec.Baseline.Samples, &rec.Version, &rec.CalibratedAt)
	if err != nil {
		return nil, err
	}

	rec.Role = posture.Role(role)
	if err := json.Unmarshal([]byte(means), &rec.Baseline.Means); err != nil {
		return nil, fmt.Errorf("calibration %s: bad means: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(stddevs), &rec.Baseline.StdDevs); err != nil {
		return nil, fmt.Errorf("calibration %s: bad stddevs: %w", rec.ID, err)
	}
	return rec, nil
}
