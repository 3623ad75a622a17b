package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/shrimpwatch/internal/posture"
)

// MaxChecks is how many checks are kept; older ones are pruned on insert.
const MaxChecks = 200

// Check is one recorded evaluation.
type Check struct {
	ID        string                 `json:"id"`
	Score     *int                   `json:"score"`
	Status    posture.Status         `json:"status"`
	Breakdown []posture.ScoredMetric `json:"breakdown,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// CheckRepository stores the recent check history.
type CheckRepository struct {
	db *sql.DB
}

// Checks returns the check repository for this store.
func (s *Store) Checks() *CheckRepository {
	return &CheckRepository{db: s.db}
}

// Record stores res and prunes the history to MaxChecks entries.
func (r *CheckRepository) Record(res posture.Result) (*Check, error) {
	c := &Check{
		ID:        uuid.New().String(),
		Score:     res.Score,
		Status:    res.Status,
		Breakdown: res.Breakdown,
		CreatedAt: res.Timestamp,
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	breakdown, err := json.Marshal(c.Breakdown)
	if err != nil {
		return nil, err
	}
	var score sql.NullInt64
	if c.Score != nil {
		score = sql.NullInt64{Int64: int64(*c.Score), Valid: true}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO checks (id, score, status, breakdown, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, score, string(c.Status), string(breakdown), c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(
		`DELETE FROM checks WHERE seq <= (SELECT seq FROM checks ORDER BY seq DESC LIMIT 1 OFFSET ?)`,
		MaxChecks,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns up to limit checks, newest first. A limit of zero or less
// returns all of them.
func (r *CheckRepository) List(limit int) ([]*Check, error) {
	if limit <= 0 {
		limit = MaxChecks
	}

	rows, err := r.db.Query(
		`SELECT id, score, status, breakdown, created_at
		 FROM checks ORDER BY seq DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []*Check
	for rows.Next() {
		c, err := scanCheck(rows)
		if err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return checks, nil
}

// Latest returns the most recent check.
func (r *CheckRepository) Latest() (*Check, error) {
	row := r.db.QueryRow(
		`SELECT id, score, status, breakdown, created_at
		 FROM checks ORDER BY seq DESC LIMIT 1`,
	)
	c, err := scanCheck(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Count returns how many checks are stored.
func (r *CheckRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM checks`).Scan(&n)
	return n, err
}

func scanCheck(row rowScanner) (*Check, error) {
	c := &Check{}
	var score sql.NullInt64
	var status, breakdown string

	if err := row.Scan(&c.ID, &score, &status, &breakdown, &c.CreatedAt); err != nil {
		return nil, err
	}
	if score.Valid {
		v := int(score.Int64)
		c.Score = &v
	}
	c.Status = posture.Status(status)
	if err := json.Unmarshal([]byte(breakdown), &c.Breakdown); err != nil {
		return nil, err
	}
	return c, nil
}
