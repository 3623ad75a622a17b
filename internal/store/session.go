package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/shrimpwatch/internal/posture"
	"github.com/ayusman/shrimpwatch/internal/session"
)

// SessionRepository persists the single monitoring session row.
type SessionRepository struct {
	db *sql.DB
}

// Session returns the session repository for this store.
func (s *Store) Session() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Load returns the stored session, or the zero state if none was saved.
func (r *SessionRepository) Load() (session.State, error) {
	var (
		st                                                session.State
		streakKind, lastStatus                            string
		lastScore                                         sql.NullInt64
		startedAt, streakStartedAt, lastCheck, snoozedTil sql.NullTime
	)

	err := r.db.QueryRow(
		`SELECT started_at, consecutive_poor, streak_kind, streak_started_at,
			last_score, last_status, last_check_at, snoozed_until
		 FROM session WHERE id = 1`,
	).Scan(&startedAt, &st.ConsecutivePoor, &streakKind, &streakStartedAt,
		&lastScore, &lastStatus, &lastCheck, &snoozedTil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.State{}, nil
		}
		return session.State{}, err
	}

	st.StartedAt = startedAt.Time
	st.StreakKind = posture.Status(streakKind)
	st.StreakStartedAt = streakStartedAt.Time
	if lastScore.Valid {
		v := int(lastScore.Int64)
		st.LastScore = &v
	}
	st.LastStatus = posture.Status(lastStatus)
	st.LastCheckAt = lastCheck.Time
	st.SnoozedUntil = snoozedTil.Time
	return st, nil
}

// Save replaces the stored session.
func (r *SessionRepository) Save(st session.State) error {
	var lastScore sql.NullInt64
	if st.LastScore != nil {
		lastScore = sql.NullInt64{Int64: int64(*st.LastScore), Valid: true}
	}

	_, err := r.db.Exec(
		`INSERT INTO session (id, started_at, consecutive_poor, streak_kind, streak_started_at,
			last_score, last_status, last_check_at, snoozed_until)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at, consecutive_poor = excluded.consecutive_poor,
			streak_kind = excluded.streak_kind, streak_started_at = excluded.streak_started_at,
			last_score = excluded.last_score, last_status = excluded.last_status,
			last_check_at = excluded.last_check_at, snoozed_until = excluded.snoozed_until`,
		nullTime(st.StartedAt), st.ConsecutivePoor, string(st.StreakKind), nullTime(st.StreakStartedAt),
		lastScore, string(st.LastStatus), nullTime(st.LastCheckAt), nullTime(st.SnoozedUntil),
	)
	return err
}

// Clear removes the stored session.
func (r *SessionRepository) Clear() error {
	_, err := r.db.Exec(`DELETE FROM session`)
	return err
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
