package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/ayusman/shrimpwatch/internal/posture"
)

// SummaryRetentionDays is how long daily summaries are kept.
const SummaryRetentionDays = 90

const dateLayout = "2006-01-02"

// DailySummary aggregates one local calendar day of checks.
type DailySummary struct {
	Date                     string      `json:"date"`
	TotalChecks              int         `json:"totalChecks"`
	GoodChecks               int         `json:"goodChecks"`
	FairChecks               int         `json:"fairChecks"`
	PoorChecks               int         `json:"poorChecks"`
	TotalScore               int         `json:"totalScore"`
	AverageScore             int         `json:"averageScore"`
	LongestGoodStreakMinutes int         `json:"longestGoodStreakMinutes"`
	AlertsSent               int         `json:"alertsSent"`
	SelfCorrections          int         `json:"selfCorrections"`
	HourlyScores             map[int]int `json:"hourlyScores"`
	HourlyCounts             map[int]int `json:"hourlyCounts"`
}

// HourlyAverage returns the rounded average score for hour, if any check
// landed in it.
func (d *DailySummary) HourlyAverage(hour int) (int, bool) {
	n := d.HourlyCounts[hour]
	if n == 0 {
		return 0, false
	}
	return int(math.Round(float64(d.HourlyScores[hour]) / float64(n))), true
}

// SummaryUpdate is what one check contributes to its day.
type SummaryUpdate struct {
	Score             *int
	Status            posture.Status
	AlertsSent        int
	SelfCorrections   int
	GoodStreakMinutes int
}

// SummaryRepository stores daily summaries.
type SummaryRepository struct {
	db *sql.DB
}

// Summaries returns the summary repository for this store.
func (s *Store) Summaries() *SummaryRepository {
	return &SummaryRepository{db: s.db}
}

// Record folds u into the summary of the day containing at and drops
// summaries older than SummaryRetentionDays.
func (r *SummaryRepository) Record(at time.Time, u SummaryUpdate) (*DailySummary, error) {
	date := at.Format(dateLayout)

	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	d, err := scanSummary(tx.QueryRow(summarySelect+` WHERE date = ?`, date))
	if errors.Is(err, sql.ErrNoRows) {
		d = &DailySummary{Date: date, HourlyScores: map[int]int{}, HourlyCounts: map[int]int{}}
	} else if err != nil {
		return nil, err
	}

	if u.Score != nil {
		score := *u.Score
		d.TotalChecks++
		d.TotalScore += score
		d.AverageScore = int(math.Round(float64(d.TotalScore) / float64(d.TotalChecks)))
		switch u.Status {
		case posture.StatusGood:
			d.GoodChecks++
		case posture.StatusFair:
			d.FairChecks++
		case posture.StatusPoor:
			d.PoorChecks++
		}
		d.HourlyScores[at.Hour()] += score
		d.HourlyCounts[at.Hour()]++
	}
	d.AlertsSent += u.AlertsSent
	d.SelfCorrections += u.SelfCorrections
	if u.GoodStreakMinutes > d.LongestGoodStreakMinutes {
		d.LongestGoodStreakMinutes = u.GoodStreakMinutes
	}

	hourlyScores, err := encodeHourly(d.HourlyScores)
	if err != nil {
		return nil, err
	}
	hourlyCounts, err := encodeHourly(d.HourlyCounts)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(
		`INSERT INTO daily_summaries (date, total_checks, good_checks, fair_checks, poor_checks,
			total_score, average_score, longest_good_streak_minutes, alerts_sent, self_corrections,
			hourly_scores, hourly_counts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET
			total_checks = excluded.total_checks, good_checks = excluded.good_checks,
			fair_checks = excluded.fair_checks, poor_checks = excluded.poor_checks,
			total_score = excluded.total_score, average_score = excluded.average_score,
			longest_good_streak_minutes = excluded.longest_good_streak_minutes,
			alerts_sent = excluded.alerts_sent, self_corrections = excluded.self_corrections,
			hourly_scores = excluded.hourly_scores, hourly_counts = excluded.hourly_counts`,
		d.Date, d.TotalChecks, d.GoodChecks, d.FairChecks, d.PoorChecks,
		d.TotalScore, d.AverageScore, d.LongestGoodStreakMinutes, d.AlertsSent, d.SelfCorrections,
		hourlyScores, hourlyCounts,
	)
	if err != nil {
		return nil, err
	}

	cutoff := at.AddDate(0, 0, -SummaryRetentionDays).Format(dateLayout)
	if _, err := tx.Exec(`DELETE FROM daily_summaries WHERE date < ?`, cutoff); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return d, nil
}

// Get returns the summary for a date in YYYY-MM-DD form.
func (r *SummaryRepository) Get(date string) (*DailySummary, error) {
	d, err := scanSummary(r.db.QueryRow(summarySelect+` WHERE date = ?`, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// List returns the summaries of the last days days up to and including
// the day of now, newest first.
func (r *SummaryRepository) List(now time.Time, days int) ([]*DailySummary, error) {
	if days <= 0 {
		days = SummaryRetentionDays
	}
	from := now.AddDate(0, 0, -(days - 1)).Format(dateLayout)

	rows, err := r.db.Query(summarySelect+` WHERE date >= ? ORDER BY date DESC`, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*DailySummary
	for rows.Next() {
		d, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

const summarySelect = `SELECT date, total_checks, good_checks, fair_checks, poor_checks,
	total_score, average_score, longest_good_streak_minutes, alerts_sent, self_corrections,
	hourly_scores, hourly_counts FROM daily_summaries`

func scanSummary(row rowScanner) (*DailySummary, error) {
	d := &DailySummary{}
	var hourlyScores, hourlyCounts string

	err := row.Scan(&d.Date, &d.TotalChecks, &d.GoodChecks, &d.FairChecks, &d.PoorChecks,
		&d.TotalScore, &d.AverageScore, &d.LongestGoodStreakMinutes, &d.AlertsSent, &d.SelfCorrections,
		&hourlyScores, &hourlyCounts)
	if err != nil {
		return nil, err
	}

	if d.HourlyScores, err = decodeHourly(hourlyScores); err != nil {
		return nil, err
	}
	if d.HourlyCounts, err = decodeHourly(hourlyCounts); err != nil {
		return nil, err
	}
	return d, nil
}

func encodeHourly(m map[int]int) (string, error) {
	data, err := json.Marshal(m)
	return string(data), err
}

func decodeHourly(s string) (map[int]int, error) {
	out := map[int]int{}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
