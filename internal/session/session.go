// Package session tracks the rolling monitoring state between checks and
// decides when a result should raise an alert.
package session

import (
	"time"

	"github.com/ayusman/shrimpwatch/internal/posture"
)

// State is the rolling state carried from one check to the next.
type State struct {
	StartedAt       time.Time      `json:"startedAt"`
	ConsecutivePoor int            `json:"consecutivePoor"`
	StreakKind      posture.Status `json:"streakKind,omitempty"`
	StreakStartedAt time.Time      `json:"streakStartedAt"`
	LastScore       *int           `json:"lastScore"`
	LastStatus      posture.Status `json:"lastStatus,omitempty"`
	LastCheckAt     time.Time      `json:"lastCheckAt"`
	SnoozedUntil    time.Time      `json:"snoozedUntil"`
}

// Snoozed reports whether checks are paused at now.
func (s State) Snoozed(now time.Time) bool {
	return now.Before(s.SnoozedUntil)
}

// Policy holds the user settings that drive alerting.
type Policy struct {
	AlertAfter       int
	NotifyOnPoor     bool
	NotifyOnRecovery bool
}

// EventKind identifies an alert.
type EventKind string

const (
	EventPoorPosture EventKind = "poor_posture"
	EventRecovery    EventKind = "recovery"
)

// Event asks the alert plugin to notify the user.
type Event struct {
	Kind   EventKind      `json:"kind"`
	Score  int            `json:"score"`
	Status posture.Status `json:"status"`
}

// Outcome is the result of advancing the state by one check.
type Outcome struct {
	State  State
	Events []Event

	// Recovered is set when a poor run that had reached the alert
	// threshold ended with this check.
	Recovered bool

	// GoodStreak is how long the current non-poor streak has lasted.
	GoodStreak time.Duration
}

// Advance folds one evaluation result into the state. Results without a
// score leave the state untouched.
func Advance(st State, res posture.Result, p Policy, now time.Time) Outcome {
	if res.Score == nil || !res.Status.Scored() {
		return Outcome{State: st}
	}
	score := *res.Score

	next := st
	if next.StartedAt.IsZero() {
		next.StartedAt = now
	}
	next.LastScore = &score
	next.LastStatus = res.Status
	next.LastCheckAt = now

	out := Outcome{}

	if res.Status == posture.StatusPoor {
		next.ConsecutivePoor = st.ConsecutivePoor + 1
		if st.StreakKind != posture.StatusPoor {
			next.StreakStartedAt = now
		}
		next.StreakKind = posture.StatusPoor

		if next.ConsecutivePoor >= p.AlertAfter && p.NotifyOnPoor {
			out.Events = append(out.Events, Event{Kind: EventPoorPosture, Score: score, Status: res.Status})
		}
		out.State = next
		return out
	}

	out.Recovered = p.AlertAfter > 0 && st.ConsecutivePoor >= p.AlertAfter
	next.ConsecutivePoor = 0
	if st.StreakKind != posture.StatusGood && st.StreakKind != posture.StatusFair {
		next.StreakStartedAt = now
	}
	next.StreakKind = res.Status
	out.GoodStreak = now.Sub(next.StreakStartedAt)

	if out.Recovered && p.NotifyOnRecovery && res.Status == posture.StatusGood {
		out.Events = append(out.Events, Event{Kind: EventRecovery, Score: score, Status: res.Status})
	}

	out.State = next
	return out
}
