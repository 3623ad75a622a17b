// Package posture turns body keypoints into posture metrics and scores them
// against a calibrated baseline.
//
// The engine is pure: an Engine holds only its configuration and clock, so
// one value can be shared across goroutines.
package posture

import (
	"math"
	"time"

	"github.com/ayusman/shrimpwatch/internal/detector"
)

// Status classifies an evaluation.
type Status string

const (
	StatusGood          Status = "good"
	StatusFair          Status = "fair"
	StatusPoor          Status = "poor"
	StatusNotCalibrated Status = "not_calibrated"
	StatusNoData        Status = "no_data"
)

// Scored reports whether the status carries a numeric score.
func (s Status) Scored() bool {
	return s == StatusGood || s == StatusFair || s == StatusPoor
}

// PoseData is one capture per camera role; either may be nil.
type PoseData struct {
	Front *detector.Pose `json:"front,omitempty"`
	Side  *detector.Pose `json:"side,omitempty"`
}

// ViewMetrics holds the bags extracted per view; nil when extraction failed
// or the view was not supplied.
type ViewMetrics struct {
	Front Bag `json:"frontMetrics"`
	Side  Bag `json:"sideMetrics"`
}

// Result is the outcome of one evaluation. Score is nil unless the status
// is good, fair or poor.
type Result struct {
	Score     *int           `json:"score"`
	Status    Status         `json:"status"`
	Metrics   *ViewMetrics   `json:"metrics,omitempty"`
	Breakdown []ScoredMetric `json:"breakdown,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Engine extracts, scores and classifies poses.
type Engine struct {
	cfg Config
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used to stamp results.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine. The config is used as given; call
// Config.Validate first when it comes from user input.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// WithThresholds returns a copy of the engine using the given status
// thresholds.
func (e *Engine) WithThresholds(good, poor int) *Engine {
	cp := *e
	cp.cfg.GoodThreshold = good
	cp.cfg.PoorThreshold = poor
	return &cp
}

// Evaluate scores data against cal. Without a calibration nothing is
// extracted and the status is not_calibrated. When no view yields a sub-score
// the status is no_data.
func (e *Engine) Evaluate(data PoseData, cal *Calibration) Result {
	ts := e.now()
	if cal == nil {
		return Result{Status: StatusNotCalibrated, Timestamp: ts}
	}

	metrics := &ViewMetrics{}
	var scores []ScoredMetric

	if data.Front != nil {
		metrics.Front = e.ExtractFront(data.Front)
		if metrics.Front != nil && cal.Front != nil {
			scores = append(scores, e.ScoreFront(metrics.Front, cal.Front)...)
		}
	}
	if data.Side != nil {
		metrics.Side = e.ExtractSide(data.Side)
		if metrics.Side != nil && cal.Side != nil {
			scores = append(scores, e.ScoreSide(metrics.Side, cal.Side)...)
		}
	}

	score, ok := Aggregate(scores)
	if !ok {
		return Result{Status: StatusNoData, Metrics: metrics, Timestamp: ts}
	}

	return Result{
		Score:     &score,
		Status:    e.Classify(score),
		Metrics:   metrics,
		Breakdown: scores,
		Timestamp: ts,
	}
}

// Aggregate returns the weighted mean of the sub-scores, clamped to [0,100]
// and rounded. It reports false when there is nothing to aggregate.
func Aggregate(scores []ScoredMetric) (int, bool) {
	var sum, weights float64
	for _, s := range scores {
		if !finite(s.Score) || !finite(s.Weight) || s.Weight <= 0 {
			continue
		}
		sum += s.Score * s.Weight
		weights += s.Weight
	}
	if weights == 0 {
		return 0, false
	}
	return int(math.Round(clamp(sum/weights, 0, 100))), true
}

// Classify maps a score to good, fair or poor.
func (e *Engine) Classify(score int) Status {
	switch {
	case score >= e.cfg.GoodThreshold:
		return StatusGood
	case score >= e.cfg.PoorThreshold:
		return StatusFair
	default:
		return StatusPoor
	}
}
