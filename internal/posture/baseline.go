package posture

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// Baseline is the per-metric reference captured during calibration for one
// camera role.
type Baseline struct {
	Means   map[Metric]float64 `json:"means"`
	StdDevs map[Metric]float64 `json:"stddevs"`
	Samples int                `json:"samples"`
}

// Mean returns the baseline mean for m.
func (b *Baseline) Mean(m Metric) (float64, bool) {
	if b == nil {
		return 0, false
	}
	v, ok := b.Means[m]
	return v, ok
}

// BuildBaseline aggregates calibration bags into a baseline. Nil bags are
// dropped; if none remain the result is nil. The metric set is taken from the
// first remaining bag. A metric gets a population standard deviation only
// when at least two bags supplied it.
func BuildBaseline(bags []Bag) *Baseline {
	valid := make([]Bag, 0, len(bags))
	for _, b := range bags {
		if b != nil {
			valid = append(valid, b)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	baseline := &Baseline{
		Means:   make(map[Metric]float64),
		StdDevs: make(map[Metric]float64),
		Samples: len(valid),
	}

	for _, m := range valid[0].Metrics() {
		values := make([]float64, 0, len(valid))
		for _, b := range valid {
			if v, ok := b[m]; ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		baseline.Means[m] = stat.Mean(values, nil)
		if len(values) >= 2 {
			baseline.StdDevs[m] = stat.PopStdDev(values, nil)
		}
	}

	return baseline
}

// Calibration bundles the baselines of every calibrated role.
type Calibration struct {
	Front        *Baseline `json:"front,omitempty"`
	Side         *Baseline `json:"side,omitempty"`
	CalibratedAt time.Time `json:"calibratedAt"`
	Version      int       `json:"version"`
}

// Baseline returns the baseline for role, or nil.
func (c *Calibration) Baseline(role Role) *Baseline {
	if c == nil {
		return nil
	}
	switch role {
	case RoleFront:
		return c.Front
	case RoleSide:
		return c.Side
	}
	return nil
}

// SetBaseline replaces the baseline for role.
func (c *Calibration) SetBaseline(role Role, b *Baseline) {
	switch role {
	case RoleFront:
		c.Front = b
	case RoleSide:
		c.Side = b
	}
}

// Empty reports whether no role has a baseline.
func (c *Calibration) Empty() bool {
	return c == nil || (c.Front == nil && c.Side == nil)
}
