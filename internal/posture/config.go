package posture

import "fmt"

// Ramp is a linear scoring rule: a deviation of Span or more scores 0.
type Ramp struct {
	Span   float64 `json:"span"`
	Weight float64 `json:"weight"`
}

// RatioRamp scores a current/baseline ratio: Floor or below scores 0, a
// ratio of 1 or above scores 100.
type RatioRamp struct {
	Floor  float64 `json:"floor"`
	Weight float64 `json:"weight"`
}

// Config holds every tunable constant of the engine.
type Config struct {
	MinConfidence       float64 `json:"minConfidence"`
	MinShoulderDistance float64 `json:"minShoulderDistance"`
	MinTorsoLength      float64 `json:"minTorsoLength"`

	GoodThreshold int `json:"goodThreshold"`
	PoorThreshold int `json:"poorThreshold"`

	ShoulderSlope        Ramp      `json:"shoulderSlope"`
	VerticalSlouch       RatioRamp `json:"verticalSlouch"`
	HeadCentering        Ramp      `json:"headCentering"`
	HeadTilt             Ramp      `json:"headTilt"`
	EarShoulderAlignment RatioRamp `json:"earShoulderAlignment"`

	NeckInclination   Ramp `json:"neckInclination"`
	TorsoInclination  Ramp `json:"torsoInclination"`
	HeadForwardOffset Ramp `json:"headForwardOffset"`
}

// DefaultConfig returns the stock engine configuration.
func DefaultConfig() Config {
	return Config{
		MinConfidence:       0.3,
		MinShoulderDistance: 1,
		MinTorsoLength:      1,

		GoodThreshold: 75,
		PoorThreshold: 40,

		ShoulderSlope:        Ramp{Span: 15, Weight: 1.0},
		VerticalSlouch:       RatioRamp{Floor: 0.7, Weight: 2.5},
		HeadCentering:        Ramp{Span: 0.3, Weight: 0.8},
		HeadTilt:             Ramp{Span: 20, Weight: 0.8},
		EarShoulderAlignment: RatioRamp{Floor: 0.7, Weight: 1.5},

		NeckInclination:   Ramp{Span: 20, Weight: 3.0},
		TorsoInclination:  Ramp{Span: 25, Weight: 2.0},
		HeadForwardOffset: Ramp{Span: 0.25, Weight: 2.5},
	}
}

// Validate reports the first invalid field, if any.
func (c Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence %v out of range [0,1]", c.MinConfidence)
	}
	if c.PoorThreshold > c.GoodThreshold {
		return fmt.Errorf("poor threshold %d above good threshold %d", c.PoorThreshold, c.GoodThreshold)
	}

	ramps := map[Rule]Ramp{
		RuleShoulderSlope:     c.ShoulderSlope,
		RuleHeadCentering:     c.HeadCentering,
		RuleHeadTilt:          c.HeadTilt,
		RuleNeckInclination:   c.NeckInclination,
		RuleTorsoInclination:  c.TorsoInclination,
		RuleHeadForwardOffset: c.HeadForwardOffset,
	}
	for rule, r := range ramps {
		if r.Span <= 0 || r.Weight <= 0 {
			return fmt.Errorf("%s: span and weight must be positive", rule)
		}
	}

	ratios := map[Rule]RatioRamp{
		RuleVerticalSlouch:       c.VerticalSlouch,
		RuleEarShoulderAlignment: c.EarShoulderAlignment,
	}
	for rule, r := range ratios {
		if r.Floor < 0 || r.Floor >= 1 {
			return fmt.Errorf("%s: floor must be in [0,1)", rule)
		}
		if r.Weight <= 0 {
			return fmt.Errorf("%s: weight must be positive", rule)
		}
	}
	return nil
}
