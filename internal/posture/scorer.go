package posture

import "math"

// Rule names one scoring rule; each contributes one ScoredMetric.
type Rule string

const (
	RuleShoulderSlope        Rule = "shoulderSlope"
	RuleVerticalSlouch       Rule = "verticalSlouch"
	RuleHeadCentering        Rule = "headCentering"
	RuleHeadTilt             Rule = "headTilt"
	RuleEarShoulderAlignment Rule = "earShoulderAlignment"

	RuleNeckInclination   Rule = "neckInclination"
	RuleTorsoInclination  Rule = "torsoInclination"
	RuleHeadForwardOffset Rule = "headForwardOffset"
)

// ScoredMetric is the 0-100 sub-score one rule gave the current bag.
type ScoredMetric struct {
	Rule      Rule    `json:"metric"`
	Score     float64 `json:"score"`
	Weight    float64 `json:"weight"`
	Deviation float64 `json:"deviation"`
}

// pair returns the current and baseline values of m when both are present
// and finite.
func pair(current Bag, baseline *Baseline, m Metric) (float64, float64, bool) {
	cur, ok := current.Get(m)
	if !ok || !finite(cur) {
		return 0, 0, false
	}
	base, ok := baseline.Mean(m)
	if !ok || !finite(base) {
		return 0, 0, false
	}
	return cur, base, true
}

func (r Ramp) score(deviation float64) float64 {
	return clamp(100-(deviation/r.Span)*100, 0, 100)
}

func (r RatioRamp) score(ratio float64) float64 {
	return 100 * clamp((ratio-r.Floor)/(1-r.Floor), 0, 1)
}

// ScoreFront compares a front bag against the front baseline.
func (e *Engine) ScoreFront(current Bag, baseline *Baseline) []ScoredMetric {
	if current == nil || baseline == nil {
		return nil
	}
	c := e.cfg
	var scores []ScoredMetric

	absRule := func(rule Rule, m Metric, ramp Ramp) {
		cur, base, ok := pair(current, baseline, m)
		if !ok {
			return
		}
		dev := math.Abs(cur - base)
		scores = append(scores, ScoredMetric{Rule: rule, Score: ramp.score(dev), Weight: ramp.Weight, Deviation: dev})
	}

	absRule(RuleShoulderSlope, MetricShoulderSlope, c.ShoulderSlope)

	if cur, base, ok := pair(current, baseline, MetricNoseShoulderVertical); ok && base != 0 {
		ratio := cur / base
		scores = append(scores, ScoredMetric{
			Rule:      RuleVerticalSlouch,
			Score:     c.VerticalSlouch.score(ratio),
			Weight:    c.VerticalSlouch.Weight,
			Deviation: 1 - ratio,
		})
	}

	absRule(RuleHeadCentering, MetricNoseHorizontalOffset, c.HeadCentering)
	absRule(RuleHeadTilt, MetricHeadTilt, c.HeadTilt)

	var ratios []float64
	for _, m := range []Metric{MetricLeftEarShoulderVertical, MetricRightEarShoulderVertical} {
		if cur, base, ok := pair(current, baseline, m); ok && base != 0 {
			ratios = append(ratios, cur/base)
		}
	}
	if len(ratios) > 0 {
		var sum float64
		for _, r := range ratios {
			sum += r
		}
		avg := sum / float64(len(ratios))
		scores = append(scores, ScoredMetric{
			Rule:      RuleEarShoulderAlignment,
			Score:     c.EarShoulderAlignment.score(avg),
			Weight:    c.EarShoulderAlignment.Weight,
			Deviation: 1 - avg,
		})
	}

	return scores
}

// ScoreSide compares a side bag against the side baseline. Neck inclination
// and head forward offset only penalize increases.
func (e *Engine) ScoreSide(current Bag, baseline *Baseline) []ScoredMetric {
	if current == nil || baseline == nil {
		return nil
	}
	c := e.cfg
	var scores []ScoredMetric

	if cur, base, ok := pair(current, baseline, MetricNeckInclination); ok {
		dev := cur - base
		scores = append(scores, ScoredMetric{
			Rule:      RuleNeckInclination,
			Score:     c.NeckInclination.score(math.Max(0, dev)),
			Weight:    c.NeckInclination.Weight,
			Deviation: dev,
		})
	}

	if cur, base, ok := pair(current, baseline, MetricTorsoInclination); ok {
		dev := cur - base
		scores = append(scores, ScoredMetric{
			Rule:      RuleTorsoInclination,
			Score:     c.TorsoInclination.score(math.Abs(dev)),
			Weight:    c.TorsoInclination.Weight,
			Deviation: dev,
		})
	}

	if cur, base, ok := pair(current, baseline, MetricHeadForwardOffset); ok {
		dev := cur - base
		scores = append(scores, ScoredMetric{
			Rule:      RuleHeadForwardOffset,
			Score:     c.HeadForwardOffset.score(math.Max(0, dev)),
			Weight:    c.HeadForwardOffset.Weight,
			Deviation: dev,
		})
	}

	return scores
}
