package posture

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/shrimpwatch/internal/detector"
)

func baselineOf(means map[Metric]float64) *Baseline {
	return &Baseline{Means: means, StdDevs: map[Metric]float64{}, Samples: 1}
}

func byRule(scores []ScoredMetric) map[Rule]ScoredMetric {
	out := make(map[Rule]ScoredMetric, len(scores))
	for _, s := range scores {
		out[s.Rule] = s
	}
	return out
}

func TestScoreFront(t *testing.T) {
	e := newTestEngine()

	t.Run("identical bag scores 100 everywhere", func(t *testing.T) {
		bag := e.ExtractFront(detector.UprightFrontPose())
		scores := e.ScoreFront(bag, BuildBaseline([]Bag{bag}))

		require.Len(t, scores, 5)
		for _, s := range scores {
			assert.Equal(t, 100.0, s.Score, string(s.Rule))
		}
	})

	t.Run("slouch zeroes the ratio rules", func(t *testing.T) {
		base := BuildBaseline([]Bag{e.ExtractFront(detector.UprightFrontPose())})
		scores := byRule(e.ScoreFront(e.ExtractFront(detector.SlouchedFrontPose()), base))

		slouch := scores[RuleVerticalSlouch]
		assert.Equal(t, 0.0, slouch.Score)
		assert.Equal(t, 2.5, slouch.Weight)
		assert.InDelta(t, 0.5, slouch.Deviation, 1e-9)

		ears := scores[RuleEarShoulderAlignment]
		assert.Equal(t, 0.0, ears.Score)
		assert.InDelta(t, 0.48, ears.Deviation, 1e-9)

		assert.Equal(t, 100.0, scores[RuleShoulderSlope].Score)
		assert.Equal(t, 100.0, scores[RuleHeadCentering].Score)
		assert.Equal(t, 100.0, scores[RuleHeadTilt].Score)
	})

	t.Run("linear ramps", func(t *testing.T) {
		base := baselineOf(map[Metric]float64{
			MetricShoulderSlope:        0,
			MetricNoseHorizontalOffset: 0.1,
			MetricHeadTilt:             -5,
		})
		current := Bag{
			MetricShoulderSlope:        -7.5,
			MetricNoseHorizontalOffset: 0.5,
			MetricHeadTilt:             0,
		}

		scores := byRule(e.ScoreFront(current, base))

		assert.InDelta(t, 50.0, scores[RuleShoulderSlope].Score, 1e-9)
		assert.InDelta(t, 7.5, scores[RuleShoulderSlope].Deviation, 1e-9)
		assert.Equal(t, 0.0, scores[RuleHeadCentering].Score, "deviation past the span floors at 0")
		assert.InDelta(t, 75.0, scores[RuleHeadTilt].Score, 1e-9)
	})

	t.Run("ratio ramps cap at 100", func(t *testing.T) {
		base := baselineOf(map[Metric]float64{MetricNoseShoulderVertical: 0.5})

		scores := byRule(e.ScoreFront(Bag{MetricNoseShoulderVertical: 0.9}, base))
		assert.Equal(t, 100.0, scores[RuleVerticalSlouch].Score)

		scores = byRule(e.ScoreFront(Bag{MetricNoseShoulderVertical: 0.425}, base))
		assert.InDelta(t, 50.0, scores[RuleVerticalSlouch].Score, 1e-9)
	})

	t.Run("ear alignment averages available sides", func(t *testing.T) {
		base := baselineOf(map[Metric]float64{
			MetricLeftEarShoulderVertical:  0.5,
			MetricRightEarShoulderVertical: 0.5,
		})

		scores := byRule(e.ScoreFront(Bag{MetricRightEarShoulderVertical: 0.425}, base))
		require.Contains(t, scores, RuleEarShoulderAlignment)
		assert.InDelta(t, 50.0, scores[RuleEarShoulderAlignment].Score, 1e-9)

		scores = byRule(e.ScoreFront(Bag{
			MetricLeftEarShoulderVertical:  0.5,
			MetricRightEarShoulderVertical: 0.35,
		}, base))
		assert.InDelta(t, 50.0, scores[RuleEarShoulderAlignment].Score, 1e-9)
	})

	t.Run("ratio rules skip a zero baseline", func(t *testing.T) {
		base := baselineOf(map[Metric]float64{
			MetricNoseShoulderVertical:    0,
			MetricLeftEarShoulderVertical: 0,
		})

		scores := e.ScoreFront(Bag{MetricNoseShoulderVertical: 0.5, MetricLeftEarShoulderVertical: 0.5}, base)
		assert.Empty(t, scores)
	})

	t.Run("metrics missing on either side are skipped", func(t *testing.T) {
		base := baselineOf(map[Metric]float64{MetricShoulderSlope: 0})

		assert.Empty(t, e.ScoreFront(Bag{MetricHeadTilt: 3}, base))
		assert.Empty(t, e.ScoreFront(Bag{}, base))
		assert.Nil(t, e.ScoreFront(Bag{MetricShoulderSlope: 1}, nil))
	})

	t.Run("non-finite values never reach a sub-score", func(t *testing.T) {
		base := baselineOf(map[Metric]float64{MetricShoulderSlope: 0, MetricHeadTilt: math.Inf(1)})

		scores := e.ScoreFront(Bag{MetricShoulderSlope: math.NaN(), MetricHeadTilt: 0}, base)
		assert.Empty(t, scores)
	})
}

func TestScoreSide(t *testing.T) {
	e := newTestEngine()

	t.Run("neck inclination decrease is not penalized", func(t *testing.T) {
		base := baselineOf(map[Metric]float64{MetricNeckInclination: 20})

		scores := byRule(e.ScoreSide(Bag{MetricNeckInclination: 10}, base))

		neck := scores[RuleNeckInclination]
		assert.Equal(t, 100.0, neck.Score)
		assert.InDelta(t, -10.0, neck.Deviation, 1e-9)
		assert.Equal(t, 3.0, neck.Weight)
	})

	t.Run("neck inclination increase is penalized", func(t *testing.T) {
		base := baselineOf(map[Metric]float64{MetricNeckInclination: 10})

		scores := byRule(e.ScoreSide(Bag{MetricNeckInclination: 20}, base))
		assert.InDelta(t, 50.0, scores[RuleNeckInclination].Score, 1e-9)
	})

	t.Run("torso inclination penalizes both directions", func(t *testing.T) {
		base := baselineOf(map[Metric]float64{MetricTorsoInclination: 10})

		back := byRule(e.ScoreSide(Bag{MetricTorsoInclination: 0}, base))
		forward := byRule(e.ScoreSide(Bag{MetricTorsoInclination: 20}, base))

		assert.InDelta(t, 60.0, back[RuleTorsoInclination].Score, 1e-9)
		assert.InDelta(t, 60.0, forward[RuleTorsoInclination].Score, 1e-9)
		assert.InDelta(t, -10.0, back[RuleTorsoInclination].Deviation, 1e-9)
	})

	t.Run("head forward offset only penalizes increases", func(t *testing.T) {
		base := baselineOf(map[Metric]float64{MetricHeadForwardOffset: 0.2})

		behind := byRule(e.ScoreSide(Bag{MetricHeadForwardOffset: 0.0}, base))
		ahead := byRule(e.ScoreSide(Bag{MetricHeadForwardOffset: 0.325}, base))

		assert.Equal(t, 100.0, behind[RuleHeadForwardOffset].Score)
		assert.InDelta(t, 50.0, ahead[RuleHeadForwardOffset].Score, 1e-9)
	})

	t.Run("forward head preset", func(t *testing.T) {
		base := BuildBaseline([]Bag{e.ExtractSide(detector.UprightSidePose())})
		scores := byRule(e.ScoreSide(e.ExtractSide(detector.ForwardHeadSidePose()), base))

		require.Len(t, scores, 3)
		assert.Equal(t, 0.0, scores[RuleNeckInclination].Score)
		assert.Equal(t, 100.0, scores[RuleTorsoInclination].Score)
		assert.Equal(t, 0.0, scores[RuleHeadForwardOffset].Score)
	})

	t.Run("ear shoulder hip angle is not scored", func(t *testing.T) {
		base := baselineOf(map[Metric]float64{MetricEarShoulderHipAngle: 170})

		assert.Empty(t, e.ScoreSide(Bag{MetricEarShoulderHipAngle: 120}, base))
	})
}

func TestScoresStayInRange(t *testing.T) {
	e := newTestEngine()
	base := baselineOf(map[Metric]float64{
		MetricShoulderSlope:            1,
		MetricNoseShoulderVertical:     0.6,
		MetricNoseHorizontalOffset:     0,
		MetricHeadTilt:                 0,
		MetricLeftEarShoulderVertical:  0.6,
		MetricRightEarShoulderVertical: 0.6,
		MetricNeckInclination:          5,
		MetricTorsoInclination:         3,
		MetricHeadForwardOffset:        0.2,
	})

	for _, v := range []float64{-1e9, -3, -0.5, 0, 0.5, 3, 1e9} {
		current := Bag{}
		for m := range base.Means {
			current[m] = v
		}
		scores := append(e.ScoreFront(current, base), e.ScoreSide(current, base)...)
		for _, s := range scores {
			assert.GreaterOrEqual(t, s.Score, 0.0, "%s at %v", s.Rule, v)
			assert.LessOrEqual(t, s.Score, 100.0, "%s at %v", s.Rule, v)
		}
	}
}
