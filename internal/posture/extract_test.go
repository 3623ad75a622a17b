package posture

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/shrimpwatch/internal/detector"
)

func newTestEngine() *Engine {
	return NewEngine(DefaultConfig())
}

func TestExtractFront(t *testing.T) {
	e := newTestEngine()

	t.Run("upright preset", func(t *testing.T) {
		bag := e.ExtractFront(detector.UprightFrontPose())
		require.NotNil(t, bag)

		assert.InDelta(t, 0.0, bag[MetricShoulderSlope], 1e-9)
		assert.InDelta(t, 200.0, bag[MetricShoulderWidth], 1e-9)
		assert.InDelta(t, 0.6, bag[MetricNoseShoulderVertical], 1e-9)
		assert.InDelta(t, 0.0, bag[MetricNoseHorizontalOffset], 1e-9)
		assert.InDelta(t, 0.0, bag[MetricHeadTilt], 1e-9)
		assert.InDelta(t, 0.625, bag[MetricLeftEarShoulderVertical], 1e-9)
		assert.InDelta(t, 0.625, bag[MetricRightEarShoulderVertical], 1e-9)
		assert.InDelta(t, 0.0, bag[MetricTorsoInclination], 1e-9)
	})

	t.Run("slouched preset lowers the head ratio", func(t *testing.T) {
		bag := e.ExtractFront(detector.SlouchedFrontPose())
		require.NotNil(t, bag)

		assert.InDelta(t, 0.3, bag[MetricNoseShoulderVertical], 1e-9)
		assert.InDelta(t, 0.325, bag[MetricLeftEarShoulderVertical], 1e-9)
	})

	t.Run("missing shoulder fails extraction", func(t *testing.T) {
		pose := detector.UprightFrontPose()
		pose.Keypoints[detector.RightShoulder].Score = 0.29

		assert.Nil(t, e.ExtractFront(pose))
	})

	t.Run("coincident shoulders fail extraction", func(t *testing.T) {
		pose := detector.UprightFrontPose()
		pose.Keypoints[detector.LeftShoulder].X = 320
		pose.Keypoints[detector.RightShoulder].X = 320

		assert.Nil(t, e.ExtractFront(pose))
	})

	t.Run("near-coincident shoulders fail extraction", func(t *testing.T) {
		pose := detector.UprightFrontPose()
		pose.Keypoints[detector.LeftShoulder].X = 320
		pose.Keypoints[detector.RightShoulder].X = 320.5

		assert.Nil(t, e.ExtractFront(pose))
	})

	t.Run("hidden keypoints drop only their metrics", func(t *testing.T) {
		pose := detector.UprightFrontPose()
		pose.Keypoints[detector.Nose].Score = 0
		pose.Keypoints[detector.LeftEye].Score = 0
		pose.Keypoints[detector.RightEar].Score = 0
		pose.Keypoints[detector.LeftHip].Score = 0

		bag := e.ExtractFront(pose)
		require.NotNil(t, bag)

		assert.Equal(t, []Metric{
			MetricLeftEarShoulderVertical,
			MetricShoulderSlope,
			MetricShoulderWidth,
		}, bag.Metrics())
	})

	t.Run("tilted shoulders", func(t *testing.T) {
		pose := detector.UprightFrontPose()
		pose.Keypoints[detector.RightShoulder].Y = 260 + 200*math.Tan(10*math.Pi/180)

		bag := e.ExtractFront(pose)
		require.NotNil(t, bag)
		assert.InDelta(t, 10.0, bag[MetricShoulderSlope], 1e-9)
	})

	t.Run("sparse named keypoints", func(t *testing.T) {
		pose := &detector.Pose{
			Keypoints: []detector.Keypoint{
				{Name: "right_shoulder", X: 420, Y: 260, Score: 0.8},
				{Name: "nose", X: 320, Y: 140, Score: 0.8},
				{Name: "left_shoulder", X: 220, Y: 260, Score: 0.8},
			},
			Width:  640,
			Height: 480,
		}

		bag := e.ExtractFront(pose)
		require.NotNil(t, bag)
		assert.InDelta(t, 0.6, bag[MetricNoseShoulderVertical], 1e-9)
		_, ok := bag.Get(MetricHeadTilt)
		assert.False(t, ok)
	})

	t.Run("nil pose", func(t *testing.T) {
		assert.Nil(t, e.ExtractFront(nil))
	})

	t.Run("confidence threshold is configurable", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MinConfidence = 0.95
		strict := NewEngine(cfg)

		assert.Nil(t, strict.ExtractFront(detector.UprightFrontPose()))
	})
}

func TestExtractSide(t *testing.T) {
	e := newTestEngine()

	t.Run("upright preset", func(t *testing.T) {
		bag := e.ExtractSide(detector.UprightSidePose())
		require.NotNil(t, bag)

		torso := math.Hypot(10, 190)
		assert.InDelta(t, math.Atan2(10, 110)*180/math.Pi, bag[MetricNeckInclination], 1e-9)
		assert.InDelta(t, math.Atan2(10, 190)*180/math.Pi, bag[MetricTorsoInclination], 1e-9)
		assert.InDelta(t, 40/torso, bag[MetricHeadForwardOffset], 1e-9)
		assert.Contains(t, bag, MetricEarShoulderHipAngle)
	})

	t.Run("forward head preset", func(t *testing.T) {
		bag := e.ExtractSide(detector.ForwardHeadSidePose())
		require.NotNil(t, bag)

		assert.InDelta(t, 29.0546, bag[MetricNeckInclination], 1e-3)
		assert.InDelta(t, 0.5256, bag[MetricHeadForwardOffset], 1e-3)
	})

	t.Run("falls back to right side", func(t *testing.T) {
		pose := detector.UprightSidePose()
		kps := pose.Keypoints
		kps[detector.RightEar] = detector.Keypoint{X: 300, Y: 150, Score: 0.9}
		kps[detector.RightShoulder] = detector.Keypoint{X: 310, Y: 260, Score: 0.9}
		kps[detector.RightHip] = detector.Keypoint{X: 300, Y: 450, Score: 0.9}
		kps[detector.LeftEar].Score = 0
		kps[detector.LeftShoulder].Score = 0
		kps[detector.LeftHip].Score = 0

		got := e.ExtractSide(pose)
		want := e.ExtractSide(detector.UprightSidePose())
		assert.Equal(t, want, got)
	})

	t.Run("no shoulder fails extraction", func(t *testing.T) {
		pose := detector.UprightSidePose()
		pose.Keypoints[detector.LeftShoulder].Score = 0

		assert.Nil(t, e.ExtractSide(pose))
	})

	t.Run("shoulder alone yields an empty bag", func(t *testing.T) {
		pose := detector.UprightSidePose()
		pose.Keypoints[detector.Nose].Score = 0
		pose.Keypoints[detector.LeftEar].Score = 0
		pose.Keypoints[detector.LeftHip].Score = 0

		bag := e.ExtractSide(pose)
		require.NotNil(t, bag)
		assert.Empty(t, bag)
	})

	t.Run("short torso skips head forward offset", func(t *testing.T) {
		pose := detector.UprightSidePose()
		pose.Keypoints[detector.LeftHip].X = 310
		pose.Keypoints[detector.LeftHip].Y = 260.5

		bag := e.ExtractSide(pose)
		require.NotNil(t, bag)
		_, ok := bag.Get(MetricHeadForwardOffset)
		assert.False(t, ok)
	})
}

func TestExtractByRole(t *testing.T) {
	e := newTestEngine()

	assert.Equal(t, e.ExtractFront(detector.UprightFrontPose()), e.Extract(RoleFront, detector.UprightFrontPose()))
	assert.Equal(t, e.ExtractSide(detector.UprightSidePose()), e.Extract(RoleSide, detector.UprightSidePose()))
	assert.Nil(t, e.Extract(Role("top"), detector.UprightSidePose()))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("side")
	require.NoError(t, err)
	assert.Equal(t, RoleSide, r)

	_, err = ParseRole("back")
	assert.Error(t, err)
}
