package detector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdered(t *testing.T) {
	t.Run("positional input is padded to the full enumeration", func(t *testing.T) {
		kps := []Keypoint{
			{X: 1, Y: 2, Score: 0.9},
			{X: 3, Y: 4, Score: 0.8},
		}

		ordered := Ordered(kps)

		require.Len(t, ordered, NumKeypoints)
		assert.Equal(t, 1.0, ordered[Nose].X)
		assert.Equal(t, "nose", ordered[Nose].Name)
		assert.Equal(t, 3.0, ordered[LeftEye].X)
		assert.Equal(t, 0.0, ordered[RightAnkle].Score, "missing positions must read as absent")
	})

	t.Run("named input is placed by name", func(t *testing.T) {
		kps := []Keypoint{
			{Name: "right_hip", X: 10, Score: 0.7},
			{Name: "nose", X: 20, Score: 0.9},
			{Name: "tail", X: 99, Score: 1},
		}

		ordered := Ordered(kps)

		require.Len(t, ordered, NumKeypoints)
		assert.Equal(t, 10.0, ordered[RightHip].X)
		assert.Equal(t, 20.0, ordered[Nose].X)
		assert.Equal(t, 0.0, ordered[LeftEye].Score)
	})

	t.Run("mixed input keeps unnamed entries at their index", func(t *testing.T) {
		kps := make([]Keypoint, NumKeypoints)
		for i := range kps {
			kps[i] = Keypoint{Name: KeypointName(i), X: float64(i), Score: 0.9}
		}
		kps[RightShoulder].Name = ""
		kps[LeftHip] = Keypoint{X: 42, Score: 0.8}

		ordered := Ordered(kps)

		require.Len(t, ordered, NumKeypoints)
		assert.Equal(t, float64(RightShoulder), ordered[RightShoulder].X)
		assert.Equal(t, 0.9, ordered[RightShoulder].Score)
		assert.Equal(t, "right_shoulder", ordered[RightShoulder].Name)
		assert.Equal(t, 42.0, ordered[LeftHip].X)
		assert.Equal(t, float64(Nose), ordered[Nose].X)
	})

	t.Run("named entries win over unnamed ones in the same slot", func(t *testing.T) {
		kps := []Keypoint{
			{X: 1, Score: 0.5},
			{Name: "nose", X: 7, Score: 0.9},
		}

		ordered := Ordered(kps)

		assert.Equal(t, 7.0, ordered[Nose].X)
		assert.Equal(t, 0.0, ordered[LeftEye].Score, "named entry does not fill its position")
	})

	t.Run("extra positional entries are ignored", func(t *testing.T) {
		kps := make([]Keypoint, NumKeypoints+3)
		assert.Len(t, Ordered(kps), NumKeypoints)
	})
}

func TestKeypointNames(t *testing.T) {
	for i := 0; i < NumKeypoints; i++ {
		name := KeypointName(i)
		require.NotEmpty(t, name)

		idx, ok := KeypointIndex(name)
		require.True(t, ok)
		assert.Equal(t, i, idx)
	}

	assert.Equal(t, "", KeypointName(-1))
	assert.Equal(t, "", KeypointName(NumKeypoints))
	_, ok := KeypointIndex("elbow")
	assert.False(t, ok)
}

func TestPose_Score(t *testing.T) {
	var nilPose *Pose
	assert.Equal(t, 0.0, nilPose.Score())

	pose := &Pose{Keypoints: []Keypoint{{Score: 0.2}, {Score: 0.6}}}
	assert.InDelta(t, 0.4, pose.Score(), 1e-9)
}

func TestParseResponse(t *testing.T) {
	t.Run("keypoints are ordered and sized to the frame", func(t *testing.T) {
		line := []byte(`{"keypoints":[{"name":"left_shoulder","x":100,"y":200,"score":0.9}],"score":0.5}` + "\n")

		pose, err := parseResponse(line, 640, 480, 0.2)

		require.NoError(t, err)
		require.NotNil(t, pose)
		assert.Equal(t, 640, pose.Width)
		assert.Equal(t, 480, pose.Height)
		assert.Equal(t, 100.0, pose.Keypoints[LeftShoulder].X)
	})

	t.Run("no person yields nil pose", func(t *testing.T) {
		pose, err := parseResponse([]byte(`{"keypoints":[]}`), 640, 480, 0.2)
		require.NoError(t, err)
		assert.Nil(t, pose)
	})

	t.Run("low overall score yields nil pose", func(t *testing.T) {
		pose, err := parseResponse([]byte(`{"keypoints":[{"x":1,"y":1,"score":0.9}],"score":0.1}`), 640, 480, 0.2)
		require.NoError(t, err)
		assert.Nil(t, pose)
	})

	t.Run("service error is reported", func(t *testing.T) {
		_, err := parseResponse([]byte(`{"error":"model not loaded"}`), 640, 480, 0.2)
		assert.ErrorContains(t, err, "model not loaded")
	})

	t.Run("invalid JSON is an error", func(t *testing.T) {
		_, err := parseResponse([]byte(`{nope`), 640, 480, 0.2)
		assert.Error(t, err)
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns nil pose by default", func(t *testing.T) {
		mock := NewMockDetector()

		pose, err := mock.Detect(nil)

		assert.NoError(t, err)
		assert.Nil(t, pose)
		assert.Equal(t, 1, mock.Calls())
	})

	t.Run("returns a copy of the configured pose", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetPose(UprightFrontPose())

		pose, err := mock.Detect(nil)
		require.NoError(t, err)
		require.NotNil(t, pose)
		pose.Keypoints[Nose].X = -1

		again, _ := mock.Detect(nil)
		assert.Equal(t, 320.0, again.Keypoints[Nose].X)
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		pose, err := mock.Detect(nil)

		assert.Equal(t, expectedErr, err)
		assert.Nil(t, pose)
	})

	t.Run("Close returns nil", func(t *testing.T) {
		assert.NoError(t, NewMockDetector().Close())
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MoveNetDetector)(nil)
	})
}

func TestPresetPoses(t *testing.T) {
	t.Run("upright front has head above shoulders", func(t *testing.T) {
		p := UprightFrontPose()
		require.Len(t, p.Keypoints, NumKeypoints)
		assert.Less(t, p.Keypoints[Nose].Y, p.Keypoints[LeftShoulder].Y)
		assert.Equal(t, p.Keypoints[LeftShoulder].Y, p.Keypoints[RightShoulder].Y)
		assert.Less(t, p.Keypoints[LeftWrist].Score, 0.3)
	})

	t.Run("slouched front nose is lower than upright", func(t *testing.T) {
		assert.Greater(t, SlouchedFrontPose().Keypoints[Nose].Y, UprightFrontPose().Keypoints[Nose].Y)
	})

	t.Run("forward head side ear is ahead of the shoulder", func(t *testing.T) {
		p := ForwardHeadSidePose()
		assert.Greater(t, p.Keypoints[LeftEar].X, p.Keypoints[LeftShoulder].X)
		assert.Less(t, p.Keypoints[RightEar].Score, 0.3)
	})
}
