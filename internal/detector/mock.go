package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	pose  *Pose
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPose sets the pose that will be returned by Detect.
func (m *MockDetector) SetPose(pose *Pose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pose = pose
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured pose or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Pose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.pose == nil {
		return nil, nil
	}
	cp := *m.pose
	cp.Keypoints = append([]Keypoint(nil), m.pose.Keypoints...)
	return &cp, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

const (
	visible = 0.9
	hidden  = 0.1
)

// presetPose builds a 640x480 pose where the listed keypoints are confidently
// visible and all others sit below any sane confidence threshold.
func presetPose(points map[int][2]float64) *Pose {
	kps := make([]Keypoint, NumKeypoints)
	for i := range kps {
		kps[i] = Keypoint{Name: keypointNames[i], Score: hidden}
		if p, ok := points[i]; ok {
			kps[i].X = p[0]
			kps[i].Y = p[1]
			kps[i].Score = visible
		}
	}
	return &Pose{Keypoints: kps, Width: 640, Height: 480}
}

// UprightFrontPose returns a front-camera pose of someone sitting straight:
// level shoulders 200px apart, head centered and well above the shoulder line.
func UprightFrontPose() *Pose {
	return presetPose(map[int][2]float64{
		Nose:          {320, 140},
		LeftEye:       {300, 125},
		RightEye:      {340, 125},
		LeftEar:       {280, 135},
		RightEar:      {360, 135},
		LeftShoulder:  {220, 260},
		RightShoulder: {420, 260},
		LeftHip:       {250, 460},
		RightHip:      {390, 460},
	})
}

// SlouchedFrontPose returns the same person with the head sunk toward the
// shoulders, as seen from the front.
func SlouchedFrontPose() *Pose {
	return presetPose(map[int][2]float64{
		Nose:          {320, 200},
		LeftEye:       {300, 185},
		RightEye:      {340, 185},
		LeftEar:       {280, 195},
		RightEar:      {360, 195},
		LeftShoulder:  {220, 260},
		RightShoulder: {420, 260},
		LeftHip:       {250, 460},
		RightHip:      {390, 460},
	})
}

// UprightSidePose returns a side-camera pose (left side toward the camera,
// facing right) with the ear nearly stacked over the shoulder.
func UprightSidePose() *Pose {
	return presetPose(map[int][2]float64{
		Nose:         {350, 150},
		LeftEar:      {300, 150},
		LeftShoulder: {310, 260},
		LeftHip:      {300, 450},
	})
}

// ForwardHeadSidePose returns the side view of a person whose head has
// drifted well forward of the shoulder.
func ForwardHeadSidePose() *Pose {
	return presetPose(map[int][2]float64{
		Nose:         {410, 175},
		LeftEar:      {360, 170},
		LeftShoulder: {310, 260},
		LeftHip:      {300, 450},
	})
}
