package detector

import "gocv.io/x/gocv"

// Detector defines the interface for single-person pose estimation.
type Detector interface {
	// Detect analyzes a video frame and returns the most prominent pose.
	// Returns nil if no person is visible in the frame.
	Detect(frame *gocv.Mat) (*Pose, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// ScriptPath overrides the location of the MoveNet service script.
	ScriptPath string

	// MinPoseScore is the minimum overall pose score (0.0-1.0) for a
	// detection to be reported at all.
	MinPoseScore float64

	// IdleTimeoutSec is how long the inference process may sit unused
	// before it is shut down.
	IdleTimeoutSec int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinPoseScore:   0.2,
		IdleTimeoutSec: 30,
	}
}
