// Package detector provides pose detection interfaces and the body keypoint model.
package detector

// Body keypoint indices following the MoveNet / COCO convention.
const (
	Nose          = 0
	LeftEye       = 1
	RightEye      = 2
	LeftEar       = 3
	RightEar      = 4
	LeftShoulder  = 5
	RightShoulder = 6
	LeftElbow     = 7
	RightElbow    = 8
	LeftWrist     = 9
	RightWrist    = 10
	LeftHip       = 11
	RightHip      = 12
	LeftKnee      = 13
	RightKnee     = 14
	LeftAnkle     = 15
	RightAnkle    = 16
	NumKeypoints  = 17
)

// keypointNames maps each index to the name MoveNet reports for it.
var keypointNames = [NumKeypoints]string{
	"nose",
	"left_eye",
	"right_eye",
	"left_ear",
	"right_ear",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
}

// Keypoint is a single 2D body landmark in pixel coordinates.
type Keypoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"` // detection confidence, 0..1
	Name  string  `json:"name,omitempty"`
}

// Pose is one capture from one camera: the keypoints plus the frame size
// they were measured in.
type Pose struct {
	Keypoints []Keypoint `json:"keypoints"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
}

// KeypointName returns the MoveNet name for index, or "" if out of range.
func KeypointName(index int) string {
	if index < 0 || index >= NumKeypoints {
		return ""
	}
	return keypointNames[index]
}

// KeypointIndex returns the index for a MoveNet keypoint name.
func KeypointIndex(name string) (int, bool) {
	for i, n := range keypointNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Ordered returns the keypoints laid out in enumeration order.
//
// Keypoints with a known name are placed at their named index. Unnamed
// keypoints are taken positionally and fill any slot no named keypoint
// claimed. Keypoints with an unknown name are dropped. Positions with no
// input have a zero score, so they read as absent.
func Ordered(kps []Keypoint) []Keypoint {
	out := make([]Keypoint, NumKeypoints)
	var claimed [NumKeypoints]bool

	for _, kp := range kps {
		if i, ok := KeypointIndex(kp.Name); ok {
			out[i] = kp
			claimed[i] = true
		}
	}

	for i := 0; i < NumKeypoints && i < len(kps); i++ {
		if kps[i].Name != "" || claimed[i] {
			continue
		}
		out[i] = kps[i]
		out[i].Name = keypointNames[i]
	}
	return out
}

// Score returns the mean keypoint confidence of the pose.
func (p *Pose) Score() float64 {
	if p == nil || len(p.Keypoints) == 0 {
		return 0
	}
	var sum float64
	for _, kp := range p.Keypoints {
		sum += kp.Score
	}
	return sum / float64(len(p.Keypoints))
}
