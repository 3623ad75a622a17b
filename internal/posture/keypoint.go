package posture

import "github.com/ayusman/shrimpwatch/internal/detector"

// KeypointAt returns the keypoint at index if it was detected with at least
// minConfidence. Anything else, including an index past the end, is absent.
func KeypointAt(kps []detector.Keypoint, index int, minConfidence float64) (detector.Keypoint, bool) {
	if index < 0 || index >= len(kps) {
		return detector.Keypoint{}, false
	}
	kp := kps[index]
	if !(kp.Score >= minConfidence) {
		return detector.Keypoint{}, false
	}
	return kp, true
}

// visible is the engine-bound form of KeypointAt.
func (e *Engine) visible(kps []detector.Keypoint, index int) (Point, bool) {
	kp, ok := KeypointAt(kps, index, e.cfg.MinConfidence)
	if !ok {
		return Point{}, false
	}
	return Point{X: kp.X, Y: kp.Y}, true
}

// firstVisible returns the first of indices that is visible.
func (e *Engine) firstVisible(kps []detector.Keypoint, indices ...int) (Point, bool) {
	for _, i := range indices {
		if p, ok := e.visible(kps, i); ok {
			return p, true
		}
	}
	return Point{}, false
}
