package posture

import (
	"math"

	"github.com/ayusman/shrimpwatch/internal/detector"
)

// Extract runs the extractor for role.
func (e *Engine) Extract(role Role, pose *detector.Pose) Bag {
	switch role {
	case RoleFront:
		return e.ExtractFront(pose)
	case RoleSide:
		return e.ExtractSide(pose)
	}
	return nil
}

// ExtractFront computes the front-view metrics of pose. It returns nil when
// either shoulder is not visible or the shoulders are too close together.
//
// Width and height of the pose are carried for future normalization; the
// current metrics are scale free ratios and angles.
func (e *Engine) ExtractFront(pose *detector.Pose) Bag {
	if pose == nil {
		return nil
	}
	kps := detector.Ordered(pose.Keypoints)

	lShoulder, okL := e.visible(kps, detector.LeftShoulder)
	rShoulder, okR := e.visible(kps, detector.RightShoulder)
	if !okL || !okR {
		return nil
	}

	shoulderMid := Midpoint(lShoulder, rShoulder)
	shoulderDist := Distance(lShoulder, rShoulder)
	if !(shoulderDist >= e.cfg.MinShoulderDistance) {
		return nil
	}

	bag := Bag{
		MetricShoulderSlope: degrees(math.Atan2(rShoulder.Y-lShoulder.Y, rShoulder.X-lShoulder.X)),
		MetricShoulderWidth: shoulderDist,
	}

	if nose, ok := e.visible(kps, detector.Nose); ok {
		bag[MetricNoseShoulderVertical] = (shoulderMid.Y - nose.Y) / shoulderDist
		bag[MetricNoseHorizontalOffset] = (nose.X - shoulderMid.X) / shoulderDist
	}

	lEye, okLE := e.visible(kps, detector.LeftEye)
	rEye, okRE := e.visible(kps, detector.RightEye)
	if okLE && okRE {
		bag[MetricHeadTilt] = degrees(math.Atan2(rEye.Y-lEye.Y, rEye.X-lEye.X))
	}

	if ear, ok := e.visible(kps, detector.LeftEar); ok {
		bag[MetricLeftEarShoulderVertical] = (lShoulder.Y - ear.Y) / shoulderDist
	}
	if ear, ok := e.visible(kps, detector.RightEar); ok {
		bag[MetricRightEarShoulderVertical] = (rShoulder.Y - ear.Y) / shoulderDist
	}

	lHip, okLH := e.visible(kps, detector.LeftHip)
	rHip, okRH := e.visible(kps, detector.RightHip)
	if okLH && okRH {
		hipMid := Midpoint(lHip, rHip)
		bag[MetricTorsoInclination] = degrees(math.Atan2(shoulderMid.X-hipMid.X, hipMid.Y-shoulderMid.Y))
	}

	return bag
}

// ExtractSide computes the side-view metrics of pose, preferring the left
// ear, shoulder and hip and falling back to the right. It returns nil when no
// shoulder is visible.
func (e *Engine) ExtractSide(pose *detector.Pose) Bag {
	if pose == nil {
		return nil
	}
	kps := detector.Ordered(pose.Keypoints)

	shoulder, ok := e.firstVisible(kps, detector.LeftShoulder, detector.RightShoulder)
	if !ok {
		return nil
	}
	ear, hasEar := e.firstVisible(kps, detector.LeftEar, detector.RightEar)
	hip, hasHip := e.firstVisible(kps, detector.LeftHip, detector.RightHip)
	nose, hasNose := e.visible(kps, detector.Nose)

	bag := Bag{}

	if hasEar {
		bag[MetricNeckInclination] = degrees(math.Atan2(math.Abs(ear.X-shoulder.X), shoulder.Y-ear.Y))
	}
	if hasHip {
		bag[MetricTorsoInclination] = degrees(math.Atan2(math.Abs(shoulder.X-hip.X), hip.Y-shoulder.Y))
	}
	if hasEar && hasHip {
		bag[MetricEarShoulderHipAngle] = SignedAngleDegrees(ear, shoulder, hip)
	}
	if hasNose && hasHip {
		if torso := Distance(shoulder, hip); torso > e.cfg.MinTorsoLength {
			bag[MetricHeadForwardOffset] = (nose.X - shoulder.X) / torso
		}
	}

	return bag
}
