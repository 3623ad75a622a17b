package posture

import (
	"fmt"
	"sort"
)

// Metric names a scalar posture feature extracted from one view.
type Metric string

// Front-view metrics.
const (
	MetricShoulderSlope            Metric = "shoulderSlopeDeg"
	MetricNoseShoulderVertical     Metric = "noseShoulderVerticalRatio"
	MetricNoseHorizontalOffset     Metric = "noseHorizontalOffset"
	MetricHeadTilt                 Metric = "headTiltDeg"
	MetricLeftEarShoulderVertical  Metric = "leftEarShoulderVertical"
	MetricRightEarShoulderVertical Metric = "rightEarShoulderVertical"
	MetricShoulderWidth            Metric = "shoulderWidth"
)

// Metrics shared by both views or specific to the side view.
const (
	MetricTorsoInclination    Metric = "torsoInclinationDeg"
	MetricNeckInclination     Metric = "neckInclinationDeg"
	MetricEarShoulderHipAngle Metric = "earShoulderHipAngle"
	MetricHeadForwardOffset   Metric = "headForwardOffset"
)

// FrontMetrics lists every metric the front extractor can emit.
var FrontMetrics = []Metric{
	MetricShoulderSlope,
	MetricNoseShoulderVertical,
	MetricNoseHorizontalOffset,
	MetricHeadTilt,
	MetricLeftEarShoulderVertical,
	MetricRightEarShoulderVertical,
	MetricTorsoInclination,
	MetricShoulderWidth,
}

// SideMetrics lists every metric the side extractor can emit.
var SideMetrics = []Metric{
	MetricNeckInclination,
	MetricTorsoInclination,
	MetricEarShoulderHipAngle,
	MetricHeadForwardOffset,
}

// Bag holds the metrics extracted from one frame of one view. A metric whose
// keypoints were not visible is simply not present.
type Bag map[Metric]float64

// Get returns the value of m and whether it is present.
func (b Bag) Get(m Metric) (float64, bool) {
	v, ok := b[m]
	return v, ok
}

// Metrics returns the names present in the bag in sorted order.
func (b Bag) Metrics() []Metric {
	names := make([]Metric, 0, len(b))
	for m := range b {
		names = append(names, m)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Role identifies a camera position.
type Role string

const (
	RoleFront Role = "front"
	RoleSide  Role = "side"
)

// Roles lists the camera roles in evaluation order.
var Roles = []Role{RoleFront, RoleSide}

// ParseRole converts s to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleFront, RoleSide:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown camera role %q", s)
}
