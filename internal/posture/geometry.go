package posture

import "math"

// Point is a 2D image coordinate in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// SignedAngleDegrees returns the angle at vertex b between the rays b->a and
// b->c, in degrees within (-180, 180].
func SignedAngleDegrees(a, b, c Point) float64 {
	bax, bay := a.X-b.X, a.Y-b.Y
	bcx, bcy := c.X-b.X, c.Y-b.Y
	dot := bax*bcx + bay*bcy
	cross := bax*bcy - bay*bcx
	deg := degrees(math.Atan2(cross, dot))
	if deg <= -180 {
		deg += 360
	}
	return deg
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// clamp limits v to [lo, hi]; NaN maps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
