// Package geom provides the low-level geometry routines shared by the
// offsetter, translator and reconstructor: winding tests, tessellation of
// analytic primitives into tagged polygons, polyline inflation and path
// simplification.
package geom

import (
	"math"

	"github.com/npillmayer/schuko/tracing"

	"github.com/piwi3910/pcbcam/internal/model"
)

// tracer writes to trace with key 'pcbcam.geom'
func tracer() tracing.Trace {
	return tracing.Select("pcbcam.geom")
}

// Winding returns the signed area of the ring (shoelace sum / 2).
// Positive means counter-clockwise in the engine's Y-up frame.
func Winding(points []model.Point) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return sum / 2
}

// IsClockwise reports whether the ring winds clockwise (Y-up frame).
func IsClockwise(points []model.Point) bool {
	return Winding(points) < 0
}

// BoundsOf returns the axis-aligned bounding box of the points.
func BoundsOf(points []model.Point) model.Rect {
	if len(points) == 0 {
		return model.Rect{}
	}
	r := model.Rect{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points[1:] {
		if p.X < r.MinX {
			r.MinX = p.X
		}
		if p.Y < r.MinY {
			r.MinY = p.Y
		}
		if p.X > r.MaxX {
			r.MaxX = p.X
		}
		if p.Y > r.MaxY {
			r.MaxY = p.Y
		}
	}
	return r
}

// Dist returns the Euclidean distance between two coordinates.
func Dist(a, b model.Point2D) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// SqDist returns the squared distance between two coordinates.
func SqDist(a, b model.Point2D) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return dx*dx + dy*dy
}

// Normalize returns the unit vector in the given direction, or (0,0) for a
// near-zero vector.
func Normalize(x, y float64) (float64, float64) {
	length := math.Sqrt(x*x + y*y)
	if length < 1e-9 {
		return 0, 0
	}
	return x / length, y / length
}

// LineIntersection intersects the infinite lines through (a1,a2) and
// (b1,b2). The second return value is false when the lines are parallel
// (|denominator| < 1e-9).
func LineIntersection(a1, a2, b1, b2 model.Point2D) (model.Point2D, bool) {
	d1x := a2.X - a1.X
	d1y := a2.Y - a1.Y
	d2x := b2.X - b1.X
	d2y := b2.Y - b1.Y
	den := d1x*d2y - d1y*d2x
	if math.Abs(den) < 1e-9 {
		return model.Point2D{}, false
	}
	t := ((b1.X-a1.X)*d2y - (b1.Y-a1.Y)*d2x) / den
	return model.Point2D{X: a1.X + t*d1x, Y: a1.Y + t*d1y}, true
}

// NormalizeAngle wraps an angle into [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// SweepAngle returns the signed sweep from start to end in the given
// rotation sense: negative for clockwise, positive for counter-clockwise,
// never zero for distinct angles.
func SweepAngle(startAngle, endAngle float64, clockwise bool) float64 {
	sweep := NormalizeAngle(endAngle - startAngle)
	if clockwise {
		if sweep > 0 {
			sweep -= 2 * math.Pi
		}
	} else if sweep == 0 {
		sweep = 2 * math.Pi
	}
	return sweep
}

// IsFinite reports whether v is a usable coordinate (neither NaN nor Inf).
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
