package geom

import "github.com/piwi3910/pcbcam/internal/model"

// SqDistToSegment returns the squared distance from p to the segment a-b.
func SqDistToSegment(p, a, b model.Point2D) float64 {
	x, y := a.X, a.Y
	dx := b.X - x
	dy := b.Y - y
	if dx != 0 || dy != 0 {
		t := ((p.X-x)*dx + (p.Y-y)*dy) / (dx*dx + dy*dy)
		if t > 1 {
			x = b.X
			y = b.Y
		} else if t > 0 {
			x += dx * t
			y += dy * t
		}
	}
	dx = p.X - x
	dy = p.Y - y
	return dx*dx + dy*dy
}

type dpRange struct {
	first, last int
}

// SimplifyDouglasPeucker reduces a polyline with the Douglas-Peucker
// algorithm against a squared tolerance. The implementation is iterative
// with an explicit stack so deep recursions on dense outlines cannot blow
// the call stack. Vertex tags are preserved on surviving points.
func SimplifyDouglasPeucker(points []model.Point, sqTolerance float64) []model.Point {
	n := len(points)
	if n <= 2 {
		return points
	}

	keep := make([]bool, n)
	keep[0] = true
	keep[n-1] = true

	stack := []dpRange{{0, n - 1}}
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		maxSqDist := 0.0
		index := -1
		a := points[r.first].XY()
		b := points[r.last].XY()
		for i := r.first + 1; i < r.last; i++ {
			d := SqDistToSegment(points[i].XY(), a, b)
			if d > maxSqDist {
				maxSqDist = d
				index = i
			}
		}
		if index > 0 && maxSqDist > sqTolerance {
			keep[index] = true
			stack = append(stack, dpRange{r.first, index}, dpRange{index, r.last})
		}
	}

	out := make([]model.Point, 0, n)
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out
}
