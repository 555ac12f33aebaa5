package offset

import (
	"math"

	"github.com/piwi3910/pcbcam/internal/curve"
	"github.com/piwi3910/pcbcam/internal/geom"
	"github.com/piwi3910/pcbcam/internal/model"
)

// collinearDot is the dot-product threshold above which a corner is treated
// as a straight continuation.
const collinearDot = 0.995

// offsetSeg is one edge displaced along its offset normal.
type offsetSeg struct {
	start, end model.Point2D
	nx, ny     float64 // unit displacement normal
	ex, ey     float64 // unit edge direction
}

// offsetPolyline offsets a closed ring of plain vertices by signed distance
// d. Corners are mitered (internal offsets, reflex and collinear corners)
// or rounded (external offsets at convex corners); miters longer than
// miterLimit·|d| degrade to bevels. Returns nil when the ring collapses.
func (o *Offsetter) offsetPolyline(primitiveID string, pts []model.Point, d float64) []model.Point {
	eps := o.cfg.Precision
	ring := trimClosingVertex(pts, eps)
	if len(ring) < 3 {
		return nil
	}

	dist := math.Abs(d)
	if dist < eps {
		out := make([]model.Point, len(ring))
		copy(out, ring)
		return out
	}
	internal := d < 0

	// Internal offsets on dense outlines shed sliver vertices first; they
	// only produce self-intersections once the ring shrinks.
	if internal && len(ring) > 10 && o.cfg.SimplifyTolerance > 0 {
		ring = geom.SimplifyDouglasPeucker(ring, o.cfg.SimplifyTolerance*o.cfg.SimplifyTolerance)
		if len(ring) < 3 {
			return nil
		}
	}

	ccw := !geom.IsClockwise(ring)

	segs := make([]offsetSeg, 0, len(ring))
	corners := make([]model.Point2D, 0, len(ring)) // original corner at each seg's end
	n := len(ring)
	for i := 0; i < n; i++ {
		a := ring[i].XY()
		b := ring[(i+1)%n].XY()
		ex, ey := geom.Normalize(b.X-a.X, b.Y-a.Y)
		if ex == 0 && ey == 0 {
			continue
		}
		// Outward normal of the edge in the ring's winding sense.
		nx, ny := ey, -ex
		if !ccw {
			nx, ny = -ey, ex
		}
		if internal {
			nx, ny = -nx, -ny
		}
		segs = append(segs, offsetSeg{
			start: model.Point2D{X: a.X + nx*dist, Y: a.Y + ny*dist},
			end:   model.Point2D{X: b.X + nx*dist, Y: b.Y + ny*dist},
			nx:    nx, ny: ny, ex: ex, ey: ey,
		})
		corners = append(corners, b)
	}
	if len(segs) < 3 {
		return nil
	}

	var out []model.Point
	m := len(segs)
	for j := 0; j < m; j++ {
		s1 := segs[j]
		s2 := segs[(j+1)%m]
		c := corners[j]

		cross := s1.ex*s2.ey - s1.ey*s2.ex
		dot := s1.ex*s2.ex + s1.ey*s2.ey
		collinear := dot >= collinearDot
		convex := (cross > 0) == ccw && !collinear

		if internal || !convex {
			out = append(out, o.miterJoint(s1, s2, c, dist)...)
			continue
		}
		out = append(out, o.roundJoint(primitiveID, s1, s2, c, dist, d)...)
	}

	out = trimClosingVertex(out, eps)
	if len(out) < 3 {
		return nil
	}
	for _, p := range out {
		if !geom.IsFinite(p.X) || !geom.IsFinite(p.Y) {
			return nil
		}
	}
	return out
}

// miterJoint intersects the two offset segment lines; an over-long miter
// bevels into both segment endpoints, parallel lines share one vertex.
func (o *Offsetter) miterJoint(s1, s2 offsetSeg, c model.Point2D, dist float64) []model.Point {
	x, ok := geom.LineIntersection(s1.start, s1.end, s2.start, s2.end)
	if !ok {
		return []model.Point{{X: s1.end.X, Y: s1.end.Y}}
	}
	limit := o.cfg.MiterLimit * dist
	if geom.Dist(x, c) > limit {
		return []model.Point{
			{X: s1.end.X, Y: s1.end.Y},
			{X: s2.start.X, Y: s2.start.Y},
		}
	}
	return []model.Point{{X: x.X, Y: x.Y}}
}

// roundJoint tessellates a circular arc around the original corner from the
// first segment's offset normal to the second's, the short way, and
// registers the joint as an arc curve so it can be re-materialized later.
func (o *Offsetter) roundJoint(primitiveID string, s1, s2 offsetSeg, c model.Point2D, dist, d float64) []model.Point {
	a0 := math.Atan2(s1.ny, s1.nx)
	a1 := math.Atan2(s2.ny, s2.nx)
	diff := a1 - a0
	for diff > math.Pi {
		diff -= 2 * math.Pi
	}
	for diff < -math.Pi {
		diff += 2 * math.Pi
	}
	if math.Abs(diff) < 1e-9 {
		return []model.Point{{X: s1.end.X, Y: s1.end.Y}}
	}

	full := geom.OptimalSegments(dist, curve.KindCircle, o.cfg)
	steps := int(math.Ceil(float64(full) * math.Abs(diff) / (2 * math.Pi)))
	if steps < o.cfg.MinRoundJointSegments {
		steps = o.cfg.MinRoundJointSegments
	}

	id := o.reg.RegisterFor(primitiveID, curve.Record{
		Kind:            curve.KindArc,
		Center:          c,
		Radius:          dist,
		StartAngle:      a0,
		EndAngle:        a0 + diff,
		Clockwise:       diff < 0,
		Source:          curve.SourceOffsetJoint,
		IsOffsetDerived: true,
		OffsetDistance:  d,
	})

	pts := make([]model.Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		angle := a0 + diff*t
		pts = append(pts, model.Point{
			X:             c.X + dist*math.Cos(angle),
			Y:             c.Y + dist*math.Sin(angle),
			CurveID:       id,
			SegmentIndex:  i,
			TotalSegments: steps,
			T:             t,
		})
	}
	return pts
}

// trimClosingVertex drops a trailing vertex that duplicates the first one.
func trimClosingVertex(pts []model.Point, eps float64) []model.Point {
	for len(pts) > 1 && geom.SqDist(pts[0].XY(), pts[len(pts)-1].XY()) < eps*eps {
		pts = pts[:len(pts)-1]
	}
	return pts
}
