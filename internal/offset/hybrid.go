package offset

import (
	"math"

	"github.com/piwi3910/pcbcam/internal/curve"
	"github.com/piwi3910/pcbcam/internal/geom"
	"github.com/piwi3910/pcbcam/internal/model"
)

// offsetHybrid offsets a closed contour that mixes straight edges with
// arc-segment-tagged pairs. Arcs are offset analytically (new radius, same
// center and angles); straight edges are displaced along their normals.
// Adjacent duplicate vertices are welded afterwards and the arc indices
// remapped onto the welded ring.
func (o *Offsetter) offsetHybrid(p *model.Path, c *model.Contour, d float64) *model.Path {
	eps := o.cfg.Precision
	ring := trimClosingVertex(c.Points, eps)
	n := len(ring)
	if n < 3 {
		return nil
	}

	dist := math.Abs(d)
	external := d >= 0
	ccw := !geom.IsClockwise(ring)

	arcAt := make(map[int]*model.ArcSegment, len(c.ArcSegments))
	for i := range c.ArcSegments {
		arcAt[c.ArcSegments[i].StartIndex] = &c.ArcSegments[i]
	}

	var raw []model.Point
	var rawArcs []model.ArcSegment

	for i := 0; i < n; i++ {
		next := (i + 1) % n
		if seg := arcAt[i]; seg != nil && wrapsToNext(seg, i, next, len(c.Points)) {
			// An arc that bulges with the ring grows on external offsets; an
			// arc curving against it (a concave fillet) shrinks instead.
			arcWithRing := !seg.Clockwise == ccw
			normalDir := 1.0
			if !external {
				normalDir = -1.0
			}
			if !arcWithRing {
				normalDir = -normalDir
			}
			newR := seg.Radius + normalDir*dist
			if newR <= eps || !geom.IsFinite(newR) {
				// Collapsed arc: the segment drops and its neighbors weld.
				continue
			}
			id := o.reg.RegisterFor(p.ID, curve.Record{
				Kind:            curve.KindArc,
				Center:          seg.Center,
				Radius:          newR,
				StartAngle:      seg.StartAngle,
				EndAngle:        seg.EndAngle,
				Clockwise:       seg.Clockwise,
				Source:          curve.SourceHybridOffset,
				IsOffsetDerived: true,
				OffsetDistance:  d,
				SourceCurveID:   seg.CurveID,
			})
			startIdx := len(raw)
			raw = append(raw,
				model.Point{
					X:       seg.Center.X + newR*math.Cos(seg.StartAngle),
					Y:       seg.Center.Y + newR*math.Sin(seg.StartAngle),
					CurveID: id, SegmentIndex: 0, TotalSegments: 1, T: 0,
				},
				model.Point{
					X:       seg.Center.X + newR*math.Cos(seg.EndAngle),
					Y:       seg.Center.Y + newR*math.Sin(seg.EndAngle),
					CurveID: id, SegmentIndex: 1, TotalSegments: 1, T: 1,
				},
			)
			rawArcs = append(rawArcs, model.ArcSegment{
				StartIndex: startIdx,
				EndIndex:   startIdx + 1,
				Center:     seg.Center,
				Radius:     newR,
				StartAngle: seg.StartAngle,
				EndAngle:   seg.EndAngle,
				SweepAngle: seg.SweepAngle,
				Clockwise:  seg.Clockwise,
				CurveID:    id,
			})
			continue
		}

		// Straight edge: displace both endpoints along the edge normal.
		a := ring[i].XY()
		b := ring[next].XY()
		ex, ey := geom.Normalize(b.X-a.X, b.Y-a.Y)
		if ex == 0 && ey == 0 {
			continue
		}
		nx, ny := ey, -ex
		if !ccw {
			nx, ny = -ey, ex
		}
		if !external {
			nx, ny = -nx, -ny
		}
		raw = append(raw,
			model.Point{X: a.X + nx*dist, Y: a.Y + ny*dist},
			model.Point{X: b.X + nx*dist, Y: b.Y + ny*dist},
		)
	}

	points, arcs := weld(raw, rawArcs, eps)
	if len(points) < 3 {
		return nil
	}
	return model.NewPath([]model.Contour{{
		Points:       points,
		IsHole:       c.IsHole,
		NestingLevel: c.NestingLevel,
		ArcSegments:  arcs,
		CurveIDs:     collectCurveIDs(arcs),
	}}, true)
}

// wrapsToNext reports whether the arc segment spans exactly the pair
// (i, next) in the sparse hybrid representation.
func wrapsToNext(seg *model.ArcSegment, i, next, total int) bool {
	if seg.EndIndex == next {
		return true
	}
	// The closing pair may be stored against the original (unwrapped) ring.
	return i == total-1 && seg.EndIndex == 0 && next == 0
}

// weld merges adjacent duplicate vertices, remaps arc-segment indices onto
// the welded ring, drops arcs whose endpoints coincide, and removes a
// closing vertex that duplicates the first (repointing dependent arcs to
// index 0). When two vertices merge, a curve tag on either survives.
func weld(raw []model.Point, rawArcs []model.ArcSegment, eps float64) ([]model.Point, []model.ArcSegment) {
	if len(raw) == 0 {
		return nil, nil
	}
	sqEps := eps * eps

	indexMap := make([]int, len(raw))
	var points []model.Point
	for i, p := range raw {
		if len(points) > 0 {
			last := &points[len(points)-1]
			if geom.SqDist(last.XY(), p.XY()) < sqEps {
				indexMap[i] = len(points) - 1
				// Merge curve tags across the weld, preferring any tag over
				// an untagged vertex.
				if last.CurveID == 0 && p.CurveID != 0 {
					last.CurveID = p.CurveID
					last.SegmentIndex = p.SegmentIndex
					last.TotalSegments = p.TotalSegments
					last.T = p.T
				}
				continue
			}
		}
		indexMap[i] = len(points)
		points = append(points, p)
	}

	// Closing vertex duplicating the first: drop it and repoint arcs to 0.
	closingIdx := -1
	if len(points) > 1 && geom.SqDist(points[0].XY(), points[len(points)-1].XY()) < sqEps {
		closingIdx = len(points) - 1
		last := points[closingIdx]
		if points[0].CurveID == 0 && last.CurveID != 0 {
			points[0].CurveID = last.CurveID
			points[0].SegmentIndex = last.SegmentIndex
			points[0].TotalSegments = last.TotalSegments
			points[0].T = last.T
		}
		points = points[:closingIdx]
	}

	var arcs []model.ArcSegment
	for _, a := range rawArcs {
		s := indexMap[a.StartIndex]
		e := indexMap[a.EndIndex]
		if closingIdx >= 0 {
			if s == closingIdx {
				s = 0
			}
			if e == closingIdx {
				e = 0
			}
		}
		if s == e {
			continue
		}
		a.StartIndex = s
		a.EndIndex = e
		arcs = append(arcs, a)
	}
	return points, arcs
}

func collectCurveIDs(arcs []model.ArcSegment) []model.CurveID {
	var ids []model.CurveID
	for _, a := range arcs {
		if a.CurveID != 0 {
			ids = append(ids, a.CurveID)
		}
	}
	return ids
}
