package geom

import (
	"fmt"
	"math"

	"github.com/piwi3910/pcbcam/internal/curve"
	"github.com/piwi3910/pcbcam/internal/model"
)

// PolylineToPolygon inflates an open polyline of width w into a closed
// polygon with semicircular caps at both ends. Cap vertices are tagged with
// freshly registered stroke-cap arc curves whose IDs are appended to
// outCurveIDs. The polyline must have at least two distinct points.
func PolylineToPolygon(reg *curve.Registry, primitiveID string, pts []model.Point, width float64, cfg model.GeometryConfig, outCurveIDs *[]model.CurveID) (model.Contour, error) {
	half := width / 2
	if half < cfg.Precision {
		return model.Contour{}, fmt.Errorf("%w: stroke width %.4f", model.ErrDegenerateGeometry, width)
	}

	// Drop consecutive duplicates; they produce zero-length edges.
	line := make([]model.Point, 0, len(pts))
	for _, p := range pts {
		if len(line) > 0 && SqDist(line[len(line)-1].XY(), p.XY()) < cfg.Precision*cfg.Precision {
			continue
		}
		line = append(line, p)
	}
	if len(line) < 2 {
		return model.Contour{}, fmt.Errorf("%w: polyline collapsed", model.ErrDegenerateGeometry)
	}

	left := sideOffset(line, half, true)
	right := sideOffset(line, half, false)

	first := line[0].XY()
	last := line[len(line)-1].XY()

	// End cap: semicircle around the last point from the left normal to the
	// right normal, continuing the travel direction.
	endDirX, endDirY := Normalize(last.X-line[len(line)-2].X, last.Y-line[len(line)-2].Y)
	endStart := math.Atan2(endDirX, -endDirY) // left normal angle
	startDirX, startDirY := Normalize(line[1].X-first.X, line[1].Y-first.Y)
	capStart := math.Atan2(-startDirX, startDirY) // right normal angle at the first point

	segs := OptimalSegments(half, curve.KindCircle, cfg) / 2
	if segs < 4 {
		segs = 4
	}

	endID := reg.RegisterFor(primitiveID, curve.Record{
		Kind: curve.KindArc, Center: last, Radius: half,
		StartAngle: endStart, EndAngle: endStart - math.Pi,
		Clockwise: true, Source: curve.SourceStrokeCap,
	})
	startID := reg.RegisterFor(primitiveID, curve.Record{
		Kind: curve.KindArc, Center: first, Radius: half,
		StartAngle: capStart, EndAngle: capStart - math.Pi,
		Clockwise: true, Source: curve.SourceStrokeCap,
	})
	if outCurveIDs != nil {
		*outCurveIDs = append(*outCurveIDs, endID, startID)
	}

	var points []model.Point
	var arcs []model.ArcSegment

	points = append(points, left...)

	s := len(points)
	points = append(points, TessellateArc(last, half, endStart, endStart-math.Pi, true, segs, endID)...)
	arcs = append(arcs, model.ArcSegment{
		StartIndex: s, EndIndex: len(points) - 1,
		Center: last, Radius: half,
		StartAngle: endStart, EndAngle: endStart - math.Pi, SweepAngle: -math.Pi,
		Clockwise: true, CurveID: endID,
	})

	// Right side runs backward to keep the ring closed.
	for i := len(right) - 1; i >= 0; i-- {
		points = append(points, right[i])
	}

	s = len(points)
	points = append(points, TessellateArc(first, half, capStart, capStart-math.Pi, true, segs, startID)...)
	arcs = append(arcs, model.ArcSegment{
		StartIndex: s, EndIndex: len(points) - 1,
		Center: first, Radius: half,
		StartAngle: capStart, EndAngle: capStart - math.Pi, SweepAngle: -math.Pi,
		Clockwise: true, CurveID: startID,
	})

	return model.Contour{
		Points:      points,
		ArcSegments: arcs,
		CurveIDs:    []model.CurveID{endID, startID},
	}, nil
}

// sideOffset displaces each polyline vertex along the averaged edge normal.
// left selects which side of the travel direction the offset falls on.
func sideOffset(line []model.Point, dist float64, left bool) []model.Point {
	n := len(line)
	out := make([]model.Point, 0, n)
	sign := 1.0
	if !left {
		sign = -1.0
	}
	for i := 0; i < n; i++ {
		var n1x, n1y, n2x, n2y float64
		if i > 0 {
			ex := line[i].X - line[i-1].X
			ey := line[i].Y - line[i-1].Y
			n1x, n1y = Normalize(-ey, ex)
		}
		if i < n-1 {
			ex := line[i+1].X - line[i].X
			ey := line[i+1].Y - line[i].Y
			n2x, n2y = Normalize(-ey, ex)
		}
		if i == 0 {
			n1x, n1y = n2x, n2y
		}
		if i == n-1 {
			n2x, n2y = n1x, n1y
		}
		nx, ny := Normalize(n1x+n2x, n1y+n2y)
		// Scale the miter so the stroke keeps its width through the corner,
		// clamped to avoid spikes at near-reversals.
		cosHalf := nx*n1x + ny*n1y
		if cosHalf < 0.3 {
			cosHalf = 0.3
		}
		scale := dist / cosHalf
		out = append(out, model.Point{
			X: line[i].X + sign*nx*scale,
			Y: line[i].Y + sign*ny*scale,
		})
	}
	return out
}

// ArcToPolygon tessellates a stroked arc of the given total width into a
// closed annular-sector polygon. Inner, outer and end-cap curves are
// registered; every curved vertex carries its curve tag.
func ArcToPolygon(reg *curve.Registry, arc *model.Arc, totalWidth float64, cfg model.GeometryConfig) (model.Contour, error) {
	half := totalWidth / 2
	outerR := arc.Radius + half
	innerR := arc.Radius - half
	if outerR < cfg.Precision {
		return model.Contour{}, fmt.Errorf("%w: stroked arc collapsed", model.ErrDegenerateGeometry)
	}
	if innerR < cfg.Precision {
		innerR = 0
	}

	sweep := SweepAngle(arc.StartAngle, arc.EndAngle, arc.Clockwise)
	segs := int(math.Ceil(float64(OptimalSegments(outerR, curve.KindCircle, cfg)) * math.Abs(sweep) / (2 * math.Pi)))
	if segs < 2 {
		segs = 2
	}
	capSegs := OptimalSegments(half, curve.KindCircle, cfg) / 2
	if capSegs < 4 {
		capSegs = 4
	}

	outerID := reg.RegisterFor(arc.ID, curve.Record{
		Kind: curve.KindArc, Center: arc.Center, Radius: outerR,
		StartAngle: arc.StartAngle, EndAngle: arc.EndAngle,
		Clockwise: arc.Clockwise, Source: curve.SourceStrokeCap, SourceCurveID: firstCurve(arc.CurveIDs),
	})

	var points []model.Point
	var arcs []model.ArcSegment
	curveIDs := []model.CurveID{outerID}

	// Outer rim, forward.
	s := len(points)
	points = append(points, TessellateArc(arc.Center, outerR, arc.StartAngle, arc.EndAngle, arc.Clockwise, segs, outerID)...)
	arcs = append(arcs, model.ArcSegment{
		StartIndex: s, EndIndex: len(points) - 1,
		Center: arc.Center, Radius: outerR,
		StartAngle: arc.StartAngle, EndAngle: arc.EndAngle, SweepAngle: sweep,
		Clockwise: arc.Clockwise, CurveID: outerID,
	})

	// End cap: semicircle around the arc's end point.
	endCenter := model.Point2D{
		X: arc.Center.X + arc.Radius*math.Cos(arc.EndAngle),
		Y: arc.Center.Y + arc.Radius*math.Sin(arc.EndAngle),
	}
	endID := reg.RegisterFor(arc.ID, curve.Record{
		Kind: curve.KindArc, Center: endCenter, Radius: half,
		StartAngle: arc.EndAngle, EndAngle: arc.EndAngle + math.Pi,
		Source: curve.SourceStrokeCap,
	})
	curveIDs = append(curveIDs, endID)
	s = len(points)
	points = append(points, TessellateArc(endCenter, half, arc.EndAngle, arc.EndAngle+math.Pi, arc.Clockwise, capSegs, endID)...)
	arcs = append(arcs, model.ArcSegment{
		StartIndex: s, EndIndex: len(points) - 1,
		Center: endCenter, Radius: half,
		StartAngle: arc.EndAngle, EndAngle: arc.EndAngle + math.Pi,
		SweepAngle: SweepAngle(arc.EndAngle, arc.EndAngle+math.Pi, arc.Clockwise),
		Clockwise:  arc.Clockwise, CurveID: endID,
	})

	// Inner rim, backward; a fully collapsed inner radius pinches to the
	// arc center.
	if innerR > 0 {
		innerID := reg.RegisterFor(arc.ID, curve.Record{
			Kind: curve.KindArc, Center: arc.Center, Radius: innerR,
			StartAngle: arc.EndAngle, EndAngle: arc.StartAngle,
			Clockwise: !arc.Clockwise, Source: curve.SourceStrokeCap, SourceCurveID: firstCurve(arc.CurveIDs),
		})
		curveIDs = append(curveIDs, innerID)
		s = len(points)
		points = append(points, TessellateArc(arc.Center, innerR, arc.EndAngle, arc.StartAngle, !arc.Clockwise, segs, innerID)...)
		arcs = append(arcs, model.ArcSegment{
			StartIndex: s, EndIndex: len(points) - 1,
			Center: arc.Center, Radius: innerR,
			StartAngle: arc.EndAngle, EndAngle: arc.StartAngle,
			SweepAngle: -sweep,
			Clockwise:  !arc.Clockwise, CurveID: innerID,
		})
	} else {
		points = append(points, model.Point{X: arc.Center.X, Y: arc.Center.Y})
	}

	// Start cap closes the ring back to the outer rim's first vertex.
	startCenter := model.Point2D{
		X: arc.Center.X + arc.Radius*math.Cos(arc.StartAngle),
		Y: arc.Center.Y + arc.Radius*math.Sin(arc.StartAngle),
	}
	startID := reg.RegisterFor(arc.ID, curve.Record{
		Kind: curve.KindArc, Center: startCenter, Radius: half,
		StartAngle: arc.StartAngle + math.Pi, EndAngle: arc.StartAngle,
		Source: curve.SourceStrokeCap,
	})
	curveIDs = append(curveIDs, startID)
	s = len(points)
	points = append(points, TessellateArc(startCenter, half, arc.StartAngle+math.Pi, arc.StartAngle, arc.Clockwise, capSegs, startID)...)
	arcs = append(arcs, model.ArcSegment{
		StartIndex: s, EndIndex: len(points) - 1,
		Center: startCenter, Radius: half,
		StartAngle: arc.StartAngle + math.Pi, EndAngle: arc.StartAngle,
		SweepAngle: SweepAngle(arc.StartAngle+math.Pi, arc.StartAngle, arc.Clockwise),
		Clockwise:  arc.Clockwise, CurveID: startID,
	})

	return model.Contour{Points: points, ArcSegments: arcs, CurveIDs: curveIDs}, nil
}

func firstCurve(ids []model.CurveID) model.CurveID {
	if len(ids) > 0 {
		return ids[0]
	}
	return 0
}
