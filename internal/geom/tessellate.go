package geom

import (
	"fmt"
	"math"

	"github.com/piwi3910/pcbcam/internal/curve"
	"github.com/piwi3910/pcbcam/internal/model"
)

// OptimalSegments returns the tessellation resolution for a circle or arc
// of the given radius: enough chords that the sagitta stays below the
// configured tolerance, but never fewer than the configured minimum.
func OptimalSegments(radius float64, kind curve.Kind, cfg model.GeometryConfig) int {
	minSegs := cfg.MinCircleSegments
	if kind == curve.KindArc {
		minSegs = cfg.MinRoundJointSegments
	}
	if radius <= 0 || !IsFinite(radius) {
		return minSegs
	}
	sag := cfg.SagittaTolerance
	if sag <= 0 {
		sag = 0.005
	}
	if sag > radius {
		return minSegs
	}
	// Chord length at which the sagitta equals the tolerance.
	chord := 2 * math.Sqrt(2*radius*sag-sag*sag)
	segs := int(math.Ceil(2 * math.Pi * radius / chord))
	if segs < minSegs {
		segs = minSegs
	}
	return segs
}

// TessellateCircle samples a full circle into a closed ring of tagged
// vertices (no duplicated closing vertex), starting at angle 0 and winding
// counter-clockwise.
func TessellateCircle(center model.Point2D, radius float64, segments int, id model.CurveID) []model.Point {
	if segments < 3 {
		segments = 3
	}
	points := make([]model.Point, 0, segments)
	for i := 0; i < segments; i++ {
		t := float64(i) / float64(segments)
		angle := t * 2 * math.Pi
		points = append(points, model.Point{
			X:             center.X + radius*math.Cos(angle),
			Y:             center.Y + radius*math.Sin(angle),
			CurveID:       id,
			SegmentIndex:  i,
			TotalSegments: segments,
			T:             t,
		})
	}
	return points
}

// TessellateArc samples an arc from startAngle to endAngle in the given
// rotation sense into segments+1 tagged vertices including both endpoints.
func TessellateArc(center model.Point2D, radius, startAngle, endAngle float64, clockwise bool, segments int, id model.CurveID) []model.Point {
	if segments < 1 {
		segments = 1
	}
	sweep := SweepAngle(startAngle, endAngle, clockwise)
	points := make([]model.Point, 0, segments+1)
	for i := 0; i <= segments; i++ {
		t := float64(i) / float64(segments)
		angle := startAngle + sweep*t
		points = append(points, model.Point{
			X:             center.X + radius*math.Cos(angle),
			Y:             center.Y + radius*math.Sin(angle),
			CurveID:       id,
			SegmentIndex:  i,
			TotalSegments: segments,
			T:             t,
		})
	}
	return points
}

// PrimitiveToPath tessellates an analytic primitive into a path whose
// contour vertices and curve IDs point back to the analytic source. Path
// primitives pass through unchanged.
func PrimitiveToPath(reg *curve.Registry, prim model.Primitive, cfg model.GeometryConfig) (*model.Path, error) {
	switch p := prim.(type) {
	case *model.Path:
		return p, nil

	case *model.Circle:
		if p.Radius < cfg.Precision {
			return nil, fmt.Errorf("%w: circle radius %.4f", model.ErrDegenerateGeometry, p.Radius)
		}
		segs := OptimalSegments(p.Radius, curve.KindCircle, cfg)
		id := reg.RegisterFor(p.ID, curve.Record{
			Kind:   curve.KindCircle,
			Center: p.Center,
			Radius: p.Radius,
			Source: curve.SourceTessellation,
		})
		contour := model.Contour{
			Points:   TessellateCircle(p.Center, p.Radius, segs, id),
			CurveIDs: []model.CurveID{id},
		}
		out := model.NewPath([]model.Contour{contour}, true)
		out.Props = p.Props
		out.Props.Fill = true
		out.Props.Polygonized = true
		out.AddCurveID(id)
		return out, nil

	case *model.Rectangle:
		if p.Width < cfg.Precision || p.Height < cfg.Precision {
			return nil, fmt.Errorf("%w: rectangle %.4f x %.4f", model.ErrDegenerateGeometry, p.Width, p.Height)
		}
		hw, hh := p.Width/2, p.Height/2
		// CCW ring from the bottom-left corner.
		contour := model.Contour{Points: []model.Point{
			{X: p.Position.X - hw, Y: p.Position.Y - hh},
			{X: p.Position.X + hw, Y: p.Position.Y - hh},
			{X: p.Position.X + hw, Y: p.Position.Y + hh},
			{X: p.Position.X - hw, Y: p.Position.Y + hh},
		}}
		out := model.NewPath([]model.Contour{contour}, true)
		out.Props = p.Props
		out.Props.Fill = true
		return out, nil

	case *model.Obround:
		return obroundToPath(reg, p, cfg)

	case *model.Arc:
		return arcChordToPath(reg, p, cfg)

	case *model.Bezier:
		pts := FlattenBezier(p, 32)
		out := model.NewPath([]model.Contour{{Points: pts}}, false)
		out.Props = p.Props
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedPrimitive, prim.Kind())
}

// FlattenBezier samples a cubic bezier into a polyline of segments+1
// points.
func FlattenBezier(b *model.Bezier, segments int) []model.Point {
	if segments < 4 {
		segments = 4
	}
	pts := make([]model.Point, 0, segments+1)
	for i := 0; i <= segments; i++ {
		t := float64(i) / float64(segments)
		mt := 1 - t
		x := mt*mt*mt*b.Start.X + 3*mt*mt*t*b.Control1.X + 3*mt*t*t*b.Control2.X + t*t*t*b.End.X
		y := mt*mt*mt*b.Start.Y + 3*mt*mt*t*b.Control1.Y + 3*mt*t*t*b.Control2.Y + t*t*t*b.End.Y
		pts = append(pts, model.Point{X: x, Y: y})
	}
	return pts
}

// obroundToPath synthesizes a CCW stadium ring: straight, end cap, straight,
// start cap. Cap vertices are tagged with freshly registered arc curves and
// the contour records one ArcSegment per cap.
func obroundToPath(reg *curve.Registry, p *model.Obround, cfg model.GeometryConfig) (*model.Path, error) {
	r := p.SlotRadius()
	if r < cfg.Precision {
		return nil, fmt.Errorf("%w: obround radius %.4f", model.ErrDegenerateGeometry, r)
	}
	startCap, endCap := p.CapCenters()
	// Cap half-circle orientation depends on the slot axis.
	var a0 float64
	if p.IsHorizontal() {
		a0 = -math.Pi / 2 // end cap sweeps from bottom to top
	} else {
		a0 = 0 // end cap sweeps from right to left
	}
	segs := OptimalSegments(r, curve.KindCircle, cfg) / 2
	if segs < 4 {
		segs = 4
	}

	endID := reg.RegisterFor(p.ID, curve.Record{
		Kind: curve.KindArc, Center: endCap, Radius: r,
		StartAngle: a0, EndAngle: a0 + math.Pi, Source: curve.SourceTessellation,
	})
	startID := reg.RegisterFor(p.ID, curve.Record{
		Kind: curve.KindArc, Center: startCap, Radius: r,
		StartAngle: a0 + math.Pi, EndAngle: a0 + 2*math.Pi, Source: curve.SourceTessellation,
	})

	var points []model.Point
	var arcs []model.ArcSegment

	endStart := len(points)
	points = append(points, TessellateArc(endCap, r, a0, a0+math.Pi, false, segs, endID)...)
	arcs = append(arcs, model.ArcSegment{
		StartIndex: endStart, EndIndex: len(points) - 1,
		Center: endCap, Radius: r,
		StartAngle: a0, EndAngle: a0 + math.Pi, SweepAngle: math.Pi,
		Clockwise: false, CurveID: endID,
	})

	capStart := len(points)
	points = append(points, TessellateArc(startCap, r, a0+math.Pi, a0+2*math.Pi, false, segs, startID)...)
	arcs = append(arcs, model.ArcSegment{
		StartIndex: capStart, EndIndex: len(points) - 1,
		Center: startCap, Radius: r,
		StartAngle: a0 + math.Pi, EndAngle: a0 + 2*math.Pi, SweepAngle: math.Pi,
		Clockwise: false, CurveID: startID,
	})

	contour := model.Contour{
		Points:      points,
		ArcSegments: arcs,
		CurveIDs:    []model.CurveID{endID, startID},
	}
	out := model.NewPath([]model.Contour{contour}, true)
	out.Props = p.Props
	out.Props.Fill = true
	out.AddCurveID(endID)
	out.AddCurveID(startID)
	return out, nil
}

// arcChordToPath closes a filled arc with its chord. The curved edge keeps
// an ArcSegment annotation so offsetting stays arc-aware.
func arcChordToPath(reg *curve.Registry, p *model.Arc, cfg model.GeometryConfig) (*model.Path, error) {
	if p.Radius < cfg.Precision {
		return nil, fmt.Errorf("%w: arc radius %.4f", model.ErrDegenerateGeometry, p.Radius)
	}
	segs := OptimalSegments(p.Radius, curve.KindArc, cfg)
	id := reg.RegisterFor(p.ID, curve.Record{
		Kind: curve.KindArc, Center: p.Center, Radius: p.Radius,
		StartAngle: p.StartAngle, EndAngle: p.EndAngle,
		Clockwise: p.Clockwise, Source: curve.SourceTessellation,
	})
	points := TessellateArc(p.Center, p.Radius, p.StartAngle, p.EndAngle, p.Clockwise, segs, id)
	contour := model.Contour{
		Points: points,
		ArcSegments: []model.ArcSegment{{
			StartIndex: 0, EndIndex: len(points) - 1,
			Center: p.Center, Radius: p.Radius,
			StartAngle: p.StartAngle, EndAngle: p.EndAngle,
			SweepAngle: SweepAngle(p.StartAngle, p.EndAngle, p.Clockwise),
			Clockwise:  p.Clockwise, CurveID: id,
		}},
		CurveIDs: []model.CurveID{id},
	}
	out := model.NewPath([]model.Contour{contour}, true)
	out.Props = p.Props
	out.Props.Fill = true
	out.AddCurveID(id)
	return out, nil
}
