// Package importer adapts external files into engine primitives: DXF
// mechanical layers (board outlines, slots, mounting holes) and tool
// library tables from CSV or Excel.
package importer

import (
	"fmt"
	"math"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"

	"github.com/piwi3910/pcbcam/internal/curve"
	"github.com/piwi3910/pcbcam/internal/geom"
	"github.com/piwi3910/pcbcam/internal/model"
)

// chainTolerance is the max endpoint gap when chaining loose LINE
// entities into closed outlines, in mm.
const chainTolerance = 0.01

// ImportResult holds the primitives recovered from a file.
type ImportResult struct {
	Primitives []model.Primitive
	Errors     []string
	Warnings   []string
}

// segment is a line piece used for chaining disconnected entities.
type segment struct {
	start model.Point2D
	end   model.Point2D
}

// ImportDXF reads a DXF file into engine primitives. CIRCLE and ARC
// entities become analytic primitives with registered curves; LWPOLYLINEs
// become closed paths (bulges tessellated around registered arc curves);
// loose LINEs are connected into closed outlines. ARC entities are not
// chained with LINEs; each stays a standalone Arc primitive.
func ImportDXF(path string, reg *curve.Registry, cfg model.GeometryConfig) ImportResult {
	result := ImportResult{}

	drawing, err := dxf.Open(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open DXF file: %v", err))
		return result
	}

	entities := drawing.Entities()
	if len(entities) == 0 {
		result.Errors = append(result.Errors, "DXF file contains no entities")
		return result
	}

	var segments []segment
	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.Circle:
			c := model.NewCircle(model.Point2D{X: e.Center[0], Y: e.Center[1]}, e.Radius)
			c.Props.Fill = true
			curve.TagPrimitive(reg, c)
			result.Primitives = append(result.Primitives, c)

		case *entity.Arc:
			start := e.Angle[0] * math.Pi / 180
			end := e.Angle[1] * math.Pi / 180
			a := model.NewArc(model.Point2D{X: e.Circle.Center[0], Y: e.Circle.Center[1]},
				e.Circle.Radius, start, end, false)
			curve.TagPrimitive(reg, a)
			result.Primitives = append(result.Primitives, a)

		case *entity.LwPolyline:
			p := lwPolylineToPath(e, reg, cfg)
			if p != nil {
				result.Primitives = append(result.Primitives, p)
			} else {
				result.Warnings = append(result.Warnings,
					"Skipped LWPOLYLINE with fewer than 3 vertices")
			}

		case *entity.Line:
			segments = append(segments, segment{
				start: model.Point2D{X: e.Start[0], Y: e.Start[1]},
				end:   model.Point2D{X: e.End[0], Y: e.End[1]},
			})

		default:
			// Unsupported entity types are silently skipped
		}
	}

	// Chain loose segments into closed outlines.
	for _, outline := range chainSegments(segments, chainTolerance) {
		if len(outline) < 3 {
			continue
		}
		pts := make([]model.Point, len(outline))
		for i, p := range outline {
			pts[i] = model.Point{X: p.X, Y: p.Y}
		}
		p := model.NewPath([]model.Contour{{Points: pts}}, true)
		p.Props.Fill = true
		result.Primitives = append(result.Primitives, p)
	}

	if len(result.Primitives) == 0 {
		result.Errors = append(result.Errors, "No usable shapes found in DXF file")
	}
	return result
}

// lwPolylineToPath converts an LWPOLYLINE to a closed path. Bulged
// vertices tessellate into arc points tagged with a registered curve, with
// a matching ArcSegment on the contour.
func lwPolylineToPath(lw *entity.LwPolyline, reg *curve.Registry, cfg model.GeometryConfig) *model.Path {
	if len(lw.Vertices) < 3 {
		return nil
	}
	p := model.NewPath(nil, true)
	p.Props.Fill = true

	var points []model.Point
	var arcs []model.ArcSegment
	var ids []model.CurveID

	n := len(lw.Vertices)
	for i := 0; i < n; i++ {
		v := lw.Vertices[i]
		current := model.Point2D{X: v[0], Y: v[1]}

		bulge := 0.0
		if i < len(lw.Bulges) {
			bulge = lw.Bulges[i]
		}
		if math.Abs(bulge) < 1e-9 {
			points = append(points, model.Point{X: current.X, Y: current.Y})
			continue
		}

		next := model.Point2D{X: lw.Vertices[(i+1)%n][0], Y: lw.Vertices[(i+1)%n][1]}
		center, radius, startAngle, endAngle, clockwise := bulgeArc(current, next, bulge)
		segs := geom.OptimalSegments(radius, curve.KindArc, cfg)
		id := reg.RegisterFor(p.ID, curve.Record{
			Kind:       curve.KindArc,
			Center:     center,
			Radius:     radius,
			StartAngle: startAngle,
			EndAngle:   endAngle,
			Clockwise:  clockwise,
			Source:     curve.SourceImport,
		})
		ids = append(ids, id)

		arcPts := geom.TessellateArc(center, radius, startAngle, endAngle, clockwise, segs, id)
		startIdx := len(points)
		// Drop the final point; the next vertex adds it naturally.
		points = append(points, arcPts[:len(arcPts)-1]...)
		arcs = append(arcs, model.ArcSegment{
			StartIndex: startIdx,
			EndIndex:   0, // resolved below once all vertices exist
			Center:     center,
			Radius:     radius,
			StartAngle: startAngle,
			EndAngle:   endAngle,
			SweepAngle: geom.SweepAngle(startAngle, endAngle, clockwise),
			Clockwise:  clockwise,
			CurveID:    id,
		})
	}

	// Arc end indices: each bulge arc ends at the vertex that follows its
	// tessellated run (wrapping to 0 on the closing arc).
	for ai := range arcs {
		end := arcs[ai].StartIndex + countArcRun(points, arcs[ai].StartIndex)
		if end >= len(points) {
			end = 0
		}
		arcs[ai].EndIndex = end
	}

	p.Contours = []model.Contour{{
		Points:      points,
		ArcSegments: arcs,
		CurveIDs:    ids,
	}}
	p.CurveIDs = ids
	return p
}

// countArcRun counts the tagged vertices of the arc starting at idx.
func countArcRun(points []model.Point, idx int) int {
	id := points[idx].CurveID
	count := 0
	for i := idx; i < len(points) && points[i].CurveID == id; i++ {
		count++
	}
	return count
}

// bulgeArc solves the arc defined by two endpoints and a DXF bulge factor
// (the tangent of a quarter of the included angle).
func bulgeArc(p1, p2 model.Point2D, bulge float64) (center model.Point2D, radius, startAngle, endAngle float64, clockwise bool) {
	mx := (p1.X + p2.X) / 2
	my := (p1.Y + p2.Y) / 2
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	chordLen := math.Hypot(dx, dy)

	sagitta := math.Abs(bulge) * chordLen / 2
	radius = (chordLen*chordLen/(4*sagitta) + sagitta) / 2

	perpX := -dy / chordLen
	perpY := dx / chordLen
	dist := radius - sagitta
	if bulge < 0 {
		perpX, perpY = -perpX, -perpY
	}
	center = model.Point2D{X: mx + perpX*dist, Y: my + perpY*dist}

	startAngle = math.Atan2(p1.Y-center.Y, p1.X-center.X)
	endAngle = math.Atan2(p2.Y-center.Y, p2.X-center.X)
	clockwise = bulge < 0
	return center, radius, startAngle, endAngle, clockwise
}

// chainSegments connects individual segments into closed outlines.
// tolerance is the max endpoint distance considered connected.
func chainSegments(segs []segment, tolerance float64) [][]model.Point2D {
	if len(segs) == 0 {
		return nil
	}
	used := make([]bool, len(segs))
	var outlines [][]model.Point2D

	for {
		startIdx := -1
		for i, u := range used {
			if !u {
				startIdx = i
				break
			}
		}
		if startIdx < 0 {
			break
		}

		used[startIdx] = true
		chain := []model.Point2D{segs[startIdx].start, segs[startIdx].end}

		for {
			tail := chain[len(chain)-1]
			found := false
			for i, s := range segs {
				if used[i] {
					continue
				}
				if geom.Dist(tail, s.start) <= tolerance {
					chain = append(chain, s.end)
					used[i] = true
					found = true
					break
				}
				if geom.Dist(tail, s.end) <= tolerance {
					chain = append(chain, s.start)
					used[i] = true
					found = true
					break
				}
			}
			if !found {
				break
			}
			// Closed when the chain returns to its start.
			if geom.Dist(chain[len(chain)-1], chain[0]) <= tolerance {
				outlines = append(outlines, chain[:len(chain)-1])
				break
			}
		}
	}
	return outlines
}
