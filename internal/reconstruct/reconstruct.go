// Package reconstruct regroups curve-tagged vertices after polygon fusion
// and re-materializes full circles or partial-arc metadata. Fusion strips
// nothing the registry knows: as long as surviving vertices still carry
// their curve IDs, the analytic shape can be recovered.
package reconstruct

import (
	"math"

	"github.com/npillmayer/schuko/tracing"

	"github.com/piwi3910/pcbcam/internal/curve"
	"github.com/piwi3910/pcbcam/internal/geom"
	"github.com/piwi3910/pcbcam/internal/model"
)

// tracer writes to trace with key 'pcbcam.reconstruct'
func tracer() tracing.Trace {
	return tracing.Select("pcbcam.reconstruct")
}

// Full-circle coverage thresholds. Dense rings demand more coverage before
// the polygon is replaced by a pure circle.
const (
	circleCoverage      = 0.80
	circleCoverageDense = 0.90
	denseVertexCount    = 20

	// Fallback segment estimate when vertices don't carry TotalSegments.
	assumedCircleSegments = 48

	// Minimum vertices for a partial-arc annotation.
	minArcGroupPoints = 3
)

// Stats counts reconstruction outcomes across a job.
type Stats struct {
	Registered    int `json:"registered"`
	Reconstructed int `json:"reconstructed"`
	PartialArcs   int `json:"partial_arcs"`
	FullCircles   int `json:"full_circles"`
	WrappedGroups int `json:"wrapped_groups"`
	Failed        int `json:"failed"`
}

// Reconstructor rebuilds analytic geometry from tagged polygon vertices.
type Reconstructor struct {
	reg   *curve.Registry
	Stats Stats
}

// New creates a Reconstructor over the given registry.
func New(reg *curve.Registry) *Reconstructor {
	return &Reconstructor{reg: reg}
}

// group is a run of consecutive vertices sharing a curve tag.
type group struct {
	curveID model.CurveID
	points  []model.Point
	indices []int
	wrapped bool
}

func (g *group) isCurve() bool { return g.curveID > 0 }

// Rebuild processes a fused primitive stream. Path primitives with tagged
// vertices are upgraded to circles or arc-annotated paths; everything else
// passes through unchanged. Failure is non-fatal per primitive.
func (r *Reconstructor) Rebuild(prims []model.Primitive) []model.Primitive {
	out := make([]model.Primitive, 0, len(prims))
	for _, prim := range prims {
		path, ok := prim.(*model.Path)
		if !ok || !hasTags(path) {
			out = append(out, prim)
			continue
		}
		r.Stats.Registered++
		rebuilt := r.rebuildPath(path)
		if rebuilt == nil {
			r.Stats.Failed++
			out = append(out, prim)
			continue
		}
		out = append(out, rebuilt)
	}
	return out
}

func hasTags(p *model.Path) bool {
	for ci := range p.Contours {
		for _, pt := range p.Contours[ci].Points {
			if pt.CurveID > 0 {
				return true
			}
		}
	}
	return false
}

// rebuildPath reconstructs a single path primitive, or returns nil when no
// useful grouping exists.
func (r *Reconstructor) rebuildPath(p *model.Path) model.Primitive {
	if len(p.Contours) != 1 {
		// Compound paths keep their polygonal form; per-contour annotation
		// happens after fusion splits them apart.
		return r.annotateContours(p)
	}
	c := &p.Contours[0]
	groups := groupByCurve(c.Points)
	if len(groups) == 0 {
		return nil
	}

	if p.Closed && len(groups) >= 2 {
		groups = r.mergeWraparound(groups)
	}

	if len(groups) == 1 && groups[0].isCurve() {
		if circle := r.tryFullCircle(p, groups[0]); circle != nil {
			r.Stats.Reconstructed++
			r.Stats.FullCircles++
			return circle
		}
	}

	return r.annotateGroups(p, c, groups)
}

// groupByCurve splits the vertex ring into maximal runs sharing a curve
// tag; untagged runs become straight groups.
func groupByCurve(points []model.Point) []group {
	var groups []group
	for i, pt := range points {
		id := pt.CurveID
		if id < 0 {
			id = 0
		}
		if len(groups) > 0 && groups[len(groups)-1].curveID == id {
			g := &groups[len(groups)-1]
			g.points = append(g.points, pt)
			g.indices = append(g.indices, i)
			continue
		}
		groups = append(groups, group{
			curveID: id,
			points:  []model.Point{pt},
			indices: []int{i},
		})
	}
	return groups
}

// mergeWraparound joins the first and last groups of a closed ring when
// they continue the same curve across the seam.
func (r *Reconstructor) mergeWraparound(groups []group) []group {
	first := &groups[0]
	last := &groups[len(groups)-1]
	if !first.isCurve() || first.curveID != last.curveID || len(groups) < 2 {
		return groups
	}
	// Continuity: the ring seam sits where the curve's own indexing starts
	// or immediately follows the last group's run.
	firstSeg := first.points[0].SegmentIndex
	lastSeg := last.points[len(last.points)-1].SegmentIndex
	if firstSeg != 0 && firstSeg != lastSeg+1 && firstSeg != lastSeg {
		return groups
	}
	merged := group{
		curveID: first.curveID,
		points:  append(append([]model.Point{}, last.points...), first.points...),
		indices: append(append([]int{}, last.indices...), first.indices...),
		wrapped: true,
	}
	r.Stats.WrappedGroups++
	out := []group{merged}
	out = append(out, groups[1:len(groups)-1]...)
	return out
}

// tryFullCircle emits a pure circle when a single curve group covers
// enough of a registered circle.
func (r *Reconstructor) tryFullCircle(p *model.Path, g group) model.Primitive {
	rec, ok := r.reg.Get(g.curveID)
	if !ok || rec.Kind != curve.KindCircle {
		return nil
	}

	unique := make(map[int]struct{}, len(g.points))
	for _, pt := range g.points {
		unique[pt.SegmentIndex] = struct{}{}
	}
	total := g.points[0].TotalSegments
	var coverage float64
	if total > 0 {
		coverage = float64(len(unique)) / float64(total)
	} else {
		coverage = float64(len(g.points)) / assumedCircleSegments
	}
	if coverage > 1 {
		coverage = 1
	}

	threshold := circleCoverage
	if len(g.points) >= denseVertexCount {
		threshold = circleCoverageDense
	}
	if coverage < threshold {
		return nil
	}

	tracer().Debugf("reconstruct: %s -> circle r=%.3f coverage=%.2f", p.ID, rec.Radius, coverage)
	out := model.NewCircle(rec.Center, rec.Radius)
	out.ID = p.ID
	out.Props = p.Props
	out.Props.Reconstructed = true
	out.CurveIDs = []model.CurveID{g.curveID}
	return out
}

// annotateGroups re-emits the path with one ArcSegment per curve group of
// at least three points. Vertices are unchanged; idempotent by design — no
// curves are registered here, only resolved.
func (r *Reconstructor) annotateGroups(p *model.Path, c *model.Contour, groups []group) model.Primitive {
	var arcs []model.ArcSegment
	var ids []model.CurveID
	for _, g := range groups {
		if !g.isCurve() || len(g.points) < minArcGroupPoints {
			continue
		}
		rec, ok := r.reg.Get(g.curveID)
		if !ok {
			continue
		}
		start := g.points[0]
		end := g.points[len(g.points)-1]
		startAngle := math.Atan2(start.Y-rec.Center.Y, start.X-rec.Center.X)
		endAngle := math.Atan2(end.Y-rec.Center.Y, end.X-rec.Center.X)
		arcs = append(arcs, model.ArcSegment{
			StartIndex: g.indices[0],
			EndIndex:   g.indices[len(g.indices)-1],
			Center:     rec.Center,
			Radius:     rec.Radius,
			StartAngle: startAngle,
			EndAngle:   endAngle,
			SweepAngle: geom.SweepAngle(startAngle, endAngle, rec.Clockwise),
			Clockwise:  rec.Clockwise,
			CurveID:    g.curveID,
		})
		ids = append(ids, g.curveID)
	}
	if len(arcs) == 0 {
		return nil
	}
	r.Stats.Reconstructed++
	r.Stats.PartialArcs += len(arcs)

	contour := model.Contour{
		Points:       c.Points,
		IsHole:       c.IsHole,
		NestingLevel: c.NestingLevel,
		ParentID:     c.ParentID,
		ArcSegments:  arcs,
		CurveIDs:     ids,
	}
	out := model.NewPath([]model.Contour{contour}, p.Closed)
	out.ID = p.ID
	out.Props = p.Props
	out.Props.HasReconstructedArcs = true
	out.CurveIDs = ids
	return out
}

// annotateContours applies group annotation to every contour of a compound
// path independently.
func (r *Reconstructor) annotateContours(p *model.Path) model.Primitive {
	changed := false
	contours := make([]model.Contour, len(p.Contours))
	for ci := range p.Contours {
		c := p.Contours[ci]
		sub := model.NewPath([]model.Contour{c}, p.Closed)
		sub.ID = p.ID
		sub.Props = p.Props
		if rebuilt := r.rebuildPath(sub); rebuilt != nil {
			if rp, ok := rebuilt.(*model.Path); ok && len(rp.Contours) == 1 {
				contours[ci] = rp.Contours[0]
				changed = true
				continue
			}
		}
		contours[ci] = c
	}
	if !changed {
		return nil
	}
	out := model.NewPath(contours, p.Closed)
	out.ID = p.ID
	out.Props = p.Props
	out.Props.HasReconstructedArcs = true
	return out
}
