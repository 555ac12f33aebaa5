// Package fuse wires the engine to its external polygon-clipping
// collaborator (akavel/polyclip-go): boolean union, intersection and
// difference over polygonized primitives. Coordinates are snapped to a
// fixed grid before clipping to emulate the library contract of
// integer-scaled vertices; curve tags are stripped by the library and
// re-attached to surviving vertices on the way back, leaving the arc
// reconstructor to regroup them.
package fuse

import (
	polyclip "github.com/akavel/polyclip-go"
	"github.com/npillmayer/schuko/tracing"

	"github.com/piwi3910/pcbcam/internal/model"
)

// tracer writes to trace with key 'pcbcam.fuse'
func tracer() tracing.Trace {
	return tracing.Select("pcbcam.fuse")
}

// Fuser performs boolean operations over path primitives.
type Fuser struct {
	scale float64
}

// New creates a Fuser with the configured coordinate grid (vertices are
// rounded to 1/scale mm before clipping).
func New(cfg model.GeometryConfig) *Fuser {
	scale := cfg.ClipperScale
	if scale <= 0 {
		scale = 1e4
	}
	return &Fuser{scale: scale}
}

// gridKey is a snapped coordinate used to re-attach vertex tags after the
// library strips them.
type gridKey struct {
	x, y int64
}

func (f *Fuser) key(x, y float64) gridKey {
	return gridKey{x: f.round(x), y: f.round(y)}
}

func (f *Fuser) round(v float64) int64 {
	if v < 0 {
		return int64(v*f.scale - 0.5)
	}
	return int64(v*f.scale + 0.5)
}

// Union fuses all subject paths with the clip paths.
func (f *Fuser) Union(subject, clip []*model.Path) []*model.Path {
	return f.construct(polyclip.UNION, subject, clip)
}

// Intersection keeps only the overlap of subject and clip.
func (f *Fuser) Intersection(subject, clip []*model.Path) []*model.Path {
	return f.construct(polyclip.INTERSECTION, subject, clip)
}

// Difference removes the clip paths from the subject paths.
func (f *Fuser) Difference(subject, clip []*model.Path) []*model.Path {
	return f.construct(polyclip.DIFFERENCE, subject, clip)
}

func (f *Fuser) construct(op polyclip.Op, subject, clip []*model.Path) []*model.Path {
	tags := make(map[gridKey]model.Point)

	// A union with no clip paths is a self-union: clip the first subject
	// against the rest so overlapping subjects still merge.
	if len(clip) == 0 && op == polyclip.UNION && len(subject) > 1 {
		subject, clip = subject[:1], subject[1:]
	}
	subj := f.toClip(subject, tags)
	clp := f.toClip(clip, tags)
	if len(clp) == 0 {
		if op == polyclip.INTERSECTION {
			return nil
		}
		return f.fromClip(subj, tags)
	}

	result := subj.Construct(op, clp)
	tracer().Debugf("fuse: %d + %d contours -> %d", len(subj), len(clp), len(result))
	return f.fromClip(result, tags)
}

// toClip converts paths to library polygons, snapping vertices to the grid
// and remembering each snapped vertex's tag for re-attachment.
func (f *Fuser) toClip(paths []*model.Path, tags map[gridKey]model.Point) polyclip.Polygon {
	var poly polyclip.Polygon
	for _, p := range paths {
		for ci := range p.Contours {
			c := &p.Contours[ci]
			contour := make(polyclip.Contour, 0, len(c.Points))
			for _, pt := range c.Points {
				x := f.snap(pt.X)
				y := f.snap(pt.Y)
				contour = append(contour, polyclip.Point{X: x, Y: y})
				if pt.CurveID > 0 {
					tags[f.key(x, y)] = pt
				}
			}
			poly = append(poly, contour)
		}
	}
	return poly
}

func (f *Fuser) snap(v float64) float64 {
	return float64(f.round(v)) / f.scale
}

// fromClip converts the library result back to path primitives, one per
// outer contour, with holes nested by containment parity.
func (f *Fuser) fromClip(poly polyclip.Polygon, tags map[gridKey]model.Point) []*model.Path {
	contours := make([]model.Contour, 0, len(poly))
	for _, pc := range poly {
		if len(pc) < 3 {
			continue
		}
		points := make([]model.Point, 0, len(pc))
		for _, v := range pc {
			pt := model.Point{X: v.X, Y: v.Y}
			if tagged, ok := tags[f.key(v.X, v.Y)]; ok {
				pt.CurveID = tagged.CurveID
				pt.SegmentIndex = tagged.SegmentIndex
				pt.TotalSegments = tagged.TotalSegments
				pt.T = tagged.T
			}
			points = append(points, pt)
		}
		contours = append(contours, model.Contour{Points: points})
	}

	// A contour contained in an odd number of others is a hole.
	for i := range contours {
		level := 0
		for j := range contours {
			if i == j {
				continue
			}
			if containsPoint(contours[j].Points, contours[i].Points[0]) {
				level++
			}
		}
		contours[i].NestingLevel = level
		contours[i].IsHole = level%2 == 1
	}

	// Group each outer contour with the holes it directly contains.
	var out []*model.Path
	for i := range contours {
		if contours[i].IsHole {
			continue
		}
		group := []model.Contour{contours[i]}
		for j := range contours {
			if !contours[j].IsHole || contours[j].NestingLevel != contours[i].NestingLevel+1 {
				continue
			}
			if containsPoint(contours[i].Points, contours[j].Points[0]) {
				group = append(group, contours[j])
			}
		}
		path := model.NewPath(group, true)
		path.Props.Fill = true
		out = append(out, path)
	}
	return out
}

// containsPoint is an even-odd ray cast of p against the ring.
func containsPoint(ring []model.Point, p model.Point) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		yi, yj := ring[i].Y, ring[j].Y
		if (yi > p.Y) != (yj > p.Y) {
			xCross := ring[i].X + (p.Y-yi)/(yj-yi)*(ring[j].X-ring[i].X)
			if p.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}
