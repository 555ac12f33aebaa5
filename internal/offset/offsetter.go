// Package offset inflates and deflates primitives by a signed distance.
// Positive distances grow a shape outward (external offset), negative
// distances shrink it (internal). Corner joints are mitered, beveled or
// rounded; arc-segment-tagged contours are offset analytically so curvature
// survives into the output.
package offset

import (
	"fmt"

	"github.com/npillmayer/schuko/tracing"

	"github.com/piwi3910/pcbcam/internal/curve"
	"github.com/piwi3910/pcbcam/internal/geom"
	"github.com/piwi3910/pcbcam/internal/model"
)

// tracer writes to trace with key 'pcbcam.offset'
func tracer() tracing.Trace {
	return tracing.Select("pcbcam.offset")
}

// Offsetter offsets primitives against a shared curve registry. Degenerate
// results are skipped with a warning; the operation continues for other
// primitives.
type Offsetter struct {
	reg      *curve.Registry
	cfg      model.GeometryConfig
	warnings *model.WarningSink
}

// New creates an Offsetter. The warning sink may be nil.
func New(reg *curve.Registry, cfg model.GeometryConfig, warnings *model.WarningSink) *Offsetter {
	return &Offsetter{reg: reg, cfg: cfg, warnings: warnings}
}

func (o *Offsetter) warn(primitiveID, msg string) {
	tracer().Debugf("offset: %s: %s", primitiveID, msg)
	if o.warnings != nil {
		o.warnings.Add(primitiveID, "offset", msg)
	}
}

// offsetTypeFor names the offset polarity for primitive properties.
func offsetTypeFor(d float64) string {
	if d >= 0 {
		return "external"
	}
	return "internal"
}

// Offset offsets a primitive by signed distance d. It returns zero or more
// result primitives; an empty result with nil error means the shape
// degenerated (or is unsupported) and was skipped.
func (o *Offsetter) Offset(prim model.Primitive, d float64) ([]model.Primitive, error) {
	if !geom.IsFinite(d) {
		o.warn(prim.Meta().ID, "non-finite offset distance")
		return nil, nil
	}
	if prim.Meta().Props.IsStroke() {
		return o.offsetStroke(prim, d)
	}

	switch p := prim.(type) {
	case *model.Circle:
		return o.offsetCircle(p, d)

	case *model.Rectangle:
		path, err := geom.PrimitiveToPath(o.reg, p, o.cfg)
		if err != nil {
			o.warn(p.ID, err.Error())
			return nil, nil
		}
		return o.offsetPath(path, d)

	case *model.Arc:
		path, err := geom.PrimitiveToPath(o.reg, p, o.cfg)
		if err != nil {
			o.warn(p.ID, err.Error())
			return nil, nil
		}
		return o.offsetPath(path, d)

	case *model.Obround:
		return o.offsetObround(p, d)

	case *model.Bezier:
		path, err := geom.PrimitiveToPath(o.reg, p, o.cfg)
		if err != nil {
			o.warn(p.ID, err.Error())
			return nil, nil
		}
		return o.offsetPath(path, d)

	case *model.Path:
		return o.offsetPath(p, d)
	}

	o.warn(prim.Meta().ID, fmt.Sprintf("no offset handler for %s", prim.Kind()))
	return nil, nil
}

// offsetCircle grows or shrinks a circle analytically and tessellates the
// result around one freshly registered circle curve.
func (o *Offsetter) offsetCircle(p *model.Circle, d float64) ([]model.Primitive, error) {
	newR := p.Radius + d
	if newR < o.cfg.Precision || !geom.IsFinite(newR) {
		o.warn(p.ID, fmt.Sprintf("circle radius %.4f collapsed by offset %.4f", p.Radius, d))
		return nil, nil
	}
	id := o.reg.RegisterFor(p.ID, curve.Record{
		Kind:            curve.KindCircle,
		Center:          p.Center,
		Radius:          newR,
		Source:          curve.SourceHybridOffset,
		IsOffsetDerived: true,
		OffsetDistance:  d,
		SourceCurveID:   firstID(p.CurveIDs),
	})
	segs := geom.OptimalSegments(newR, curve.KindCircle, o.cfg)
	contour := model.Contour{
		Points:   geom.TessellateCircle(p.Center, newR, segs, id),
		CurveIDs: []model.CurveID{id},
	}
	out := model.NewPath([]model.Contour{contour}, true)
	out.Props = p.Props
	out.Props.Fill = true
	out.Props.IsOffsetDerived = true
	out.Props.OffsetType = offsetTypeFor(d)
	out.Props.OffsetDistance = d
	out.AddCurveID(id)
	return []model.Primitive{out}, nil
}

// offsetObround synthesizes the offset stadium directly: the cap centers
// stay put while both dimensions grow by 2d.
func (o *Offsetter) offsetObround(p *model.Obround, d float64) ([]model.Primitive, error) {
	w := p.Width + 2*d
	h := p.Height + 2*d
	if w <= o.cfg.Precision || h <= o.cfg.Precision {
		o.warn(p.ID, fmt.Sprintf("obround %.4f x %.4f collapsed by offset %.4f", p.Width, p.Height, d))
		return nil, nil
	}
	grown := &model.Obround{Base: model.Base{ID: p.ID, Props: p.Props}, Position: p.Position, Width: w, Height: h}
	path, err := geom.PrimitiveToPath(o.reg, grown, o.cfg)
	if err != nil {
		o.warn(p.ID, err.Error())
		return nil, nil
	}
	path.Props.IsOffsetDerived = true
	path.Props.OffsetType = offsetTypeFor(d)
	path.Props.OffsetDistance = d
	return []model.Primitive{path}, nil
}

// offsetStroke polygonizes a stroked primitive at its offset total width.
func (o *Offsetter) offsetStroke(prim model.Primitive, d float64) ([]model.Primitive, error) {
	meta := prim.Meta()
	total := meta.Props.StrokeWidth + 2*d
	if total <= o.cfg.Precision {
		o.warn(meta.ID, fmt.Sprintf("stroke width %.4f collapsed by offset %.4f", meta.Props.StrokeWidth, d))
		return nil, nil
	}

	switch p := prim.(type) {
	case *model.Bezier:
		var capIDs []model.CurveID
		contour, err := geom.PolylineToPolygon(o.reg, meta.ID, geom.FlattenBezier(p, 32), total, o.cfg, &capIDs)
		if err != nil {
			o.warn(meta.ID, err.Error())
			return nil, nil
		}
		out := model.NewPath([]model.Contour{contour}, true)
		out.Props = polygonizedProps(meta.Props, d)
		out.CurveIDs = append(out.CurveIDs, capIDs...)
		return []model.Primitive{out}, nil

	case *model.Arc:
		contour, err := geom.ArcToPolygon(o.reg, p, total, o.cfg)
		if err != nil {
			o.warn(meta.ID, err.Error())
			return nil, nil
		}
		out := model.NewPath([]model.Contour{contour}, true)
		out.Props = polygonizedProps(meta.Props, d)
		out.CurveIDs = append(out.CurveIDs, contour.CurveIDs...)
		return []model.Primitive{out}, nil

	case *model.Path:
		var results []model.Primitive
		for ci := range p.Contours {
			c := &p.Contours[ci]
			if len(c.Points) < 2 {
				continue
			}
			closedRing := p.Closed || geom.SqDist(c.Points[0].XY(), c.Points[len(c.Points)-1].XY()) < o.cfg.Precision*o.cfg.Precision
			if closedRing {
				outer, inner := o.offsetClosedStroke(p, c, total)
				results = append(results, outer...)
				results = append(results, inner...)
				continue
			}
			var capIDs []model.CurveID
			contour, err := geom.PolylineToPolygon(o.reg, meta.ID, c.Points, total, o.cfg, &capIDs)
			if err != nil {
				o.warn(meta.ID, err.Error())
				continue
			}
			out := model.NewPath([]model.Contour{contour}, true)
			out.Props = polygonizedProps(meta.Props, d)
			out.CurveIDs = append(out.CurveIDs, capIDs...)
			results = append(results, out)
		}
		return results, nil
	}

	o.warn(meta.ID, fmt.Sprintf("no stroke handler for %s", prim.Kind()))
	return nil, nil
}

// offsetClosedStroke turns a closed stroked ring into an outer fill ring
// and an inner hole ring at half the total width each way.
func (o *Offsetter) offsetClosedStroke(p *model.Path, c *model.Contour, total float64) (outer, inner []model.Primitive) {
	half := total / 2
	if pts := o.offsetPolyline(p.ID, c.Points, half); len(pts) >= 3 {
		out := model.NewPath([]model.Contour{{Points: pts}}, true)
		out.Props = polygonizedProps(p.Props, 0)
		outer = append(outer, out)
	}
	if pts := o.offsetPolyline(p.ID, c.Points, -half); len(pts) >= 3 {
		hole := model.NewPath([]model.Contour{{Points: pts, IsHole: true}}, true)
		hole.Props = polygonizedProps(p.Props, 0)
		hole.Props.Polarity = model.PolarityClear
		inner = append(inner, hole)
	}
	return outer, inner
}

func polygonizedProps(props model.Properties, d float64) model.Properties {
	props.Fill = true
	props.Stroke = false
	props.Polygonized = true
	if d != 0 {
		props.IsOffsetDerived = true
		props.OffsetType = offsetTypeFor(d)
		props.OffsetDistance = d
	}
	return props
}

// offsetPath is the heart of the offsetter: dispatch over the contour
// structure of a path primitive.
func (o *Offsetter) offsetPath(p *model.Path, d float64) ([]model.Primitive, error) {
	// Centerline paths pass through unchanged; the machine processor
	// recognizes them as a slot macro.
	if p.Props.IsCenterlinePath && !p.Closed {
		out := model.NewPath(p.Contours, false)
		out.Props = p.Props
		out.Props.OffsetType = "on"
		return []model.Primitive{out}, nil
	}

	if len(p.Contours) > 1 {
		// Offset each contour independently; holes move the other way so a
		// nominal external offset expands the outer ring and shrinks holes.
		// Compound re-assembly is deferred to the fusion stage.
		var results []model.Primitive
		for ci := range p.Contours {
			c := p.Contours[ci]
			dist := d
			if c.IsHole {
				dist = -d
			}
			sub := model.NewPath([]model.Contour{c}, p.Closed)
			sub.Props = p.Props
			offs, err := o.offsetPath(sub, dist)
			if err != nil {
				return nil, err
			}
			results = append(results, offs...)
		}
		return results, nil
	}

	if len(p.Contours) == 0 {
		return nil, nil
	}
	c := &p.Contours[0]
	if len(c.Points) < 3 {
		o.warn(p.ID, "contour has fewer than 3 points")
		return nil, nil
	}

	var result *model.Path
	if len(c.ArcSegments) > 0 {
		result = o.offsetHybrid(p, c, d)
	} else {
		pts := o.offsetPolyline(p.ID, c.Points, d)
		if len(pts) >= 3 {
			result = model.NewPath([]model.Contour{{Points: pts, IsHole: c.IsHole, NestingLevel: c.NestingLevel}}, true)
		}
	}
	if result == nil {
		o.warn(p.ID, fmt.Sprintf("contour collapsed under offset %.4f", d))
		return nil, nil
	}
	result.Props = p.Props
	result.Props.IsOffsetDerived = true
	result.Props.OffsetType = offsetTypeFor(d)
	result.Props.OffsetDistance = d
	return []model.Primitive{result}, nil
}

func firstID(ids []model.CurveID) model.CurveID {
	if len(ids) > 0 {
		return ids[0]
	}
	return 0
}
