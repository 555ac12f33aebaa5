package toolpath

import (
	"math"
	"sort"

	"github.com/piwi3910/pcbcam/internal/geom"
	"github.com/piwi3910/pcbcam/internal/model"
)

// cornerTurnAngle is the line-to-line turn above which a vertex counts as
// a corner for tab placement (radians).
const cornerTurnAngle = 30 * math.Pi / 180

// rangeEps is the perimeter-distance tolerance for overlap and boundary
// comparisons.
const rangeEps = 1e-6

// pathSeg is one traversable piece of a contour: a straight edge or a
// tagged arc, with its perimeter length.
type pathSeg struct {
	isArc  bool
	p0, p1 model.Point2D
	arc    *model.ArcSegment
	sweep  float64 // signed, arcs only
	length float64
}

// contourSegments flattens a closed contour into an ordered segment walk,
// folding arc-tagged vertex runs into single arc segments and closing the
// ring back to the first point.
func contourSegments(c *model.Contour) []pathSeg {
	pts := c.Points
	n := len(pts)
	if n < 2 {
		return nil
	}
	arcAt := make(map[int]*model.ArcSegment, len(c.ArcSegments))
	for i := range c.ArcSegments {
		arcAt[c.ArcSegments[i].StartIndex] = &c.ArcSegments[i]
	}

	var segs []pathSeg
	closedByArc := false
	for i := 0; i < n; {
		if seg := arcAt[i]; seg != nil {
			sweep := seg.SweepAngle
			if sweep == 0 {
				sweep = geom.SweepAngle(seg.StartAngle, seg.EndAngle, seg.Clockwise)
			}
			segs = append(segs, pathSeg{
				isArc:  true,
				p0:     pts[i].XY(),
				p1:     pts[seg.EndIndex].XY(),
				arc:    seg,
				sweep:  sweep,
				length: math.Abs(sweep) * seg.Radius,
			})
			if seg.EndIndex <= i {
				closedByArc = true
				break
			}
			i = seg.EndIndex
			continue
		}
		if i+1 < n {
			a, b := pts[i].XY(), pts[i+1].XY()
			if l := geom.Dist(a, b); l > rangeEps {
				segs = append(segs, pathSeg{p0: a, p1: b, length: l})
			}
		}
		i++
	}
	// Closing edge back to the first vertex.
	if !closedByArc {
		a, b := pts[n-1].XY(), pts[0].XY()
		if l := geom.Dist(a, b); l > rangeEps {
			segs = append(segs, pathSeg{p0: a, p1: b, length: l})
		}
	}
	return segs
}

// pointAlong returns the position at the given distance into the segment.
func (s *pathSeg) pointAlong(dist float64) model.Point2D {
	t := 0.0
	if s.length > 0 {
		t = dist / s.length
	}
	if s.isArc {
		angle := s.arc.StartAngle + s.sweep*t
		return model.Point2D{
			X: s.arc.Center.X + s.arc.Radius*math.Cos(angle),
			Y: s.arc.Center.Y + s.arc.Radius*math.Sin(angle),
		}
	}
	return model.Point2D{
		X: s.p0.X + (s.p1.X-s.p0.X)*t,
		Y: s.p0.Y + (s.p1.Y-s.p0.Y)*t,
	}
}

// tabSection is a stretch of contour suitable for holding a tab.
type tabSection struct {
	startDist   float64
	length      float64
	sectionType string
}

// SelectTabPositions analyzes a closed contour into tab-suitable sections
// and places up to tabCount tabs at the midpoints of the best ones.
// Straight sections beat curved ones; longer sections beat shorter.
// Corners (line-to-arc transitions and sharp line-to-line turns) are kept
// clear by a margin derived from the tool diameter. Returns nil when the
// contour is too small or nothing qualifies.
func SelectTabPositions(c *model.Contour, tabCount int, tabWidth, tabHeight, toolDiameter float64, cfg model.TabConfig) []model.TabPosition {
	if tabCount <= 0 || tabWidth <= 0 {
		return nil
	}
	segs := contourSegments(c)
	if len(segs) == 0 {
		return nil
	}
	total := 0.0
	for _, s := range segs {
		total += s.length
	}

	cornerMargin := toolDiameter * cfg.CornerMarginFactor
	if cornerMargin < tabWidth {
		cornerMargin = tabWidth
	}
	minSegmentLength := tabWidth * cfg.MinTabLengthFactor
	if total < 2*cornerMargin {
		return nil
	}

	sections := analyzeSections(segs, cornerMargin, minSegmentLength)
	if len(sections) == 0 {
		return nil
	}

	sort.SliceStable(sections, func(i, j int) bool {
		si, sj := sections[i], sections[j]
		if si.sectionType != sj.sectionType {
			return si.sectionType == "straight"
		}
		return si.length > sj.length
	})

	n := tabCount
	if n > len(sections) {
		n = len(sections)
	}
	tabs := make([]model.TabPosition, 0, n)
	for _, sec := range sections[:n] {
		mid := sec.startDist + sec.length/2
		tabs = append(tabs, model.TabPosition{
			Start:       mid - tabWidth/2,
			End:         mid + tabWidth/2,
			Position:    pointAtDistance(segs, mid),
			Width:       tabWidth,
			Height:      tabHeight,
			SectionType: sec.sectionType,
		})
	}
	sort.Slice(tabs, func(i, j int) bool { return tabs[i].Start < tabs[j].Start })
	return tabs
}

// analyzeSections walks the segment ring and extracts usable stretches:
// straight edges shortened by the margins of their corner endpoints, and
// gentle arcs long enough to hold a tab.
func analyzeSections(segs []pathSeg, cornerMargin, minSegmentLength float64) []tabSection {
	var sections []tabSection
	m := len(segs)
	dist := 0.0
	for i, s := range segs {
		prev := segs[(i-1+m)%m]
		next := segs[(i+1)%m]

		if s.isArc {
			if s.arc.Radius > 2*minSegmentLength {
				usable := s.length - 2*cornerMargin
				if usable >= minSegmentLength {
					sections = append(sections, tabSection{
						startDist:   dist + cornerMargin,
						length:      usable,
						sectionType: "arc",
					})
				}
			}
			dist += s.length
			continue
		}

		startMargin := 0.0
		if isCorner(&prev, &s) {
			startMargin = cornerMargin
		}
		endMargin := 0.0
		if isCorner(&s, &next) {
			endMargin = cornerMargin
		}
		usable := s.length - startMargin - endMargin
		if usable >= minSegmentLength {
			sections = append(sections, tabSection{
				startDist:   dist + startMargin,
				length:      usable,
				sectionType: "straight",
			})
		}
		dist += s.length
	}
	return sections
}

// isCorner reports whether the junction between two consecutive segments
// needs a tab margin: any line-to-arc transition, or a line-to-line turn
// sharper than 30 degrees.
func isCorner(a, b *pathSeg) bool {
	if a.isArc || b.isArc {
		return true
	}
	ax, ay := geom.Normalize(a.p1.X-a.p0.X, a.p1.Y-a.p0.Y)
	bx, by := geom.Normalize(b.p1.X-b.p0.X, b.p1.Y-b.p0.Y)
	dot := ax*bx + ay*by
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	return math.Acos(dot) > cornerTurnAngle
}

// pointAtDistance locates a perimeter distance on the segment walk.
func pointAtDistance(segs []pathSeg, dist float64) model.Point2D {
	for i := range segs {
		if dist <= segs[i].length || i == len(segs)-1 {
			return segs[i].pointAlong(dist)
		}
		dist -= segs[i].length
	}
	return model.Point2D{}
}
