package toolpath

import (
	"sort"

	"github.com/piwi3910/pcbcam/internal/model"
)

// tabRange is a perimeter-distance interval that rides over a holding tab.
type tabRange struct {
	start, end float64
}

// PlanContourTabs places tab ranges on a closed contour and splits it into
// a tab/cut-tagged motion sequence. Tabs prefer the longest straight
// segments; remaining tabs fall equidistantly, skipping proposals that
// would overlap. Returns nil when not even one tab could be placed — the
// caller then cuts the contour in one piece.
func PlanContourTabs(c *model.Contour, tabCount int, tabWidth, feed, depth float64) []model.MotionCommand {
	segs := contourSegments(c)
	if len(segs) == 0 || tabCount <= 0 || tabWidth <= 0 {
		return nil
	}
	total := 0.0
	for _, s := range segs {
		total += s.length
	}
	if total <= tabWidth*float64(tabCount) {
		return nil
	}

	ranges := chooseTabRanges(segs, total, tabCount, tabWidth)
	if len(ranges) == 0 {
		return nil
	}
	return splitSegments(segs, total, ranges, depth, feed)
}

// chooseTabRanges picks tab intervals: first centered on the longest
// straight segments that can hold a tab, then equidistant fill-ins that
// don't collide with already-placed tabs.
func chooseTabRanges(segs []pathSeg, total float64, tabCount int, tabWidth float64) []tabRange {
	minSegmentLength := tabWidth * 2

	type straightSeg struct {
		startDist float64
		length    float64
	}
	var straights []straightSeg
	dist := 0.0
	for _, s := range segs {
		if !s.isArc && s.length >= minSegmentLength {
			straights = append(straights, straightSeg{startDist: dist, length: s.length})
		}
		dist += s.length
	}
	sort.Slice(straights, func(i, j int) bool { return straights[i].length > straights[j].length })

	var ranges []tabRange
	for _, s := range straights {
		if len(ranges) >= tabCount {
			break
		}
		mid := s.startDist + s.length/2
		r := tabRange{start: mid - tabWidth/2, end: mid + tabWidth/2}
		if !overlapsAny(ranges, r, total) {
			ranges = append(ranges, r)
		}
	}

	// Equidistant fill for the remainder.
	if len(ranges) < tabCount {
		spacing := total / float64(tabCount)
		for k := 0; k < tabCount && len(ranges) < tabCount; k++ {
			mid := spacing * (float64(k) + 0.5)
			r := tabRange{start: mid - tabWidth/2, end: mid + tabWidth/2}
			if !overlapsAny(ranges, r, total) {
				ranges = append(ranges, r)
			}
		}
	}

	return normalizeRanges(ranges, total)
}

// overlapsAny tests a proposed range against placed ones on the perimeter
// circle.
func overlapsAny(placed []tabRange, r tabRange, total float64) bool {
	for _, p := range placed {
		if circularOverlap(p, r, total) {
			return true
		}
	}
	return false
}

func circularOverlap(a, b tabRange, total float64) bool {
	// Compare on the unwrapped line and at ±total to catch seam crossings.
	for _, shift := range []float64{-total, 0, total} {
		if a.start < b.end+shift+rangeEps && b.start+shift < a.end+rangeEps {
			return true
		}
	}
	return false
}

// normalizeRanges wraps seam-crossing ranges into two in-bounds ranges and
// sorts the result by start distance.
func normalizeRanges(ranges []tabRange, total float64) []tabRange {
	var out []tabRange
	for _, r := range ranges {
		switch {
		case r.start < 0:
			out = append(out, tabRange{start: r.start + total, end: total}, tabRange{start: 0, end: r.end})
		case r.end > total:
			out = append(out, tabRange{start: r.start, end: total}, tabRange{start: 0, end: r.end - total})
		default:
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// splitContourAtTabs converts selected tab positions into ranges and
// splits the contour commands accordingly. Used by the translator so the
// emitted plan carries per-command tab flags matching its metadata.
func splitContourAtTabs(c *model.Contour, tabs []model.TabPosition, depth, feed float64) []model.MotionCommand {
	segs := contourSegments(c)
	if len(segs) == 0 {
		return nil
	}
	total := 0.0
	for _, s := range segs {
		total += s.length
	}
	ranges := make([]tabRange, 0, len(tabs))
	for _, t := range tabs {
		ranges = append(ranges, tabRange{start: t.Start, end: t.End})
	}
	ranges = normalizeRanges(ranges, total)
	return splitSegments(segs, total, ranges, depth, feed)
}

// splitSegments walks the ring in order, cutting every segment at the tab
// boundaries that fall inside it and emitting one motion command per
// sub-segment, tagged with whether it rides over a tab. Arc sub-segments
// interpolate angularly around the arc center and keep exact center
// offsets; lines interpolate linearly.
func splitSegments(segs []pathSeg, total float64, ranges []tabRange, depth, feed float64) []model.MotionCommand {
	var cmds []model.MotionCommand
	dist := 0.0
	for i := range segs {
		s := &segs[i]
		d0 := dist
		d1 := dist + s.length

		// Boundaries inside this segment, as local distances.
		cuts := []float64{0}
		for _, r := range ranges {
			for _, b := range []float64{r.start, r.end} {
				if b > d0+rangeEps && b < d1-rangeEps {
					cuts = append(cuts, b-d0)
				}
			}
		}
		cuts = append(cuts, s.length)
		sort.Float64s(cuts)

		for c := 0; c+1 < len(cuts); c++ {
			lo, hi := cuts[c], cuts[c+1]
			if hi-lo < rangeEps {
				continue
			}
			mid := d0 + (lo+hi)/2
			cmds = append(cmds, subCommand(s, lo, hi, insideAny(ranges, mid), depth, feed))
		}
		dist = d1
	}
	return cmds
}

func insideAny(ranges []tabRange, d float64) bool {
	for _, r := range ranges {
		if d >= r.start-rangeEps && d <= r.end+rangeEps {
			return true
		}
	}
	return false
}

// subCommand emits the motion for one sub-segment of the walk.
func subCommand(s *pathSeg, lo, hi float64, isTab bool, depth, feed float64) model.MotionCommand {
	if s.isArc {
		start := s.pointAlong(lo)
		end := s.pointAlong(hi)
		cmd := model.ArcTo(end.X, end.Y, depth,
			s.arc.Center.X-start.X, s.arc.Center.Y-start.Y, feed, emittedCW(s.arc.Clockwise))
		cmd.IsTab = isTab
		return cmd
	}
	end := s.pointAlong(hi)
	cmd := model.Linear(end.X, end.Y, depth, feed)
	cmd.IsTab = isTab
	return cmd
}
