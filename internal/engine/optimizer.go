package engine

import (
	"math"

	"github.com/piwi3910/pcbcam/internal/model"
)

// staydownFactor scales the tool diameter into the maximum gap the tool
// may feed across without retracting.
const staydownFactor = 3.0

// SequencePlans orders an operation's plans to minimize rapid travel and
// marks the cheap links the machine processor can exploit. Plans are
// grouped by primitive (a multi-depth stack stays together, shallow to
// deep); groups are visited nearest-neighbor from the origin. The machine
// processor itself never reorders.
func SequencePlans(plans []*model.ToolpathPlan, ctx *model.ToolpathContext) []*model.ToolpathPlan {
	if len(plans) <= 1 {
		return plans
	}

	// Keep depth stacks intact: consecutive plans sharing an entry XY are
	// one feature cut in passes.
	var groups [][]*model.ToolpathPlan
	for _, p := range plans {
		if n := len(groups); n > 0 && sameFeature(groups[n-1][len(groups[n-1])-1], p) {
			groups[n-1] = append(groups[n-1], p)
			continue
		}
		groups = append(groups, []*model.ToolpathPlan{p})
	}

	// Nearest-neighbor walk over feature groups, starting at the origin.
	remaining := make([][]*model.ToolpathPlan, len(groups))
	copy(remaining, groups)
	ordered := make([][]*model.ToolpathPlan, 0, len(groups))
	curX, curY := 0.0, 0.0
	for len(remaining) > 0 {
		bestIdx := 0
		bestDist := math.MaxFloat64
		for i, g := range remaining {
			e := g[0].Metadata.EntryPoint
			d := math.Hypot(e.X-curX, e.Y-curY)
			if d < bestDist {
				bestDist = d
				bestIdx = i
			}
		}
		chosen := remaining[bestIdx]
		ordered = append(ordered, chosen)
		exit := chosen[len(chosen)-1].Metadata.ExitPoint
		curX, curY = exit.X, exit.Y
		remaining[bestIdx] = remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]
	}

	// Flatten and mark links.
	out := make([]*model.ToolpathPlan, 0, len(plans))
	for _, g := range ordered {
		out = append(out, g...)
	}
	markLinks(out, ctx)
	return out
}

func sameFeature(a, b *model.ToolpathPlan) bool {
	if a.OperationID != b.OperationID {
		return false
	}
	dx := a.Metadata.EntryPoint.X - b.Metadata.EntryPoint.X
	dy := a.Metadata.EntryPoint.Y - b.Metadata.EntryPoint.Y
	return math.Hypot(dx, dy) <= 0.01
}

// markLinks tags each plan with how the machine may connect it to its
// predecessor: a multi-depth stack plunges in place, close same-depth
// neighbors in one group stay down, everything else rapids.
func markLinks(plans []*model.ToolpathPlan, ctx *model.ToolpathContext) {
	staydownMax := ctx.Tool.Diameter * staydownFactor
	for i := 1; i < len(plans); i++ {
		prev, cur := plans[i-1], plans[i]
		pm, cm := &prev.Metadata, &cur.Metadata

		if sameFeature(prev, cur) && cm.CutDepth < pm.CutDepth &&
			!cm.IsPeckMark && !cm.IsDrillMilling && !pm.IsPeckMark && !pm.IsDrillMilling {
			cm.Optimization.LinkType = model.LinkMultiDepth
			continue
		}

		// Staydown: same group and depth, exit-to-entry gap the tool can
		// feed across, and no tabs sticking up in between.
		if cm.GroupKey == pm.GroupKey && cm.CutDepth == pm.CutDepth &&
			!cm.IsPeckMark && !pm.IsPeckMark && !cm.IsDrillMilling && !pm.IsDrillMilling &&
			!pm.HasTabs && !cm.HasTabs {
			gap := math.Hypot(cm.EntryPoint.X-pm.ExitPoint.X, cm.EntryPoint.Y-pm.ExitPoint.Y)
			if gap <= staydownMax {
				cm.Optimization.LinkType = model.LinkStaydown
			}
		}
	}
}
