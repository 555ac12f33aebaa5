// Package machine sequences pure cutting plans into machine-ready motion:
// rapids between features, plunge/helix/ramp entries, peck drilling cycles,
// tab lift-overs, retracts and a final move to safe height. The processor
// consumes plans in the order handed to it and never reorders them; link
// optimization decisions arrive pre-marked on each plan.
package machine

import (
	"math"

	"github.com/npillmayer/schuko/tracing"

	"github.com/piwi3910/pcbcam/internal/model"
)

// tracer writes to trace with key 'pcbcam.machine'
func tracer() tracing.Trace {
	return tracing.Select("pcbcam.machine")
}

// FeedHeight is the clearance above Z0 where rapid descent hands over to
// feed-rate motion, in mm.
const FeedHeight = 1.0

// xyLinkTolerance is the max XY distance for a multi-depth plunge link.
const xyLinkTolerance = 0.01

// Processor owns the tool state while sequencing one operation stream.
type Processor struct {
	ctx *model.ToolpathContext
	pos model.Point3D
}

// New creates a Processor for the given context. initialPos may be nil, in
// which case the tool is assumed parked at the origin at safe height.
func New(ctx *model.ToolpathContext, initialPos *model.Point3D) *Processor {
	pos := model.Point3D{X: 0, Y: 0, Z: ctx.Machine.SafeZ}
	if initialPos != nil {
		pos = *initialPos
	}
	return &Processor{ctx: ctx, pos: pos}
}

// Position returns the tracked tool position.
func (m *Processor) Position() model.Point3D { return m.pos }

// Process sequences the plans into machine-ready plans: an init plan, one
// plan per input with connection/entry/cutting/retract motion, and a final
// retract to safe height.
func (m *Processor) Process(plans []*model.ToolpathPlan) []*model.ToolpathPlan {
	if len(plans) == 0 {
		return nil
	}
	var out []*model.ToolpathPlan

	out = append(out, m.initPlan(plans[0]))

	var prev *model.ToolpathPlan
	for i, plan := range plans {
		var next *model.ToolpathPlan
		if i+1 < len(plans) {
			next = plans[i+1]
		}
		out = append(out, m.processPlan(plan, prev, next))
		prev = plan
	}

	if m.pos.Z < m.ctx.Machine.SafeZ {
		final := &model.ToolpathPlan{
			OperationID: plans[len(plans)-1].OperationID,
			Commands:    []model.MotionCommand{model.RapidZ(m.ctx.Machine.SafeZ)},
		}
		final.Metadata.GroupKey = "final_retract"
		m.pos.Z = m.ctx.Machine.SafeZ
		out = append(out, final)
	}
	return out
}

// initPlan raises the tool to safe height and rapids over the first entry.
func (m *Processor) initPlan(first *model.ToolpathPlan) *model.ToolpathPlan {
	var cmds []model.MotionCommand
	safeZ := m.ctx.Machine.SafeZ
	if m.pos.Z <= safeZ {
		cmds = append(cmds, model.RapidZ(safeZ))
		m.pos.Z = safeZ
	}
	entry := first.Metadata.Optimization.OptimizedEntryPoint
	cmds = append(cmds, model.RapidXY(entry.X, entry.Y))
	m.pos.X, m.pos.Y = entry.X, entry.Y

	plan := &model.ToolpathPlan{OperationID: first.OperationID, Commands: cmds}
	plan.Metadata.GroupKey = "init"
	return plan
}

// processPlan dispatches one plan to its sequencer.
func (m *Processor) processPlan(plan, prev, next *model.ToolpathPlan) *model.ToolpathPlan {
	md := &plan.Metadata
	switch {
	case md.IsPeckMark:
		return m.peckPlan(plan)
	case md.IsDrillMilling && md.EntryType == model.EntryHelix &&
		(md.PrimitiveType == model.KindCircle || md.PrimitiveType == model.KindObround):
		return m.helicalDrillPlan(plan)
	case md.IsCenterlinePath:
		return m.zigzagSlotPlan(plan)
	}
	return m.millingPlan(plan, prev, next)
}

// linkKind classifies the connection from the previous plan.
func (m *Processor) linkKind(plan, prev *model.ToolpathPlan) model.LinkType {
	md := &plan.Metadata
	if md.Optimization.LinkType == model.LinkStaydown {
		return model.LinkStaydown
	}
	if prev == nil {
		return model.LinkRapid
	}
	pm := &prev.Metadata
	sameOp := plan.OperationID == prev.OperationID
	sameXY := math.Hypot(md.EntryPoint.X-pm.EntryPoint.X, md.EntryPoint.Y-pm.EntryPoint.Y) <= xyLinkTolerance
	deeper := md.CutDepth < pm.CutDepth
	noDrill := !md.IsPeckMark && !md.IsDrillMilling && !pm.IsPeckMark && !pm.IsDrillMilling
	if sameOp && sameXY && deeper && noDrill {
		return model.LinkMultiDepth
	}
	return model.LinkRapid
}

// millingPlan emits connection, entry, cutting and retract motion for a
// general milling plan.
func (m *Processor) millingPlan(plan, prev, next *model.ToolpathPlan) *model.ToolpathPlan {
	md := &plan.Metadata
	entry := md.Optimization.OptimizedEntryPoint
	link := m.linkKind(plan, prev)
	tracer().Debugf("machine: %s link=%s entry=%s depth=%.3f", plan.OperationID, link, md.EntryType, md.CutDepth)

	var cmds []model.MotionCommand
	switch link {
	case model.LinkMultiDepth:
		// Already in position at the previous depth: plunge deeper in place.
		cmds = append(cmds, model.Linear(entry.X, entry.Y, md.CutDepth, md.PlungeRate))
		m.pos = model.Point3D{X: entry.X, Y: entry.Y, Z: md.CutDepth}

	case model.LinkStaydown:
		// Feed across at depth; the upstream optimizer guaranteed a clear path.
		cmds = append(cmds, model.LinearXY(entry.X, entry.Y, md.FeedRate))
		m.pos.X, m.pos.Y = entry.X, entry.Y
		if m.pos.Z > md.CutDepth {
			cmds = append(cmds, model.Plunge(md.CutDepth, md.PlungeRate))
			m.pos.Z = md.CutDepth
		}

	default:
		travelZ := m.ctx.Machine.TravelZ
		if m.pos.Z < travelZ {
			cmds = append(cmds, model.RapidZ(travelZ))
			m.pos.Z = travelZ
		}
		if math.Hypot(m.pos.X-entry.X, m.pos.Y-entry.Y) > 1e-9 {
			cmds = append(cmds, model.RapidXY(entry.X, entry.Y))
			m.pos.X, m.pos.Y = entry.X, entry.Y
		}
		cmds = append(cmds, m.entryMoves(plan)...)
	}

	cmds = append(cmds, m.cuttingMoves(plan)...)

	if !m.suppressRetract(plan, next) {
		cmds = append(cmds, model.RapidZ(m.ctx.Machine.TravelZ))
		m.pos.Z = m.ctx.Machine.TravelZ
	}

	out := &model.ToolpathPlan{OperationID: plan.OperationID, Commands: cmds, Metadata: plan.Metadata}
	return out
}

// cuttingMoves walks the plan's pure cutting commands, stamping the pass
// depth onto every move and lifting over tab-tagged commands.
func (m *Processor) cuttingMoves(plan *model.ToolpathPlan) []model.MotionCommand {
	md := &plan.Metadata
	passDepth := md.CutDepth
	tabTopZ := passDepth
	if md.HasTabs {
		tabTopZ = m.ctx.CutDepth + md.TabHeight
	}

	var cmds []model.MotionCommand
	for _, c := range plan.Commands {
		if c.IsTab && tabTopZ > passDepth {
			cmds = append(cmds, model.Linear(model.Unset(), model.Unset(), tabTopZ, md.PlungeRate))
			cmds = append(cmds, c.WithZ(tabTopZ))
			cmds = append(cmds, model.Linear(model.Unset(), model.Unset(), passDepth, md.PlungeRate))
			m.pos = c.EndsAt(m.pos)
			m.pos.Z = passDepth
			continue
		}
		stamped := c.WithZ(passDepth)
		cmds = append(cmds, stamped)
		m.pos = stamped.EndsAt(m.pos)
	}
	return cmds
}

// suppressRetract keeps the tool down when the next plan continues from
// here without a rapid link.
func (m *Processor) suppressRetract(plan, next *model.ToolpathPlan) bool {
	if next == nil {
		return false
	}
	if next.Metadata.Optimization.LinkType == model.LinkStaydown {
		return true
	}
	return m.linkKind(next, plan) == model.LinkMultiDepth
}
