package machine

import (
	"math"

	"github.com/piwi3910/pcbcam/internal/model"
)

// peckRapidClearance is how far above the previous bottom the rapid
// descent stops between pecks, in mm.
const peckRapidClearance = 0.1

// helixArcsPerRevolution is the arc-command resolution of helical
// drill-milling descents.
const helixArcsPerRevolution = 16

// peckPlan emits a drilling cycle for one peck mark: straight plunge for
// shallow holes, an iterative G83-like peck sequence otherwise.
func (m *Processor) peckPlan(plan *model.ToolpathPlan) *model.ToolpathPlan {
	md := &plan.Metadata
	center := md.Center
	final := md.CutDepth
	travelZ := m.ctx.Machine.TravelZ

	var cmds []model.MotionCommand
	if m.pos.Z < travelZ {
		cmds = append(cmds, model.RapidZ(travelZ))
	}
	cmds = append(cmds, model.RapidXY(center.X, center.Y))
	cmds = append(cmds, model.RapidZ(FeedHeight))

	cycle := md.PeckCycle
	simple := cycle == nil || cycle.CannedCycle == model.CycleNone ||
		cycle.PeckDepth <= 0 || cycle.PeckDepth >= math.Abs(final)

	if simple {
		cmds = append(cmds, model.Plunge(final, md.PlungeRate))
		if cycle != nil && cycle.DwellTime > 0 {
			cmds = append(cmds, model.DwellFor(cycle.DwellTime))
		}
		cmds = append(cmds, model.RapidZ(travelZ))
	} else {
		lastCut := 0.0
		for lastCut > final {
			// The first peck starts from feed height; later pecks rapid back
			// down to just above the previous bottom.
			if lastCut != 0 {
				cmds = append(cmds, model.RapidZ(lastCut+peckRapidClearance))
			}
			next := lastCut - cycle.PeckDepth
			if next < final {
				next = final
			}
			cmds = append(cmds, model.Plunge(next, md.PlungeRate))
			if cycle.DwellTime > 0 {
				cmds = append(cmds, model.DwellFor(cycle.DwellTime))
			}
			if next > final {
				cmds = append(cmds, model.Retract(cycle.RetractHeight))
			}
			lastCut = next
		}
		cmds = append(cmds, model.RapidZ(travelZ))
	}

	m.pos = model.Point3D{X: center.X, Y: center.Y, Z: travelZ}
	return &model.ToolpathPlan{OperationID: plan.OperationID, Commands: cmds, Metadata: plan.Metadata}
}

// helicalDrillPlan mills a hole with a continuous helical descent. Holes
// too small for the tool to helix degrade to a straight plunge at center.
func (m *Processor) helicalDrillPlan(plan *model.ToolpathPlan) *model.ToolpathPlan {
	md := &plan.Metadata
	if md.PrimitiveType == model.KindObround && md.Obround != nil {
		return m.helicalObroundPlan(plan)
	}

	center := md.Center
	radius := md.Radius
	final := md.CutDepth
	travelZ := m.ctx.Machine.TravelZ
	minDia := m.ctx.Config.Entry.Drilling.MinHelixDiameter

	var cmds []model.MotionCommand
	if m.pos.Z < travelZ {
		cmds = append(cmds, model.RapidZ(travelZ))
	}

	if 2*radius < minDia {
		tracer().Debugf("machine: hole d=%.3f below helix minimum, plunging", 2*radius)
		cmds = append(cmds, model.RapidXY(center.X, center.Y))
		cmds = append(cmds, model.RapidZ(FeedHeight))
		cmds = append(cmds, model.Plunge(final, md.PlungeRate))
		cmds = append(cmds, model.RapidZ(travelZ))
		m.pos = model.Point3D{X: center.X, Y: center.Y, Z: travelZ}
		return &model.ToolpathPlan{OperationID: plan.OperationID, Commands: cmds, Metadata: plan.Metadata}
	}

	pitch := m.ctx.Config.Entry.Helix.Pitch
	if pitch <= 0 {
		pitch = 0.5
	}
	revolutions := math.Abs(final) / pitch
	totalSegs := int(math.Ceil(revolutions * helixArcsPerRevolution))
	if totalSegs < helixArcsPerRevolution {
		totalSegs = helixArcsPerRevolution
	}

	startX := center.X + radius
	cmds = append(cmds, model.RapidXY(startX, center.Y))
	cmds = append(cmds, model.RapidZ(FeedHeight))
	cmds = append(cmds, model.Plunge(0, md.PlungeRate))

	// Helical descent as short ARC_CW commands (geometrically
	// counter-clockwise, per the arc inversion) with linear Z steps.
	zPerSeg := math.Abs(final) / float64(totalSegs)
	prev := model.Point2D{X: startX, Y: center.Y}
	for i := 1; i <= totalSegs; i++ {
		angle := 2 * math.Pi * float64(i) / helixArcsPerRevolution
		pt := model.Point2D{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		}
		z := -zPerSeg * float64(i)
		if z < final {
			z = final
		}
		cmds = append(cmds, model.ArcTo(pt.X, pt.Y, z,
			center.X-prev.X, center.Y-prev.Y, md.PlungeRate, true))
		prev = pt
	}
	// Finishing pass: one flat full circle to clean the bottom.
	cmds = append(cmds, model.ArcTo(prev.X, prev.Y, final,
		center.X-prev.X, center.Y-prev.Y, md.FeedRate, true))
	cmds = append(cmds, model.RapidZ(travelZ))

	m.pos = model.Point3D{X: prev.X, Y: prev.Y, Z: travelZ}
	return &model.ToolpathPlan{OperationID: plan.OperationID, Commands: cmds, Metadata: plan.Metadata}
}

// helicalObroundPlan mills a slot with looping descents: two semicircles
// and two straights per loop, each semicircle advancing half a pitch.
func (m *Processor) helicalObroundPlan(plan *model.ToolpathPlan) *model.ToolpathPlan {
	md := &plan.Metadata
	ob := md.Obround
	final := md.CutDepth
	travelZ := m.ctx.Machine.TravelZ
	r := ob.SlotRadius

	// Tangent points on either side of the slot axis.
	var sA, sB, eA, eB model.Point2D
	if ob.IsHorizontal {
		sA = model.Point2D{X: ob.StartCapCenter.X, Y: ob.StartCapCenter.Y - r}
		sB = model.Point2D{X: ob.StartCapCenter.X, Y: ob.StartCapCenter.Y + r}
		eA = model.Point2D{X: ob.EndCapCenter.X, Y: ob.EndCapCenter.Y - r}
		eB = model.Point2D{X: ob.EndCapCenter.X, Y: ob.EndCapCenter.Y + r}
	} else {
		sA = model.Point2D{X: ob.StartCapCenter.X + r, Y: ob.StartCapCenter.Y}
		sB = model.Point2D{X: ob.StartCapCenter.X - r, Y: ob.StartCapCenter.Y}
		eA = model.Point2D{X: ob.EndCapCenter.X + r, Y: ob.EndCapCenter.Y}
		eB = model.Point2D{X: ob.EndCapCenter.X - r, Y: ob.EndCapCenter.Y}
	}

	pitch := m.ctx.Config.Entry.Helix.Pitch
	if pitch <= 0 {
		pitch = 0.5
	}

	var cmds []model.MotionCommand
	if m.pos.Z < travelZ {
		cmds = append(cmds, model.RapidZ(travelZ))
	}
	cmds = append(cmds, model.RapidXY(sA.X, sA.Y))
	cmds = append(cmds, model.RapidZ(FeedHeight))
	cmds = append(cmds, model.Plunge(0, md.PlungeRate))

	z := 0.0
	for z > final {
		z1 := math.Max(final, z-pitch/2)
		cmds = append(cmds, model.Linear(eA.X, eA.Y, z, md.PlungeRate))
		cmds = append(cmds, arcDescend(eA, eB, ob.EndCapCenter, z1, md.PlungeRate))
		z2 := math.Max(final, z1-pitch/2)
		cmds = append(cmds, model.Linear(sB.X, sB.Y, z1, md.PlungeRate))
		cmds = append(cmds, arcDescend(sB, sA, ob.StartCapCenter, z2, md.PlungeRate))
		z = z2
	}

	// Finishing loop: full slot at final depth.
	cmds = append(cmds, model.Linear(eA.X, eA.Y, final, md.FeedRate))
	cmds = append(cmds, arcDescend(eA, eB, ob.EndCapCenter, final, md.FeedRate))
	cmds = append(cmds, model.Linear(sB.X, sB.Y, final, md.FeedRate))
	cmds = append(cmds, arcDescend(sB, sA, ob.StartCapCenter, final, md.FeedRate))
	cmds = append(cmds, model.RapidZ(travelZ))

	m.pos = model.Point3D{X: sA.X, Y: sA.Y, Z: travelZ}
	return &model.ToolpathPlan{OperationID: plan.OperationID, Commands: cmds, Metadata: plan.Metadata}
}

func arcDescend(from, to, center model.Point2D, z, feed float64) model.MotionCommand {
	return model.ArcTo(to.X, to.Y, z, center.X-from.X, center.Y-from.Y, feed, true)
}

// zigzagSlotPlan cuts a centerline slot by feeding back and forth along
// the polyline, stepping down one pass depth per traverse.
func (m *Processor) zigzagSlotPlan(plan *model.ToolpathPlan) *model.ToolpathPlan {
	md := &plan.Metadata
	final := md.CutDepth
	travelZ := m.ctx.Machine.TravelZ
	step := math.Abs(md.DepthPerPass)
	if step <= 0 {
		step = math.Abs(final)
	}

	// Waypoints: entry point plus every XY the cutting commands visit.
	waypoints := []model.Point2D{{X: md.EntryPoint.X, Y: md.EntryPoint.Y}}
	for _, c := range plan.Commands {
		if model.IsSet(c.X) && model.IsSet(c.Y) {
			waypoints = append(waypoints, model.Point2D{X: c.X, Y: c.Y})
		}
	}

	var cmds []model.MotionCommand
	if m.pos.Z < travelZ {
		cmds = append(cmds, model.RapidZ(travelZ))
	}
	cmds = append(cmds, model.RapidXY(waypoints[0].X, waypoints[0].Y))
	cmds = append(cmds, model.RapidZ(FeedHeight))

	z := 0.0
	forward := true
	last := waypoints[0]
	for z > final {
		z = math.Max(final, z-step)
		cmds = append(cmds, model.Plunge(z, md.PlungeRate))
		if forward {
			for _, w := range waypoints[1:] {
				cmds = append(cmds, model.LinearXY(w.X, w.Y, md.FeedRate))
				last = w
			}
		} else {
			for i := len(waypoints) - 2; i >= 0; i-- {
				cmds = append(cmds, model.LinearXY(waypoints[i].X, waypoints[i].Y, md.FeedRate))
				last = waypoints[i]
			}
		}
		forward = !forward
	}
	cmds = append(cmds, model.RapidZ(travelZ))

	m.pos = model.Point3D{X: last.X, Y: last.Y, Z: travelZ}
	return &model.ToolpathPlan{OperationID: plan.OperationID, Commands: cmds, Metadata: plan.Metadata}
}
