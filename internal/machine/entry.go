package machine

import (
	"math"

	"github.com/piwi3910/pcbcam/internal/model"
)

// entryMoves descends from travel height into the material using the
// plan's entry strategy. On return the tool sits at the plan's entry point
// at pass depth.
func (m *Processor) entryMoves(plan *model.ToolpathPlan) []model.MotionCommand {
	md := &plan.Metadata
	switch md.EntryType {
	case model.EntryHelix:
		return m.helixEntry(plan)
	case model.EntryRamp:
		return m.rampEntry(plan)
	default:
		return m.plungeEntry(plan)
	}
}

// plungeEntry rapids down to feed height and feeds straight to depth.
func (m *Processor) plungeEntry(plan *model.ToolpathPlan) []model.MotionCommand {
	md := &plan.Metadata
	cmds := []model.MotionCommand{
		model.RapidZ(FeedHeight),
		model.Plunge(md.CutDepth, md.PlungeRate),
	}
	m.pos.Z = md.CutDepth
	return cmds
}

// helixEntry spirals into the material around the entry point. Each
// revolution is split into linear segments descending one pitch; the move
// recenters on the entry point at the bottom.
func (m *Processor) helixEntry(plan *model.ToolpathPlan) []model.MotionCommand {
	md := &plan.Metadata
	helix := m.ctx.Config.Entry.Helix
	entry := md.Optimization.OptimizedEntryPoint
	radius := md.Tool.Diameter * helix.RadiusFactor
	pitch := helix.Pitch
	if pitch <= 0 {
		pitch = 0.5
	}
	segsPerRev := helix.SegmentsPerRevolution
	if segsPerRev < 4 {
		segsPerRev = 4
	}
	depth := math.Abs(md.CutDepth)
	revolutions := depth / pitch
	totalSegs := int(math.Ceil(revolutions * float64(segsPerRev)))
	if totalSegs < segsPerRev {
		totalSegs = segsPerRev
	}

	cmds := []model.MotionCommand{
		model.RapidZ(FeedHeight),
		model.Plunge(0, md.PlungeRate),
		model.LinearXY(entry.X+radius, entry.Y, md.PlungeRate),
	}
	zPerSeg := depth / float64(totalSegs)
	for i := 1; i <= totalSegs; i++ {
		angle := 2 * math.Pi * float64(i) / float64(segsPerRev)
		z := -zPerSeg * float64(i)
		if z < md.CutDepth {
			z = md.CutDepth
		}
		cmds = append(cmds, model.Linear(
			entry.X+radius*math.Cos(angle),
			entry.Y+radius*math.Sin(angle),
			z, md.PlungeRate))
	}
	// Recenter at the bottom before cutting starts.
	cmds = append(cmds, model.Linear(entry.X, entry.Y, md.CutDepth, md.FeedRate))
	m.pos = model.Point3D{X: entry.X, Y: entry.Y, Z: md.CutDepth}
	return cmds
}

// rampEntry feeds to Z0 and descends along the plan's own first commands
// at the configured ramp slope, then returns to the entry point at depth.
// Z is clamped so the ramp never overshoots the pass depth.
func (m *Processor) rampEntry(plan *model.ToolpathPlan) []model.MotionCommand {
	md := &plan.Metadata
	entry := md.Optimization.OptimizedEntryPoint
	angle := m.ctx.Strategy.EntryRampAngle
	if angle <= 0 {
		angle = 3.0
	}
	if angle > 45 {
		angle = 45
	}
	slope := math.Tan(angle * math.Pi / 180)

	cmds := []model.MotionCommand{
		model.RapidZ(FeedHeight),
		model.Plunge(0, md.PlungeRate),
	}

	// Walk forward along the path, descending at the ramp slope.
	cur := model.Point2D{X: entry.X, Y: entry.Y}
	z := 0.0
	var visited []model.Point2D
	for _, c := range plan.Commands {
		if !model.IsSet(c.X) || !model.IsSet(c.Y) {
			continue
		}
		target := model.Point2D{X: c.X, Y: c.Y}
		dist := math.Hypot(target.X-cur.X, target.Y-cur.Y)
		if dist < 1e-9 {
			continue
		}
		drop := dist * slope
		reached := false
		if z-drop <= md.CutDepth {
			// Split the move at the point where the ramp bottoms out.
			frac := (z - md.CutDepth) / drop
			target = model.Point2D{
				X: cur.X + (target.X-cur.X)*frac,
				Y: cur.Y + (target.Y-cur.Y)*frac,
			}
			z = md.CutDepth
			reached = true
		} else {
			z -= drop
		}
		cmds = append(cmds, model.Linear(target.X, target.Y, z, md.PlungeRate))
		visited = append(visited, target)
		cur = target
		if reached {
			break
		}
	}
	if z > md.CutDepth {
		// Path shorter than the ramp needs: finish with a straight plunge.
		cmds = append(cmds, model.Plunge(md.CutDepth, md.PlungeRate))
	}

	// Back out along the ramped stretch to start the cut at the entry.
	for i := len(visited) - 2; i >= 0; i-- {
		cmds = append(cmds, model.Linear(visited[i].X, visited[i].Y, md.CutDepth, md.FeedRate))
	}
	cmds = append(cmds, model.Linear(entry.X, entry.Y, md.CutDepth, md.FeedRate))
	m.pos = model.Point3D{X: entry.X, Y: entry.Y, Z: md.CutDepth}
	return cmds
}
