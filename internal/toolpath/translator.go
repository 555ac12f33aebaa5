// Package toolpath translates offset primitives into pure cutting plans:
// per depth level, one ToolpathPlan holding only Linear and Arc commands at
// that depth. Rapids, entries and retracts belong to the machine processor;
// holding tabs are planned here so the processor only has to honor the
// per-command tab flag.
package toolpath

import (
	"math"

	"github.com/npillmayer/schuko/tracing"

	"github.com/piwi3910/pcbcam/internal/model"
)

// tracer writes to trace with key 'pcbcam.toolpath'
func tracer() tracing.Trace {
	return tracing.Select("pcbcam.toolpath")
}

// closeTolerance is the gap above which a closed path gets an explicit
// closing move back to its first point.
const closeTolerance = 1e-3

// Translator compiles primitives into toolpath plans.
type Translator struct {
	warnings *model.WarningSink
}

// New creates a Translator. The warning sink may be nil.
func New(warnings *model.WarningSink) *Translator {
	return &Translator{warnings: warnings}
}

func (t *Translator) warn(primitiveID, msg string) {
	tracer().Debugf("translate: %s: %s", primitiveID, msg)
	if t.warnings != nil {
		t.warnings.Add(primitiveID, "translate", msg)
	}
}

// Translate compiles every primitive at every depth level of the context
// into plans, in (primitive, depth) order with depth levels shallow to
// deep. Drill operations route through the drill translator.
func (t *Translator) Translate(ctx *model.ToolpathContext, prims []model.Primitive) ([]*model.ToolpathPlan, error) {
	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	if ctx.OperationType == model.OpDrill {
		return t.translateDrill(ctx, prims)
	}

	levels := t.depthLevels(ctx)
	var plans []*model.ToolpathPlan
	for _, prim := range prims {
		primLevels := levels
		// The slot macro steps through depths itself.
		if prim.Meta().Props.IsCenterlinePath {
			primLevels = []float64{ctx.CutDepth}
		}
		for _, depth := range primLevels {
			plan := t.translateOne(ctx, prim, depth)
			if plan == nil {
				continue
			}
			plans = append(plans, plan)
		}
	}
	return plans, nil
}

func (t *Translator) depthLevels(ctx *model.ToolpathContext) []float64 {
	if len(ctx.Computed.DepthLevels) > 0 {
		return ctx.Computed.DepthLevels
	}
	return model.DepthLevels(ctx.CutDepth, ctx.Strategy.DepthPerPass)
}

// translateOne builds one plan for one primitive at one depth, or nil when
// the primitive has no handler or no geometry.
func (t *Translator) translateOne(ctx *model.ToolpathContext, prim model.Primitive, depth float64) *model.ToolpathPlan {
	plan := &model.ToolpathPlan{
		OperationID: ctx.OperationID,
		Metadata:    t.baseMetadata(ctx, prim, depth),
	}

	switch p := prim.(type) {
	case *model.Circle:
		t.analyzeCircle(plan, p, depth)
		plan.Commands = circleCommands(p, depth, ctx.Cutting.FeedRate, ctx.Strategy.Direction)

	case *model.Obround:
		t.analyzeObround(plan, p, depth)
		plan.Commands = obroundCommands(p, depth, ctx.Cutting.FeedRate, ctx.Strategy.Direction)

	case *model.Arc:
		t.analyzeArc(plan, p, depth)
		plan.Commands = arcCommands(p, depth, ctx.Cutting.FeedRate)

	case *model.Path:
		if !t.analyzePath(plan, p, depth, ctx) {
			return nil
		}
		contour := p.Outer()
		if plan.Metadata.HasTabs {
			plan.Commands = splitContourAtTabs(contour, plan.Metadata.TabPositions, depth, ctx.Cutting.FeedRate)
		} else {
			plan.Commands = pathCommands(p, depth, ctx.Cutting.FeedRate)
		}

	default:
		t.warn(prim.Meta().ID, "no translation handler for "+string(prim.Kind()))
		return nil
	}

	if len(plan.Commands) == 0 && !plan.Metadata.IsPeckMark {
		return nil
	}
	plan.Metadata.Bounds = commandBounds(plan.Commands, plan.Metadata.EntryPoint)
	return plan
}

// baseMetadata fills the per-plan metadata shared by all primitive kinds.
func (t *Translator) baseMetadata(ctx *model.ToolpathContext, prim model.Primitive, depth float64) model.PlanMetadata {
	return model.PlanMetadata{
		Tool:          ctx.Tool,
		CutDepth:      depth,
		FeedRate:      ctx.Cutting.FeedRate,
		PlungeRate:    ctx.Cutting.PlungeRate,
		DepthPerPass:  ctx.Strategy.DepthPerPass,
		EntryType:     ctx.Strategy.EntryType,
		Direction:     ctx.Strategy.Direction,
		OperationType: ctx.OperationType,
		PrimitiveType: prim.Kind(),
		StepOver:      ctx.Strategy.StepOver,
		GroupKey:      model.GroupKey(ctx.Tool.Diameter, ctx.OperationType, depth),
		Optimization: model.Optimization{
			LinkType: model.LinkRapid,
		},
	}
}

func (t *Translator) analyzeCircle(plan *model.ToolpathPlan, p *model.Circle, depth float64) {
	entry := model.Point3D{X: p.Center.X + p.Radius, Y: p.Center.Y, Z: depth}
	plan.Metadata.EntryPoint = entry
	plan.Metadata.ExitPoint = entry
	plan.Metadata.IsClosedLoop = true
	plan.Metadata.IsSimpleCircle = true
	plan.Metadata.HasArcs = true
	plan.Metadata.Center = p.Center
	plan.Metadata.Radius = p.Radius
	finishOptimization(plan)
}

func (t *Translator) analyzeObround(plan *model.ToolpathPlan, p *model.Obround, depth float64) {
	entry := obroundEntry(p, depth, plan.Metadata.Direction)
	plan.Metadata.EntryPoint = entry
	plan.Metadata.ExitPoint = entry
	plan.Metadata.IsClosedLoop = true
	plan.Metadata.HasArcs = true
	plan.Metadata.Center = p.Position
	plan.Metadata.Obround = obroundData(p)
	finishOptimization(plan)
}

func (t *Translator) analyzeArc(plan *model.ToolpathPlan, p *model.Arc, depth float64) {
	sx := p.Center.X + p.Radius*math.Cos(p.StartAngle)
	sy := p.Center.Y + p.Radius*math.Sin(p.StartAngle)
	ex := p.Center.X + p.Radius*math.Cos(p.EndAngle)
	ey := p.Center.Y + p.Radius*math.Sin(p.EndAngle)
	plan.Metadata.EntryPoint = model.Point3D{X: sx, Y: sy, Z: depth}
	plan.Metadata.ExitPoint = model.Point3D{X: ex, Y: ey, Z: depth}
	plan.Metadata.HasArcs = true
	plan.Metadata.Center = p.Center
	plan.Metadata.Radius = p.Radius
	finishOptimization(plan)
}

// analyzePath fills entry/exit and tab metadata for a path primitive.
// Returns false when the path holds no usable contour.
func (t *Translator) analyzePath(plan *model.ToolpathPlan, p *model.Path, depth float64, ctx *model.ToolpathContext) bool {
	contour := p.Outer()
	if contour == nil || len(contour.Points) == 0 {
		t.warn(p.ID, "path has no contour")
		return false
	}
	first := contour.Points[0]
	last := contour.Points[len(contour.Points)-1]
	plan.Metadata.EntryPoint = model.Point3D{X: first.X, Y: first.Y, Z: depth}
	if p.Closed {
		plan.Metadata.ExitPoint = plan.Metadata.EntryPoint
	} else {
		plan.Metadata.ExitPoint = model.Point3D{X: last.X, Y: last.Y, Z: depth}
	}
	plan.Metadata.IsClosedLoop = p.Closed
	plan.Metadata.HasArcs = len(contour.ArcSegments) > 0
	plan.Metadata.IsCenterlinePath = p.Props.IsCenterlinePath

	if plan.Metadata.OperationType == model.OpCutout && p.Closed && ctx.Strategy.Cutout.Tabs > 0 {
		t.placeTabs(plan, contour, ctx)
	}
	finishOptimization(plan)
	return true
}

// placeTabs selects tab positions on the outer contour. Hole contours are
// always cut tab-free.
func (t *Translator) placeTabs(plan *model.ToolpathPlan, contour *model.Contour, ctx *model.ToolpathContext) {
	cutout := ctx.Strategy.Cutout
	positions := SelectTabPositions(contour, cutout.Tabs, cutout.TabWidth, cutout.TabHeight,
		ctx.Tool.Diameter, ctx.Config.Tabs)
	if len(positions) == 0 {
		return
	}
	plan.Metadata.TabPositions = positions
	plan.Metadata.TabHeight = cutout.TabHeight
	plan.Metadata.HasTabs = true
}

func finishOptimization(plan *model.ToolpathPlan) {
	plan.Metadata.Optimization.OptimizedEntryPoint = plan.Metadata.EntryPoint
	plan.Metadata.Optimization.EntryCommandIndex = 0
}

// commandBounds computes the XY bounding box over command coordinates,
// seeded by the entry point.
func commandBounds(cmds []model.MotionCommand, entry model.Point3D) model.Rect {
	r := model.Rect{MinX: entry.X, MinY: entry.Y, MaxX: entry.X, MaxY: entry.Y}
	for _, c := range cmds {
		if model.IsSet(c.X) {
			if c.X < r.MinX {
				r.MinX = c.X
			}
			if c.X > r.MaxX {
				r.MaxX = c.X
			}
		}
		if model.IsSet(c.Y) {
			if c.Y < r.MinY {
				r.MinY = c.Y
			}
			if c.Y > r.MaxY {
				r.MaxY = c.Y
			}
		}
	}
	return r
}

// obroundEntry returns the cap tangent point the cutting commands start
// from: the B side for climb, the A side for conventional.
func obroundEntry(p *model.Obround, depth float64, dir model.Direction) model.Point3D {
	startCap, _ := p.CapCenters()
	r := p.SlotRadius()
	if dir == model.DirClimb {
		if p.IsHorizontal() {
			return model.Point3D{X: startCap.X, Y: startCap.Y + r, Z: depth}
		}
		return model.Point3D{X: startCap.X - r, Y: startCap.Y, Z: depth}
	}
	if p.IsHorizontal() {
		return model.Point3D{X: startCap.X, Y: startCap.Y - r, Z: depth}
	}
	return model.Point3D{X: startCap.X + r, Y: startCap.Y, Z: depth}
}

func obroundData(p *model.Obround) *model.ObroundData {
	startCap, endCap := p.CapCenters()
	return &model.ObroundData{
		Position:       p.Position,
		Width:          p.Width,
		Height:         p.Height,
		IsHorizontal:   p.IsHorizontal(),
		SlotRadius:     p.SlotRadius(),
		StartCapCenter: startCap,
		EndCapCenter:   endCap,
	}
}
