package toolpath

import (
	"github.com/piwi3910/pcbcam/internal/model"
)

// translateDrill compiles a drill operation's offsets. Two path roles
// appear here: peck marks (pure points handed to the canned-cycle
// sequencer) and drill-milling paths (holes milled at a larger diameter
// than the bit).
func (t *Translator) translateDrill(ctx *model.ToolpathContext, prims []model.Primitive) ([]*model.ToolpathPlan, error) {
	var plans []*model.ToolpathPlan
	for _, prim := range prims {
		role := prim.Meta().Props.Role
		switch role {
		case model.RolePeckMark:
			if plan := t.peckMarkPlan(ctx, prim); plan != nil {
				plans = append(plans, plan)
			}
		case model.RoleDrillMillingPath, "":
			plans = append(plans, t.drillMillingPlans(ctx, prim)...)
		default:
			t.warn(prim.Meta().ID, "unknown drill role "+role)
		}
	}
	return plans, nil
}

// peckMarkPlan emits a command-free plan describing one hole for the
// machine processor's peck sequencer.
func (t *Translator) peckMarkPlan(ctx *model.ToolpathContext, prim model.Primitive) *model.ToolpathPlan {
	center, ok := drillCenter(prim)
	if !ok {
		t.warn(prim.Meta().ID, "peck mark without a point")
		return nil
	}
	point := model.Point3D{X: center.X, Y: center.Y, Z: ctx.CutDepth}
	plan := &model.ToolpathPlan{
		OperationID: ctx.OperationID,
		Metadata:    t.baseMetadata(ctx, prim, ctx.CutDepth),
	}
	plan.Metadata.EntryPoint = point
	plan.Metadata.ExitPoint = point
	plan.Metadata.Center = center
	plan.Metadata.IsPeckMark = true
	plan.Metadata.PeckCycle = &model.PeckCycle{
		CannedCycle:   ctx.Strategy.Drill.CannedCycle,
		PeckDepth:     ctx.Strategy.Drill.PeckDepth,
		DwellTime:     ctx.Strategy.Drill.DwellTime,
		RetractHeight: ctx.Strategy.Drill.RetractHeight,
	}
	plan.Metadata.Bounds = model.Rect{MinX: center.X, MinY: center.Y, MaxX: center.X, MaxY: center.Y}
	finishOptimization(plan)
	return plan
}

// drillMillingPlans emits cutting plans for milling a hole. Helical entry
// handles Z internally, so it gets a single plan at final depth; other
// entries mill one pass per depth level.
func (t *Translator) drillMillingPlans(ctx *model.ToolpathContext, prim model.Primitive) []*model.ToolpathPlan {
	entry := ctx.Strategy.Drill.EntryType
	if entry == "" {
		entry = ctx.Strategy.EntryType
	}

	var levels []float64
	if entry == model.EntryHelix {
		levels = []float64{ctx.CutDepth}
	} else {
		levels = t.depthLevels(ctx)
	}

	var plans []*model.ToolpathPlan
	for _, depth := range levels {
		plan := t.translateOne(ctx, prim, depth)
		if plan == nil {
			continue
		}
		plan.Metadata.IsDrillMilling = true
		plan.Metadata.EntryType = entry
		if ob, ok := prim.(*model.Obround); ok {
			plan.Metadata.Obround = obroundData(ob)
		}
		plans = append(plans, plan)
	}
	return plans
}

// drillCenter extracts the hole center from a peck-mark primitive: a
// circle's center or a path's first point.
func drillCenter(prim model.Primitive) (model.Point2D, bool) {
	switch p := prim.(type) {
	case *model.Circle:
		return p.Center, true
	case *model.Path:
		if c := p.Outer(); c != nil && len(c.Points) > 0 {
			return c.Points[0].XY(), true
		}
	case *model.Obround:
		return p.Position, true
	}
	return model.Point2D{}, false
}
