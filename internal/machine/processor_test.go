package machine

import (
	"math"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/pcbcam/internal/model"
	"github.com/piwi3910/pcbcam/internal/toolpath"
)

func newTestContext(opType model.OperationType) *model.ToolpathContext {
	return &model.ToolpathContext{
		OperationID:   "op1",
		OperationType: opType,
		CutDepth:      -1,
		Tool:          model.Tool{ID: "t1", Diameter: 2},
		Cutting:       model.CuttingParams{FeedRate: 300, PlungeRate: 100, SpindleSpeed: 12000},
		Strategy: model.Strategy{
			Direction:    model.DirClimb,
			EntryType:    model.EntryPlunge,
			DepthPerPass: 1,
		},
		Machine: model.MachineParams{SafeZ: 5, TravelZ: 2, RapidFeedRate: 3000, PlungeRate: 100},
		Config:  model.DefaultConfig(),
	}
}

// flatten collects every command in stream order.
func flatten(plans []*model.ToolpathPlan) []model.MotionCommand {
	var cmds []model.MotionCommand
	for _, p := range plans {
		cmds = append(cmds, p.Commands...)
	}
	return cmds
}

// finalZ walks the stream and returns the tool's final Z.
func finalZ(cmds []model.MotionCommand, startZ float64) float64 {
	z := startZ
	for _, c := range cmds {
		if model.IsSet(c.Z) {
			z = c.Z
		}
	}
	return z
}

func translate(t *testing.T, ctx *model.ToolpathContext, prims ...model.Primitive) []*model.ToolpathPlan {
	t.Helper()
	plans, err := toolpath.New(nil).Translate(ctx, prims)
	require.NoError(t, err)
	require.NotEmpty(t, plans)
	return plans
}

// Peck cycle: G83 with 0.4mm pecks into a 1.2mm hole produces three
// plunges with dwells and intermediate retracts.
func TestPeckCycle_G83(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	ctx := newTestContext(model.OpDrill)
	ctx.CutDepth = -1.2
	ctx.Strategy.Drill = model.DrillStrategy{
		CannedCycle: model.CycleG83, PeckDepth: 0.4, DwellTime: 0.1, RetractHeight: 0.5,
	}
	hole := model.NewCircle(model.Point2D{X: 3, Y: 4}, 0.4)
	hole.Props.Role = model.RolePeckMark

	plans := translate(t, ctx, hole)
	out := New(ctx, nil).Process(plans)
	cmds := flatten(out)

	var plunges, dwells []model.MotionCommand
	retracts05 := 0
	sawFeedHeight := false
	for _, c := range cmds {
		switch c.Kind {
		case model.MovePlunge:
			plunges = append(plunges, c)
		case model.MoveDwell:
			dwells = append(dwells, c)
		case model.MoveRetract:
			if math.Abs(c.Z-0.5) < 1e-9 {
				retracts05++
			}
		case model.MoveRapid:
			if model.IsSet(c.Z) && math.Abs(c.Z-FeedHeight) < 1e-9 {
				sawFeedHeight = true
			}
		}
	}

	require.Len(t, plunges, 3)
	assert.InDelta(t, -0.4, plunges[0].Z, 1e-9)
	assert.InDelta(t, -0.8, plunges[1].Z, 1e-9)
	assert.InDelta(t, -1.2, plunges[2].Z, 1e-9)
	assert.Len(t, dwells, 3)
	for _, d := range dwells {
		assert.InDelta(t, 0.1, d.Dwell, 1e-9)
	}
	assert.Equal(t, 2, retracts05, "two intermediate retracts between three pecks")
	assert.True(t, sawFeedHeight)

	// Motion completeness: the stream ends at or above safe height.
	assert.GreaterOrEqual(t, finalZ(cmds, ctx.Machine.SafeZ), ctx.Machine.SafeZ)
}

func TestPeckCycle_ShallowHoleSinglePlunge(t *testing.T) {
	ctx := newTestContext(model.OpDrill)
	ctx.CutDepth = -0.3
	ctx.Strategy.Drill = model.DrillStrategy{
		CannedCycle: model.CycleG83, PeckDepth: 0.4, RetractHeight: 0.5,
	}
	hole := model.NewCircle(model.Point2D{}, 0.4)
	hole.Props.Role = model.RolePeckMark

	plans := translate(t, ctx, hole)
	out := New(ctx, nil).Process(plans)

	plungeCount := 0
	for _, c := range flatten(out) {
		if c.Kind == model.MovePlunge {
			plungeCount++
			assert.InDelta(t, -0.3, c.Z, 1e-9)
		}
	}
	assert.Equal(t, 1, plungeCount)
}

// General milling: rapid, plunge entry, cutting at depth, retract, final
// safe height; every cutting command is preceded by a plunge to its depth.
func TestMilling_PlungeEntrySequence(t *testing.T) {
	ctx := newTestContext(model.OpIsolation)
	circle := model.NewCircle(model.Point2D{X: 10, Y: 0}, 5)

	plans := translate(t, ctx, circle)
	out := New(ctx, nil).Process(plans)
	cmds := flatten(out)

	reachedDepth := false
	for _, c := range cmds {
		if c.Kind == model.MovePlunge && math.Abs(c.Z-(-1)) < 1e-9 {
			reachedDepth = true
		}
		if c.Kind.IsArc() {
			assert.True(t, reachedDepth, "cutting before plunge reached depth")
			assert.InDelta(t, -1.0, c.Z, 1e-9)
		}
	}
	assert.True(t, reachedDepth)
	assert.GreaterOrEqual(t, finalZ(cmds, ctx.Machine.SafeZ), ctx.Machine.SafeZ)
}

// Multi-depth: consecutive passes on the same feature plunge in place
// without an intermediate retract.
func TestMilling_MultiDepthPlunge(t *testing.T) {
	ctx := newTestContext(model.OpIsolation)
	ctx.Strategy.DepthPerPass = 0.5
	circle := model.NewCircle(model.Point2D{}, 5)

	plans := translate(t, ctx, circle)
	require.Len(t, plans, 2)
	plans[1].Metadata.Optimization.LinkType = model.LinkRapid // machine classifies on its own

	out := New(ctx, nil).Process(plans)
	require.Len(t, out, 4) // init, pass 1, pass 2, final retract

	// Pass 1 must not retract (suppressed by the multi-depth successor).
	for _, c := range out[1].Commands {
		assert.NotEqual(t, model.MoveRetract, c.Kind)
		if c.Kind == model.MoveRapid && model.IsSet(c.Z) {
			assert.LessOrEqual(t, c.Z, FeedHeight)
		}
	}
	// Pass 2 starts with the in-place plunge to the deeper level.
	first := out[2].Commands[0]
	assert.Equal(t, model.MoveLinear, first.Kind)
	assert.InDelta(t, -1.0, first.Z, 1e-9)
	assert.InDelta(t, 100.0, first.Feed, 1e-9)
}

// Tabs: the cutting stream lifts to the tab top, rides over, and plunges
// back down.
func TestMilling_TabLiftover(t *testing.T) {
	ctx := newTestContext(model.OpCutout)
	ctx.CutDepth = -2
	ctx.Strategy.DepthPerPass = 2
	ctx.Strategy.Cutout = model.CutoutStrategy{Tabs: 2, TabWidth: 1, TabHeight: 0.5}

	rect := model.NewPath([]model.Contour{{Points: []model.Point{
		{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 50, Y: 30}, {X: 0, Y: 30},
	}}}, true)
	rect.Props.Fill = true
	rect.Props.IsCutout = true

	plans := translate(t, ctx, rect)
	out := New(ctx, nil).Process(plans)
	cmds := flatten(out)

	// Tab top sits at cutDepth + tabHeight = -1.5.
	lifts := 0
	for i, c := range cmds {
		if c.IsTab {
			assert.InDelta(t, -1.5, c.Z, 1e-9)
			require.Greater(t, i, 0)
			assert.InDelta(t, -1.5, cmds[i-1].Z, 1e-9, "lift precedes the tab ride")
			lifts++
		}
	}
	assert.Equal(t, 2, lifts)
}

// Helix entry spirals down in linear segments and recenters at the bottom.
func TestMilling_HelixEntry(t *testing.T) {
	ctx := newTestContext(model.OpIsolation)
	ctx.Strategy.EntryType = model.EntryHelix
	circle := model.NewCircle(model.Point2D{X: 10, Y: 10}, 5)

	plans := translate(t, ctx, circle)
	out := New(ctx, nil).Process(plans)

	// The plan's command block: entry spiral then the cut.
	body := out[1].Commands
	segs := 0
	var recenter *model.MotionCommand
	for i := range body {
		c := body[i]
		if c.Kind == model.MoveLinear && model.IsSet(c.X) {
			segs++
			recenter = &body[i]
		}
	}
	cfg := ctx.Config.Entry.Helix
	assert.GreaterOrEqual(t, segs, cfg.SegmentsPerRevolution)
	require.NotNil(t, recenter)
	// Entry point of the circle plan is (cx+r, cy).
	assert.InDelta(t, 15.0, recenter.X, 1e-9)
	assert.InDelta(t, 10.0, recenter.Y, 1e-9)
	assert.InDelta(t, -1.0, recenter.Z, 1e-9)
}

// Helical drill-milling of a small hole degrades to a plunge.
func TestDrillMilling_BelowHelixMinimum(t *testing.T) {
	ctx := newTestContext(model.OpDrill)
	ctx.Strategy.Drill.EntryType = model.EntryHelix
	hole := model.NewCircle(model.Point2D{}, 0.5)
	hole.Props.Role = model.RoleDrillMillingPath

	plans := translate(t, ctx, hole)
	out := New(ctx, nil).Process(plans)

	arcs := 0
	plunges := 0
	for _, c := range flatten(out) {
		if c.Kind.IsArc() {
			arcs++
		}
		if c.Kind == model.MovePlunge {
			plunges++
		}
	}
	assert.Zero(t, arcs, "hole below helix minimum must not helix")
	assert.GreaterOrEqual(t, plunges, 1)
}

// Helical drill-milling of a larger hole descends in arc commands with a
// flat finishing circle.
func TestDrillMilling_HelicalDescent(t *testing.T) {
	ctx := newTestContext(model.OpDrill)
	ctx.CutDepth = -1.5
	ctx.Strategy.Drill.EntryType = model.EntryHelix
	hole := model.NewCircle(model.Point2D{}, 2)
	hole.Props.Role = model.RoleDrillMillingPath

	plans := translate(t, ctx, hole)
	out := New(ctx, nil).Process(plans)

	var arcZ []float64
	for _, c := range flatten(out) {
		if c.Kind == model.MoveArcCW {
			arcZ = append(arcZ, c.Z)
		}
	}
	require.GreaterOrEqual(t, len(arcZ), helixArcsPerRevolution)
	// Monotone descent, bottoming out at the final depth.
	for i := 1; i < len(arcZ); i++ {
		assert.LessOrEqual(t, arcZ[i], arcZ[i-1]+1e-9)
	}
	assert.InDelta(t, -1.5, arcZ[len(arcZ)-1], 1e-9)
}

// Centerline slot: zig-zag passes step down and alternate direction.
func TestCenterlineZigzag(t *testing.T) {
	ctx := newTestContext(model.OpIsolation)
	ctx.CutDepth = -1
	ctx.Strategy.DepthPerPass = 0.5

	line := model.NewPath([]model.Contour{{Points: []model.Point{
		{X: 0, Y: 0}, {X: 20, Y: 0},
	}}}, false)
	line.Props.IsCenterlinePath = true

	plans := translate(t, ctx, line)
	require.True(t, plans[0].Metadata.IsCenterlinePath)
	out := New(ctx, nil).Process(plans)
	cmds := flatten(out)

	var plungeZ []float64
	var feeds []model.MotionCommand
	for _, c := range cmds {
		if c.Kind == model.MovePlunge {
			plungeZ = append(plungeZ, c.Z)
		}
		if c.Kind == model.MoveLinear && model.IsSet(c.X) {
			feeds = append(feeds, c)
		}
	}
	require.Len(t, plungeZ, 2)
	assert.InDelta(t, -0.5, plungeZ[0], 1e-9)
	assert.InDelta(t, -1.0, plungeZ[1], 1e-9)
	require.Len(t, feeds, 2)
	assert.InDelta(t, 20.0, feeds[0].X, 1e-9)
	assert.InDelta(t, 0.0, feeds[1].X, 1e-9)
	assert.GreaterOrEqual(t, finalZ(cmds, ctx.Machine.SafeZ), ctx.Machine.SafeZ)
}

// Staydown links feed across instead of retracting.
func TestStaydownLink(t *testing.T) {
	ctx := newTestContext(model.OpIsolation)
	a := model.NewCircle(model.Point2D{X: 0, Y: 0}, 2)
	b := model.NewCircle(model.Point2D{X: 5, Y: 0}, 2)

	plans := translate(t, ctx, a, b)
	require.Len(t, plans, 2)
	plans[1].Metadata.Optimization.LinkType = model.LinkStaydown

	out := New(ctx, nil).Process(plans)

	// First plan keeps the tool down: its last move is still the cut.
	last := out[1].Commands[len(out[1].Commands)-1]
	assert.True(t, last.Kind.IsArc())
	// Second plan starts with an XY feed at depth.
	first := out[2].Commands[0]
	assert.Equal(t, model.MoveLinear, first.Kind)
	assert.False(t, model.IsSet(first.Z))
}
