package toolpath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/pcbcam/internal/model"
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

func rectPath(w, h float64) *model.Path {
	p := model.NewPath([]model.Contour{{Points: []model.Point{
		{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h},
	}}}, true)
	p.Props.Fill = true
	p.Props.IsCutout = true
	return p
}

// Clockwise convention: a circle translated conventionally emits one
// ARC_CW command starting at the rightmost point with center offsets
// (-r, 0).
func TestTranslateCircle_ConventionalClockwise(t *testing.T) {
	ctx := newTestContext(model.OpIsolation)
	ctx.Strategy.Direction = model.DirConventional
	circle := model.NewCircle(model.Point2D{X: 0, Y: 0}, 11)

	plans, err := New(nil).Translate(ctx, []model.Primitive{circle})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	plan := plans[0]

	require.Len(t, plan.Commands, 1)
	cmd := plan.Commands[0]
	assert.Equal(t, model.MoveArcCW, cmd.Kind)
	assert.InDelta(t, 11.0, cmd.X, 1e-9)
	assert.InDelta(t, 0.0, cmd.Y, 1e-9)
	assert.InDelta(t, -1.0, cmd.Z, 1e-9)
	assert.InDelta(t, -11.0, cmd.I, 1e-9)
	assert.InDelta(t, 0.0, cmd.J, 1e-9)

	md := plan.Metadata
	assert.True(t, md.IsSimpleCircle)
	assert.True(t, md.IsClosedLoop)
	assert.True(t, md.HasArcs)
	assert.Equal(t, model.Point3D{X: 11, Y: 0, Z: -1}, md.EntryPoint)
	assert.Equal(t, model.LinkRapid, md.Optimization.LinkType)
}

func TestTranslateCircle_ClimbCounterClockwise(t *testing.T) {
	ctx := newTestContext(model.OpIsolation)
	circle := model.NewCircle(model.Point2D{X: 0, Y: 0}, 5)
	plans, err := New(nil).Translate(ctx, []model.Primitive{circle})
	require.NoError(t, err)
	assert.Equal(t, model.MoveArcCCW, plans[0].Commands[0].Kind)
}

// Obround: four commands alternating straights and semicircular caps, with
// cap center offsets relative to each motion's start point.
func TestTranslateObround(t *testing.T) {
	ctx := newTestContext(model.OpDrill)
	ctx.Strategy.Drill.EntryType = model.EntryPlunge
	ob := model.NewObround(model.Point2D{X: 0, Y: 0}, 20, 10)
	ob.Props.Role = model.RoleDrillMillingPath

	plans, err := New(nil).Translate(ctx, []model.Primitive{ob})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	plan := plans[0]

	require.Len(t, plan.Commands, 4)
	kinds := []model.MotionKind{
		plan.Commands[0].Kind, plan.Commands[1].Kind,
		plan.Commands[2].Kind, plan.Commands[3].Kind,
	}
	assert.Equal(t, model.MoveLinear, kinds[0])
	assert.True(t, kinds[1].IsArc())
	assert.Equal(t, model.MoveLinear, kinds[2])
	assert.True(t, kinds[3].IsArc())

	// Climb entry starts on the start cap's upper tangent point.
	assert.InDelta(t, -5.0, plan.Metadata.EntryPoint.X, 1e-9)
	assert.InDelta(t, 5.0, plan.Metadata.EntryPoint.Y, 1e-9)

	for _, c := range plan.Commands {
		assert.InDelta(t, -1.0, c.Z, 1e-9)
	}

	// First arc: from (5,5) around the end cap at (5,0).
	arc := plan.Commands[1]
	assert.InDelta(t, 5.0, arc.X, 1e-9)
	assert.InDelta(t, -5.0, arc.Y, 1e-9)
	assert.InDelta(t, 0.0, arc.I, 1e-9)
	assert.InDelta(t, -5.0, arc.J, 1e-9)

	require.NotNil(t, plan.Metadata.Obround)
	assert.True(t, plan.Metadata.Obround.IsHorizontal)
	assert.Equal(t, 5.0, plan.Metadata.Obround.SlotRadius)
}

// Cutout with 2 tabs on a 50x30 rectangle: both tabs land at the midpoints
// of the long edges, and the command stream splits around them.
func TestTranslateCutout_TwoTabs(t *testing.T) {
	ctx := newTestContext(model.OpCutout)
	ctx.CutDepth = -2
	ctx.Strategy.DepthPerPass = 2
	ctx.Strategy.Cutout = model.CutoutStrategy{Tabs: 2, TabWidth: 1, TabHeight: 0.5}

	plans, err := New(nil).Translate(ctx, []model.Primitive{rectPath(50, 30)})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	plan := plans[0]
	md := plan.Metadata

	assert.True(t, md.HasTabs)
	require.Len(t, md.TabPositions, 2)
	assert.InDelta(t, 25.0, md.TabPositions[0].Position.X, 1e-6)
	assert.InDelta(t, 0.0, md.TabPositions[0].Position.Y, 1e-6)
	assert.InDelta(t, 25.0, md.TabPositions[1].Position.X, 1e-6)
	assert.InDelta(t, 30.0, md.TabPositions[1].Position.Y, 1e-6)
	assert.Equal(t, "straight", md.TabPositions[0].SectionType)

	// 3 sub-segments per long edge, 1 per short edge.
	require.Len(t, plan.Commands, 8)
	var tabLengths []float64
	prev := model.Point2D{X: 0, Y: 0}
	total := 0.0
	for _, c := range plan.Commands {
		end := model.Point2D{X: c.X, Y: c.Y}
		length := math.Hypot(end.X-prev.X, end.Y-prev.Y)
		total += length
		if c.IsTab {
			tabLengths = append(tabLengths, length)
		}
		prev = end
	}
	// Tab summation: sub-segment lengths rebuild the perimeter exactly;
	// tab-tagged length equals tabCount x tabWidth.
	assert.InDelta(t, 160.0, total, 1e-6)
	require.Len(t, tabLengths, 2)
	assert.InDelta(t, 1.0, tabLengths[0], 1e-6)
	assert.InDelta(t, 1.0, tabLengths[1], 1e-6)
}

func TestTranslate_DepthLevelsShallowToDeep(t *testing.T) {
	ctx := newTestContext(model.OpIsolation)
	ctx.CutDepth = -1
	ctx.Strategy.DepthPerPass = 0.4
	circle := model.NewCircle(model.Point2D{}, 5)

	plans, err := New(nil).Translate(ctx, []model.Primitive{circle})
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.InDelta(t, -0.4, plans[0].Metadata.CutDepth, 1e-9)
	assert.InDelta(t, -0.8, plans[1].Metadata.CutDepth, 1e-9)
	assert.InDelta(t, -1.0, plans[2].Metadata.CutDepth, 1e-9)
	for _, p := range plans {
		assert.Contains(t, p.Metadata.GroupKey, "OP:isolation")
	}
}

func TestTranslate_InvalidContextFailsOperation(t *testing.T) {
	ctx := newTestContext(model.OpIsolation)
	ctx.Cutting.FeedRate = 0
	_, err := New(nil).Translate(ctx, []model.Primitive{model.NewCircle(model.Point2D{}, 5)})
	assert.ErrorIs(t, err, model.ErrInvalidContext)
}

func TestTranslateDrill_PeckMark(t *testing.T) {
	ctx := newTestContext(model.OpDrill)
	ctx.CutDepth = -1.2
	ctx.Strategy.Drill = model.DrillStrategy{
		CannedCycle: model.CycleG83, PeckDepth: 0.4, DwellTime: 0.1, RetractHeight: 0.5,
	}
	hole := model.NewCircle(model.Point2D{X: 3, Y: 4}, 0.4)
	hole.Props.Role = model.RolePeckMark

	plans, err := New(nil).Translate(ctx, []model.Primitive{hole})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	md := plans[0].Metadata

	assert.True(t, md.IsPeckMark)
	assert.Empty(t, plans[0].Commands)
	assert.Equal(t, model.Point3D{X: 3, Y: 4, Z: -1.2}, md.EntryPoint)
	assert.Equal(t, md.EntryPoint, md.ExitPoint)
	require.NotNil(t, md.PeckCycle)
	assert.Equal(t, model.CycleG83, md.PeckCycle.CannedCycle)
	assert.InDelta(t, 0.4, md.PeckCycle.PeckDepth, 1e-9)
}

func TestTranslateDrill_HelixSinglePlan(t *testing.T) {
	ctx := newTestContext(model.OpDrill)
	ctx.CutDepth = -1.6
	ctx.Strategy.DepthPerPass = 0.4
	ctx.Strategy.Drill.EntryType = model.EntryHelix
	hole := model.NewCircle(model.Point2D{}, 2)
	hole.Props.Role = model.RoleDrillMillingPath

	plans, err := New(nil).Translate(ctx, []model.Primitive{hole})
	require.NoError(t, err)
	// Helix handles Z internally: one plan at final depth.
	require.Len(t, plans, 1)
	assert.True(t, plans[0].Metadata.IsDrillMilling)
	assert.Equal(t, model.EntryHelix, plans[0].Metadata.EntryType)
	assert.InDelta(t, -1.6, plans[0].Metadata.CutDepth, 1e-9)
}

func TestTranslatePath_ArcSegmentCommands(t *testing.T) {
	ctx := newTestContext(model.OpIsolation)
	// Square whose right edge is an arc pair bulging outward.
	contour := model.Contour{
		Points: []model.Point{
			{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
		},
		ArcSegments: []model.ArcSegment{{
			StartIndex: 1, EndIndex: 2,
			Center: model.Point2D{X: 10, Y: 5}, Radius: 5,
			StartAngle: -math.Pi / 2, EndAngle: math.Pi / 2,
			SweepAngle: math.Pi, Clockwise: false,
		}},
	}
	path := model.NewPath([]model.Contour{contour}, true)
	path.Props.Fill = true

	plans, err := New(nil).Translate(ctx, []model.Primitive{path})
	require.NoError(t, err)
	require.Len(t, plans, 1)

	var arcs, linears int
	for _, c := range plans[0].Commands {
		if c.Kind.IsArc() {
			arcs++
			// Geometric CCW arc emits the CW variant.
			assert.Equal(t, model.MoveArcCW, c.Kind)
			assert.InDelta(t, 0.0, c.I, 1e-9)
			assert.InDelta(t, 5.0, c.J, 1e-9)
		} else {
			linears++
		}
	}
	assert.Equal(t, 1, arcs)
	assert.Equal(t, 3, linears)
	assert.True(t, plans[0].Metadata.HasArcs)
}

func TestPlanContourTabs_Summation(t *testing.T) {
	c := &model.Contour{Points: []model.Point{
		{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 40, Y: 20}, {X: 0, Y: 20},
	}}
	cmds := PlanContourTabs(c, 3, 2, 300, -1)
	require.NotEmpty(t, cmds)

	prev := model.Point2D{X: 0, Y: 0}
	total, tabTotal := 0.0, 0.0
	for _, cmd := range cmds {
		end := model.Point2D{X: cmd.X, Y: cmd.Y}
		l := math.Hypot(end.X-prev.X, end.Y-prev.Y)
		total += l
		if cmd.IsTab {
			tabTotal += l
		}
		prev = end
	}
	assert.InDelta(t, 120.0, total, 1e-6)
	assert.LessOrEqual(t, tabTotal, 3*2.0+1e-6)
	assert.Greater(t, tabTotal, 0.0)
}

func TestSelectTabPositions_TooSmallContour(t *testing.T) {
	c := &model.Contour{Points: []model.Point{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
	}}
	tabs := SelectTabPositions(c, 2, 1, 0.5, 2, model.DefaultConfig().Tabs)
	assert.Empty(t, tabs)
}
