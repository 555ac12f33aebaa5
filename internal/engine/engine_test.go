package engine

import (
	"math"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/pcbcam/internal/curve"
	"github.com/piwi3910/pcbcam/internal/gcode"
	"github.com/piwi3910/pcbcam/internal/model"
)

func testOperation(opType model.OperationType, prims ...model.Primitive) Operation {
	return Operation{
		ID:       "op1",
		Name:     "test",
		Type:     opType,
		Tool:     model.Tool{ID: "t1", Diameter: 2},
		CutDepth: -1,
		Cutting:  model.CuttingParams{FeedRate: 300, PlungeRate: 100, SpindleSpeed: 12000},
		Strategy: model.Strategy{
			Direction:    model.DirClimb,
			EntryType:    model.EntryPlunge,
			DepthPerPass: 1,
		},
		Primitives: prims,
	}
}

func TestEngine_CutoutJob(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	eng := New(model.DefaultConfig())
	rect := model.NewPath([]model.Contour{{Points: []model.Point{
		{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 50, Y: 30}, {X: 0, Y: 30},
	}}}, true)
	rect.Props.Fill = true
	rect.Props.IsCutout = true

	op := testOperation(model.OpCutout, rect)
	op.CutDepth = -2
	op.Strategy.DepthPerPass = 2
	op.Strategy.Cutout = model.CutoutStrategy{Tabs: 2, TabWidth: 1, TabHeight: 0.5}

	job := NewJob("board", eng.Config)
	job.Operations = []Operation{op}

	result, err := eng.Run(job)
	require.NoError(t, err)
	require.Len(t, result.Operations, 1)
	plans := result.Operations[0].Plans
	require.NotEmpty(t, plans)

	// Motion completeness: the job ends at or above safe height.
	z := job.Machine.SafeZ
	for _, p := range plans {
		for _, c := range p.Commands {
			if model.IsSet(c.Z) {
				z = c.Z
			}
		}
	}
	assert.GreaterOrEqual(t, z, job.Machine.SafeZ)

	// The cutout path was offset outward by the tool radius.
	var cuts []*model.ToolpathPlan
	for _, p := range plans {
		if len(p.Commands) > 0 && p.Metadata.GroupKey != "init" && p.Metadata.GroupKey != "final_retract" {
			cuts = append(cuts, p)
		}
	}
	require.NotEmpty(t, cuts)
	b := cuts[0].Metadata.Bounds
	assert.InDelta(t, 52.0, b.Width(), 1e-6)
	assert.InDelta(t, 32.0, b.Height(), 1e-6)
	assert.True(t, cuts[0].Metadata.HasTabs)
}

func TestEngine_IsolationFusesOverlaps(t *testing.T) {
	eng := New(model.DefaultConfig())
	// Two overlapping traces: their isolation outlines must fuse into one.
	a := model.NewCircle(model.Point2D{X: 0, Y: 0}, 2)
	a.Props.Fill = true
	b := model.NewCircle(model.Point2D{X: 1, Y: 0}, 2)
	b.Props.Fill = true

	op := testOperation(model.OpIsolation, a, b)
	job := NewJob("board", eng.Config)
	job.Operations = []Operation{op}

	result, err := eng.Run(job)
	require.NoError(t, err)
	offsets := result.Operations[0].Offsets
	require.Len(t, offsets, 1, "overlapping isolation outlines should fuse")
}

func TestEngine_DrillRoles(t *testing.T) {
	eng := New(model.DefaultConfig())
	small := model.NewCircle(model.Point2D{X: 0, Y: 0}, 0.4) // bit covers it
	big := model.NewCircle(model.Point2D{X: 10, Y: 0}, 3)    // needs milling

	op := testOperation(model.OpDrill, small, big)
	op.Strategy.Drill = model.DrillStrategy{
		CannedCycle: model.CycleG81, EntryType: model.EntryHelix,
	}
	job := NewJob("board", eng.Config)
	job.Operations = []Operation{op}

	result, err := eng.Run(job)
	require.NoError(t, err)
	offsets := result.Operations[0].Offsets
	require.Len(t, offsets, 2)
	assert.Equal(t, model.RolePeckMark, offsets[0].Meta().Props.Role)
	assert.Equal(t, model.RoleDrillMillingPath, offsets[1].Meta().Props.Role)
	// The milling path shrinks by the tool radius.
	milled := offsets[1].(*model.Circle)
	assert.InDelta(t, 2.0, milled.Radius, 1e-9)
}

func TestEngine_InvalidContextFailsJob(t *testing.T) {
	eng := New(model.DefaultConfig())
	op := testOperation(model.OpIsolation, model.NewCircle(model.Point2D{}, 5))
	op.Cutting.FeedRate = 0
	job := NewJob("board", eng.Config)
	job.Operations = []Operation{op}

	_, err := eng.Run(job)
	assert.ErrorIs(t, err, model.ErrInvalidContext)
}

func TestEngine_ResetClearsRegistry(t *testing.T) {
	eng := New(model.DefaultConfig())
	c := model.NewCircle(model.Point2D{}, 5)
	curve.TagPrimitive(eng.Registry, c)
	require.Greater(t, eng.Registry.Len(), 0)
	eng.Reset()
	assert.Equal(t, 0, eng.Registry.Len())
}

func TestSequencePlans_NearestNeighbor(t *testing.T) {
	ctx := &model.ToolpathContext{Tool: model.Tool{Diameter: 2}}
	mk := func(x, y float64) *model.ToolpathPlan {
		p := &model.ToolpathPlan{OperationID: "op1"}
		p.Metadata.EntryPoint = model.Point3D{X: x, Y: y}
		p.Metadata.ExitPoint = p.Metadata.EntryPoint
		p.Metadata.CutDepth = -1
		p.Metadata.GroupKey = "g"
		p.Metadata.Optimization.LinkType = model.LinkRapid
		return p
	}
	plans := SequencePlans([]*model.ToolpathPlan{mk(100, 0), mk(1, 1), mk(50, 0)}, ctx)
	require.Len(t, plans, 3)
	assert.Equal(t, 1.0, plans[0].Metadata.EntryPoint.X)
	assert.Equal(t, 50.0, plans[1].Metadata.EntryPoint.X)
	assert.Equal(t, 100.0, plans[2].Metadata.EntryPoint.X)
}

func TestSequencePlans_MarksMultiDepth(t *testing.T) {
	ctx := &model.ToolpathContext{Tool: model.Tool{Diameter: 2}}
	mk := func(depth float64) *model.ToolpathPlan {
		p := &model.ToolpathPlan{OperationID: "op1"}
		p.Metadata.EntryPoint = model.Point3D{X: 5, Y: 5, Z: depth}
		p.Metadata.ExitPoint = p.Metadata.EntryPoint
		p.Metadata.CutDepth = depth
		p.Metadata.GroupKey = "g"
		p.Metadata.Optimization.LinkType = model.LinkRapid
		return p
	}
	plans := SequencePlans([]*model.ToolpathPlan{mk(-0.5), mk(-1)}, ctx)
	assert.Equal(t, model.LinkRapid, plans[0].Metadata.Optimization.LinkType)
	assert.Equal(t, model.LinkMultiDepth, plans[1].Metadata.Optimization.LinkType)
}

// End to end: job through engine, emitter and parser.
func TestEngine_EmitAndParseRoundTrip(t *testing.T) {
	eng := New(model.DefaultConfig())
	circle := model.NewCircle(model.Point2D{X: 10, Y: 10}, 5)
	circle.Props.Fill = true
	curve.TagPrimitive(eng.Registry, circle)

	op := testOperation(model.OpIsolation, circle)
	job := NewJob("board", eng.Config)
	job.Operations = []Operation{op}

	result, err := eng.Run(job)
	require.NoError(t, err)

	emitter := gcode.NewEmitter("Grbl", job.Machine, op.Cutting)
	code := emitter.Emit(result.Operations[0].Plans, "board")
	assert.Contains(t, code, "G90")
	assert.Contains(t, code, "M3 S12000")

	moves := gcode.Parse(code)
	require.NotEmpty(t, moves)

	// At least one arc with center offsets, and the stream ends high.
	sawArc := false
	for _, m := range moves {
		if m.Type == gcode.MoveArc {
			sawArc = true
			assert.InDelta(t, 5.0+1, math.Hypot(m.I, m.J), 1.1,
				"arc center offset should be near the offset radius")
		}
	}
	assert.True(t, sawArc)
	last := moves[len(moves)-1]
	assert.GreaterOrEqual(t, last.ToZ, job.Machine.SafeZ)
}
