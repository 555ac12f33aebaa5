package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepthLevels_MultiPass(t *testing.T) {
	levels := DepthLevels(-1.8, 0.4)
	require.Equal(t, 5, len(levels))
	expected := []float64{-0.4, -0.8, -1.2, -1.6, -1.8}
	for i, want := range expected {
		assert.InDelta(t, want, levels[i], 1e-9)
	}
}

func TestDepthLevels_SinglePass(t *testing.T) {
	assert.Equal(t, []float64{-1.0}, DepthLevels(-1.0, 2.0))
	assert.Equal(t, []float64{-1.0}, DepthLevels(-1.0, 0))
}

func TestDepthLevels_PositiveDepthRejected(t *testing.T) {
	assert.Nil(t, DepthLevels(1.0, 0.5))
}

func TestMotionCommand_EndsAt(t *testing.T) {
	pos := Point3D{X: 1, Y: 2, Z: 3}
	pos = RapidZ(5).EndsAt(pos)
	assert.Equal(t, Point3D{X: 1, Y: 2, Z: 5}, pos)
	pos = LinearXY(10, 20, 100).EndsAt(pos)
	assert.Equal(t, Point3D{X: 10, Y: 20, Z: 5}, pos)
}

func TestMotionCommand_UnsetCoordinates(t *testing.T) {
	cmd := RapidZ(2)
	assert.False(t, IsSet(cmd.X))
	assert.False(t, IsSet(cmd.Y))
	assert.True(t, IsSet(cmd.Z))
}

func TestArcCommand_Variants(t *testing.T) {
	cw := ArcTo(1, 0, -1, -1, 0, 100, true)
	assert.Equal(t, MoveArcCW, cw.Kind)
	ccw := ArcTo(1, 0, -1, -1, 0, 100, false)
	assert.Equal(t, MoveArcCCW, ccw.Kind)
	assert.True(t, cw.Kind.IsArc())
	assert.True(t, cw.Kind.IsCutting())
	assert.False(t, MoveRapid.IsCutting())
}

func TestObround_Geometry(t *testing.T) {
	ob := NewObround(Point2D{X: 0, Y: 0}, 20, 10)
	assert.True(t, ob.IsHorizontal())
	assert.Equal(t, 5.0, ob.SlotRadius())
	start, end := ob.CapCenters()
	assert.Equal(t, Point2D{X: -5, Y: 0}, start)
	assert.Equal(t, Point2D{X: 5, Y: 0}, end)

	vert := NewObround(Point2D{X: 0, Y: 0}, 10, 20)
	assert.False(t, vert.IsHorizontal())
	s2, e2 := vert.CapCenters()
	assert.Equal(t, Point2D{X: 0, Y: -5}, s2)
	assert.Equal(t, Point2D{X: 0, Y: 5}, e2)
}

func TestContextValidate(t *testing.T) {
	ctx := &ToolpathContext{
		CutDepth: -1,
		Tool:     Tool{ID: "t1", Diameter: 2},
		Cutting:  CuttingParams{FeedRate: 300, PlungeRate: 100},
		Machine:  MachineParams{SafeZ: 5, TravelZ: 2},
	}
	require.NoError(t, ctx.Validate())

	bad := *ctx
	bad.Tool.Diameter = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidContext)

	bad = *ctx
	bad.Cutting.FeedRate = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidContext)

	bad = *ctx
	bad.Machine.SafeZ = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidContext)

	bad = *ctx
	bad.CutDepth = 1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidContext)
}

func TestEstimateFeeds(t *testing.T) {
	est := EstimateFeeds(3.175, 2, 24000, "fr4")
	assert.InDelta(t, 24000*2*0.012, est.FeedRate, 1e-9)
	assert.InDelta(t, est.FeedRate*0.3, est.PlungeRate, 1e-9)
	assert.InDelta(t, math.Pi*3.175*24000/1000, est.SurfaceSpeed, 1e-3)

	// Unknown material falls back to FR4.
	unknown := EstimateFeeds(3.175, 2, 24000, "granite")
	assert.Equal(t, est.Chipload, unknown.Chipload)
}

func TestGetPostProfile(t *testing.T) {
	grbl := GetPostProfile("Grbl")
	assert.Equal(t, "Grbl", grbl.Name)
	assert.True(t, grbl.SupportsArcs)

	roland := GetPostProfile("Roland")
	assert.False(t, roland.SupportsArcs)

	fallback := GetPostProfile("NoSuchController")
	assert.Equal(t, "Generic", fallback.Name)
}

func TestGroupKey(t *testing.T) {
	key := GroupKey(2.0, OpCutout, -1.5)
	assert.Equal(t, "T:2.000_OP:cutout_Z:-1.500", key)
}
