package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/pcbcam/internal/curve"
	"github.com/piwi3910/pcbcam/internal/model"
)

func ccwSquare(size float64) []model.Point {
	return []model.Point{
		{X: 0, Y: 0}, {X: size, Y: 0}, {X: size, Y: size}, {X: 0, Y: size},
	}
}

func TestWinding(t *testing.T) {
	sq := ccwSquare(10)
	assert.InDelta(t, 100.0, Winding(sq), 1e-9) // signed area = 100
	assert.False(t, IsClockwise(sq))

	cw := []model.Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}}
	assert.True(t, IsClockwise(cw))
}

func TestBoundsOf(t *testing.T) {
	r := BoundsOf(ccwSquare(10))
	assert.Equal(t, model.Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}, r)
	assert.Equal(t, 10.0, r.Width())
}

func TestLineIntersection(t *testing.T) {
	p, ok := LineIntersection(
		model.Point2D{X: 0, Y: 1}, model.Point2D{X: 10, Y: 1},
		model.Point2D{X: 9, Y: 0}, model.Point2D{X: 9, Y: 10})
	require.True(t, ok)
	assert.InDelta(t, 9.0, p.X, 1e-9)
	assert.InDelta(t, 1.0, p.Y, 1e-9)

	_, ok = LineIntersection(
		model.Point2D{X: 0, Y: 0}, model.Point2D{X: 1, Y: 0},
		model.Point2D{X: 0, Y: 1}, model.Point2D{X: 1, Y: 1})
	assert.False(t, ok)
}

func TestSweepAngle(t *testing.T) {
	assert.InDelta(t, math.Pi, SweepAngle(0, math.Pi, false), 1e-9)
	assert.InDelta(t, -math.Pi, SweepAngle(0, math.Pi, true), 1e-9)
	// Full circle when start == end counter-clockwise.
	assert.InDelta(t, 2*math.Pi, SweepAngle(0, 0, false), 1e-9)
}

func TestTessellateCircle_Tags(t *testing.T) {
	pts := TessellateCircle(model.Point2D{X: 0, Y: 0}, 5, 16, 7)
	require.Len(t, pts, 16)
	for i, p := range pts {
		assert.InDelta(t, 5.0, math.Hypot(p.X, p.Y), 1e-9)
		assert.Equal(t, model.CurveID(7), p.CurveID)
		assert.Equal(t, i, p.SegmentIndex)
		assert.Equal(t, 16, p.TotalSegments)
	}
	// No duplicated closing vertex.
	assert.Greater(t, Dist(pts[0].XY(), pts[len(pts)-1].XY()), 0.1)
}

func TestOptimalSegments(t *testing.T) {
	cfg := model.DefaultConfig().Geometry
	small := OptimalSegments(0.1, curve.KindCircle, cfg)
	large := OptimalSegments(10, curve.KindCircle, cfg)
	assert.GreaterOrEqual(t, small, cfg.MinCircleSegments)
	assert.Greater(t, large, small)
}

func TestSimplifyDouglasPeucker_DropsNoise(t *testing.T) {
	pts := []model.Point{
		{X: 0, Y: 0}, {X: 1, Y: 0.001}, {X: 2, Y: -0.001}, {X: 3, Y: 0.0005}, {X: 4, Y: 0},
	}
	out := SimplifyDouglasPeucker(pts, 0.01*0.01)
	require.Len(t, out, 2)
	assert.Equal(t, pts[0], out[0])
	assert.Equal(t, pts[len(pts)-1], out[1])
}

func TestSimplifyDouglasPeucker_KeepsFeatures(t *testing.T) {
	pts := []model.Point{
		{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 1}, {X: 4, Y: 0}, {X: 6, Y: 0},
	}
	out := SimplifyDouglasPeucker(pts, 0.01*0.01)
	spikeKept := false
	for _, p := range out {
		if p.X == 3 && p.Y == 1 {
			spikeKept = true
		}
	}
	assert.True(t, spikeKept)
}

func TestSqDistToSegment(t *testing.T) {
	a := model.Point2D{X: 0, Y: 0}
	b := model.Point2D{X: 10, Y: 0}
	assert.InDelta(t, 4.0, SqDistToSegment(model.Point2D{X: 5, Y: 2}, a, b), 1e-9)
	// Beyond the endpoint: distance to the endpoint itself.
	assert.InDelta(t, 25.0, SqDistToSegment(model.Point2D{X: 15, Y: 0}, a, b), 1e-9)
}

func TestPrimitiveToPath_Circle(t *testing.T) {
	reg := curve.NewRegistry()
	cfg := model.DefaultConfig().Geometry
	c := model.NewCircle(model.Point2D{X: 2, Y: 3}, 4)
	path, err := PrimitiveToPath(reg, c, cfg)
	require.NoError(t, err)
	require.Len(t, path.Contours, 1)
	assert.True(t, path.Closed)
	assert.True(t, path.Props.Fill)
	require.Len(t, path.Contours[0].CurveIDs, 1)

	rec, ok := reg.Get(path.Contours[0].CurveIDs[0])
	require.True(t, ok)
	assert.Equal(t, curve.KindCircle, rec.Kind)
	assert.Equal(t, 4.0, rec.Radius)
	for _, p := range path.Contours[0].Points {
		assert.InDelta(t, 4.0, math.Hypot(p.X-2, p.Y-3), 1e-9)
	}
}

func TestPrimitiveToPath_Rectangle(t *testing.T) {
	reg := curve.NewRegistry()
	cfg := model.DefaultConfig().Geometry
	r := model.NewRectangle(model.Point2D{X: 0, Y: 0}, 10, 6)
	path, err := PrimitiveToPath(reg, r, cfg)
	require.NoError(t, err)
	pts := path.Contours[0].Points
	require.Len(t, pts, 4)
	assert.False(t, IsClockwise(pts))
	bounds := BoundsOf(pts)
	assert.Equal(t, model.Rect{MinX: -5, MinY: -3, MaxX: 5, MaxY: 3}, bounds)
}

func TestPrimitiveToPath_ObroundArcs(t *testing.T) {
	reg := curve.NewRegistry()
	cfg := model.DefaultConfig().Geometry
	ob := model.NewObround(model.Point2D{X: 0, Y: 0}, 20, 10)
	path, err := PrimitiveToPath(reg, ob, cfg)
	require.NoError(t, err)
	c := path.Contours[0]
	require.Len(t, c.ArcSegments, 2)
	for _, seg := range c.ArcSegments {
		assert.Equal(t, 5.0, seg.Radius)
		assert.NotZero(t, seg.CurveID)
		assert.Less(t, seg.StartIndex, len(c.Points))
		assert.Less(t, seg.EndIndex, len(c.Points))
	}
	assert.False(t, IsClockwise(c.Points))
}

func TestPrimitiveToPath_DegenerateCircle(t *testing.T) {
	reg := curve.NewRegistry()
	cfg := model.DefaultConfig().Geometry
	c := model.NewCircle(model.Point2D{}, 1e-6)
	_, err := PrimitiveToPath(reg, c, cfg)
	assert.ErrorIs(t, err, model.ErrDegenerateGeometry)
}

func TestPolylineToPolygon_Caps(t *testing.T) {
	reg := curve.NewRegistry()
	cfg := model.DefaultConfig().Geometry
	line := []model.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}
	var capIDs []model.CurveID
	contour, err := PolylineToPolygon(reg, "p1", line, 2, cfg, &capIDs)
	require.NoError(t, err)
	require.Len(t, capIDs, 2)
	require.Len(t, contour.ArcSegments, 2)

	// The ribbon spans the stroke width around the centerline.
	b := BoundsOf(contour.Points)
	assert.InDelta(t, -1.0, b.MinY, 1e-6)
	assert.InDelta(t, 1.0, b.MaxY, 1e-6)
	assert.InDelta(t, -1.0, b.MinX, 1e-6)
	assert.InDelta(t, 11.0, b.MaxX, 1e-6)

	for _, id := range capIDs {
		rec, ok := reg.Get(id)
		require.True(t, ok)
		assert.Equal(t, curve.SourceStrokeCap, rec.Source)
		assert.InDelta(t, 1.0, rec.Radius, 1e-9)
	}
}

func TestArcToPolygon(t *testing.T) {
	reg := curve.NewRegistry()
	cfg := model.DefaultConfig().Geometry
	arc := model.NewArc(model.Point2D{X: 0, Y: 0}, 5, 0, math.Pi/2, false)
	contour, err := ArcToPolygon(reg, arc, 2, cfg)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(contour.ArcSegments), 4)

	b := BoundsOf(contour.Points)
	// Outer rim reaches radius + half width.
	assert.InDelta(t, 6.0, b.MaxX, 0.05)
	assert.InDelta(t, 6.0, b.MaxY, 0.05)
}
