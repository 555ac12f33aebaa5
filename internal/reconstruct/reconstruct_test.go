package reconstruct

import (
	"math"
	"reflect"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/pcbcam/internal/curve"
	"github.com/piwi3910/pcbcam/internal/geom"
	"github.com/piwi3910/pcbcam/internal/model"
	"github.com/piwi3910/pcbcam/internal/offset"
)

// taggedCirclePath builds a closed path whose vertices all sample one
// registered circle, segment indices 0..N-1.
func taggedCirclePath(reg *curve.Registry, radius float64, segments int) (*model.Path, model.CurveID) {
	id := reg.Register(curve.Record{
		Kind:   curve.KindCircle,
		Center: model.Point2D{X: 0, Y: 0},
		Radius: radius,
		Source: curve.SourceTessellation,
	})
	pts := geom.TessellateCircle(model.Point2D{X: 0, Y: 0}, radius, segments, id)
	p := model.NewPath([]model.Contour{{Points: pts, CurveIDs: []model.CurveID{id}}}, true)
	return p, id
}

func TestRebuild_FullCircle(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	reg := curve.NewRegistry()
	path, id := taggedCirclePath(reg, 11, 48)

	r := New(reg)
	out := r.Rebuild([]model.Primitive{path})
	require.Len(t, out, 1)

	circle, ok := out[0].(*model.Circle)
	require.True(t, ok, "expected a reconstructed circle")
	assert.InDelta(t, 11.0, circle.Radius, 1e-9)
	assert.True(t, circle.Props.Reconstructed)
	assert.Equal(t, []model.CurveID{id}, circle.CurveIDs)
	assert.Equal(t, 1, r.Stats.FullCircles)
	assert.Equal(t, 1, r.Stats.Reconstructed)
}

// Wrap-around: a ring whose segment indices run 8..N-1 and then 0..7 still
// produces exactly one circle with full coverage.
func TestRebuild_WrapAroundMerge(t *testing.T) {
	reg := curve.NewRegistry()
	path, _ := taggedCirclePath(reg, 5, 32)
	// Rotate the ring so the curve run crosses the seam: the ring now
	// starts mid-curve and ends with the curve's first samples.
	pts := path.Contours[0].Points
	rotated := append(append([]model.Point{}, pts[8:]...), pts[:8]...)
	path.Contours[0].Points = rotated

	r := New(reg)
	out := r.Rebuild([]model.Primitive{path})
	require.Len(t, out, 1)
	_, ok := out[0].(*model.Circle)
	assert.True(t, ok, "wrapped circle should still reconstruct")
}

func TestRebuild_PartialArcAnnotation(t *testing.T) {
	reg := curve.NewRegistry()
	id := reg.Register(curve.Record{
		Kind:   curve.KindArc,
		Center: model.Point2D{X: 10, Y: 0},
		Radius: 5,
		Source: curve.SourceOffsetJoint,
	})
	arcPts := geom.TessellateArc(model.Point2D{X: 10, Y: 0}, 5, math.Pi/2, math.Pi, false, 6, id)
	points := []model.Point{{X: 0, Y: -10}, {X: 20, Y: -10}}
	points = append(points, arcPts...)

	path := model.NewPath([]model.Contour{{Points: points}}, true)
	r := New(reg)
	out := r.Rebuild([]model.Primitive{path})
	require.Len(t, out, 1)

	res, ok := out[0].(*model.Path)
	require.True(t, ok)
	assert.True(t, res.Props.HasReconstructedArcs)
	require.Len(t, res.Contours[0].ArcSegments, 1)
	seg := res.Contours[0].ArcSegments[0]
	assert.Equal(t, id, seg.CurveID)
	assert.InDelta(t, 5.0, seg.Radius, 1e-9)
	assert.Equal(t, 2, seg.StartIndex)
	assert.Equal(t, len(points)-1, seg.EndIndex)
	assert.Equal(t, 1, r.Stats.PartialArcs)
}

// Idempotence: a second run changes nothing and registers no curves.
func TestRebuild_Idempotent(t *testing.T) {
	reg := curve.NewRegistry()
	path, _ := taggedCirclePath(reg, 3, 24)

	r := New(reg)
	first := r.Rebuild([]model.Primitive{path})
	lenAfterFirst := reg.Len()

	second := r.Rebuild(first)
	assert.Equal(t, lenAfterFirst, reg.Len(), "second run must register no curves")
	require.Len(t, second, 1)
	assert.True(t, reflect.DeepEqual(first[0], second[0]))
}

// Untagged primitives pass through unchanged.
func TestRebuild_PassThrough(t *testing.T) {
	reg := curve.NewRegistry()
	plain := model.NewPath([]model.Contour{{Points: []model.Point{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1},
	}}}, true)
	circle := model.NewCircle(model.Point2D{}, 2)

	r := New(reg)
	out := r.Rebuild([]model.Primitive{plain, circle})
	require.Len(t, out, 2)
	assert.Same(t, model.Primitive(plain), out[0])
	assert.Same(t, model.Primitive(circle), out[1])
}

// The offsetter's circle output reconstructs end to end.
func TestRebuild_AfterOffset(t *testing.T) {
	reg := curve.NewRegistry()
	o := offset.New(reg, model.DefaultConfig().Geometry, nil)
	src := model.NewCircle(model.Point2D{X: 1, Y: 1}, 10)
	curve.TagPrimitive(reg, src)

	offs, err := o.Offset(src, 1)
	require.NoError(t, err)
	require.Len(t, offs, 1)

	r := New(reg)
	out := r.Rebuild(offs)
	require.Len(t, out, 1)
	circle, ok := out[0].(*model.Circle)
	require.True(t, ok)
	assert.InDelta(t, 11.0, circle.Radius, 1e-9)
	assert.Equal(t, model.Point2D{X: 1, Y: 1}, circle.Center)
}
