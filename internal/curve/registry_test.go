package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/pcbcam/internal/model"
)

func TestRegistry_MonotonicIDs(t *testing.T) {
	reg := NewRegistry()
	id1 := reg.Register(Record{Kind: KindCircle, Radius: 5})
	id2 := reg.Register(Record{Kind: KindArc, Radius: 2})
	assert.Equal(t, model.CurveID(1), id1)
	assert.Equal(t, model.CurveID(2), id2)

	rec, ok := reg.Get(id1)
	require.True(t, ok)
	assert.Equal(t, KindCircle, rec.Kind)
	assert.Equal(t, 5.0, rec.Radius)

	_, ok = reg.Get(999)
	assert.False(t, ok)
}

func TestRegistry_ClearKeepsCounting(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Record{Kind: KindCircle})
	reg.Register(Record{Kind: KindCircle})
	reg.Clear()
	assert.Equal(t, 0, reg.Len())

	// IDs keep counting up so stale tags can never alias fresh curves.
	id := reg.Register(Record{Kind: KindArc})
	assert.Equal(t, model.CurveID(3), id)
}

func TestRegistry_CurvesForPrimitive(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFor("p1", Record{Kind: KindCircle})
	reg.RegisterFor("p1", Record{Kind: KindArc})
	reg.RegisterFor("p2", Record{Kind: KindArc})

	assert.Len(t, reg.CurvesForPrimitive("p1"), 2)
	assert.Len(t, reg.CurvesForPrimitive("p2"), 1)
	assert.Empty(t, reg.CurvesForPrimitive("p3"))
}

func TestTagPrimitive_Circle(t *testing.T) {
	reg := NewRegistry()
	c := model.NewCircle(model.Point2D{X: 1, Y: 2}, 3)
	TagPrimitive(reg, c)

	require.Len(t, c.CurveIDs, 1)
	rec, ok := reg.Get(c.CurveIDs[0])
	require.True(t, ok)
	assert.Equal(t, KindCircle, rec.Kind)
	assert.Equal(t, SourceImport, rec.Source)
	assert.Equal(t, model.Point2D{X: 1, Y: 2}, rec.Center)
	assert.Equal(t, reg.CurvesForPrimitive(c.ID), c.CurveIDs)
}

func TestTagPrimitive_PathArcSegments(t *testing.T) {
	reg := NewRegistry()
	p := model.NewPath([]model.Contour{{
		Points: []model.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}},
		ArcSegments: []model.ArcSegment{{
			StartIndex: 0, EndIndex: 2,
			Center: model.Point2D{X: 1, Y: 0}, Radius: 1,
		}},
	}}, true)
	TagPrimitive(reg, p)

	require.Len(t, p.Contours[0].ArcSegments, 1)
	seg := p.Contours[0].ArcSegments[0]
	assert.NotZero(t, seg.CurveID)
	rec, ok := reg.Get(seg.CurveID)
	require.True(t, ok)
	assert.Equal(t, KindArc, rec.Kind)
}
