// Package curve implements the process-wide registry of analytic curves.
// Polygon vertices synthesized from circles and arcs carry opaque curve IDs
// so curvature survives boolean operations and can be re-materialized by the
// arc reconstructor.
package curve

import (
	"sync"

	"github.com/piwi3910/pcbcam/internal/model"
)

// Kind discriminates registered curve types.
type Kind string

const (
	KindArc    Kind = "arc"
	KindCircle Kind = "circle"
)

// Source records where a curve came from.
type Source string

const (
	SourceImport       Source = "import"
	SourceOffsetJoint  Source = "offset_joint"
	SourceHybridOffset Source = "hybrid_offset"
	SourceStrokeCap    Source = "stroke_cap"
	SourceTessellation Source = "tessellation"
)

// Record describes one analytic curve. The registry exclusively owns
// records; primitives and points hold opaque IDs only.
type Record struct {
	Kind       Kind          `json:"kind"`
	Center     model.Point2D `json:"center"`
	Radius     float64       `json:"radius"`
	StartAngle float64       `json:"start_angle,omitempty"`
	EndAngle   float64       `json:"end_angle,omitempty"`
	Clockwise  bool          `json:"clockwise"`
	Source     Source        `json:"source"`

	IsOffsetDerived bool          `json:"is_offset_derived,omitempty"`
	OffsetDistance  float64       `json:"offset_distance,omitempty"`
	SourceCurveID   model.CurveID `json:"source_curve_id,omitempty"`
}

// Registry assigns stable monotonic IDs to analytic curves. IDs are never
// reused; state lives for the duration of a job and is cleared between
// independent jobs. Writes are append-only, guarded by a single mutex so
// the registry stays safe if the host ever runs jobs concurrently.
type Registry struct {
	mu          sync.Mutex
	next        model.CurveID
	records     map[model.CurveID]Record
	byPrimitive map[string][]model.CurveID
}

// NewRegistry returns an empty registry. The first issued ID is 1; zero
// always means "no curve".
func NewRegistry() *Registry {
	return &Registry{
		next:        1,
		records:     make(map[model.CurveID]Record),
		byPrimitive: make(map[string][]model.CurveID),
	}
}

// Register appends a record and returns its fresh ID.
func (r *Registry) Register(rec Record) model.CurveID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.records[id] = rec
	return id
}

// RegisterFor appends a record, associating it with a primitive ID.
func (r *Registry) RegisterFor(primitiveID string, rec Record) model.CurveID {
	id := r.Register(rec)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPrimitive[primitiveID] = append(r.byPrimitive[primitiveID], id)
	return id
}

// Get looks up a record by ID.
func (r *Registry) Get(id model.CurveID) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	return rec, ok
}

// CurvesForPrimitive returns the curve IDs registered for a primitive.
func (r *Registry) CurvesForPrimitive(primitiveID string) []model.CurveID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.byPrimitive[primitiveID]
	out := make([]model.CurveID, len(ids))
	copy(out, ids)
	return out
}

// Len returns the number of registered curves.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Clear drops all state. IDs keep counting up so stale tags from a
// previous job can never alias fresh curves.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[model.CurveID]Record)
	r.byPrimitive = make(map[string][]model.CurveID)
}

// TagPrimitive registers the analytic curves an imported primitive
// contains and appends the IDs to the primitive. Paths with arc segments
// get one curve per segment; other kinds get their single curve.
func TagPrimitive(r *Registry, prim model.Primitive) {
	meta := prim.Meta()
	switch p := prim.(type) {
	case *model.Circle:
		id := r.RegisterFor(meta.ID, Record{
			Kind:   KindCircle,
			Center: p.Center,
			Radius: p.Radius,
			Source: SourceImport,
		})
		meta.AddCurveID(id)
	case *model.Arc:
		id := r.RegisterFor(meta.ID, Record{
			Kind:       KindArc,
			Center:     p.Center,
			Radius:     p.Radius,
			StartAngle: p.StartAngle,
			EndAngle:   p.EndAngle,
			Clockwise:  p.Clockwise,
			Source:     SourceImport,
		})
		meta.AddCurveID(id)
	case *model.Path:
		for ci := range p.Contours {
			c := &p.Contours[ci]
			for si := range c.ArcSegments {
				seg := &c.ArcSegments[si]
				if seg.CurveID != 0 {
					continue
				}
				id := r.RegisterFor(meta.ID, Record{
					Kind:       KindArc,
					Center:     seg.Center,
					Radius:     seg.Radius,
					StartAngle: seg.StartAngle,
					EndAngle:   seg.EndAngle,
					Clockwise:  seg.Clockwise,
					Source:     SourceImport,
				})
				seg.CurveID = id
				c.CurveIDs = append(c.CurveIDs, id)
				meta.AddCurveID(id)
			}
		}
	}
}
