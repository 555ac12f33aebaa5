// Package model defines the geometric and toolpath data model shared by the
// PCBCAM engine packages: primitives imported from board artwork, motion
// commands, toolpath plans and the per-operation context they are compiled
// under.
package model

import "github.com/google/uuid"

// CurveID identifies an analytic curve in the process-wide curve registry.
// Zero means "no curve".
type CurveID int64

// Point2D represents a plain 2D coordinate in mm.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point3D represents a 3D coordinate in mm. Used for entry and exit points
// on toolpath plans.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Point is a polygon vertex, optionally tagged with the analytic curve it
// samples. SegmentIndex/TotalSegments encode the vertex's position along
// that curve; T is the normalized parameter in [0,1].
type Point struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	CurveID       CurveID `json:"curve_id,omitempty"`
	SegmentIndex  int     `json:"segment_index,omitempty"`
	TotalSegments int     `json:"total_segments,omitempty"`
	T             float64 `json:"t,omitempty"`
}

// XY returns the vertex position as a plain coordinate.
func (p Point) XY() Point2D {
	return Point2D{X: p.X, Y: p.Y}
}

// ArcSegment marks that the run of contour points from StartIndex to
// EndIndex samples an analytic arc; in the sparse hybrid-offset form the
// run is a single consecutive pair. StartIndex and EndIndex index into the
// owning contour's points array.
type ArcSegment struct {
	StartIndex int     `json:"start_index"`
	EndIndex   int     `json:"end_index"`
	Center     Point2D `json:"center"`
	Radius     float64 `json:"radius"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
	SweepAngle float64 `json:"sweep_angle"`
	Clockwise  bool    `json:"clockwise"`
	CurveID    CurveID `json:"curve_id,omitempty"`
}

// Contour is an ordered ring of points within a path, possibly annotated
// with arc segments. Every ArcSegment endpoint index must refer to a valid
// point in Points.
type Contour struct {
	Points       []Point      `json:"points"`
	IsHole       bool         `json:"is_hole"`
	NestingLevel int          `json:"nesting_level"`
	ParentID     string       `json:"parent_id,omitempty"`
	ArcSegments  []ArcSegment `json:"arc_segments,omitempty"`
	CurveIDs     []CurveID    `json:"curve_ids,omitempty"`
}

// Polarity of an imported primitive: dark adds copper, clear removes it.
const (
	PolarityDark  = "dark"
	PolarityClear = "clear"
)

// Path roles used by drill operations.
const (
	RolePeckMark         = "peck_mark"
	RoleDrillMillingPath = "drill_milling_path"
)

// Properties carries the semantic flags attached to a primitive by the
// upstream parser or by engine stages.
type Properties struct {
	IsCutout         bool    `json:"is_cutout,omitempty"`
	Stroke           bool    `json:"stroke,omitempty"`
	Fill             bool    `json:"fill,omitempty"`
	StrokeWidth      float64 `json:"stroke_width,omitempty"`
	IsTrace          bool    `json:"is_trace,omitempty"`
	IsCenterlinePath bool    `json:"is_centerline_path,omitempty"`
	Polarity         string  `json:"polarity,omitempty"`
	Role             string  `json:"role,omitempty"`

	// Flags set by engine stages rather than the parser.
	Polygonized          bool    `json:"polygonized,omitempty"`
	IsOffsetDerived      bool    `json:"is_offset_derived,omitempty"`
	OffsetType           string  `json:"offset_type,omitempty"` // "external", "internal", "on"
	OffsetDistance       float64 `json:"offset_distance,omitempty"`
	Reconstructed        bool    `json:"reconstructed,omitempty"`
	HasReconstructedArcs bool    `json:"has_reconstructed_arcs,omitempty"`
}

// IsStroke reports whether the primitive outline is a traced stroke rather
// than a filled region.
func (p Properties) IsStroke() bool {
	return (p.Stroke && !p.Fill) || p.IsTrace
}

// Kind discriminates the primitive variants.
type Kind string

const (
	KindCircle    Kind = "circle"
	KindArc       Kind = "arc"
	KindRectangle Kind = "rectangle"
	KindObround   Kind = "obround"
	KindBezier    Kind = "bezier"
	KindPath      Kind = "path"
)

// Base holds the identity and semantic data common to all primitive
// variants. Variants embed Base so any Primitive can be inspected without a
// type switch.
type Base struct {
	ID       string     `json:"id"`
	Props    Properties `json:"properties"`
	CurveIDs []CurveID  `json:"curve_ids,omitempty"`
}

// Meta returns the embedded base data, satisfying the Primitive interface
// for every variant that embeds Base.
func (b *Base) Meta() *Base { return b }

// AddCurveID appends a registered curve ID to the primitive.
func (b *Base) AddCurveID(id CurveID) {
	b.CurveIDs = append(b.CurveIDs, id)
}

// Primitive is a geometric object imported from board artwork or produced
// by an engine stage.
type Primitive interface {
	Kind() Kind
	Meta() *Base
}

// Circle is a full analytic circle.
type Circle struct {
	Base
	Center Point2D `json:"center"`
	Radius float64 `json:"radius"`
}

func (*Circle) Kind() Kind { return KindCircle }

// Arc is an analytic circular arc. Angles are in radians; Clockwise is the
// geometric (Y-up) rotation sense.
type Arc struct {
	Base
	Center     Point2D `json:"center"`
	Radius     float64 `json:"radius"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
	Clockwise  bool    `json:"clockwise"`
}

func (*Arc) Kind() Kind { return KindArc }

// Rectangle is an axis-aligned rectangle. Position is the center.
type Rectangle struct {
	Base
	Position Point2D `json:"position"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

func (*Rectangle) Kind() Kind { return KindRectangle }

// Obround is a stadium shape: a rectangle with semicircular caps on its
// longer axis. Position is the center.
type Obround struct {
	Base
	Position Point2D `json:"position"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

func (*Obround) Kind() Kind { return KindObround }

// IsHorizontal reports whether the obround's slot axis runs along X.
func (o *Obround) IsHorizontal() bool { return o.Width > o.Height }

// SlotRadius returns the cap radius (half the shorter dimension).
func (o *Obround) SlotRadius() float64 {
	if o.IsHorizontal() {
		return o.Height / 2
	}
	return o.Width / 2
}

// CapCenters returns the centers of the two semicircular caps.
func (o *Obround) CapCenters() (start, end Point2D) {
	r := o.SlotRadius()
	if o.IsHorizontal() {
		half := o.Width/2 - r
		return Point2D{X: o.Position.X - half, Y: o.Position.Y},
			Point2D{X: o.Position.X + half, Y: o.Position.Y}
	}
	half := o.Height/2 - r
	return Point2D{X: o.Position.X, Y: o.Position.Y - half},
		Point2D{X: o.Position.X, Y: o.Position.Y + half}
}

// Bezier is a cubic bezier curve segment.
type Bezier struct {
	Base
	Start    Point2D `json:"start"`
	Control1 Point2D `json:"control1"`
	Control2 Point2D `json:"control2"`
	End      Point2D `json:"end"`
}

func (*Bezier) Kind() Kind { return KindBezier }

// Path is one or more contours of polygon vertices.
type Path struct {
	Base
	Contours []Contour `json:"contours"`
	Closed   bool      `json:"closed"`
}

func (*Path) Kind() Kind { return KindPath }

// Outer returns the first non-hole contour, or nil.
func (p *Path) Outer() *Contour {
	for i := range p.Contours {
		if !p.Contours[i].IsHole {
			return &p.Contours[i]
		}
	}
	if len(p.Contours) > 0 {
		return &p.Contours[0]
	}
	return nil
}

// NewID returns a short unique primitive ID.
func NewID() string {
	return uuid.New().String()[:8]
}

// NewCircle creates a circle primitive with a generated ID.
func NewCircle(center Point2D, radius float64) *Circle {
	return &Circle{Base: Base{ID: NewID()}, Center: center, Radius: radius}
}

// NewArc creates an arc primitive with a generated ID.
func NewArc(center Point2D, radius, startAngle, endAngle float64, clockwise bool) *Arc {
	return &Arc{
		Base:       Base{ID: NewID()},
		Center:     center,
		Radius:     radius,
		StartAngle: startAngle,
		EndAngle:   endAngle,
		Clockwise:  clockwise,
	}
}

// NewRectangle creates a rectangle primitive centered at position.
func NewRectangle(position Point2D, width, height float64) *Rectangle {
	return &Rectangle{Base: Base{ID: NewID()}, Position: position, Width: width, Height: height}
}

// NewObround creates an obround primitive centered at position.
func NewObround(position Point2D, width, height float64) *Obround {
	return &Obround{Base: Base{ID: NewID()}, Position: position, Width: width, Height: height}
}

// NewPath creates a path primitive from the given contours.
func NewPath(contours []Contour, closed bool) *Path {
	return &Path{Base: Base{ID: NewID()}, Contours: contours, Closed: closed}
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Union expands the rectangle to include other.
func (r Rect) Union(other Rect) Rect {
	if other.MinX < r.MinX {
		r.MinX = other.MinX
	}
	if other.MinY < r.MinY {
		r.MinY = other.MinY
	}
	if other.MaxX > r.MaxX {
		r.MaxX = other.MaxX
	}
	if other.MaxY > r.MaxY {
		r.MaxY = other.MaxY
	}
	return r
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }
