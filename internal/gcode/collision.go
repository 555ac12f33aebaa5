package gcode

import (
	"math"

	"github.com/piwi3910/pcbcam/internal/model"
)

// ClampZone is a rectangular keep-out region on the machine bed where a
// clamp or fixture holds the board.
type ClampZone struct {
	Label  string  `json:"label"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Collision reports a toolpath plan whose extents come too close to a
// clamp zone.
type Collision struct {
	OperationID string  `json:"operation_id"`
	GroupKey    string  `json:"group_key"`
	ClampLabel  string  `json:"clamp_label"`
	Distance    float64 `json:"distance"` // clearance shortfall, negative = overlap
}

// CheckClampCollisions tests every plan's bounding box, grown by the tool
// radius plus the requested clearance, against the clamp zones. At most one
// collision is reported per plan: the first clamp zone it comes too close to.
func CheckClampCollisions(plans []*model.ToolpathPlan, zones []ClampZone, clearance float64) []Collision {
	if len(zones) == 0 {
		return nil
	}
	var collisions []Collision
	for _, plan := range plans {
		md := &plan.Metadata
		if len(plan.Commands) == 0 {
			continue
		}
		margin := md.Tool.Diameter/2 + clearance
		for _, cz := range zones {
			d := rectZoneDistance(md.Bounds, cz)
			if d < margin {
				collisions = append(collisions, Collision{
					OperationID: plan.OperationID,
					GroupKey:    md.GroupKey,
					ClampLabel:  cz.Label,
					Distance:    d - md.Tool.Diameter/2,
				})
				break
			}
		}
	}
	return collisions
}

// rectZoneDistance returns the gap between a plan's bounding box and a
// clamp zone rectangle; zero when they touch or overlap.
func rectZoneDistance(r model.Rect, cz ClampZone) float64 {
	dx := math.Max(math.Max(cz.X-r.MaxX, r.MinX-(cz.X+cz.Width)), 0)
	dy := math.Max(math.Max(cz.Y-r.MaxY, r.MinY-(cz.Y+cz.Height)), 0)
	return math.Hypot(dx, dy)
}
