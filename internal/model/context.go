package model

import (
	"fmt"
	"math"
)

// CuttingParams holds feed and spindle parameters for one operation.
type CuttingParams struct {
	FeedRate     float64 `json:"feed_rate"`     // mm/min
	PlungeRate   float64 `json:"plunge_rate"`   // mm/min
	SpindleSpeed int     `json:"spindle_speed"` // RPM
	SpindleDwell float64 `json:"spindle_dwell"` // seconds to wait after spindle start
}

// CutoutStrategy configures holding tabs on cutout contours.
type CutoutStrategy struct {
	Tabs      int     `json:"tabs"`
	TabWidth  float64 `json:"tab_width"`
	TabHeight float64 `json:"tab_height"`
}

// Drill canned cycle selectors.
const (
	CycleNone = "none"
	CycleG81  = "G81"
	CycleG83  = "G83"
)

// DrillStrategy configures drilling behavior.
type DrillStrategy struct {
	CannedCycle   string    `json:"canned_cycle"` // CycleNone, CycleG81, CycleG83
	PeckDepth     float64   `json:"peck_depth"`
	DwellTime     float64   `json:"dwell_time"`
	RetractHeight float64   `json:"retract_height"`
	EntryType     EntryType `json:"entry_type"`
}

// Strategy bundles the per-operation machining strategy.
type Strategy struct {
	Direction      Direction      `json:"direction"`
	EntryType      EntryType      `json:"entry_type"`
	DepthPerPass   float64        `json:"depth_per_pass"`
	StepOver       float64        `json:"step_over"` // fraction of tool diameter
	Cutout         CutoutStrategy `json:"cutout"`
	Drill          DrillStrategy  `json:"drill"`
	EntryRampAngle float64        `json:"entry_ramp_angle"` // degrees
}

// MachineParams holds the machine envelope for one job.
type MachineParams struct {
	SafeZ         float64 `json:"safe_z"`   // free rapid plane
	TravelZ       float64 `json:"travel_z"` // inter-feature transfer plane
	RapidFeedRate float64 `json:"rapid_feed_rate"`
	PlungeRate    float64 `json:"plunge_rate"`
}

// Computed holds values derived once per operation before translation.
type Computed struct {
	DepthLevels     []float64 `json:"depth_levels"`
	OffsetDistances []float64 `json:"offset_distances"`
}

// ToolpathContext is the per-operation compile-time bundle handed to the
// translator and machine processor.
type ToolpathContext struct {
	OperationID   string        `json:"operation_id"`
	OperationType OperationType `json:"operation_type"`
	CutDepth      float64       `json:"cut_depth"` // final depth, negative
	Tool          Tool          `json:"tool"`
	Cutting       CuttingParams `json:"cutting"`
	Strategy      Strategy      `json:"strategy"`
	Machine       MachineParams `json:"machine"`
	Computed      Computed      `json:"computed"`
	Config        Config        `json:"config"`
}

// Validate checks the context fields the engine cannot default. A failure
// here fails the whole operation.
func (c *ToolpathContext) Validate() error {
	if c.Tool.Diameter <= 0 {
		return fmt.Errorf("%w: tool diameter %.3f", ErrInvalidContext, c.Tool.Diameter)
	}
	if c.Cutting.FeedRate <= 0 {
		return fmt.Errorf("%w: feed rate %.1f", ErrInvalidContext, c.Cutting.FeedRate)
	}
	if c.Cutting.PlungeRate <= 0 {
		return fmt.Errorf("%w: plunge rate %.1f", ErrInvalidContext, c.Cutting.PlungeRate)
	}
	if c.Machine.SafeZ < 0 {
		return fmt.Errorf("%w: negative safe Z %.3f", ErrInvalidContext, c.Machine.SafeZ)
	}
	if c.Machine.TravelZ < 0 {
		return fmt.Errorf("%w: negative travel Z %.3f", ErrInvalidContext, c.Machine.TravelZ)
	}
	if c.CutDepth >= 0 {
		return fmt.Errorf("%w: cut depth %.3f must be negative", ErrInvalidContext, c.CutDepth)
	}
	return nil
}

// DepthLevels splits a total cut depth (negative) into per-pass levels,
// shallow to deep. The final level is clamped to cutDepth, e.g. a 1.8 mm
// cut at 0.4 mm per pass yields [-0.4, -0.8, -1.2, -1.6, -1.8].
func DepthLevels(cutDepth, depthPerPass float64) []float64 {
	if cutDepth >= 0 {
		return nil
	}
	step := math.Abs(depthPerPass)
	if step <= 0 || step >= math.Abs(cutDepth) {
		return []float64{cutDepth}
	}
	var levels []float64
	z := 0.0
	for z > cutDepth {
		z -= step
		if z < cutDepth {
			z = cutDepth
		}
		levels = append(levels, z)
	}
	return levels
}
