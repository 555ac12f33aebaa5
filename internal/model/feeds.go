package model

// FeedEstimate holds the results of a chipload-based feed calculation.
type FeedEstimate struct {
	Chipload        float64 `json:"chipload"`           // mm per tooth used
	FeedRate        float64 `json:"feed_rate"`          // mm/min
	PlungeRate      float64 `json:"plunge_rate"`        // mm/min
	SurfaceSpeed    float64 `json:"surface_speed"`      // m/min at the cutter edge
	MaxDepthPerPass float64 `json:"max_depth_per_pass"` // mm
}

// Recommended chipload per tooth (mm) for small-diameter PCB tooling,
// keyed by material.
var chiploads = map[string]float64{
	"fr4":       0.012,
	"aluminum":  0.010,
	"acrylic":   0.020,
	"wood":      0.025,
	"composite": 0.015,
}

// plungeFraction is the fraction of the lateral feed used for plunging.
const plungeFraction = 0.3

// EstimateFeeds computes suggested feed and plunge rates for a tool from
// spindle speed and material chipload. Unknown materials fall back to the
// FR4 chipload. A zero flute count is treated as a two-flute cutter.
func EstimateFeeds(toolDiameter float64, flutes int, spindleSpeed int, material string) FeedEstimate {
	if flutes <= 0 {
		flutes = 2
	}
	chipload, ok := chiploads[material]
	if !ok {
		chipload = chiploads["fr4"]
	}

	feed := float64(spindleSpeed) * float64(flutes) * chipload
	// Surface speed: π × D × RPM, reported in m/min.
	surface := 3.14159265358979 * toolDiameter * float64(spindleSpeed) / 1000.0

	return FeedEstimate{
		Chipload:        chipload,
		FeedRate:        feed,
		PlungeRate:      feed * plungeFraction,
		SurfaceSpeed:    surface,
		MaxDepthPerPass: toolDiameter * 0.5,
	}
}
