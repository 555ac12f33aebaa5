package model

// TabConfig tunes holding-tab placement on cutout contours.
type TabConfig struct {
	CornerMarginFactor float64 `json:"corner_margin_factor"`  // × tool diameter kept clear of corners
	MinTabLengthFactor float64 `json:"min_tab_length_factor"` // × tab width a section must offer
}

// HelixConfig tunes helical entry moves.
type HelixConfig struct {
	RadiusFactor          float64 `json:"radius_factor"` // × tool diameter
	Pitch                 float64 `json:"pitch"`         // mm descent per revolution
	SegmentsPerRevolution int     `json:"segments_per_revolution"`
}

// DrillingConfig tunes drill-milling entries.
type DrillingConfig struct {
	MinHelixDiameter float64 `json:"min_helix_diameter"` // below this, degrade to plunge
}

// EntryConfig groups material-entry tuning.
type EntryConfig struct {
	Helix    HelixConfig    `json:"helix"`
	Drilling DrillingConfig `json:"drilling"`
}

// GeometryConfig tunes the offsetter and tessellation.
type GeometryConfig struct {
	Precision             float64 `json:"precision"`         // epsilon below which geometry collapses
	MiterLimit            float64 `json:"miter_limit"`       // x |offset| before a miter bevels
	SagittaTolerance      float64 `json:"sagitta_tolerance"` // max chord deviation, mm
	MinCircleSegments     int     `json:"min_circle_segments"`
	MinRoundJointSegments int     `json:"min_round_joint_segments"`
	SimplifyTolerance     float64 `json:"simplify_tolerance"` // Douglas-Peucker, mm
	ClipperScale          float64 `json:"clipper_scale"`      // coordinate grid for boolean ops
}

// Config is the engine-wide configuration. It is read-only during a job and
// travels inside every ToolpathContext.
type Config struct {
	Geometry GeometryConfig `json:"geometry"`
	Tabs     TabConfig      `json:"tabs"`
	Entry    EntryConfig    `json:"entry"`

	// Machine defaults applied to new jobs.
	DefaultSafeZ         float64 `json:"default_safe_z"`
	DefaultTravelZ       float64 `json:"default_travel_z"`
	DefaultRapidFeedRate float64 `json:"default_rapid_feed_rate"`
	DefaultPlungeRate    float64 `json:"default_plunge_rate"`

	// G-code post-processor profile for new jobs.
	DefaultPostProfile string `json:"default_post_profile"`
}

// DefaultConfig returns the engine configuration with stock tuning values.
func DefaultConfig() Config {
	return Config{
		Geometry: GeometryConfig{
			Precision:             1e-3,
			MiterLimit:            2.0,
			SagittaTolerance:      0.005,
			MinCircleSegments:     16,
			MinRoundJointSegments: 2,
			SimplifyTolerance:     0.01,
			ClipperScale:          1e4,
		},
		Tabs: TabConfig{
			CornerMarginFactor: 1.5,
			MinTabLengthFactor: 2.0,
		},
		Entry: EntryConfig{
			Helix: HelixConfig{
				RadiusFactor:          0.4,
				Pitch:                 0.5,
				SegmentsPerRevolution: 16,
			},
			Drilling: DrillingConfig{
				MinHelixDiameter: 1.2,
			},
		},
		DefaultSafeZ:         5.0,
		DefaultTravelZ:       2.0,
		DefaultRapidFeedRate: 3000.0,
		DefaultPlungeRate:    300.0,
		DefaultPostProfile:   "Grbl",
	}
}
