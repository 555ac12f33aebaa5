package model

// PostProfile defines a post-processor configuration for a CNC controller
// dialect.
type PostProfile struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Units       string `json:"units"` // "mm" or "inches"

	// Startup codes
	StartCode    []string `json:"start_code"`
	SpindleStart string   `json:"spindle_start"` // e.g. "M3 S%d"
	SpindleStop  string   `json:"spindle_stop"`

	// Motion words
	RapidMove string `json:"rapid_move"` // G0 or equivalent
	FeedMove  string `json:"feed_move"`  // G1 or equivalent
	ArcCW     string `json:"arc_cw"`     // G2
	ArcCCW    string `json:"arc_ccw"`    // G3
	DwellWord string `json:"dwell_word"` // e.g. "G4 P%s"

	// Controllers without circular interpolation get arcs linearized.
	SupportsArcs bool `json:"supports_arcs"`

	// End codes; "[SafeZ]" is replaced with the job's safe height.
	EndCode []string `json:"end_code"`

	// Comment style
	CommentPrefix string `json:"comment_prefix"`
	CommentSuffix string `json:"comment_suffix"`

	DecimalPlaces int `json:"decimal_places"`
}

// Built-in post-processor profiles.
var PostProfiles = []PostProfile{
	{
		Name:          "Grbl",
		Description:   "Standard Grbl configuration (hobby CNC routers)",
		Units:         "mm",
		StartCode:     []string{"G90", "G21", "G17", "G94"},
		SpindleStart:  "M3 S%d",
		SpindleStop:   "M5",
		RapidMove:     "G0",
		FeedMove:      "G1",
		ArcCW:         "G2",
		ArcCCW:        "G3",
		DwellWord:     "G4 P%s",
		SupportsArcs:  true,
		EndCode:       []string{"G0 Z[SafeZ]", "G0 X0 Y0", "M5", "M2"},
		CommentPrefix: ";",
		CommentSuffix: "",
		DecimalPlaces: 3,
	},
	{
		Name:          "Marlin",
		Description:   "Marlin firmware (3D-printer based PCB mills)",
		Units:         "mm",
		StartCode:     []string{"G90", "G21"},
		SpindleStart:  "M3 S%d",
		SpindleStop:   "M5",
		RapidMove:     "G0",
		FeedMove:      "G1",
		ArcCW:         "G2",
		ArcCCW:        "G3",
		DwellWord:     "G4 S%s",
		SupportsArcs:  true,
		EndCode:       []string{"G0 Z[SafeZ]", "M5", "M84"},
		CommentPrefix: ";",
		CommentSuffix: "",
		DecimalPlaces: 3,
	},
	{
		Name:          "LinuxCNC",
		Description:   "LinuxCNC (formerly EMC2)",
		Units:         "mm",
		StartCode:     []string{"G90", "G21", "G17", "G94"},
		SpindleStart:  "M3 S%d",
		SpindleStop:   "M5",
		RapidMove:     "G0",
		FeedMove:      "G1",
		ArcCW:         "G2",
		ArcCCW:        "G3",
		DwellWord:     "G4 P%s",
		SupportsArcs:  true,
		EndCode:       []string{"G0 Z[SafeZ]", "G0 X0 Y0", "M5", "M2"},
		CommentPrefix: ";",
		CommentSuffix: "",
		DecimalPlaces: 4,
	},
	{
		Name:          "Mach3",
		Description:   "Mach3 CNC control software",
		Units:         "mm",
		StartCode:     []string{"G90", "G21", "G17", "G94"},
		SpindleStart:  "M3 S%d",
		SpindleStop:   "M5",
		RapidMove:     "G0",
		FeedMove:      "G1",
		ArcCW:         "G2",
		ArcCCW:        "G3",
		DwellWord:     "G4 P%s",
		SupportsArcs:  true,
		EndCode:       []string{"G0 Z[SafeZ]", "G28 X0 Y0", "M5", "M30"},
		CommentPrefix: ";",
		CommentSuffix: "",
		DecimalPlaces: 4,
	},
	{
		Name:          "Roland",
		Description:   "Roland mills speaking the G-code subset (no arcs)",
		Units:         "mm",
		StartCode:     []string{"G90", "G21"},
		SpindleStart:  "M3 S%d",
		SpindleStop:   "M5",
		RapidMove:     "G0",
		FeedMove:      "G1",
		ArcCW:         "",
		ArcCCW:        "",
		DwellWord:     "G4 P%s",
		SupportsArcs:  false,
		EndCode:       []string{"G0 Z[SafeZ]", "G0 X0 Y0", "M5", "M2"},
		CommentPrefix: ";",
		CommentSuffix: "",
		DecimalPlaces: 3,
	},
	{
		Name:          "Generic",
		Description:   "Generic standard GCode",
		Units:         "mm",
		StartCode:     []string{"G90", "G21"},
		SpindleStart:  "M3 S%d",
		SpindleStop:   "M5",
		RapidMove:     "G0",
		FeedMove:      "G1",
		ArcCW:         "G2",
		ArcCCW:        "G3",
		DwellWord:     "G4 P%s",
		SupportsArcs:  true,
		EndCode:       []string{"G0 Z[SafeZ]", "G0 X0 Y0", "M5", "M2"},
		CommentPrefix: ";",
		CommentSuffix: "",
		DecimalPlaces: 3,
	},
}

// GetPostProfile returns a profile by name, or the Generic profile if the
// name is unknown.
func GetPostProfile(name string) PostProfile {
	for _, p := range PostProfiles {
		if p.Name == name {
			return p
		}
	}
	return PostProfiles[len(PostProfiles)-1]
}

// PostProfileNames returns all available profile names.
func PostProfileNames() []string {
	var names []string
	for _, p := range PostProfiles {
		names = append(names, p.Name)
	}
	return names
}
