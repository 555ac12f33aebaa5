package model

import "math"

// MotionKind represents the type of CNC toolpath movement.
type MotionKind int

const (
	MoveRapid   MotionKind = iota // G0: rapid positioning (no cutting)
	MoveLinear                    // G1: linear feed
	MoveArcCW                     // G2: clockwise arc (CNC convention)
	MoveArcCCW                    // G3: counter-clockwise arc
	MovePlunge                    // G1 straight down into material
	MoveRetract                   // G0 straight up out of material
	MoveDwell                     // G4: pause
)

func (k MotionKind) String() string {
	switch k {
	case MoveRapid:
		return "rapid"
	case MoveLinear:
		return "linear"
	case MoveArcCW:
		return "arc_cw"
	case MoveArcCCW:
		return "arc_ccw"
	case MovePlunge:
		return "plunge"
	case MoveRetract:
		return "retract"
	case MoveDwell:
		return "dwell"
	}
	return "unknown"
}

// IsArc reports whether the motion is a circular interpolation.
func (k MotionKind) IsArc() bool { return k == MoveArcCW || k == MoveArcCCW }

// IsCutting reports whether the motion removes material.
func (k MotionKind) IsCutting() bool {
	return k == MoveLinear || k == MovePlunge || k.IsArc()
}

// Unset marks a coordinate or feed as "hold current value". Commands are
// in-memory only, never serialized, so NaN is safe here.
func Unset() float64 { return math.NaN() }

// IsSet reports whether a coordinate or feed carries a value.
func IsSet(v float64) bool { return !math.IsNaN(v) }

// MotionCommand is one machine motion in absolute coordinates. Unset X/Y/Z
// mean "hold the current value"; arcs carry center offsets I/J relative to
// the motion's start point.
type MotionCommand struct {
	Kind  MotionKind
	X     float64
	Y     float64
	Z     float64
	Feed  float64
	I     float64 // arc center X offset from start
	J     float64 // arc center Y offset from start
	Dwell float64 // seconds, MoveDwell only
	IsTab bool    // command rides over a holding tab
}

// Rapid returns a G0-style positioning move.
func Rapid(x, y, z float64) MotionCommand {
	return MotionCommand{Kind: MoveRapid, X: x, Y: y, Z: z, Feed: Unset()}
}

// RapidXY returns a rapid that holds the current Z.
func RapidXY(x, y float64) MotionCommand {
	return MotionCommand{Kind: MoveRapid, X: x, Y: y, Z: Unset(), Feed: Unset()}
}

// RapidZ returns a Z-only rapid.
func RapidZ(z float64) MotionCommand {
	return MotionCommand{Kind: MoveRapid, X: Unset(), Y: Unset(), Z: z, Feed: Unset()}
}

// Linear returns a cutting feed move.
func Linear(x, y, z, feed float64) MotionCommand {
	return MotionCommand{Kind: MoveLinear, X: x, Y: y, Z: z, Feed: feed}
}

// LinearXY returns a feed move that holds the current Z.
func LinearXY(x, y, feed float64) MotionCommand {
	return MotionCommand{Kind: MoveLinear, X: x, Y: y, Z: Unset(), Feed: feed}
}

// Plunge returns a straight-down entry move.
func Plunge(z, feed float64) MotionCommand {
	return MotionCommand{Kind: MovePlunge, X: Unset(), Y: Unset(), Z: z, Feed: feed}
}

// Retract returns a straight-up exit move.
func Retract(z float64) MotionCommand {
	return MotionCommand{Kind: MoveRetract, X: Unset(), Y: Unset(), Z: z, Feed: Unset()}
}

// ArcTo returns a circular interpolation to (x, y, z) around the center at
// (start + i, start + j). cw selects the CNC G2/G3 variant.
func ArcTo(x, y, z, i, j, feed float64, cw bool) MotionCommand {
	kind := MoveArcCCW
	if cw {
		kind = MoveArcCW
	}
	return MotionCommand{Kind: kind, X: x, Y: y, Z: z, I: i, J: j, Feed: feed}
}

// DwellFor returns a pause of the given duration in seconds.
func DwellFor(seconds float64) MotionCommand {
	return MotionCommand{Kind: MoveDwell, X: Unset(), Y: Unset(), Z: Unset(), Feed: Unset(), Dwell: seconds}
}

// WithZ returns a copy of the command with Z replaced.
func (c MotionCommand) WithZ(z float64) MotionCommand {
	c.Z = z
	return c
}

// EndsAt applies the command to the given position and returns the
// resulting position, honoring unset coordinates.
func (c MotionCommand) EndsAt(pos Point3D) Point3D {
	if IsSet(c.X) {
		pos.X = c.X
	}
	if IsSet(c.Y) {
		pos.Y = c.Y
	}
	if IsSet(c.Z) {
		pos.Z = c.Z
	}
	return pos
}
