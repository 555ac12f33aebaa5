// Package gcode renders machine-ready toolpath plans into controller
// dialect text, parses G-code back for verification, and checks plan
// extents against clamp zones on the machine bed.
package gcode

import (
	"fmt"
	"math"
	"strings"

	"github.com/piwi3910/pcbcam/internal/model"
)

// linearizeChord is the max chord length when arcs are linearized for
// controllers without circular interpolation, in mm.
const linearizeChord = 0.1

// Emitter produces G-code from sequenced toolpath plans.
type Emitter struct {
	profile      model.PostProfile
	machine      model.MachineParams
	spindleSpeed int
	spindleDwell float64

	// Machine state while emitting.
	curX, curY, curZ float64
	lastFeed         float64
}

// NewEmitter creates an Emitter for the named post profile.
func NewEmitter(profileName string, machine model.MachineParams, cutting model.CuttingParams) *Emitter {
	return &Emitter{
		profile:      model.GetPostProfile(profileName),
		machine:      machine,
		spindleSpeed: cutting.SpindleSpeed,
		spindleDwell: cutting.SpindleDwell,
	}
}

// Emit renders the plan stream into one G-code document.
func (e *Emitter) Emit(plans []*model.ToolpathPlan, jobName string) string {
	var b strings.Builder
	e.curX, e.curY = 0, 0
	e.curZ = e.machine.SafeZ
	e.lastFeed = 0

	e.writeHeader(&b, jobName, plans)
	for _, plan := range plans {
		if key := plan.Metadata.GroupKey; key != "" {
			b.WriteString(e.comment(key))
		}
		for _, cmd := range plan.Commands {
			e.writeCommand(&b, cmd)
		}
	}
	e.writeFooter(&b)
	return b.String()
}

func (e *Emitter) writeHeader(b *strings.Builder, jobName string, plans []*model.ToolpathPlan) {
	p := e.profile
	b.WriteString(e.comment(fmt.Sprintf("PCBCAM GCode — %s", jobName)))
	b.WriteString(e.comment(fmt.Sprintf("Plans: %d, Profile: %s", len(plans), p.Name)))
	b.WriteString(e.comment(fmt.Sprintf("Safe Z: %.2fmm, Travel Z: %.2fmm", e.machine.SafeZ, e.machine.TravelZ)))
	b.WriteString("\n")

	for _, code := range p.StartCode {
		b.WriteString(code + "\n")
	}
	if p.SpindleStart != "" && e.spindleSpeed > 0 {
		b.WriteString(fmt.Sprintf(p.SpindleStart+"\n", e.spindleSpeed))
		if e.spindleDwell > 0 && p.DwellWord != "" {
			b.WriteString(fmt.Sprintf(p.DwellWord+"\n", e.format(e.spindleDwell)))
		}
	}
	// Initial retract to safe height.
	b.WriteString(fmt.Sprintf("%s Z%s\n", p.RapidMove, e.format(e.machine.SafeZ)))
	b.WriteString("\n")
}

func (e *Emitter) writeFooter(b *strings.Builder) {
	p := e.profile
	b.WriteString("\n")
	b.WriteString(e.comment("=== Job complete ==="))
	for _, code := range p.EndCode {
		code = strings.ReplaceAll(code, "[SafeZ]", e.format(e.machine.SafeZ))
		b.WriteString(code + "\n")
	}
	if p.SpindleStop != "" {
		b.WriteString(p.SpindleStop + "\n")
	}
}

// writeCommand renders one motion command, carrying the feed word only on
// moves that change it.
func (e *Emitter) writeCommand(b *strings.Builder, cmd model.MotionCommand) {
	p := e.profile
	switch cmd.Kind {
	case model.MoveRapid, model.MoveRetract:
		b.WriteString(p.RapidMove + e.words(cmd, false) + "\n")

	case model.MoveLinear, model.MovePlunge:
		b.WriteString(p.FeedMove + e.words(cmd, true) + "\n")

	case model.MoveArcCW, model.MoveArcCCW:
		if !p.SupportsArcs {
			e.linearizeArc(b, cmd)
			return
		}
		word := p.ArcCW
		if cmd.Kind == model.MoveArcCCW {
			word = p.ArcCCW
		}
		var sb strings.Builder
		sb.WriteString(word)
		sb.WriteString(e.words(cmd, true))
		sb.WriteString(" I" + e.format(cmd.I) + " J" + e.format(cmd.J))
		b.WriteString(sb.String() + "\n")

	case model.MoveDwell:
		if p.DwellWord != "" {
			b.WriteString(fmt.Sprintf(p.DwellWord+"\n", e.format(cmd.Dwell)))
		}
		return
	}
	e.track(cmd)
}

// words renders the coordinate and feed words of a command, omitting
// unset axes so Z-only moves stay Z-only.
func (e *Emitter) words(cmd model.MotionCommand, feed bool) string {
	var sb strings.Builder
	if model.IsSet(cmd.X) {
		sb.WriteString(" X" + e.format(cmd.X))
	}
	if model.IsSet(cmd.Y) {
		sb.WriteString(" Y" + e.format(cmd.Y))
	}
	if model.IsSet(cmd.Z) {
		sb.WriteString(" Z" + e.format(cmd.Z))
	}
	if feed && model.IsSet(cmd.Feed) && cmd.Feed != e.lastFeed {
		sb.WriteString(" F" + e.format(cmd.Feed))
		e.lastFeed = cmd.Feed
	}
	return sb.String()
}

func (e *Emitter) track(cmd model.MotionCommand) {
	if model.IsSet(cmd.X) {
		e.curX = cmd.X
	}
	if model.IsSet(cmd.Y) {
		e.curY = cmd.Y
	}
	if model.IsSet(cmd.Z) {
		e.curZ = cmd.Z
	}
}

// linearizeArc renders an arc as chained feed moves for controllers
// without circular interpolation. The emitted CW variant corresponds to a
// geometrically counter-clockwise sweep in the engine's Y-up frame.
func (e *Emitter) linearizeArc(b *strings.Builder, cmd model.MotionCommand) {
	cx := e.curX + cmd.I
	cy := e.curY + cmd.J
	radius := math.Hypot(cmd.I, cmd.J)
	if radius < 1e-9 {
		b.WriteString(e.profile.FeedMove + e.words(cmd, true) + "\n")
		e.track(cmd)
		return
	}

	startAngle := math.Atan2(e.curY-cy, e.curX-cx)
	endAngle := math.Atan2(cmd.Y-cy, cmd.X-cx)
	geometricCCW := cmd.Kind == model.MoveArcCW

	sweep := endAngle - startAngle
	if geometricCCW {
		for sweep <= 1e-9 {
			sweep += 2 * math.Pi
		}
	} else {
		for sweep >= -1e-9 {
			sweep -= 2 * math.Pi
		}
	}

	steps := int(math.Ceil(math.Abs(sweep) * radius / linearizeChord))
	if steps < 4 {
		steps = 4
	}
	startZ := e.curZ
	endZ := startZ
	if model.IsSet(cmd.Z) {
		endZ = cmd.Z
	}
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		angle := startAngle + sweep*t
		seg := model.Linear(cx+radius*math.Cos(angle), cy+radius*math.Sin(angle),
			startZ+(endZ-startZ)*t, cmd.Feed)
		b.WriteString(e.profile.FeedMove + e.words(seg, true) + "\n")
	}
	e.track(cmd)
}

// comment wraps text in the profile's comment syntax.
func (e *Emitter) comment(text string) string {
	return e.profile.CommentPrefix + " " + text + e.profile.CommentSuffix + "\n"
}

// format renders a coordinate with the profile's decimal places.
func (e *Emitter) format(v float64) string {
	return fmt.Sprintf(fmt.Sprintf("%%.%df", e.profile.DecimalPlaces), v)
}
