package toolpath

import (
	"math"

	"github.com/piwi3910/pcbcam/internal/geom"
	"github.com/piwi3910/pcbcam/internal/model"
)

// emittedCW maps a geometric (Y-up) rotation sense onto the CNC arc
// variant. The single translator-level inversion: a geometrically
// counter-clockwise arc is emitted as ARC_CW (G2) so arithmetic and
// emitted G-code stay consistent under the Y-down machine display
// convention.
func emittedCW(geometricClockwise bool) bool {
	return !geometricClockwise
}

// circleCommands emits one full-circle arc starting at the circle's
// rightmost point with center offsets (-r, 0). Conventional cutting runs
// the circle geometrically counter-clockwise, emitted as clockwise.
func circleCommands(p *model.Circle, depth, feed float64, dir model.Direction) []model.MotionCommand {
	geometricCW := dir == model.DirClimb
	start := model.Point2D{X: p.Center.X + p.Radius, Y: p.Center.Y}
	return []model.MotionCommand{
		model.ArcTo(start.X, start.Y, depth, -p.Radius, 0, feed, emittedCW(geometricCW)),
	}
}

// obroundCommands joins the four cap tangent points with two straights and
// two semicircular arcs, ordered by cutting direction. Arc center offsets
// are relative to each motion's start point.
func obroundCommands(p *model.Obround, depth, feed float64, dir model.Direction) []model.MotionCommand {
	startCap, endCap := p.CapCenters()
	r := p.SlotRadius()

	// Cap tangent points on either side of the slot axis.
	var sA, sB, eA, eB model.Point2D
	if p.IsHorizontal() {
		sA = model.Point2D{X: startCap.X, Y: startCap.Y - r} // start cap, bottom
		sB = model.Point2D{X: startCap.X, Y: startCap.Y + r} // start cap, top
		eA = model.Point2D{X: endCap.X, Y: endCap.Y - r}
		eB = model.Point2D{X: endCap.X, Y: endCap.Y + r}
	} else {
		sA = model.Point2D{X: startCap.X + r, Y: startCap.Y} // start cap, right
		sB = model.Point2D{X: startCap.X - r, Y: startCap.Y} // start cap, left
		eA = model.Point2D{X: endCap.X + r, Y: endCap.Y}
		eB = model.Point2D{X: endCap.X - r, Y: endCap.Y}
	}

	climb := dir == model.DirClimb
	if !climb {
		// Conventional: geometric counter-clockwise from the A side.
		return []model.MotionCommand{
			model.Linear(eA.X, eA.Y, depth, feed),
			arcTo(eA, eB, endCap, depth, feed, false),
			model.Linear(sB.X, sB.Y, depth, feed),
			arcTo(sB, sA, startCap, depth, feed, false),
		}
	}
	// Climb: geometric clockwise from the B side.
	return []model.MotionCommand{
		model.Linear(eB.X, eB.Y, depth, feed),
		arcTo(eB, eA, endCap, depth, feed, true),
		model.Linear(sA.X, sA.Y, depth, feed),
		arcTo(sA, sB, startCap, depth, feed, true),
	}
}

// arcTo builds an arc command from start to end around center, with the
// given geometric rotation sense.
func arcTo(start, end, center model.Point2D, depth, feed float64, geometricCW bool) model.MotionCommand {
	return model.ArcTo(end.X, end.Y, depth, center.X-start.X, center.Y-start.Y, feed, emittedCW(geometricCW))
}

// arcCommands emits an open arc: a positioning linear to the arc start and
// the arc itself.
func arcCommands(p *model.Arc, depth, feed float64) []model.MotionCommand {
	sx := p.Center.X + p.Radius*math.Cos(p.StartAngle)
	sy := p.Center.Y + p.Radius*math.Sin(p.StartAngle)
	ex := p.Center.X + p.Radius*math.Cos(p.EndAngle)
	ey := p.Center.Y + p.Radius*math.Sin(p.EndAngle)
	return []model.MotionCommand{
		model.Linear(sx, sy, depth, feed),
		model.ArcTo(ex, ey, depth, p.Center.X-sx, p.Center.Y-sy, feed, emittedCW(p.Clockwise)),
	}
}

// pathCommands walks the outer contour, emitting an arc whenever an
// ArcSegment starts at the current index (skipping its interior vertices)
// and a linear move otherwise. Closed paths get an explicit closing move
// when the ring doesn't end where it began.
func pathCommands(p *model.Path, depth, feed float64) []model.MotionCommand {
	contour := p.Outer()
	if contour == nil {
		return nil
	}
	return contourCommands(contour, p.Closed, depth, feed)
}

func contourCommands(c *model.Contour, closed bool, depth, feed float64) []model.MotionCommand {
	pts := c.Points
	n := len(pts)
	if n < 2 {
		return nil
	}
	arcAt := make(map[int]*model.ArcSegment, len(c.ArcSegments))
	for i := range c.ArcSegments {
		arcAt[c.ArcSegments[i].StartIndex] = &c.ArcSegments[i]
	}

	var cmds []model.MotionCommand
	for i := 0; i < n; {
		if seg := arcAt[i]; seg != nil {
			start := pts[i]
			end := pts[seg.EndIndex]
			cmds = append(cmds, model.ArcTo(end.X, end.Y, depth,
				seg.Center.X-start.X, seg.Center.Y-start.Y, feed, emittedCW(seg.Clockwise)))
			if seg.EndIndex <= i {
				// Wrapped arc closes the ring.
				i = n
				break
			}
			i = seg.EndIndex
			continue
		}
		if i+1 < n {
			cmds = append(cmds, model.Linear(pts[i+1].X, pts[i+1].Y, depth, feed))
		}
		i++
	}

	if closed && geom.Dist(lastXY(cmds, pts[0].XY()), pts[0].XY()) > closeTolerance {
		cmds = append(cmds, model.Linear(pts[0].X, pts[0].Y, depth, feed))
	}
	return cmds
}

func lastXY(cmds []model.MotionCommand, fallback model.Point2D) model.Point2D {
	for i := len(cmds) - 1; i >= 0; i-- {
		if model.IsSet(cmds[i].X) && model.IsSet(cmds[i].Y) {
			return model.Point2D{X: cmds[i].X, Y: cmds[i].Y}
		}
	}
	return fallback
}
