package gcode

import (
	"regexp"
	"strconv"
	"strings"
)

// MoveType represents the type of parsed CNC movement.
type MoveType int

const (
	MoveRapid   MoveType = iota // G0: rapid positioning (no cutting)
	MoveFeed                    // G1: linear feed in the XY plane
	MovePlunge                  // G1 with Z decreasing: plunging into material
	MoveRetract                 // G0/G1 with Z increasing: retracting
	MoveArc                     // G2/G3: circular interpolation
)

// Move represents a single parsed movement from G-code.
type Move struct {
	Type      MoveType
	FromX     float64
	FromY     float64
	FromZ     float64
	ToX       float64
	ToY       float64
	ToZ       float64
	I         float64
	J         float64
	Clockwise bool // G2
	FeedRate  float64
}

var wordRe = regexp.MustCompile(`([XYZIJF])([-]?\d+\.?\d*)`)

// Parse reads a G-code string into structured moves. It tracks absolute
// position state and classifies each G0/G1/G2/G3 command by its movement
// characteristics. Used for toolpath verification and preview.
func Parse(code string) []Move {
	var moves []Move

	curX, curY, curZ := 0.0, 0.0, 0.0
	curFeed := 0.0

	for _, line := range strings.Split(code, "\n") {
		line = stripComments(line)
		if line == "" {
			continue
		}

		upper := strings.ToUpper(line)
		isRapid := hasWord(upper, "G0") || hasWord(upper, "G00")
		isFeed := hasWord(upper, "G1") || hasWord(upper, "G01")
		isCW := hasWord(upper, "G2") || hasWord(upper, "G02")
		isCCW := hasWord(upper, "G3") || hasWord(upper, "G03")
		if !isRapid && !isFeed && !isCW && !isCCW {
			continue
		}

		newX, newY, newZ, newFeed := curX, curY, curZ, curFeed
		var i, j float64
		for _, m := range wordRe.FindAllStringSubmatch(upper, -1) {
			v, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			switch m[1] {
			case "X":
				newX = v
			case "Y":
				newY = v
			case "Z":
				newZ = v
			case "I":
				i = v
			case "J":
				j = v
			case "F":
				newFeed = v
			}
		}

		move := Move{
			FromX: curX, FromY: curY, FromZ: curZ,
			ToX: newX, ToY: newY, ToZ: newZ,
			I: i, J: j,
			FeedRate: newFeed,
		}
		switch {
		case isCW || isCCW:
			move.Type = MoveArc
			move.Clockwise = isCW
		case isRapid && newZ > curZ && newX == curX && newY == curY:
			move.Type = MoveRetract
		case isRapid:
			move.Type = MoveRapid
		case newZ < curZ && newX == curX && newY == curY:
			move.Type = MovePlunge
		case newZ > curZ && newX == curX && newY == curY:
			move.Type = MoveRetract
		default:
			move.Type = MoveFeed
		}
		moves = append(moves, move)

		curX, curY, curZ, curFeed = newX, newY, newZ, newFeed
	}
	return moves
}

// stripComments removes semicolon and parenthetical comments and trims
// the line.
func stripComments(line string) string {
	if idx := strings.Index(line, ";"); idx >= 0 {
		line = line[:idx]
	}
	if idx := strings.Index(line, "("); idx >= 0 {
		if end := strings.Index(line, ")"); end > idx {
			line = line[:idx] + line[end+1:]
		}
	}
	return strings.TrimSpace(line)
}

// hasWord tests for a G-word at the start of the line, avoiding prefix
// matches like G21 against G2.
func hasWord(line, word string) bool {
	if line == word {
		return true
	}
	return strings.HasPrefix(line, word+" ")
}
