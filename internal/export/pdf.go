// Package export renders job documentation: a setup-sheet PDF showing the
// toolpath extents of every operation group, QR-coded job traveler labels,
// and an operation summary workbook.
package export

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/pcbcam/internal/model"
)

// groupColor represents an RGB color for an operation group.
type groupColor struct {
	R, G, B int
}

var groupColors = []groupColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	legendWidth  = 70.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// planGroup is one operation group with its combined extents.
type planGroup struct {
	key    string
	plans  int
	tool   model.Tool
	opType model.OperationType
	depth  float64
	bounds model.Rect
}

// ExportSetupSheet generates a PDF setup sheet: every operation group's
// extents drawn to scale, with a legend of tools and depths.
func ExportSetupSheet(path, jobName string, plans []*model.ToolpathPlan, machine model.MachineParams) error {
	groups := groupPlans(plans)
	if len(groups) == 0 {
		return fmt.Errorf("no plans to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.AddPage()

	// Title
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight,
		fmt.Sprintf("Setup Sheet: %s", jobName), "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5,
		fmt.Sprintf("Groups: %d | Safe Z: %.1fmm | Travel Z: %.1fmm", len(groups), machine.SafeZ, machine.TravelZ),
		"", 0, "L", false, 0, "")

	// Work envelope across all groups.
	env := groups[0].bounds
	for _, g := range groups[1:] {
		env = env.Union(g.bounds)
	}
	if env.Width() <= 0 || env.Height() <= 0 {
		return fmt.Errorf("toolpath extents are degenerate")
	}

	drawWidth := pageWidth - marginLeft - marginRight - legendWidth
	drawHeight := pageHeight - drawAreaTop - marginBottom
	scale := math.Min(drawWidth/env.Width(), drawHeight/env.Height())
	offsetX := marginLeft
	offsetY := drawAreaTop

	// Envelope outline.
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, env.Width()*scale, env.Height()*scale, "D")

	// Group extents. Y flips so the plot matches the machine's Y-up frame.
	for i, g := range groups {
		col := groupColors[i%len(groupColors)]
		pdf.SetDrawColor(col.R, col.G, col.B)
		pdf.SetLineWidth(0.3)
		x := offsetX + (g.bounds.MinX-env.MinX)*scale
		y := offsetY + (env.MaxY-g.bounds.MaxY)*scale
		pdf.Rect(x, y, g.bounds.Width()*scale, g.bounds.Height()*scale, "D")
	}

	// Legend.
	lx := pageWidth - marginRight - legendWidth + 5
	ly := drawAreaTop
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(lx, ly)
	pdf.CellFormat(legendWidth-5, 5, "Operation groups", "", 1, "L", false, 0, "")
	ly += 6
	pdf.SetFont("Helvetica", "", 7)
	for i, g := range groups {
		col := groupColors[i%len(groupColors)]
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(lx, ly+0.5, 3, 3, "F")
		pdf.SetXY(lx+5, ly)
		pdf.CellFormat(legendWidth-10, 4,
			fmt.Sprintf("%s T%.2fmm Z%.2f (%d plans)", g.opType, g.tool.Diameter, g.depth, g.plans),
			"", 1, "L", false, 0, "")
		ly += 4.5
		if ly > pageHeight-marginBottom-5 {
			break
		}
	}

	return pdf.OutputFileAndClose(path)
}

// groupPlans folds plans into their operation groups, merging extents.
func groupPlans(plans []*model.ToolpathPlan) []planGroup {
	byKey := map[string]*planGroup{}
	var order []string
	for _, p := range plans {
		md := &p.Metadata
		if md.GroupKey == "" || md.GroupKey == "init" || md.GroupKey == "final_retract" {
			continue
		}
		g, ok := byKey[md.GroupKey]
		if !ok {
			g = &planGroup{
				key:    md.GroupKey,
				tool:   md.Tool,
				opType: md.OperationType,
				depth:  md.CutDepth,
				bounds: md.Bounds,
			}
			byKey[md.GroupKey] = g
			order = append(order, md.GroupKey)
		}
		g.plans++
		g.bounds = g.bounds.Union(md.Bounds)
	}
	sort.Strings(order)
	groups := make([]planGroup, 0, len(order))
	for _, k := range order {
		groups = append(groups, *byKey[k])
	}
	return groups
}
