package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/pcbcam/internal/model"
)

// ExportXLSX writes an operation summary workbook: one row per operation
// group with tool, depth, plan count and extents.
func ExportXLSX(path, jobName string, plans []*model.ToolpathPlan) error {
	groups := groupPlans(plans)
	if len(groups) == 0 {
		return fmt.Errorf("no operation groups to export")
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Operations"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Group", "Operation", "Tool", "Diameter (mm)", "Depth (mm)",
		"Plans", "Min X", "Min Y", "Max X", "Max Y"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, g := range groups {
		values := []interface{}{
			g.key, string(g.opType), g.tool.ID, g.tool.Diameter, g.depth,
			g.plans, g.bounds.MinX, g.bounds.MinY, g.bounds.MaxX, g.bounds.MaxY,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	// Summary block below the table.
	summaryRow := len(groups) + 3
	cell, _ := excelize.CoordinatesToCellName(1, summaryRow)
	f.SetCellValue(sheet, cell, fmt.Sprintf("Job: %s", jobName))
	cell, _ = excelize.CoordinatesToCellName(1, summaryRow+1)
	f.SetCellValue(sheet, cell, fmt.Sprintf("Total groups: %d", len(groups)))

	return f.SaveAs(path)
}
