package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/pcbcam/internal/model"
)

// ToolEntry is one cutter in an imported tool library.
type ToolEntry struct {
	Tool         model.Tool `json:"tool"`
	Name         string     `json:"name"`
	Flutes       int        `json:"flutes"`
	FeedRate     float64    `json:"feed_rate"`
	PlungeRate   float64    `json:"plunge_rate"`
	SpindleSpeed int        `json:"spindle_speed"`
}

// ToolImportResult holds the outcome of a tool library import.
type ToolImportResult struct {
	Tools    []ToolEntry
	Errors   []string
	Warnings []string
}

// columnMapping maps semantic column roles to their indices in the data.
type columnMapping struct {
	name     int
	diameter int
	flutes   int
	feed     int
	plunge   int
	spindle  int
}

// headerAliases maps canonical column names to accepted aliases (lowercase).
var headerAliases = map[string][]string{
	"name":     {"name", "tool", "label", "description", "desc"},
	"diameter": {"diameter", "dia", "d", "tool diameter", "size"},
	"flutes":   {"flutes", "teeth", "flute count"},
	"feed":     {"feed", "feed rate", "feedrate", "f"},
	"plunge":   {"plunge", "plunge rate", "plungerate"},
	"spindle":  {"spindle", "rpm", "spindle speed", "speed"},
}

// DetectCSVDelimiter determines the most likely CSV delimiter by trying
// comma, semicolon, tab and pipe: the one producing the most consistent
// multi-column line count wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	best := ','
	bestScore := 0
	for _, d := range candidates {
		r := csv.NewReader(bytes.NewReader(data))
		r.Comma = d
		r.FieldsPerRecord = -1
		counts := map[int]int{}
		for {
			rec, err := r.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				break
			}
			counts[len(rec)]++
		}
		score := 0
		for cols, lines := range counts {
			if cols > 1 && lines > score {
				score = lines
			}
		}
		if score > bestScore {
			bestScore = score
			best = d
		}
	}
	return best
}

// ImportToolsCSV reads a tool library from a CSV file with flexible,
// case-insensitive headers.
func ImportToolsCSV(path string) ToolImportResult {
	result := ToolImportResult{}
	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read file: %v", err))
		return result
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = DetectCSVDelimiter(data)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("CSV parse error: %v", err))
		return result
	}
	return toolsFromRows(rows)
}

// ImportToolsXLSX reads a tool library from the first sheet of an Excel
// workbook.
func ImportToolsXLSX(path string) ToolImportResult {
	result := ToolImportResult{}
	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open workbook: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Workbook has no sheets")
		return result
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read sheet: %v", err))
		return result
	}
	return toolsFromRows(rows)
}

// toolsFromRows maps a header row plus data rows into tool entries.
func toolsFromRows(rows [][]string) ToolImportResult {
	result := ToolImportResult{}
	if len(rows) < 2 {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	mapping, ok := mapColumns(rows[0])
	if !ok {
		result.Errors = append(result.Errors, "Could not find a diameter column")
		return result
	}

	for i, row := range rows[1:] {
		dia := floatAt(row, mapping.diameter)
		if dia <= 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Row %d: missing or invalid diameter, skipped", i+2))
			continue
		}
		name := stringAt(row, mapping.name)
		if name == "" {
			name = fmt.Sprintf("Tool %d", len(result.Tools)+1)
		}
		entry := ToolEntry{
			Tool:         model.Tool{ID: name, Diameter: dia},
			Name:         name,
			Flutes:       int(floatAt(row, mapping.flutes)),
			FeedRate:     floatAt(row, mapping.feed),
			PlungeRate:   floatAt(row, mapping.plunge),
			SpindleSpeed: int(floatAt(row, mapping.spindle)),
		}
		result.Tools = append(result.Tools, entry)
	}
	if len(result.Tools) == 0 {
		result.Errors = append(result.Errors, "No valid tools found")
	}
	return result
}

// mapColumns resolves header aliases to column indices. Only the diameter
// column is mandatory.
func mapColumns(header []string) (columnMapping, bool) {
	m := columnMapping{name: -1, diameter: -1, flutes: -1, feed: -1, plunge: -1, spindle: -1}
	for i, h := range header {
		key := canonicalHeader(strings.ToLower(strings.TrimSpace(h)))
		switch key {
		case "name":
			m.name = i
		case "diameter":
			m.diameter = i
		case "flutes":
			m.flutes = i
		case "feed":
			m.feed = i
		case "plunge":
			m.plunge = i
		case "spindle":
			m.spindle = i
		}
	}
	return m, m.diameter >= 0
}

func canonicalHeader(h string) string {
	for canonical, aliases := range headerAliases {
		for _, a := range aliases {
			if h == a {
				return canonical
			}
		}
	}
	return ""
}

func stringAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func floatAt(row []string, idx int) float64 {
	s := stringAt(row, idx)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
