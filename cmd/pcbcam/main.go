// pcbcam — PCB toolpath engine and G-code generator
//
// Turns imported board artwork (job files or DXF mechanical layers) into
// machine-ready G-code: isolation routing, copper clearing, drilling and
// board cutout with holding tabs.
//
// Build:
//   go build -o pcbcam ./cmd/pcbcam
//
// Usage:
//   pcbcam -job board.json -out ./out
//   pcbcam -job board.json -out ./out -profile LinuxCNC -setup-sheet -summary
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/piwi3910/pcbcam/internal/engine"
	"github.com/piwi3910/pcbcam/internal/export"
	"github.com/piwi3910/pcbcam/internal/gcode"
	"github.com/piwi3910/pcbcam/internal/project"
)

func main() {
	jobPath := flag.String("job", "", "job file (JSON) describing operations and primitives")
	outDir := flag.String("out", ".", "output directory for generated files")
	profileName := flag.String("profile", "", "post profile (default from config)")
	configPath := flag.String("config", project.DefaultConfigPath(), "engine config file")
	setupSheet := flag.Bool("setup-sheet", false, "also write a setup-sheet PDF")
	labels := flag.Bool("labels", false, "also write QR traveler labels")
	summary := flag.Bool("summary", false, "also write an operation summary workbook")
	flag.Parse()

	if *jobPath == "" {
		fmt.Fprintln(os.Stderr, "pcbcam: -job is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := project.LoadConfig(*configPath)
	if err != nil {
		fatal("load config: %v", err)
	}
	if *profileName == "" {
		*profileName = cfg.DefaultPostProfile
	}

	eng := engine.New(cfg)
	job, err := project.LoadJob(*jobPath, eng.Registry, cfg)
	if err != nil {
		fatal("load job: %v", err)
	}

	result, err := eng.Run(job)
	if err != nil {
		fatal("run job: %v", err)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s: %s: %s\n", w.Stage, w.PrimitiveID, w.Message)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fatal("create output directory: %v", err)
	}

	// One G-code file per operation.
	for _, opRes := range result.Operations {
		emitter := gcode.NewEmitter(*profileName, job.Machine, opRes.Operation.Cutting)
		code := emitter.Emit(opRes.Plans, fmt.Sprintf("%s / %s", job.Name, opRes.Operation.Name))
		name := fmt.Sprintf("%s_%s.nc", sanitize(job.Name), sanitize(opRes.Operation.Name))
		path := filepath.Join(*outDir, name)
		if err := os.WriteFile(path, []byte(code), 0644); err != nil {
			fatal("write %s: %v", path, err)
		}
		fmt.Printf("wrote %s (%d plans)\n", path, len(opRes.Plans))
	}

	plans := result.Plans()
	if *setupSheet {
		path := filepath.Join(*outDir, sanitize(job.Name)+"_setup.pdf")
		if err := export.ExportSetupSheet(path, job.Name, plans, job.Machine); err != nil {
			fatal("setup sheet: %v", err)
		}
		fmt.Printf("wrote %s\n", path)
	}
	if *labels {
		path := filepath.Join(*outDir, sanitize(job.Name)+"_labels.pdf")
		if err := export.ExportJobLabels(path, job.Name, plans); err != nil {
			fatal("labels: %v", err)
		}
		fmt.Printf("wrote %s\n", path)
	}
	if *summary {
		path := filepath.Join(*outDir, sanitize(job.Name)+"_summary.xlsx")
		if err := export.ExportXLSX(path, job.Name, plans); err != nil {
			fatal("summary: %v", err)
		}
		fmt.Printf("wrote %s\n", path)
	}
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "job"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "pcbcam: "+format+"\n", args...)
	os.Exit(1)
}
