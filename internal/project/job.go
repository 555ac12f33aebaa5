package project

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/piwi3910/pcbcam/internal/curve"
	"github.com/piwi3910/pcbcam/internal/engine"
	"github.com/piwi3910/pcbcam/internal/model"
)

// PrimitiveSpec is the JSON descriptor for one source primitive in a job
// file. Kind selects which fields apply.
type PrimitiveSpec struct {
	Kind       model.Kind       `json:"kind"`
	Center     model.Point2D    `json:"center,omitempty"`
	Position   model.Point2D    `json:"position,omitempty"`
	Radius     float64          `json:"radius,omitempty"`
	StartAngle float64          `json:"start_angle,omitempty"`
	EndAngle   float64          `json:"end_angle,omitempty"`
	Clockwise  bool             `json:"clockwise,omitempty"`
	Width      float64          `json:"width,omitempty"`
	Height     float64          `json:"height,omitempty"`
	Points     [][2]float64     `json:"points,omitempty"`
	Closed     bool             `json:"closed,omitempty"`
	Start      model.Point2D    `json:"start,omitempty"`
	Control1   model.Point2D    `json:"control1,omitempty"`
	Control2   model.Point2D    `json:"control2,omitempty"`
	End        model.Point2D    `json:"end,omitempty"`
	Properties model.Properties `json:"properties,omitempty"`
}

// OperationSpec is the JSON descriptor for one machining operation.
type OperationSpec struct {
	ID              string              `json:"id,omitempty"`
	Name            string              `json:"name"`
	Type            model.OperationType `json:"type"`
	Tool            model.Tool          `json:"tool"`
	CutDepth        float64             `json:"cut_depth"`
	Cutting         model.CuttingParams `json:"cutting"`
	Strategy        model.Strategy      `json:"strategy"`
	OffsetDistances []float64           `json:"offset_distances,omitempty"`
	Primitives      []PrimitiveSpec     `json:"primitives"`
}

// JobFile is the on-disk JSON form of a job.
type JobFile struct {
	Name       string               `json:"name"`
	Machine    *model.MachineParams `json:"machine,omitempty"`
	Operations []OperationSpec      `json:"operations"`
}

// LoadJob reads a job file and materializes it into an engine job,
// registering curves for every analytic primitive.
func LoadJob(path string, reg *curve.Registry, cfg model.Config) (*engine.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	var jf JobFile
	if err := json.Unmarshal(data, &jf); err != nil {
		return nil, fmt.Errorf("failed to parse job file: %w", err)
	}
	if len(jf.Operations) == 0 {
		return nil, fmt.Errorf("job file has no operations")
	}

	job := engine.NewJob(jf.Name, cfg)
	if jf.Machine != nil {
		job.Machine = *jf.Machine
	}
	for i, ops := range jf.Operations {
		op := engine.Operation{
			ID:              ops.ID,
			Name:            ops.Name,
			Type:            ops.Type,
			Tool:            ops.Tool,
			CutDepth:        ops.CutDepth,
			Cutting:         ops.Cutting,
			Strategy:        ops.Strategy,
			OffsetDistances: ops.OffsetDistances,
		}
		if op.ID == "" {
			op.ID = fmt.Sprintf("op%d", i+1)
		}
		for _, ps := range ops.Primitives {
			prim, err := ps.Materialize(reg)
			if err != nil {
				return nil, fmt.Errorf("operation %s: %w", op.ID, err)
			}
			op.Primitives = append(op.Primitives, prim)
		}
		job.Operations = append(job.Operations, op)
	}
	return job, nil
}

// SaveJob writes a job file as indented JSON.
func SaveJob(path string, jf JobFile) error {
	data, err := json.MarshalIndent(jf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Materialize converts a primitive spec into an engine primitive and
// registers its analytic curves.
func (ps PrimitiveSpec) Materialize(reg *curve.Registry) (model.Primitive, error) {
	var prim model.Primitive
	switch ps.Kind {
	case model.KindCircle:
		prim = model.NewCircle(ps.Center, ps.Radius)
	case model.KindArc:
		prim = model.NewArc(ps.Center, ps.Radius, ps.StartAngle, ps.EndAngle, ps.Clockwise)
	case model.KindRectangle:
		prim = model.NewRectangle(ps.Position, ps.Width, ps.Height)
	case model.KindObround:
		prim = model.NewObround(ps.Position, ps.Width, ps.Height)
	case model.KindBezier:
		prim = &model.Bezier{
			Base:     model.Base{ID: model.NewID()},
			Start:    ps.Start,
			Control1: ps.Control1,
			Control2: ps.Control2,
			End:      ps.End,
		}
	case model.KindPath:
		if len(ps.Points) < 2 {
			return nil, fmt.Errorf("path primitive needs at least 2 points")
		}
		pts := make([]model.Point, len(ps.Points))
		for i, p := range ps.Points {
			pts[i] = model.Point{X: p[0], Y: p[1]}
		}
		prim = model.NewPath([]model.Contour{{Points: pts}}, ps.Closed)
	default:
		return nil, fmt.Errorf("unknown primitive kind %q", ps.Kind)
	}
	prim.Meta().Props = ps.Properties
	curve.TagPrimitive(reg, prim)
	return prim, nil
}
