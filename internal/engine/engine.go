// Package engine orchestrates the toolpath pipeline: offsetting source
// primitives per operation, fusing overlaps, reconstructing arcs,
// translating into cutting plans, sequencing them and handing the result
// to the machine processor. One Engine owns one curve registry; all other
// state is bounded by a single job.
package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/npillmayer/schuko/tracing"

	"github.com/piwi3910/pcbcam/internal/curve"
	"github.com/piwi3910/pcbcam/internal/fuse"
	"github.com/piwi3910/pcbcam/internal/machine"
	"github.com/piwi3910/pcbcam/internal/model"
	"github.com/piwi3910/pcbcam/internal/offset"
	"github.com/piwi3910/pcbcam/internal/reconstruct"
	"github.com/piwi3910/pcbcam/internal/toolpath"
)

// tracer writes to trace with key 'pcbcam.engine'
func tracer() tracing.Trace {
	return tracing.Select("pcbcam.engine")
}

// Operation is one machining step of a job: a tool, a strategy and the
// primitives it applies to.
type Operation struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Type            model.OperationType `json:"type"`
	Tool            model.Tool          `json:"tool"`
	CutDepth        float64             `json:"cut_depth"` // negative
	Cutting         model.CuttingParams `json:"cutting"`
	Strategy        model.Strategy      `json:"strategy"`
	OffsetDistances []float64           `json:"offset_distances,omitempty"`
	Primitives      []model.Primitive   `json:"-"`
}

// Job bundles the operations of one board run.
type Job struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Machine    model.MachineParams `json:"machine"`
	Operations []Operation         `json:"operations"`
}

// NewJob creates an empty job with a generated ID and the config's machine
// defaults.
func NewJob(name string, cfg model.Config) *Job {
	return &Job{
		ID:   uuid.New().String()[:8],
		Name: name,
		Machine: model.MachineParams{
			SafeZ:         cfg.DefaultSafeZ,
			TravelZ:       cfg.DefaultTravelZ,
			RapidFeedRate: cfg.DefaultRapidFeedRate,
			PlungeRate:    cfg.DefaultPlungeRate,
		},
	}
}

// OperationResult holds the machine-ready plans of one operation.
type OperationResult struct {
	Operation *Operation
	Plans     []*model.ToolpathPlan
	Offsets   []model.Primitive
	Stats     reconstruct.Stats
}

// Result is a completed job.
type Result struct {
	Job        *Job
	Operations []OperationResult
	Warnings   []model.Warning
}

// Plans returns every machine-ready plan of the job in sequence order.
func (r *Result) Plans() []*model.ToolpathPlan {
	var plans []*model.ToolpathPlan
	for _, op := range r.Operations {
		plans = append(plans, op.Plans...)
	}
	return plans
}

// Engine owns the process-wide curve registry and the job configuration.
// It replaces the globals of older CAM stacks: everything a phase needs
// travels through here.
type Engine struct {
	Registry *curve.Registry
	Config   model.Config
	Warnings model.WarningSink
}

// New creates an Engine with a fresh registry.
func New(cfg model.Config) *Engine {
	return &Engine{
		Registry: curve.NewRegistry(),
		Config:   cfg,
	}
}

// Reset clears per-job state so the engine can run another job.
func (e *Engine) Reset() {
	e.Registry.Clear()
	e.Warnings = model.WarningSink{}
}

// Run executes the whole pipeline for a job. Per-primitive failures are
// recorded as warnings; a broken operation context fails the job.
func (e *Engine) Run(job *Job) (*Result, error) {
	result := &Result{Job: job}
	pos := model.Point3D{X: 0, Y: 0, Z: job.Machine.SafeZ}

	for i := range job.Operations {
		op := &job.Operations[i]
		opResult, endPos, err := e.runOperation(job, op, pos)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", op.ID, err)
		}
		pos = endPos
		result.Operations = append(result.Operations, *opResult)
	}
	result.Warnings = e.Warnings.Warnings
	return result, nil
}

// runOperation drives one operation through offset, fuse, reconstruct,
// translate, sequence and machine phases.
func (e *Engine) runOperation(job *Job, op *Operation, pos model.Point3D) (*OperationResult, model.Point3D, error) {
	ctx := e.contextFor(job, op)
	if err := ctx.Validate(); err != nil {
		return nil, pos, err
	}
	tracer().Infof("engine: operation %s (%s) with %d primitives", op.ID, op.Type, len(op.Primitives))

	offsets := e.offsetPhase(op, ctx)
	offsets, stats := e.fusePhase(op, offsets)

	translator := toolpath.New(&e.Warnings)
	plans, err := translator.Translate(ctx, offsets)
	if err != nil {
		return nil, pos, err
	}

	plans = SequencePlans(plans, ctx)

	proc := machine.New(ctx, &pos)
	machinePlans := proc.Process(plans)

	res := &OperationResult{Operation: op, Plans: machinePlans, Offsets: offsets, Stats: stats}
	return res, proc.Position(), nil
}

// contextFor assembles the per-operation compile-time bundle.
func (e *Engine) contextFor(job *Job, op *Operation) *model.ToolpathContext {
	return &model.ToolpathContext{
		OperationID:   op.ID,
		OperationType: op.Type,
		CutDepth:      op.CutDepth,
		Tool:          op.Tool,
		Cutting:       op.Cutting,
		Strategy:      op.Strategy,
		Machine:       job.Machine,
		Computed: model.Computed{
			DepthLevels:     model.DepthLevels(op.CutDepth, op.Strategy.DepthPerPass),
			OffsetDistances: e.offsetDistances(op),
		},
		Config: e.Config,
	}
}

// offsetDistances derives the offset passes for an operation: explicit
// distances win, otherwise one tool-radius pass in the direction the
// operation implies. Drill operations run unoffset; hole sizing happens in
// the drill preparation.
func (e *Engine) offsetDistances(op *Operation) []float64 {
	if len(op.OffsetDistances) > 0 {
		return op.OffsetDistances
	}
	toolR := op.Tool.Diameter / 2
	switch op.Type {
	case model.OpIsolation, model.OpCutout:
		return []float64{toolR}
	case model.OpClear:
		// First pass on the boundary, then step inward.
		step := op.Strategy.StepOver
		if step <= 0 {
			step = 0.5
		}
		return []float64{toolR, toolR + op.Tool.Diameter*step}
	default:
		return nil
	}
}

// offsetPhase offsets every primitive by every computed distance.
func (e *Engine) offsetPhase(op *Operation, ctx *model.ToolpathContext) []model.Primitive {
	if op.Type == model.OpDrill {
		return e.prepareDrill(op)
	}
	offsetter := offset.New(e.Registry, e.Config.Geometry, &e.Warnings)
	var out []model.Primitive
	for _, prim := range op.Primitives {
		for _, d := range ctx.Computed.OffsetDistances {
			dist := d
			if op.Type == model.OpClear {
				dist = -d // clearing shrinks into the region
			}
			results, err := offsetter.Offset(prim, dist)
			if err != nil {
				e.Warnings.Add(prim.Meta().ID, "offset", err.Error())
				continue
			}
			out = append(out, results...)
		}
	}
	return out
}

// prepareDrill assigns drill roles: holes the bit covers become peck
// marks, larger holes get an internally offset milling path.
func (e *Engine) prepareDrill(op *Operation) []model.Primitive {
	toolD := op.Tool.Diameter
	offsetter := offset.New(e.Registry, e.Config.Geometry, &e.Warnings)
	var out []model.Primitive
	for _, prim := range op.Primitives {
		switch p := prim.(type) {
		case *model.Circle:
			if 2*p.Radius <= toolD+e.Config.Geometry.Precision {
				mark := *p
				mark.Props.Role = model.RolePeckMark
				out = append(out, &mark)
				continue
			}
			milled, err := offsetter.Offset(p, -toolD/2)
			if err != nil || len(milled) == 0 {
				e.Warnings.Add(p.ID, "drill", "hole milling path collapsed")
				continue
			}
			// Helical drill-milling wants the analytic hole, not the ring.
			path := *p
			path.Radius = p.Radius - toolD/2
			path.Props.Role = model.RoleDrillMillingPath
			out = append(out, &path)
		case *model.Obround:
			slot := *p
			slot.Width -= toolD
			slot.Height -= toolD
			if slot.SlotRadius() <= e.Config.Geometry.Precision {
				mark := *p
				mark.Props.Role = model.RolePeckMark
				out = append(out, &mark)
				continue
			}
			slot.Props.Role = model.RoleDrillMillingPath
			out = append(out, &slot)
		default:
			e.Warnings.Add(prim.Meta().ID, "drill", "unsupported drill primitive "+string(prim.Kind()))
		}
	}
	return out
}

// fusePhase unions overlapping offset outlines (isolation and clearing
// produce heavy overlap on dense artwork), reattaches curvature via the
// reconstructor and splits compounds back into per-contour primitives.
// Cutouts keep their contours separate but still reconstruct.
func (e *Engine) fusePhase(op *Operation, prims []model.Primitive) ([]model.Primitive, reconstruct.Stats) {
	if op.Type == model.OpDrill {
		return prims, reconstruct.Stats{}
	}
	var paths, clears []*model.Path
	var passthrough []model.Primitive
	for _, p := range prims {
		path, ok := p.(*model.Path)
		if !ok || !path.Closed || path.Props.IsCenterlinePath {
			passthrough = append(passthrough, p)
			continue
		}
		if path.Props.Polarity == model.PolarityClear {
			clears = append(clears, path)
			continue
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return prims, reconstruct.Stats{}
	}

	fusedCount := len(paths)
	if op.Type != model.OpCutout {
		f := fuse.New(e.Config.Geometry)
		if len(paths) >= 2 {
			paths = f.Union(paths, nil)
		}
		// Clear-polarity regions knock holes out of the dark artwork.
		if len(clears) > 0 {
			paths = f.Difference(paths, clears)
		}
		fusedCount = len(paths)
	} else if len(clears) > 0 {
		// Cutouts keep contours separate; clear rings ride along as holes.
		paths = append(paths, clears...)
	}

	var pathPrims []model.Primitive
	for _, f := range paths {
		pathPrims = append(pathPrims, splitContours(f)...)
	}

	rec := reconstruct.New(e.Registry)
	rebuilt := rec.Rebuild(pathPrims)
	tracer().Debugf("engine: %d fused contour sets, reconstructed %d",
		fusedCount, rec.Stats.Reconstructed)
	return append(rebuilt, passthrough...), rec.Stats
}

// splitContours breaks a compound path into standalone per-contour
// primitives so the translator emits one plan per ring.
func splitContours(p *model.Path) []model.Primitive {
	if len(p.Contours) <= 1 {
		return []model.Primitive{p}
	}
	out := make([]model.Primitive, 0, len(p.Contours))
	for _, c := range p.Contours {
		sub := model.NewPath([]model.Contour{c}, p.Closed)
		sub.Props = p.Props
		out = append(out, sub)
	}
	return out
}
