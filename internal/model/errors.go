package model

import "errors"

// Engine error taxonomy. Degenerate geometry and unsupported primitives are
// per-primitive and let the operation continue; an invalid context fails the
// operation; an internal invariant violation is fatal to the job.
var (
	ErrDegenerateGeometry   = errors.New("degenerate geometry")
	ErrUnsupportedPrimitive = errors.New("unsupported primitive")
	ErrInvalidContext       = errors.New("invalid toolpath context")
	ErrInternalInvariant    = errors.New("internal invariant violation")
)

// Warning is a structured non-fatal note recorded while an operation runs.
type Warning struct {
	PrimitiveID string `json:"primitive_id,omitempty"`
	Stage       string `json:"stage"`
	Message     string `json:"message"`
}

// WarningSink collects warnings across a job. The zero value is ready to use.
type WarningSink struct {
	Warnings []Warning
}

// Add records a warning.
func (s *WarningSink) Add(primitiveID, stage, message string) {
	s.Warnings = append(s.Warnings, Warning{PrimitiveID: primitiveID, Stage: stage, Message: message})
}
