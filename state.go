package md2pdf

import "time"

// Phase is the coarse state of the workflow.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseUploading Phase = "uploading"
	PhaseReady     Phase = "ready"
	PhaseFailed    Phase = "failed"
)

func (p Phase) String() string { return string(p) }

// State is a snapshot of the workflow. Artifact is set only in PhaseReady and
// Err only in PhaseFailed.
type State struct {
	Phase     Phase
	RequestID uint64
	Filename  string
	Artifact  *Artifact
	Err       *ConversionError
	Since     time.Time
}

// Result is the outcome of one request: exactly one field is non-nil.
type Result struct {
	Artifact *Artifact
	Err      *ConversionError
}

// OK reports whether the request produced an artifact.
func (r Result) OK() bool { return r.Artifact != nil }
