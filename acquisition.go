package md2pdf

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nicholasgasior/md2pdf-go/internal/textenc"
)

// AcquisitionOption configures an Acquisition.
type AcquisitionOption func(*Acquisition)

// WithUTF8Normalization transcodes non-UTF-8 input to UTF-8 before submission.
func WithUTF8Normalization() AcquisitionOption {
	return func(a *Acquisition) {
		a.normalize = true
	}
}

// WithAcquisitionLogger sets the logger for ignored files and normalization.
func WithAcquisitionLogger(l zerolog.Logger) AcquisitionOption {
	return func(a *Acquisition) {
		a.logger = l
	}
}

// Acquisition takes a file from the user, validates it and hands it to the
// Controller. It never changes workflow state itself.
type Acquisition struct {
	controller *Controller
	normalize  bool
	logger     zerolog.Logger

	mu       sync.Mutex
	dragging bool
}

// NewAcquisition creates an Acquisition feeding ctrl.
func NewAcquisition(ctrl *Controller, opts ...AcquisitionOption) *Acquisition {
	a := &Acquisition{
		controller: ctrl,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AcceptSelection handles an explicitly selected file. A file that fails
// validation moves the workflow to Failed and returns a nil Request.
func (a *Acquisition) AcceptSelection(ctx context.Context, f File) (*Request, error) {
	candidate, err := a.acquire(f)
	if err != nil {
		a.controller.Reject(f.Name(), err)
		return nil, err
	}
	return a.controller.Submit(ctx, candidate)
}

// AcceptDrop handles a drop. Only the first file is used.
func (a *Acquisition) AcceptDrop(ctx context.Context, files []File) (*Request, error) {
	a.setDragging(false)
	if len(files) == 0 {
		return nil, ErrNoFile
	}
	for _, ignored := range files[1:] {
		a.logger.Debug().Str("filename", ignored.Name()).Msg("ignoring extra dropped file")
	}
	return a.AcceptSelection(ctx, files[0])
}

func (a *Acquisition) acquire(f File) (*CandidateFile, error) {
	candidate, err := Validate(f)
	if err != nil || !a.normalize {
		return candidate, err
	}

	out, charset, changed := textenc.ToUTF8(candidate.data)
	if !changed {
		return candidate, nil
	}
	a.logger.Info().
		Str("filename", candidate.Name()).
		Str("charset", charset).
		Msg("transcoded input to UTF-8")
	return NewCandidate(candidate.Name(), out)
}

// DragEnter marks a drag in progress over the drop target.
func (a *Acquisition) DragEnter() { a.setDragging(true) }

// DragLeave clears the drag marker.
func (a *Acquisition) DragLeave() { a.setDragging(false) }

// IsDragging reports whether a drag is hovering over the drop target.
func (a *Acquisition) IsDragging() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dragging
}

func (a *Acquisition) setDragging(v bool) {
	a.mu.Lock()
	a.dragging = v
	a.mu.Unlock()
}
