package ui

import (
	"fmt"
	"io"
	"sync"

	md2pdf "github.com/nicholasgasior/md2pdf-go"
)

// Presenter renders workflow states as status lines. It is safe for use by
// several goroutines.
type Presenter struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

// NewPresenter creates a Presenter writing to w. Idle transitions are only
// shown when verbose is set.
func NewPresenter(w io.Writer, verbose bool) *Presenter {
	return &Presenter{w: w, verbose: verbose}
}

// Render prints st. It is meant to be passed to Controller.Subscribe.
func (p *Presenter) Render(st md2pdf.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch st.Phase {
	case md2pdf.PhaseUploading:
		Info(p.w, "Converting %s", st.Filename)
	case md2pdf.PhaseReady:
		Success(p.w, "%s is ready (%s)", st.Artifact.Filename, HumanSize(st.Artifact.Size))
	case md2pdf.PhaseFailed:
		Error(p.w, "%s", st.Err.Message)
	case md2pdf.PhaseIdle:
		if p.verbose {
			Info(p.w, "Ready for a file")
		}
	}
}

// Status prints a one-line summary of st.
func (p *Presenter) Status(st md2pdf.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := st.Phase.String()
	switch st.Phase {
	case md2pdf.PhaseUploading:
		line += ": " + st.Filename
	case md2pdf.PhaseReady:
		line += ": " + st.Artifact.Filename
	case md2pdf.PhaseFailed:
		line += ": " + st.Err.Message
	}
	fmt.Fprintln(p.w, line)
}

// Delivered reports where a ready artifact was saved.
func (p *Presenter) Delivered(path string, pages int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pages > 0 {
		Success(p.w, "Saved %s (%d pages)", path, pages)
		return
	}
	Success(p.w, "Saved %s", path)
}

// Warn prints a warning line.
func (p *Presenter) Warn(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	Warning(p.w, format, args...)
}

// Fail prints an error line.
func (p *Presenter) Fail(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	Error(p.w, format, args...)
}

// Println prints a plain line.
func (p *Presenter) Println(a ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, a...)
}
