package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
)

// ProgressBar wraps a progressbar instance for upload progress.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a byte-counting progress bar writing to w.
func NewProgressBar(w io.Writer, total int64, description string) *ProgressBar {
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &ProgressBar{bar: bar}
}

// Set moves the bar to current.
func (p *ProgressBar) Set(current int64) {
	_ = p.bar.Set64(current)
}

// Finish completes the bar.
func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}

// Spinner wraps a spinner instance for indeterminate waits.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer, message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	return &Spinner{spinner: s}
}

// Start starts the animation.
func (s *Spinner) Start() { s.spinner.Start() }

// Stop stops the animation and clears the line.
func (s *Spinner) Stop() { s.spinner.Stop() }

// UploadView shows a progress bar while the document is sent and a spinner
// while the service converts it.
type UploadView struct {
	w    io.Writer
	name string

	mu      sync.Mutex
	bar     *ProgressBar
	spinner *Spinner
	done    bool
}

// NewUploadView creates a view for uploading name.
func NewUploadView(w io.Writer, name string) *UploadView {
	return &UploadView{w: w, name: name}
}

// Progress is suitable for md2pdf.WithUploadProgress.
func (v *UploadView) Progress(sent, total int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.done || v.spinner != nil {
		return
	}
	if v.bar == nil {
		v.bar = NewProgressBar(v.w, total, "Uploading "+v.name)
	}
	v.bar.Set(sent)
	if sent >= total {
		v.bar.Finish()
		v.spinner = NewSpinner(v.w, "Converting "+v.name)
		v.spinner.Start()
	}
}

// Stop removes any indicator still on screen.
func (v *UploadView) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.done = true
	if v.spinner != nil {
		v.spinner.Stop()
	}
}
