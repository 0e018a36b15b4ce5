// Package ui provides terminal output for the md2pdf CLI.
package ui

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// InitUI applies the color setting for the whole process.
func InitUI(noColor bool) {
	if noColor {
		color.NoColor = true
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
