package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
)

// Success prints a success message.
func Success(w io.Writer, format string, args ...interface{}) {
	successColor.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error prints an error message.
func Error(w io.Writer, format string, args ...interface{}) {
	errorColor.Fprintf(w, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func Warning(w io.Writer, format string, args ...interface{}) {
	warningColor.Fprintf(w, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info prints an informational message.
func Info(w io.Writer, format string, args ...interface{}) {
	infoColor.Fprintf(w, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// HumanSize formats n bytes for display.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
