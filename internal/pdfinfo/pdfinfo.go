// Package pdfinfo reads summary information from a PDF payload.
package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNotPDF is returned for payloads that do not start with a PDF header.
var ErrNotPDF = errors.New("not a PDF document")

// Info summarizes a PDF document.
type Info struct {
	Pages   int
	Title   string
	Version string
}

// Inspect parses data and reports its page count and document title.
func Inspect(data []byte) (info Info, err error) {
	if !IsPDF(data) {
		return Info{}, ErrNotPDF
	}

	// The parser panics on some malformed objects.
	defer func() {
		if r := recover(); r != nil {
			info, err = Info{}, fmt.Errorf("parse PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Info{}, fmt.Errorf("open PDF: %w", err)
	}

	info = Info{
		Pages:   r.NumPage(),
		Version: version(data),
	}
	if meta := r.Trailer().Key("Info"); !meta.IsNull() {
		info.Title = strings.TrimSpace(meta.Key("Title").Text())
	}
	return info, nil
}

// IsPDF reports whether data begins with the "%PDF-" magic.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

func version(data []byte) string {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	return strings.TrimSpace(strings.TrimPrefix(string(line), "%PDF-"))
}
