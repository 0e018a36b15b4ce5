// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package md2pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

const (
	// SourceExtension is the only accepted input suffix. Matching is case-sensitive.
	SourceExtension = ".md"
	// TargetExtension is the suffix of the converted artifact.
	TargetExtension = ".pdf"
)

// File is a user-supplied file handle: a name plus a way to read its bytes.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

type localFile struct {
	path string
}

// LocalFile returns a File backed by a path on disk. Its name is the base name.
func LocalFile(path string) File {
	return localFile{path: path}
}

func (f localFile) Name() string { return filepath.Base(f.path) }

func (f localFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

type memoryFile struct {
	name string
	data []byte
}

// MemoryFile returns a File holding data in memory.
func MemoryFile(name string, data []byte) File {
	return memoryFile{name: name, data: data}
}

func (f memoryFile) Name() string { return f.name }

func (f memoryFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// CandidateFile is a file that passed validation and is ready for submission.
// A candidate can be submitted once; validate the file again to retry.
type CandidateFile struct {
	name      string
	extension string
	data      []byte
	valid     bool
	submitted atomic.Bool
}

// Name returns the file name as supplied by the user.
func (c *CandidateFile) Name() string { return c.name }

// Extension returns the declared extension.
func (c *CandidateFile) Extension() string { return c.extension }

// Size returns the content length in bytes.
func (c *CandidateFile) Size() int { return len(c.data) }

// Reader returns a reader over the content.
func (c *CandidateFile) Reader() io.Reader { return bytes.NewReader(c.data) }

// OutputName is the suggested filename of the converted artifact.
func (c *CandidateFile) OutputName() string { return OutputName(c.name) }

// claim marks the candidate as submitted. It reports false if the candidate
// was not validated or has already been claimed.
func (c *CandidateFile) claim() bool {
	return c.valid && c.submitted.CompareAndSwap(false, true)
}

func (c *CandidateFile) discard() {
	c.data = nil
}

// NewCandidate builds a CandidateFile from a name and content that are already
// in memory. The name check is the same as Validate's.
func NewCandidate(name string, data []byte) (*CandidateFile, error) {
	if !HasSourceExtension(name) {
		return nil, &ValidationError{Filename: name}
	}
	return &CandidateFile{
		name:      name,
		extension: SourceExtension,
		data:      data,
		valid:     true,
	}, nil
}

// Validate checks the name of f and, if it is acceptable, reads its content.
// The content itself is not inspected.
func Validate(f File) (*CandidateFile, error) {
	name := f.Name()
	if !HasSourceExtension(name) {
		return nil, &ValidationError{Filename: name}
	}

	rc, err := f.Open()
	if err != nil {
		return nil, inputError(name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, inputError(name, err)
	}

	return NewCandidate(name, data)
}

// HasSourceExtension reports whether name ends with the literal ".md" suffix.
func HasSourceExtension(name string) bool {
	return strings.HasSuffix(name, SourceExtension)
}

// OutputName replaces a trailing ".md" with ".pdf". Names without the suffix
// get ".pdf" appended.
func OutputName(name string) string {
	return strings.TrimSuffix(name, SourceExtension) + TargetExtension
}

func inputError(name string, err error) *ConversionError {
	return &ConversionError{
		Kind:    KindInput,
		Message: fmt.Sprintf("Could not read %s.", name),
		Err:     fmt.Errorf("read %s: %w", name, err),
	}
}
