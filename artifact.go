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
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErrReleased is returned when reading an artifact whose payload was released.
var ErrReleased = errors.New("artifact released")

// Artifact is the converted document returned by the conversion service.
// Its payload is held in memory or, for large results, in a temporary file
// until Release is called.
type Artifact struct {
	Filename string
	MIMEType string
	Size     int64

	mu       sync.Mutex
	data     []byte
	path     string
	released bool
}

// NewArtifact wraps an in-memory payload.
func NewArtifact(filename, mimeType string, data []byte) *Artifact {
	return &Artifact{
		Filename: filename,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		data:     data,
	}
}

func newSpooledArtifact(filename, mimeType, path string, size int64) *Artifact {
	return &Artifact{
		Filename: filename,
		MIMEType: mimeType,
		Size:     size,
		path:     path,
	}
}

// Open returns a reader over the payload.
func (a *Artifact) Open() (io.ReadCloser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil, ErrReleased
	}
	if a.path != "" {
		f, err := os.Open(a.path)
		if err != nil {
			return nil, fmt.Errorf("open spooled artifact: %w", err)
		}
		return f, nil
	}
	return io.NopCloser(bytes.NewReader(a.data)), nil
}

// Bytes returns the whole payload.
func (a *Artifact) Bytes() ([]byte, error) {
	rc, err := a.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Spooled reports whether the payload lives in a temporary file.
func (a *Artifact) Spooled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.path != "" && !a.released
}

// Released reports whether Release has been called.
func (a *Artifact) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}

// Release drops the payload. It is safe to call more than once.
func (a *Artifact) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil
	}
	a.released = true
	a.data = nil
	if a.path != "" {
		path := a.path
		a.path = ""
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove spooled artifact: %w", err)
		}
	}
	return nil
}
