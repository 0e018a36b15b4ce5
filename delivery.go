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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Deliverer makes a ready artifact available to the user and returns where it went.
type Deliverer interface {
	Deliver(ctx context.Context, a *Artifact) (string, error)
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, a *Artifact) (string, error)

func (f DelivererFunc) Deliver(ctx context.Context, a *Artifact) (string, error) {
	return f(ctx, a)
}

// maxNameAttempts bounds the "name (n).pdf" search.
const maxNameAttempts = 1000

// DirDeliverer writes artifacts into Dir under their suggested filename.
// Unless Overwrite is set, an existing file is kept and the new one is saved
// as "name (1).pdf", "name (2).pdf" and so on.
type DirDeliverer struct {
	Dir       string
	Overwrite bool
}

func (d DirDeliverer) Deliver(ctx context.Context, a *Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	name := filepath.Base(a.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = "document" + TargetExtension
	}

	target := filepath.Join(dir, name)
	if !d.Overwrite {
		var err error
		target, err = freeName(dir, name)
		if err != nil {
			return "", err
		}
	}

	rc, err := a.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(dir, ".md2pdf-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return "", fmt.Errorf("chmod artifact: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return "", fmt.Errorf("move artifact into place: %w", err)
	}
	return target, nil
}

// freeName returns the first path in dir based on name that does not exist yet.
func freeName(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; i <= maxNameAttempts; i++ {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		} else if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, dir)
}
