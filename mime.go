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
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// detectMIMEType returns the declared content type when it is specific,
// otherwise sniffs head.
func detectMIMEType(declared string, head []byte) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}
	if len(head) > 0 {
		detected, _, _ := strings.Cut(mimetype.Detect(head).String(), ";")
		if detected != "application/octet-stream" {
			return detected
		}
	}
	return mimeFromExtension(TargetExtension)
}

// mimeFromExtension returns a MIME type for the extensions this package deals with.
func mimeFromExtension(ext string) string {
	extMap := map[string]string{
		".md":       "text/markdown",
		".markdown": "text/markdown",
		".pdf":      "application/pdf",
		".html":     "text/html",
		".txt":      "text/plain",
	}
	if m, ok := extMap[strings.ToLower(ext)]; ok {
		return m
	}
	return "application/octet-stream"
}
