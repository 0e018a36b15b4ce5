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
	"errors"
	"fmt"
	"strings"
)

const (
	// ValidationMessage is shown when the selected file is not a Markdown file.
	ValidationMessage = "Please upload a valid .md (Markdown) file."
	// GenericFailureMessage is used when no better description of a failure is available.
	GenericFailureMessage = "Conversion failed. Please try again."
)

var (
	// ErrNoFile is returned by AcceptDrop when the drop carried no files.
	ErrNoFile = errors.New("no file provided")
	// ErrInvalidCandidate is returned by Submit for a CandidateFile not produced by Validate.
	ErrInvalidCandidate = errors.New("candidate file was not validated")
)

// ErrorKind classifies a ConversionError.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindInput      ErrorKind = "input"
	KindService    ErrorKind = "service"
	KindTransport  ErrorKind = "transport"
)

// ValidationError is returned when a file name does not carry the accepted extension.
type ValidationError struct {
	Filename string
}

func (e *ValidationError) Error() string {
	return ValidationMessage
}

// ConversionError is the failure outcome of a conversion attempt.
// Message is always suitable for display.
type ConversionError struct {
	Kind       ErrorKind
	Message    string
	Code       string // machine code reported by the service, if any
	StatusCode int    // HTTP status for service errors
	Err        error
}

func (e *ConversionError) Error() string {
	parts := []string{string(e.Kind) + " error"}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%q", e.Code))
	}
	return strings.Join(parts, " ") + ": " + e.Message
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// TransitionError is returned when an event is not valid in the current phase.
type TransitionError struct {
	Event string
	From  Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Event, e.From)
}

// IsValidation reports whether err is, or wraps, a validation failure.
func IsValidation(err error) bool {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return true
	}
	return hasKind(err, KindValidation)
}

// IsService reports whether err is a failure reported by the conversion service.
func IsService(err error) bool {
	return hasKind(err, KindService)
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	return hasKind(err, KindTransport)
}

func hasKind(err error, kind ErrorKind) bool {
	var target *ConversionError
	return errors.As(err, &target) && target.Kind == kind
}

// asConversionError normalizes any failure into a displayable ConversionError.
func asConversionError(err error) *ConversionError {
	var cerr *ConversionError
	if errors.As(err, &cerr) {
		if cerr.Message == "" {
			cerr.Message = GenericFailureMessage
		}
		return cerr
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return &ConversionError{Kind: KindValidation, Message: ValidationMessage, Err: err}
	}
	return transportError(err)
}

// transportError builds a ConversionError whose message comes from the innermost cause.
func transportError(err error) *ConversionError {
	msg := GenericFailureMessage
	if err != nil {
		cause := err
		for {
			next := errors.Unwrap(cause)
			if next == nil {
				break
			}
			cause = next
		}
		if s := strings.TrimSpace(cause.Error()); s != "" {
			msg = s
		}
	}
	return &ConversionError{Kind: KindTransport, Message: msg, Err: err}
}
