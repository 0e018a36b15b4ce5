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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is where the conversion service listens in development.
	DefaultBaseURL = "http://127.0.0.1:8000"
	// DefaultEndpoint is the path of the conversion operation.
	DefaultEndpoint = "/api/convert"
	// DefaultFieldName is the multipart field carrying the document.
	DefaultFieldName = "file"

	// maxErrorBody bounds how much of a failure response is read.
	maxErrorBody = 1 << 20
)

// Client talks to the remote conversion service over HTTP.
type Client struct {
	baseURL         string
	endpoint        string
	fieldName       string
	httpClient      *http.Client
	timeout         time.Duration
	maxArtifactSize int64
	spoolThreshold  int64
	spoolDir        string
	userAgent       string
	progress        func(sent, total int64)
	logger          zerolog.Logger
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		endpoint:   DefaultEndpoint,
		fieldName:  DefaultFieldName,
		httpClient: &http.Client{},
		userAgent:  "md2pdf-go",
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the conversion endpoint.
func (c *Client) URL() string {
	return c.baseURL + "/" + strings.TrimLeft(c.endpoint, "/")
}

// Convert uploads file and returns the converted artifact. Failures are
// returned as *ConversionError.
func (c *Client) Convert(ctx context.Context, file *CandidateFile) (*Artifact, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, contentType, err := c.encode(file)
	if err != nil {
		return nil, transportError(fmt.Errorf("encode upload: %w", err))
	}

	var reader io.Reader = bytes.NewReader(body)
	if c.progress != nil {
		reader = &progressReader{r: reader, total: int64(len(body)), fn: c.progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), reader)
	if err != nil {
		return nil, transportError(fmt.Errorf("build request: %w", err))
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/pdf, application/json")
	req.Header.Set("User-Agent", c.userAgent)
	correlationID := CorrelationID(ctx)
	if correlationID != "" {
		req.Header.Set("X-Request-ID", correlationID)
	}

	c.logger.Debug().
		Str("url", c.URL()).
		Str("correlation_id", correlationID).
		Str("filename", file.Name()).
		Int("bytes", len(body)).
		Msg("uploading document")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("correlation_id", correlationID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("conversion service responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serviceError(resp)
	}
	return c.readArtifact(resp, file.OutputName())
}

func (c *Client) encode(file *CandidateFile) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(c.fieldName), escapeQuotes(file.Name())))
	h.Set("Content-Type", mimeFromExtension(file.Extension()))

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file.Reader()); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// errorPayload is the failure body. detail is usually a string but some
// frameworks send a list of validation problems instead.
type errorPayload struct {
	Detail json.RawMessage `json:"detail"`
	Code   json.RawMessage `json:"code"`
}

func serviceError(resp *http.Response) *ConversionError {
	cerr := &ConversionError{
		Kind:       KindService,
		Message:    GenericFailureMessage,
		StatusCode: resp.StatusCode,
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		cerr.Err = fmt.Errorf("read error response: %w", err)
		return cerr
	}

	var payload errorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		cerr.Err = fmt.Errorf("HTTP %d: %w", resp.StatusCode, err)
		return cerr
	}

	var detail string
	if json.Unmarshal(payload.Detail, &detail) == nil && strings.TrimSpace(detail) != "" {
		cerr.Message = detail
	}
	cerr.Code = rawCode(payload.Code)
	cerr.Err = fmt.Errorf("HTTP %d", resp.StatusCode)
	return cerr
}

// rawCode accepts either a JSON string or a JSON number.
func rawCode(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func (c *Client) readArtifact(resp *http.Response, filename string) (*Artifact, error) {
	if c.maxArtifactSize > 0 && resp.ContentLength > c.maxArtifactSize {
		return nil, oversized(c.maxArtifactSize)
	}

	var body io.Reader = resp.Body
	if c.maxArtifactSize > 0 {
		body = io.LimitReader(resp.Body, c.maxArtifactSize+1)
	}

	headLimit := int64(-1)
	if c.spoolThreshold > 0 {
		headLimit = c.spoolThreshold + 1
	}
	head, err := readUpTo(body, headLimit)
	if err != nil {
		return nil, transportError(fmt.Errorf("read artifact: %w", err))
	}
	if c.maxArtifactSize > 0 && int64(len(head)) > c.maxArtifactSize {
		return nil, oversized(c.maxArtifactSize)
	}

	mimeType := detectMIMEType(resp.Header.Get("Content-Type"), head)

	if c.spoolThreshold <= 0 || int64(len(head)) <= c.spoolThreshold {
		return NewArtifact(filename, mimeType, head), nil
	}
	return c.spool(body, head, filename, mimeType)
}

// spool writes head and the rest of body into a temporary file.
func (c *Client) spool(body io.Reader, head []byte, filename, mimeType string) (*Artifact, error) {
	f, err := os.CreateTemp(c.spoolDir, "md2pdf-artifact-*"+TargetExtension)
	if err != nil {
		return nil, transportError(fmt.Errorf("create spool file: %w", err))
	}
	path := f.Name()

	n, err := io.Copy(f, io.MultiReader(bytes.NewReader(head), body))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && c.maxArtifactSize > 0 && n > c.maxArtifactSize {
		os.Remove(path)
		return nil, oversized(c.maxArtifactSize)
	}
	if err != nil {
		os.Remove(path)
		return nil, transportError(fmt.Errorf("read artifact: %w", err))
	}

	c.logger.Debug().Str("path", path).Int64("bytes", n).Msg("artifact spooled to disk")
	return newSpooledArtifact(filename, mimeType, path, n), nil
}

func oversized(limit int64) *ConversionError {
	return &ConversionError{
		Kind:    KindTransport,
		Message: fmt.Sprintf("The converted file is larger than %d bytes.", limit),
		Err:     errArtifactTooLarge,
	}
}

var errArtifactTooLarge = errors.New("artifact too large")

// readUpTo reads at most limit bytes; a negative limit reads everything.
func readUpTo(r io.Reader, limit int64) ([]byte, error) {
	if limit < 0 {
		return io.ReadAll(r)
	}
	return io.ReadAll(io.LimitReader(r, limit))
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// progressReader reports bytes handed to the transport.
type progressReader struct {
	r     io.Reader
	total int64
	sent  int64
	fn    func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}
