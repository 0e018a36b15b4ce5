package md2pdf

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithEndpoint sets the path of the conversion operation (default: /api/convert).
func WithEndpoint(path string) ClientOption {
	return func(c *Client) {
		c.endpoint = path
	}
}

// WithFieldName sets the multipart field carrying the document (default: file).
func WithFieldName(name string) ClientOption {
	return func(c *Client) {
		c.fieldName = name
	}
}

// WithTimeout bounds a single conversion request. Zero waits indefinitely.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxArtifactSize rejects artifacts larger than n bytes. Zero means no limit.
func WithMaxArtifactSize(n int64) ClientOption {
	return func(c *Client) {
		c.maxArtifactSize = n
	}
}

// WithSpoolThreshold keeps artifacts up to n bytes in memory and writes
// larger ones to a temporary file in dir (default: os.TempDir).
// Zero keeps everything in memory.
func WithSpoolThreshold(n int64, dir string) ClientOption {
	return func(c *Client) {
		c.spoolThreshold = n
		c.spoolDir = dir
	}
}

// WithUploadProgress registers fn to be called as the request body is sent.
func WithUploadProgress(fn func(sent, total int64)) ClientOption {
	return func(c *Client) {
		c.progress = fn
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithClientLogger sets the logger used for request metadata.
func WithClientLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}
