package md2pdf

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePDF = "%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n"

// upload is what the fake service received.
type upload struct {
	field       string
	filename    string
	contentType string
	content     string
	requestID   string
	userAgent   string
}

func readUpload(t *testing.T, r *http.Request) upload {
	t.Helper()
	mt, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mt)

	mr := multipart.NewReader(r.Body, params["boundary"])
	part, err := mr.NextPart()
	require.NoError(t, err)
	data, err := io.ReadAll(part)
	require.NoError(t, err)

	_, err = mr.NextPart()
	require.ErrorIs(t, err, io.EOF, "exactly one part is sent")

	return upload{
		field:       part.FormName(),
		filename:    part.FileName(),
		contentType: part.Header.Get("Content-Type"),
		content:     string(data),
		requestID:   r.Header.Get("X-Request-ID"),
		userAgent:   r.Header.Get("User-Agent"),
	}
}

func newCandidate(t *testing.T, name, content string) *CandidateFile {
	t.Helper()
	c, err := NewCandidate(name, []byte(content))
	require.NoError(t, err)
	return c
}

func TestClient_ConvertSuccess(t *testing.T) {
	var got upload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/convert", r.URL.Path)
		got = readUpload(t, r)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, samplePDF)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithUserAgent("md2pdf-test"))
	ctx := withCorrelationID(context.Background(), "abc-123")

	a, err := c.Convert(ctx, newCandidate(t, "notes.md", "# Title\n\nbody"))
	require.NoError(t, err)
	defer a.Release()

	assert.Equal(t, "notes.pdf", a.Filename)
	assert.Equal(t, "application/pdf", a.MIMEType)
	assert.Equal(t, int64(len(samplePDF)), a.Size)
	assert.False(t, a.Spooled())
	data, err := a.Bytes()
	require.NoError(t, err)
	assert.Equal(t, samplePDF, string(data))

	assert.Equal(t, "file", got.field)
	assert.Equal(t, "notes.md", got.filename)
	assert.Equal(t, "text/markdown", got.contentType)
	assert.Equal(t, "# Title\n\nbody", got.content)
	assert.Equal(t, "abc-123", got.requestID)
	assert.Equal(t, "md2pdf-test", got.userAgent)
}

func TestClient_EndpointAndField(t *testing.T) {
	var got upload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/render", r.URL.Path)
		got = readUpload(t, r)
		_, _ = io.WriteString(w, samplePDF)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithEndpoint("v2/render"), WithFieldName("document"))
	assert.Equal(t, srv.URL+"/v2/render", c.URL())

	a, err := c.Convert(context.Background(), newCandidate(t, `my "draft".md`, "x"))
	require.NoError(t, err)
	defer a.Release()

	assert.Equal(t, "document", got.field)
	assert.Equal(t, `my "draft".md`, got.filename)
	assert.Equal(t, `my "draft".pdf`, a.Filename)
	assert.Empty(t, got.requestID)
}

func TestClient_MIMETypeSniffing(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        string
	}{
		{"declared", "application/pdf; qs=1", "application/pdf"},
		{"octet stream is sniffed", "application/octet-stream", "application/pdf"},
		{"missing is sniffed", "", "application/pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header()["Content-Type"] = []string{tt.contentType}
				_, _ = io.WriteString(w, samplePDF)
			}))
			defer srv.Close()

			a, err := NewClient(srv.URL).Convert(context.Background(), newCandidate(t, "a.md", "x"))
			require.NoError(t, err)
			defer a.Release()
			assert.Equal(t, tt.want, a.MIMEType)
		})
	}
}

func TestClient_ServiceErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
	}{
		{"detail string", http.StatusBadRequest, `{"detail":"bad format"}`, "bad format", ""},
		{"detail and code", http.StatusUnprocessableEntity, `{"detail":"too long","code":"E_SIZE"}`, "too long", "E_SIZE"},
		{"numeric code", http.StatusInternalServerError, `{"detail":"boom","code":42}`, "boom", "42"},
		{"detail list", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","file"],"msg":"field required"}]}`, GenericFailureMessage, ""},
		{"empty detail", http.StatusBadRequest, `{"detail":"  "}`, GenericFailureMessage, ""},
		{"no detail", http.StatusBadGateway, `{"error":"upstream"}`, GenericFailureMessage, ""},
		{"not json", http.StatusInternalServerError, `<html>Internal Server Error</html>`, GenericFailureMessage, ""},
		{"empty body", http.StatusServiceUnavailable, ``, GenericFailureMessage, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			a, err := NewClient(srv.URL).Convert(context.Background(), newCandidate(t, "notes.md", "x"))
			require.Error(t, err)
			assert.Nil(t, a)
			assert.True(t, IsService(err))

			var cerr *ConversionError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.wantMessage, cerr.Message)
			assert.Equal(t, tt.wantCode, cerr.Code)
			assert.Equal(t, tt.status, cerr.StatusCode)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Convert(context.Background(), newCandidate(t, "notes.md", "x"))
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.False(t, IsService(err))
	assert.NotEmpty(t, err.Error())
}

func TestClient_Timeout(t *testing.T) {
	unblock := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-unblock:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(unblock)

	_, err := NewClient(srv.URL, WithTimeout(50*time.Millisecond)).
		Convert(context.Background(), newCandidate(t, "notes.md", "x"))
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_MaxArtifactSize(t *testing.T) {
	payload := strings.Repeat("x", 64)
	tests := []struct {
		name    string
		chunked bool
	}{
		{"content length", false},
		{"chunked", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.chunked {
					_, _ = io.WriteString(w, payload[:32])
					w.(http.Flusher).Flush()
					_, _ = io.WriteString(w, payload[32:])
					return
				}
				_, _ = io.WriteString(w, payload)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, WithMaxArtifactSize(16)).
				Convert(context.Background(), newCandidate(t, "a.md", "x"))
			require.Error(t, err)
			assert.True(t, IsTransport(err))
			assert.ErrorIs(t, err, errArtifactTooLarge)
		})
	}
}

func TestClient_SpoolsLargeArtifacts(t *testing.T) {
	payload := samplePDF + strings.Repeat("%", 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	a, err := NewClient(srv.URL, WithSpoolThreshold(1024, dir)).
		Convert(context.Background(), newCandidate(t, "big.md", "x"))
	require.NoError(t, err)

	assert.True(t, a.Spooled())
	assert.Equal(t, int64(len(payload)), a.Size)
	data, err := a.Bytes()
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, a.Release())
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "release removes the spool file")
}

func TestClient_SpoolRespectsMaxSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 512))
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, strings.Repeat("x", 512))
	}))
	defer srv.Close()

	dir := t.TempDir()
	_, err := NewClient(srv.URL, WithSpoolThreshold(100, dir), WithMaxArtifactSize(600)).
		Convert(context.Background(), newCandidate(t, "big.md", "x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errArtifactTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClient_UploadProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = io.WriteString(w, samplePDF)
	}))
	defer srv.Close()

	var calls, lastSent, lastTotal atomic.Int64
	c := NewClient(srv.URL, WithUploadProgress(func(sent, total int64) {
		calls.Add(1)
		lastSent.Store(sent)
		lastTotal.Store(total)
	}))

	a, err := c.Convert(context.Background(), newCandidate(t, "a.md", strings.Repeat("# x\n", 1000)))
	require.NoError(t, err)
	defer a.Release()

	assert.Positive(t, calls.Load())
	assert.Positive(t, lastTotal.Load())
	assert.Equal(t, lastTotal.Load(), lastSent.Load())
}

func TestClient_ThroughController(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		got := readUpload(t, r)
		assert.NotEmpty(t, got.requestID)
		_, _ = io.WriteString(w, samplePDF)
	}))
	defer srv.Close()

	ctrl := NewController(NewClient(srv.URL))
	req, err := ctrl.Submit(context.Background(), newCandidate(t, "notes.md", "# hi"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := req.Wait(ctx)
	require.NoError(t, err)
	require.True(t, res.OK())

	st := ctrl.State()
	assert.Equal(t, PhaseReady, st.Phase)
	assert.Equal(t, "notes.pdf", st.Artifact.Filename)
	assert.EqualValues(t, 1, hits.Load())
}
