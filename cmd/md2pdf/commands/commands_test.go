package commands

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	md2pdf "github.com/nicholasgasior/md2pdf-go"
	"github.com/nicholasgasior/md2pdf-go/cmd/md2pdf/ui"
)

func fakeService(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
		} else {
			w.Header().Set("Content-Type", "application/pdf")
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func writeSource(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("# Notes\n"), 0o644))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func TestConvert_Success(t *testing.T) {
	srv, hits := fakeService(t, http.StatusOK, "%PDF-1.4\n%%EOF\n")
	src := writeSource(t, "notes.md")
	outDir := t.TempDir()

	out, err := run(t, "", "convert", "--service-url", srv.URL, "-o", outDir, src)
	require.NoError(t, err)

	want := filepath.Join(outDir, "notes.pdf")
	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4\n%%EOF\n", string(data))
	assert.Contains(t, out, "Converting notes.md")
	assert.Contains(t, out, "notes.pdf is ready")
	assert.Contains(t, out, "Saved "+want)
	assert.EqualValues(t, 1, hits.Load())
}

func TestConvert_KeepsExistingFile(t *testing.T) {
	srv, _ := fakeService(t, http.StatusOK, "%PDF-1.4\n")
	src := writeSource(t, "notes.md")
	outDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "notes.pdf"), []byte("old"), 0o644))

	_, err := run(t, "", "convert", "--service-url", srv.URL, "-o", outDir, src)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "notes (1).pdf"))

	_, err = run(t, "", "convert", "--service-url", srv.URL, "-o", outDir, "--overwrite", src)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(outDir, "notes.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4\n", string(data))
}

func TestConvert_ServiceFailure(t *testing.T) {
	srv, _ := fakeService(t, http.StatusBadRequest, `{"detail":"bad format"}`)
	src := writeSource(t, "notes.md")

	out, err := run(t, "", "convert", "--service-url", srv.URL, "-o", t.TempDir(), src)
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.Contains(t, out, "✗ bad format")
}

func TestConvert_InvalidExtension(t *testing.T) {
	srv, hits := fakeService(t, http.StatusOK, "%PDF-1.4\n")
	src := writeSource(t, "notes.txt")

	out, err := run(t, "", "convert", "--service-url", srv.URL, "-o", t.TempDir(), src)
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.Contains(t, out, md2pdf.ValidationMessage)
	assert.Zero(t, hits.Load())
}

func TestConvert_ExtraArgumentsIgnored(t *testing.T) {
	srv, hits := fakeService(t, http.StatusOK, "%PDF-1.4\n")
	first := writeSource(t, "a.md")
	second := writeSource(t, "b.md")
	outDir := t.TempDir()

	out, err := run(t, "", "convert", "--service-url", srv.URL, "-o", outDir, first, second)
	require.NoError(t, err)
	assert.Contains(t, out, "1 more file(s) ignored")
	assert.FileExists(t, filepath.Join(outDir, "a.pdf"))
	assert.NoFileExists(t, filepath.Join(outDir, "b.pdf"))
	assert.EqualValues(t, 1, hits.Load())
}

func TestConvert_RequiresFile(t *testing.T) {
	_, err := run(t, "", "convert")
	assert.Error(t, err)
}

func TestConvert_InvalidServiceURL(t *testing.T) {
	_, err := run(t, "", "convert", "--service-url", "not a url", writeSource(t, "a.md"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestInteractive(t *testing.T) {
	srv, hits := fakeService(t, http.StatusOK, "%PDF-1.4\n")
	src := writeSource(t, "notes.md")
	outDir := t.TempDir()

	stdin := strings.Join([]string{"status", "reset", "notes.txt", "dismiss", src, "quit"}, "\n") + "\n"
	out, err := run(t, stdin, "interactive", "--service-url", srv.URL, "-c", writeConfig(t, outDir))
	require.NoError(t, err)

	assert.Contains(t, out, "idle\n")
	assert.Contains(t, out, "cannot reset while idle")
	assert.Contains(t, out, md2pdf.ValidationMessage)
	assert.Contains(t, out, "Saved "+filepath.Join(outDir, "notes.pdf"))
	assert.FileExists(t, filepath.Join(outDir, "notes.pdf"))
	assert.EqualValues(t, 1, hits.Load())
}

func TestSplitPaths(t *testing.T) {
	spaced := filepath.Join(t.TempDir(), "my notes.md")
	require.NoError(t, os.WriteFile(spaced, nil, 0o644))

	assert.Equal(t, []string{spaced}, splitPaths(spaced))
	assert.Equal(t, []string{spaced}, splitPaths(`"`+spaced+`"`))
	assert.Equal(t, []string{"a.md", "b.md"}, splitPaths(`a.md 'b.md'`))
}

func writeConfig(t *testing.T, outDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "md2pdf.yaml")
	cfg := "output:\n  dir: " + outDir + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestReportDelivery_ReleasedArtifactIsSilent(t *testing.T) {
	svc := md2pdf.ServiceFunc(func(context.Context, *md2pdf.CandidateFile) (*md2pdf.Artifact, error) {
		return md2pdf.NewArtifact("notes.pdf", "application/pdf", []byte("P")), nil
	})
	ctrl := md2pdf.NewController(svc, md2pdf.WithDeliverer(md2pdf.DelivererFunc(
		func(context.Context, *md2pdf.Artifact) (string, error) {
			return "", md2pdf.ErrReleased
		})))
	candidate, err := md2pdf.NewCandidate("notes.md", []byte("# hi"))
	require.NoError(t, err)
	req, err := ctrl.Submit(context.Background(), candidate)
	require.NoError(t, err)
	<-req.Done()

	var out bytes.Buffer
	s := &session{logger: zerolog.Nop(), controller: ctrl, presenter: ui.NewPresenter(&out, false)}
	assert.NoError(t, s.reportDelivery(req, req.Result().Artifact))
	assert.Empty(t, out.String())
}
