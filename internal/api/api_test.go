package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"gotest.tools/assert"

	"github.com/shelfeng/skiaicoach/internal/analysis"
	"github.com/shelfeng/skiaicoach/internal/options"
	"github.com/shelfeng/skiaicoach/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	opts := options.DefaultOptions()
	opts.UploadDir = t.TempDir()
	opts.TempDir = t.TempDir()
	opts.FramesDir = t.TempDir()
	opts.Resolve()

	s, err := NewServer(opts, storage.NewLocal(opts.UploadDir))
	assert.NilError(t, err)
	return s
}

func uploadRequest(t *testing.T, filename string, size int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("video", filename)
	assert.NilError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte("v"), size))
	assert.NilError(t, err)
	assert.NilError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))

	assert.Equal(t, rec.Code, http.StatusOK)
	var body map[string]string
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, body["status"], "ok")
	assert.Equal(t, body["storage"], "local")
}

func TestStatusUnknownJob(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status/nope", nil))

	assert.Equal(t, rec.Code, http.StatusNotFound)
	assert.Equal(t, strings.TrimSpace(rec.Body.String()), `{"status":"not_found"}`)
}

func TestStatusKnownJob(t *testing.T) {
	s := newTestServer(t)
	s.jobs.Start("job-1")

	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status/job-1", nil))

	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, strings.TrimSpace(rec.Body.String()), `{"status":"processing"}`)
}

func TestUploadMissingFileRedirectsHome(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
	req.Header.Set(echo.HeaderContentType, "multipart/form-data; boundary=x")
	s.server.ServeHTTP(rec, req)

	assert.Equal(t, rec.Code, http.StatusFound)
	assert.Equal(t, rec.Header().Get("Location"), "/")
}

func TestUploadDisallowedExtension(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, uploadRequest(t, "notes.txt", 10))

	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, rec.Body.String(), "File type not allowed")
	assert.Equal(t, s.jobs.Len(), 0)
}

func TestUploadTooLarge(t *testing.T) {
	s := newTestServer(t)
	s.opts.MaxUploadBytes = 8

	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, uploadRequest(t, "run.mp4", 64))

	assert.Equal(t, rec.Code, http.StatusRequestEntityTooLarge)
}

func TestUploadStartsJobAndRedirects(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, uploadRequest(t, "run.mp4", 64))

	assert.Equal(t, rec.Code, http.StatusFound)
	location := rec.Header().Get("Location")
	assert.Assert(t, strings.HasPrefix(location, "/result/"), "location %q", location)

	jobID := strings.TrimPrefix(location, "/result/")
	job, ok := s.jobs.Get(jobID)
	assert.Assert(t, ok)
	assert.Assert(t, job.Status != "")
}

func TestResultUnknownJob(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/result/nope", nil))

	assert.Equal(t, rec.Code, http.StatusNotFound)
	assert.Equal(t, rec.Body.String(), "Job not found")
}

func TestResultCompletedJob(t *testing.T) {
	s := newTestServer(t)
	s.jobs.Complete("job-1", &analysis.Result{
		OverallTechniqueScore: 8.5,
		TechnicalAdvice:       "保持重心前压",
		DisplayFrames:         []string{"frame_001.jpg"},
	})

	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/result/job-1", nil))

	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Assert(t, strings.Contains(rec.Body.String(), "8.5"))
	assert.Assert(t, strings.Contains(rec.Body.String(), "保持重心前压"))
}

func TestAllowed(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		filename string
		expected bool
	}{
		{"run.mp4", true},
		{"RUN.MP4", true},
		{"run.mov", true},
		{"run.avi", true},
		{"run.txt", false},
		{"run", false},
	}
	for _, tt := range tests {
		assert.Equal(t, s.allowed(tt.filename), tt.expected, "filename %s", tt.filename)
	}
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"run.mp4", "run.mp4"},
		{"../../etc/passwd", "passwd"},
		{`C:\videos\run.mp4`, "run.mp4"},
		{"my run (1).mp4", "my_run_1_.mp4"},
		{"...", "upload"},
	}
	for _, tt := range tests {
		assert.Equal(t, secureFilename(tt.in), tt.out, "input %q", tt.in)
	}
}
