package api

import (
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/shelfeng/skiaicoach/internal/jobs"
)

func (s *Server) index(c echo.Context) error {
	return c.Render(http.StatusOK, "index.html", map[string]interface{}{
		"Model": s.opts.ModelName,
	})
}

// upload accepts a multipart video, saves it, registers a processing job, and
// redirects the browser to the result page.
func (s *Server) upload(c echo.Context) error {
	file, err := c.FormFile("video")
	if err != nil {
		return c.Redirect(http.StatusFound, "/")
	}
	if file.Filename == "" {
		return c.Redirect(http.StatusFound, "/")
	}
	if file.Size > s.opts.MaxUploadBytes {
		return c.String(http.StatusRequestEntityTooLarge, "File too large")
	}
	if !s.allowed(file.Filename) {
		return c.String(http.StatusOK, "File type not allowed")
	}

	src, err := file.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = src.Close() }()

	jobID := uuid.New().String()
	name := jobID + "_" + secureFilename(file.Filename)

	ref, err := s.files.Save(c.Request().Context(), name, src)
	if err != nil {
		log.WithError(err).Error("saving upload failed")
		return c.String(http.StatusInternalServerError,
			"Upload failed: "+err.Error())
	}

	s.jobs.Start(jobID)
	s.worker.Launch(jobID, ref, c.FormValue("model"))

	return c.Redirect(http.StatusFound, "/result/"+jobID)
}

func (s *Server) result(c echo.Context) error {
	jobID := c.Param("job_id")
	job, ok := s.jobs.Get(jobID)
	if !ok {
		return c.String(http.StatusNotFound, "Job not found")
	}

	data := map[string]interface{}{
		"JobID":  jobID,
		"Status": job.Status,
	}
	switch job.Status {
	case jobs.StatusCompleted:
		data["Analysis"] = job.Data
	case jobs.StatusFailed:
		data["Error"] = job.Error
	}
	return c.Render(http.StatusOK, "result.html", data)
}

func (s *Server) status(c echo.Context) error {
	job, ok := s.jobs.Get(c.Param("job_id"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"status": "not_found"})
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": s.files.Name(),
	})
}

// allowed reports whether the filename carries an allow-listed extension.
func (s *Server) allowed(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, ok := range s.opts.Extensions() {
		if ext == ok {
			return true
		}
	}
	return false
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// secureFilename strips path components and characters that are unsafe in a
// stored file name.
func secureFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	cleaned := unsafeFilenameChars.ReplaceAllString(base, "_")
	cleaned = strings.Trim(cleaned, "._")
	if cleaned == "" {
		return "upload"
	}
	return cleaned
}
