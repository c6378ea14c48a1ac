package deploy

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Directory names never shipped in the deployment artifact.
var skippedDirs = map[string]bool{
	".git":         true,
	"__pycache__":  true,
	"uploads":      true,
	"temp":         true,
	".venv":        true,
	"node_modules": true,
}

// Package zips the source directory into the artifact for zip deploy and
// returns the number of files archived. Entry names use forward slashes so
// the archive extracts correctly on App Service.
func Package(sourceDir, artifact string) (int, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return 0, errors.Wrapf(err, "source dir %s", sourceDir)
	}
	if !info.IsDir() {
		return 0, errors.Errorf("source %s is not a directory", sourceDir)
	}

	out, err := os.Create(artifact)
	if err != nil {
		return 0, errors.Wrapf(err, "creating artifact %s", artifact)
	}
	defer func() { _ = out.Close() }()

	absArtifact, err := filepath.Abs(artifact)
	if err != nil {
		return 0, errors.Wrap(err, "resolving artifact path")
	}

	zw := zip.NewWriter(out)
	count := 0
	walkErr := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] && path != sourceDir {
				return filepath.SkipDir
			}
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		// The artifact must never nest itself.
		if abs == absArtifact {
			return nil
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		// .env reaches the site through app settings, never the artifact.
		if name == ".env" {
			return nil
		}

		return addFile(zw, path, name, &count)
	})
	if walkErr != nil {
		_ = zw.Close()
		return 0, errors.Wrap(walkErr, "walking source dir")
	}
	if err := zw.Close(); err != nil {
		return 0, errors.Wrap(err, "finalizing artifact")
	}

	log.Infof("packaged %d files from %s into %s", count, sourceDir, artifact)
	return count, nil
}

func addFile(zw *zip.Writer, path, name string, count *int) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer func() { _ = f.Close() }()

	w, err := zw.Create(name)
	if err != nil {
		return errors.Wrapf(err, "adding %s to archive", name)
	}
	if _, err := io.Copy(w, f); err != nil {
		return errors.Wrapf(err, "writing %s to archive", name)
	}
	*count++
	return nil
}
