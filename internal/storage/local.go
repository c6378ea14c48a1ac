package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Local stores uploads in a directory on disk.
type Local struct {
	dir string
}

// NewLocal returns a local store rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

// Name implements Store.
func (l *Local) Name() string { return "local" }

// Save implements Store. The returned reference is the path of the saved
// file.
func (l *Local) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating upload dir")
	}

	path := filepath.Join(l.dir, filepath.Base(name))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "creating %s", path)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(path)
		return "", errors.Wrapf(err, "writing %s", path)
	}
	return path, nil
}

// Fetch implements Store. Local files are processed in place, so there is
// nothing to copy or clean up.
func (l *Local) Fetch(ctx context.Context, ref string) (string, func(), error) {
	if _, err := os.Stat(ref); err != nil {
		return "", func() {}, errors.Wrapf(err, "upload %s not found", ref)
	}
	return ref, func() {}, nil
}
