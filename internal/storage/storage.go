// Package storage abstracts where uploaded videos live: the local upload
// directory, or an Azure Blob Storage container.
package storage

import (
	"context"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/shelfeng/skiaicoach/internal/options"
)

// Store saves uploaded videos and makes them available as local files for
// processing.
type Store interface {
	// Name identifies the backend for logging.
	Name() string
	// Save persists the upload under the given object name and returns the
	// reference used to fetch it later.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	// Fetch makes the referenced video available as a local file. The
	// returned cleanup removes any temporary copy and is always safe to call.
	Fetch(ctx context.Context, ref string) (string, func(), error)
}

// New selects the storage backend from the options. An incomplete Azure
// configuration falls back to local storage rather than failing the server.
func New(ctx context.Context, opts *options.Options) Store {
	if !opts.Storage.UseAzure {
		return NewLocal(opts.UploadDir)
	}

	blob, err := NewBlob(ctx, opts.Storage, opts.TempDir)
	if err != nil {
		log.WithError(err).Error("failed to initialize Azure Blob Storage; using local storage")
		return NewLocal(opts.UploadDir)
	}
	return blob
}
