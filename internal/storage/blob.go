package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/shelfeng/skiaicoach/internal/options"
)

// Blob stores uploads in an Azure Blob Storage container. Authentication is
// either the site's managed identity (account URL configured) or a shared-key
// connection string.
type Blob struct {
	container azblob.ContainerURL
	tempDir   string
}

// NewBlob connects to the configured container, creating it if needed.
func NewBlob(ctx context.Context, opts options.StorageOptions, tempDir string) (*Blob, error) {
	serviceURL, err := serviceURL(ctx, opts)
	if err != nil {
		return nil, err
	}

	container := serviceURL.NewContainerURL(opts.Container)
	if err := ensureContainer(ctx, container); err != nil {
		return nil, err
	}

	return &Blob{container: container, tempDir: tempDir}, nil
}

func serviceURL(ctx context.Context, opts options.StorageOptions) (azblob.ServiceURL, error) {
	// Managed identity first, matching the deployed configuration where the
	// App Service identity holds the Storage Blob Data Contributor role.
	if opts.AccountURL != "" {
		log.Infof("using Azure managed identity with URL %s", opts.AccountURL)
		u, err := url.Parse(opts.AccountURL)
		if err != nil {
			return azblob.ServiceURL{}, errors.Wrap(err, "parsing storage account URL")
		}
		credential, err := newManagedIdentityCredential(ctx)
		if err != nil {
			return azblob.ServiceURL{}, err
		}
		pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})
		return azblob.NewServiceURL(*u, pipeline), nil
	}

	log.Info("using Azure storage connection string")
	account, err := parseConnectionString(opts.ConnectionString)
	if err != nil {
		return azblob.ServiceURL{}, err
	}
	credential, err := azblob.NewSharedKeyCredential(account.Name, account.Key)
	if err != nil {
		return azblob.ServiceURL{}, errors.Wrap(err, "building shared key credential")
	}
	u, err := url.Parse(account.BlobEndpoint())
	if err != nil {
		return azblob.ServiceURL{}, errors.Wrap(err, "parsing blob endpoint")
	}
	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})
	return azblob.NewServiceURL(*u, pipeline), nil
}

func ensureContainer(ctx context.Context, container azblob.ContainerURL) error {
	_, err := container.Create(ctx, azblob.Metadata{}, azblob.PublicAccessNone)
	if err == nil {
		log.Infof("created container %s", container.String())
		return nil
	}
	var stgErr azblob.StorageError
	if errors.As(err, &stgErr) &&
		stgErr.ServiceCode() == azblob.ServiceCodeContainerAlreadyExists {
		return nil
	}
	return errors.Wrap(err, "ensuring blob container")
}

// Name implements Store.
func (b *Blob) Name() string { return "azure" }

// Save implements Store. The returned reference is the blob name.
func (b *Blob) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	blobName := path.Base(name)
	blobURL := b.container.NewBlockBlobURL(blobName)
	_, err := azblob.UploadStreamToBlockBlob(ctx, r, blobURL, azblob.UploadStreamToBlockBlobOptions{
		BufferSize: 4 * 1024 * 1024,
		MaxBuffers: 4,
	})
	if err != nil {
		return "", errors.Wrapf(err, "uploading blob %s", blobName)
	}
	return blobName, nil
}

// Fetch implements Store. The blob is downloaded to a temp file; cleanup
// removes it.
func (b *Blob) Fetch(ctx context.Context, ref string) (string, func(), error) {
	if err := os.MkdirAll(b.tempDir, 0o755); err != nil {
		return "", func() {}, errors.Wrap(err, "creating temp dir")
	}

	ext := filepath.Ext(ref)
	if ext == "" {
		ext = ".mp4"
	}
	f, err := os.CreateTemp(b.tempDir, "download_*"+ext)
	if err != nil {
		return "", func() {}, errors.Wrap(err, "creating temp file")
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	log.Infof("downloading blob %s to %s", ref, f.Name())
	blobURL := b.container.NewBlockBlobURL(ref)
	resp, err := blobURL.Download(ctx, 0, azblob.CountToEnd,
		azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		_ = f.Close()
		cleanup()
		return "", func() {}, errors.Wrapf(err, "downloading blob %s", ref)
	}
	body := resp.Body(azblob.RetryReaderOptions{MaxRetryRequests: 3})
	defer func() { _ = body.Close() }()

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		cleanup()
		return "", func() {}, errors.Wrapf(err, "writing blob %s", ref)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, errors.Wrap(err, "closing downloaded blob")
	}
	return f.Name(), cleanup, nil
}

// connectionAccount is the subset of a storage connection string we need.
type connectionAccount struct {
	Name           string
	Key            string
	EndpointSuffix string
}

// BlobEndpoint returns the account's blob service endpoint.
func (c connectionAccount) BlobEndpoint() string {
	return fmt.Sprintf("https://%s.blob.%s", c.Name, c.EndpointSuffix)
}

// parseConnectionString extracts the account name and key from an Azure
// storage connection string of the usual `Key=Value;…` form.
func parseConnectionString(cs string) (connectionAccount, error) {
	account := connectionAccount{EndpointSuffix: "core.windows.net"}
	for _, part := range strings.Split(cs, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "AccountName":
			account.Name = kv[1]
		case "AccountKey":
			account.Key = kv[1]
		case "EndpointSuffix":
			account.EndpointSuffix = kv[1]
		}
	}
	if account.Name == "" || account.Key == "" {
		return connectionAccount{}, errors.New(
			"connection string is missing AccountName or AccountKey")
	}
	return account, nil
}
