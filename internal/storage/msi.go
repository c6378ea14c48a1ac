package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	storageResource = "https://storage.azure.com/"

	// imdsTokenURL is the instance metadata token endpoint used outside App
	// Service (VMs and VM scale sets).
	imdsTokenURL = "http://169.254.169.254/metadata/identity/oauth2/token"

	appServiceAPIVersion = "2019-08-01"
	imdsAPIVersion       = "2018-02-01"
)

// newManagedIdentityCredential returns a token credential that authenticates
// with the environment's managed identity and refreshes itself before expiry.
// App Service exposes IDENTITY_ENDPOINT/IDENTITY_HEADER; elsewhere the IMDS
// endpoint is used.
func newManagedIdentityCredential(ctx context.Context) (azblob.TokenCredential, error) {
	token, _, err := fetchManagedIdentityToken(ctx)
	if err != nil {
		return nil, err
	}

	refresher := func(credential azblob.TokenCredential) time.Duration {
		token, ttl, err := fetchManagedIdentityToken(context.Background())
		if err != nil {
			log.WithError(err).Error("failed to refresh managed identity token")
			return time.Minute
		}
		credential.SetToken(token)
		return refreshAfter(ttl)
	}
	return azblob.NewTokenCredential(token, refresher), nil
}

// refreshAfter leaves a safety margin before the token actually expires.
func refreshAfter(ttl time.Duration) time.Duration {
	if ttl > 10*time.Minute {
		return ttl - 5*time.Minute
	}
	return ttl / 2
}

type identityTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

func fetchManagedIdentityToken(ctx context.Context) (string, time.Duration, error) {
	endpoint := os.Getenv("IDENTITY_ENDPOINT")
	header := os.Getenv("IDENTITY_HEADER")

	var req *http.Request
	var err error
	if endpoint != "" && header != "" {
		req, err = identityRequest(ctx, endpoint, appServiceAPIVersion)
		if err != nil {
			return "", 0, err
		}
		req.Header.Set("X-IDENTITY-HEADER", header)
	} else {
		req, err = identityRequest(ctx, imdsTokenURL, imdsAPIVersion)
		if err != nil {
			return "", 0, err
		}
		req.Header.Set("Metadata", "true")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", 0, errors.Wrap(err, "requesting managed identity token")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, errors.Wrap(err, "reading managed identity token response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, errors.Errorf("managed identity endpoint returned %s", resp.Status)
	}

	var tok identityTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", 0, errors.Wrap(err, "decoding managed identity token")
	}
	if tok.AccessToken == "" {
		return "", 0, errors.New("managed identity endpoint returned an empty token")
	}

	ttl := time.Hour
	if d, err := time.ParseDuration(tok.ExpiresIn + "s"); err == nil && d > 0 {
		ttl = d
	}
	return tok.AccessToken, ttl, nil
}

func identityRequest(ctx context.Context, endpoint, apiVersion string) (*http.Request, error) {
	query := url.Values{}
	query.Set("resource", storageResource)
	query.Set("api-version", apiVersion)

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "building managed identity token request")
	}
	return req, nil
}
