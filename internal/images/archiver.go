// Package images downloads product images once, on first discovery, and
// archives them in a blob store.
package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"
)

// BlobStore persists one image blob and returns its URI. Satisfied by the
// gcs, local and memory storage backends.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Archiver fetches an image over HTTP and hands it to a BlobStore.
type Archiver struct {
	client *http.Client
	blobs  BlobStore
	prefix string
	logger *zap.Logger
}

// New builds an Archiver. prefix is prepended to every object path, e.g.
// "images".
func New(client *http.Client, blobs BlobStore, prefix string, logger *zap.Logger) *Archiver {
	if prefix == "" {
		prefix = "images"
	}
	return &Archiver{
		client: client,
		blobs:  blobs,
		prefix: prefix,
		logger: logger,
	}
}

// Archive downloads imageURL and stores it under <prefix>/<productID><ext>,
// returning the blob URI.
func (a *Archiver) Archive(ctx context.Context, productID, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch image %s: unexpected status %d", imageURL, resp.StatusCode)
	}

	objectPath := a.prefix + "/" + productID + extension(imageURL)
	uri, err := a.blobs.PutObject(ctx, objectPath, resp.Header.Get("Content-Type"), resp.Body)
	if err != nil {
		return "", fmt.Errorf("store image for %s: %w", productID, err)
	}

	a.logger.Debug("archived product image",
		zap.String("product_id", productID),
		zap.String("uri", uri),
	)
	return uri, nil
}

// extension pulls the file extension off the URL path, defaulting to .jpg
// when the path carries none.
func extension(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ".jpg"
	}
	if ext := path.Ext(u.Path); ext != "" && !strings.Contains(ext, "/") {
		return ext
	}
	return ".jpg"
}
