// Package storage implements the asset upload gateway: profile images are
// handed over as staged local files and come back as durable public URLs.
// The gateway always consumes the local file it is given, whether the
// upload succeeds or fails.
package storage

import (
	"context"
	"net/url"
	"strings"
)

// UploadResult describes a stored asset.
type UploadResult struct {
	Key string
	URL string
}

// Gateway is the asset-store contract used by the session flows.
type Gateway interface {
	// Upload stores the file at localPath and returns its public URL.
	// The local file is deleted after the attempt regardless of outcome.
	Upload(ctx context.Context, localPath string) (*UploadResult, error)

	// Remove deletes a stored object by key. Used for orphan cleanup and
	// avatar replacement; failures are reported but callers treat them as
	// non-fatal.
	Remove(ctx context.Context, key string) error
}

// KeyFromURL recovers the object key from a stored asset URL, given the
// bucket the URL was built for. Returns "" when the URL does not point into
// that bucket.
func KeyFromURL(assetURL, bucket string) string {
	u, err := url.Parse(assetURL)
	if err != nil {
		return ""
	}

	path := strings.TrimPrefix(u.Path, "/")
	prefix := bucket + "/"
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	return strings.TrimPrefix(path, prefix)
}
