// Package storage implements the bucket/path object store used for
// avatars, gallery images and partner documents.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Buckets known to the platform.
const (
	BucketEventPlanner = "event_planner"
	BucketAvatars      = "profile/avatars"
	BucketSuppliers    = "suppliers"
	BucketPartnerDocs  = "partner-documents"
)

var (
	// ErrInvalidPath is returned for empty, absolute or escaping paths.
	ErrInvalidPath = errors.New("invalid object path")
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object not found")
)

// Object describes a stored file.
type Object struct {
	Bucket      string `json:"bucket"`
	Path        string `json:"path"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Store is the object storage boundary.
type Store interface {
	Upload(ctx context.Context, bucket, path string, r io.Reader, contentType string) (Object, error)
	Open(ctx context.Context, bucket, path string) (io.ReadCloser, error)
	PublicURL(bucket, path string) string
	Remove(ctx context.Context, bucket string, paths ...string) error
}

// IsPublic reports whether objects of bucket may be served without auth.
func IsPublic(bucket string) bool {
	switch bucket {
	case BucketEventPlanner, BucketAvatars, BucketSuppliers:
		return true
	}
	return false
}

var publicBuckets = []string{BucketAvatars, BucketEventPlanner, BucketSuppliers}

// SplitPublic splits "<bucket>/<path>" for a public bucket.  Bucket
// names may contain a slash, so the known names are matched as prefixes.
func SplitPublic(p string) (bucket, path string, ok bool) {
	p = strings.TrimPrefix(p, "/")
	for _, b := range publicBuckets {
		if rest, found := strings.CutPrefix(p, b+"/"); found && rest != "" {
			return b, rest, true
		}
	}
	return "", "", false
}
