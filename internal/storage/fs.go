package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FSStore keeps objects as files under root/<bucket>/<path>.
type FSStore struct {
	root      string
	publicURL string
}

// NewFSStore creates root if needed.  publicURL is the prefix under which
// public buckets are served (e.g. "/storage").
func NewFSStore(root, publicURL string) (*FSStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FSStore{root: abs, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *FSStore) resolve(bucket, p string) (string, error) {
	if bucket == "" || p == "" || strings.HasPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	clean := path.Clean(bucket + "/" + p)
	if clean != bucket+"/"+p || strings.Contains(clean, "..") {
		return "", ErrInvalidPath
	}
	full := filepath.Join(s.root, filepath.FromSlash(clean))
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return full, nil
}

// Upload writes r to a temp file next to the target and renames it into
// place, so readers never see a partial object.
func (s *FSStore) Upload(ctx context.Context, bucket, p string, r io.Reader, contentType string) (Object, error) {
	full, err := s.resolve(bucket, p)
	if err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return Object{}, err
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return Object{}, err
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return Object{}, err
	}
	return Object{
		Bucket:      bucket,
		Path:        p,
		URL:         s.PublicURL(bucket, p),
		ContentType: contentType,
		Size:        n,
	}, nil
}

// Open returns the object contents.
func (s *FSStore) Open(_ context.Context, bucket, p string) (io.ReadCloser, error) {
	full, err := s.resolve(bucket, p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// PublicURL returns the URL of an object in a public bucket and "" for
// private buckets.
func (s *FSStore) PublicURL(bucket, p string) string {
	if !IsPublic(bucket) {
		return ""
	}
	return s.publicURL + "/" + bucket + "/" + p
}

// Remove deletes objects; missing ones are ignored.
func (s *FSStore) Remove(_ context.Context, bucket string, paths ...string) error {
	var errs []error
	for _, p := range paths {
		full, err := s.resolve(bucket, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
