package service

import (
	"bytes"
	"context"
	"io"
	"strconv"

	"github.com/google/uuid"

	"github.com/iliyamo/event-platform/internal/storage"
)

var imageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

var documentTypes = append([]string{"application/pdf"}, imageTypes...)

// Upload is a file received from a client.
type Upload struct {
	Name string
	Body io.Reader
}

// readUpload buffers at most limit bytes of u and sniffs the content
// type.  Files over limit and types outside allowed are rejected.
func readUpload(u Upload, limit int64, allowed []string) (storage.Sniffed, int64, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(u.Body, limit+1))
	if err != nil {
		return storage.Sniffed{}, 0, err
	}
	if n > limit {
		return storage.Sniffed{}, 0, ErrFileTooLarge
	}
	if n == 0 {
		return storage.Sniffed{}, 0, ErrUnsupportedMedia
	}
	sn, err := storage.Sniff(&buf)
	if err != nil {
		return storage.Sniffed{}, 0, err
	}
	if !sn.Is(allowed...) {
		return storage.Sniffed{}, 0, ErrUnsupportedMedia
	}
	return sn, n, nil
}

// uuidName returns "<prefix><uuid>.<ext>".
func uuidName(prefix, ext string) string {
	return prefix + uuid.NewString() + "." + ext
}

// putObject stores a sniffed upload.
func putObject(ctx context.Context, st storage.Store, bucket, path string, sn storage.Sniffed) (storage.Object, error) {
	return st.Upload(ctx, bucket, path, sn.Body, sn.MIME)
}

func uintStr(v uint64) string { return strconv.FormatUint(v, 10) }
