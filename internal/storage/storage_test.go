package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestFSStore_UploadOpenRemove(t *testing.T) {
	root := t.TempDir()
	s, err := NewFSStore(root, "/storage/")
	require.NoError(t, err)
	ctx := context.Background()

	obj, err := s.Upload(ctx, BucketAvatars, "7_1700000000000_ab12.png", bytes.NewReader(tinyPNG), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/storage/profile/avatars/7_1700000000000_ab12.png", obj.URL)
	assert.Equal(t, int64(len(tinyPNG)), obj.Size)
	assert.FileExists(t, filepath.Join(root, "profile", "avatars", "7_1700000000000_ab12.png"))

	rc, err := s.Open(ctx, BucketAvatars, "7_1700000000000_ab12.png")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, tinyPNG, got)

	require.NoError(t, s.Remove(ctx, BucketAvatars, "7_1700000000000_ab12.png", "missing.png"))
	_, err = os.Stat(filepath.Join(root, "profile", "avatars", "7_1700000000000_ab12.png"))
	assert.True(t, os.IsNotExist(err))

	_, err = s.Open(ctx, BucketAvatars, "7_1700000000000_ab12.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFSStore_RejectsTraversal(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "/storage")
	require.NoError(t, err)
	ctx := context.Background()

	for _, p := range []string{"../escape.txt", "a/../../b", "/etc/passwd", "", "a//b"} {
		_, err := s.Upload(ctx, BucketSuppliers, p, bytes.NewReader(nil), "text/plain")
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}
}

func TestFSStore_PrivateBucketHasNoURL(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "/storage")
	require.NoError(t, err)
	obj, err := s.Upload(context.Background(), BucketPartnerDocs, "3/doc.pdf", bytes.NewReader([]byte("%PDF-1.4")), "application/pdf")
	require.NoError(t, err)
	assert.Empty(t, obj.URL)
	assert.Equal(t, "/storage/suppliers/3/x.png", s.PublicURL(BucketSuppliers, "3/x.png"))
}

func TestSplitPublic(t *testing.T) {
	b, p, ok := SplitPublic("/profile/avatars/1_2_3.png")
	assert.True(t, ok)
	assert.Equal(t, BucketAvatars, b)
	assert.Equal(t, "1_2_3.png", p)

	b, p, ok = SplitPublic("event_planner/venues/4/x.jpg")
	assert.True(t, ok)
	assert.Equal(t, BucketEventPlanner, b)
	assert.Equal(t, "venues/4/x.jpg", p)

	_, _, ok = SplitPublic("partner-documents/1/x.pdf")
	assert.False(t, ok)
}

func TestSniff(t *testing.T) {
	sn, err := Sniff(bytes.NewReader(tinyPNG))
	require.NoError(t, err)
	assert.Equal(t, "image/png", sn.MIME)
	assert.Equal(t, "png", sn.Extension)
	assert.True(t, sn.Is("image/jpeg", "image/png"))
	assert.False(t, sn.Is("application/pdf"))

	body, err := io.ReadAll(sn.Body)
	require.NoError(t, err)
	assert.Equal(t, tinyPNG, body)

	sn, err = Sniff(bytes.NewReader([]byte("%PDF-1.7\n%âãÏÓ\n")))
	require.NoError(t, err)
	assert.True(t, sn.Is("application/pdf"))
	assert.Equal(t, "pdf", sn.Extension)
}
