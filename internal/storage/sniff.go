package storage

import (
	"bytes"
	"errors"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

const sniffLen = 3072

// Sniffed is an upload whose content type was detected from its bytes.
// Body replays the sniffed header followed by the rest of the stream.
type Sniffed struct {
	MIME      string
	Extension string // without the leading dot
	Body      io.Reader

	m *mimetype.MIME
}

// Sniff detects the content type of r from its first bytes.  The
// client-declared Content-Type is never trusted.
func Sniff(r io.Reader) (Sniffed, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Sniffed{}, err
	}
	head = head[:n]
	m := mimetype.Detect(head)
	ext := m.Extension()
	if len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}
	return Sniffed{
		MIME:      m.String(),
		Extension: ext,
		Body:      io.MultiReader(bytes.NewReader(head), r),
		m:         m,
	}, nil
}

// Is reports whether the sniffed type is one of mimes (parameters such
// as charset are ignored).
func (s Sniffed) Is(mimes ...string) bool {
	if s.m == nil {
		return false
	}
	for _, want := range mimes {
		if s.m.Is(want) {
			return true
		}
	}
	return false
}
