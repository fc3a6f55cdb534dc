package meta

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/1F47E/go-albumsign/pkg/capture"
)

// MakerNote layout:
//
//	[0:8]   header        00 00 00 00 00 00 10 00
//	[8:24]  digest        HMAC-SHA256 prefix, zero in the placeholder
//	[24:28] tail          01 00 10 00
//	[28:44] capture ID
const (
	NoteSize       = 44
	DigestSize     = 16
	digestOffset   = 8
	tailOffset     = digestOffset + DigestSize
	identityOffset = tailOffset + 4
)

var (
	noteHeader = []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00}
	noteTail   = []byte{0x01, 0x00, 0x10, 0x00}
)

var ErrBadNote = errors.New("malformed maker note")

// Note is the vendor MakerNote.
type Note [NoteSize]byte

// NewPlaceholderNote returns the note as it is serialized before signing.
func NewPlaceholderNote(id capture.ID) Note {
	var n Note
	copy(n[:], noteHeader)
	copy(n[tailOffset:], noteTail)
	copy(n[identityOffset:], id[:])
	return n
}

// ParseNote checks the constant parts of b and copies it into a Note.
func ParseNote(b []byte) (Note, error) {
	var n Note
	if len(b) != NoteSize {
		return n, fmt.Errorf("%w: %d bytes, want %d", ErrBadNote, len(b), NoteSize)
	}
	if !bytes.Equal(b[:digestOffset], noteHeader) || !bytes.Equal(b[tailOffset:identityOffset], noteTail) {
		return n, fmt.Errorf("%w: unexpected header or tail", ErrBadNote)
	}
	copy(n[:], b)
	return n, nil
}

// WithDigest returns a copy carrying the first DigestSize bytes of digest.
func (n Note) WithDigest(digest []byte) Note {
	if len(digest) < DigestSize {
		panic(fmt.Sprintf("meta: digest too short: %d bytes", len(digest)))
	}
	copy(n[digestOffset:tailOffset], digest[:DigestSize])
	return n
}

// Placeholder returns a copy with the digest region zeroed.
func (n Note) Placeholder() Note {
	clear(n[digestOffset:tailOffset])
	return n
}

func (n Note) Digest() []byte {
	d := make([]byte, DigestSize)
	copy(d, n[digestOffset:tailOffset])
	return d
}

func (n Note) Identity() capture.ID {
	var id capture.ID
	copy(id[:], n[identityOffset:])
	return id
}

func (n Note) Bytes() []byte {
	b := make([]byte, NoteSize)
	copy(b, n[:])
	return b
}
