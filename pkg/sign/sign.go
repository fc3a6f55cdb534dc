// Package sign authenticates a serialized screenshot. The HMAC covers the
// whole file as written with the placeholder note, then the note is
// overwritten in place with one carrying the digest prefix. Only those 16
// bytes change, so the verifier can zero them and recompute.
package sign

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"

	cfg "github.com/1F47E/go-albumsign/pkg/config"
	"github.com/1F47E/go-albumsign/pkg/logger"
	"github.com/1F47E/go-albumsign/pkg/meta"
)

var (
	ErrPatchTargetNotFound  = errors.New("placeholder note not found")
	ErrAmbiguousPlaceholder = errors.New("placeholder note occurs more than once")
	ErrDigestMismatch       = errors.New("digest mismatch")
)

type Signer struct {
	secret []byte
}

func New(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: hmac secret, set %s or use a key file", cfg.ErrMissingKeyMaterial, cfg.EnvHMACSecret)
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &Signer{secret: s}, nil
}

// Digest is HMAC-SHA256 over data.
func (s *Signer) Digest(data []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)
	return mac.Sum(nil)
}

// Locate returns the offset of the only occurrence of placeholder in image.
func Locate(image []byte, placeholder meta.Note) (int, error) {
	idx := bytes.Index(image, placeholder[:])
	if idx < 0 {
		return 0, ErrPatchTargetNotFound
	}
	if again := bytes.Index(image[idx+1:], placeholder[:]); again >= 0 {
		return 0, fmt.Errorf("%w: at %d and %d", ErrAmbiguousPlaceholder, idx, idx+1+again)
	}
	return idx, nil
}

// Sign returns a copy of image with the placeholder replaced by the final
// note, and the offset it was written at. The length never changes.
func (s *Signer) Sign(image []byte, placeholder meta.Note) ([]byte, int, error) {
	log := logger.Log.WithField("scope", "sign")

	at, err := Locate(image, placeholder)
	if err != nil {
		return nil, 0, err
	}
	digest := s.Digest(image)
	note := placeholder.WithDigest(digest)
	log.Debugf("note at %d, digest %x", at, digest[:meta.DigestSize])

	out := make([]byte, len(image))
	copy(out, image)
	copy(out[at:], note[:])
	return out, at, nil
}

// Verify repeats the album app's check on a signed file and returns the
// note it found.
func (s *Signer) Verify(signed []byte) (meta.Note, error) {
	at, note, err := meta.FindNote(signed)
	if err != nil {
		return note, err
	}
	unsigned := make([]byte, len(signed))
	copy(unsigned, signed)
	placeholder := note.Placeholder()
	copy(unsigned[at:], placeholder[:])

	digest := s.Digest(unsigned)
	if !hmac.Equal(digest[:meta.DigestSize], note.Digest()) {
		return note, ErrDigestMismatch
	}
	return note, nil
}
