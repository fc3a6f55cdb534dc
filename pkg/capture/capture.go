// Package capture derives the capture identity the album uses to group
// screenshots by title.
package capture

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	cfg "github.com/1F47E/go-albumsign/pkg/config"
)

// Size of a title ID and of the derived capture ID, one AES block.
const Size = aes.BlockSize

var (
	ErrInvalidIdentifierLength = errors.New("title ID has invalid length")
	ErrInvalidIdentifier       = errors.New("title ID is not hex")
)

// ID is the 16 byte capture identity embedded in the MakerNote and the file name.
type ID [Size]byte

// String renders the ID the way it appears in file names.
func (id ID) String() string {
	return strings.ToUpper(hex.EncodeToString(id[:]))
}

// ParseTitleID pads s with 16 zero digits and decodes the result, which has
// to be exactly 32 hex characters. So a 16 digit title ID is the only valid
// input. Empty s selects the home menu.
func ParseTitleID(s string) ([Size]byte, error) {
	var out [Size]byte
	if s == "" {
		s = cfg.DefaultTitleID
	}
	padded := strings.Repeat("0", 16) + s
	if len(padded) != 2*Size {
		return out, fmt.Errorf("%w: %q pads to %d hex digits, want %d", ErrInvalidIdentifierLength, s, len(padded), 2*Size)
	}
	if _, err := hex.Decode(out[:], []byte(padded)); err != nil {
		return out, fmt.Errorf("%w: %q: %w", ErrInvalidIdentifier, s, err)
	}
	return out, nil
}

// Cipher is AES keyed with the capture key.
type Cipher struct {
	block cipher.Block
}

func NewCipher(key []byte) (*Cipher, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: capture key, set %s or use a key file", cfg.ErrMissingKeyMaterial, cfg.EnvCaptureKey)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: capture key: %w", cfg.ErrConfiguration, err)
	}
	return &Cipher{block: block}, nil
}

// Derive encrypts the byte-reversed title ID as a single ECB block.
func (c *Cipher) Derive(titleID [Size]byte) ID {
	var in [Size]byte
	for i := range titleID {
		in[Size-1-i] = titleID[i]
	}
	var id ID
	c.block.Encrypt(id[:], in[:])
	return id
}

// FromTitleID is ParseTitleID followed by Derive.
func (c *Cipher) FromTitleID(s string) (ID, error) {
	tid, err := ParseTitleID(s)
	if err != nil {
		return ID{}, err
	}
	return c.Derive(tid), nil
}
