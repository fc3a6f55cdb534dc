package core

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/1F47E/go-albumsign/pkg/imaging"
	"github.com/1F47E/go-albumsign/pkg/jpegseg"
	"github.com/1F47E/go-albumsign/pkg/logger"
	"github.com/1F47E/go-albumsign/pkg/meta"
	"github.com/1F47E/go-albumsign/pkg/storage"
)

// ErrNoteMisplaced means the placeholder was found, but not where the Exif
// layout put it.
var ErrNoteMisplaced = errors.New("maker note is not at its laid out offset")

// compose renders src and inserts the Exif block with the placeholder note.
// at is where the note has to sit in the returned stream.
func (c *Core) compose(src image.Image, t time.Time) (unsigned []byte, note meta.Note, at int, err error) {
	r, err := imaging.Render(src)
	if err != nil {
		return nil, note, 0, err
	}
	block, err := meta.Build(meta.Fields{
		Time:      t,
		Thumbnail: r.Thumbnail,
		Identity:  c.identity,
	})
	if err != nil {
		return nil, note, 0, err
	}
	unsigned, payloadAt, err := jpegseg.InsertExif(r.Image, block.Payload)
	if err != nil {
		return nil, note, 0, err
	}
	return unsigned, block.Note, payloadAt + block.NoteOffset, nil
}

// Screenshot returns the signed JPEG for src taken at t.
func (c *Core) Screenshot(src image.Image, t time.Time) ([]byte, error) {
	unsigned, note, want, err := c.compose(src, t)
	if err != nil {
		return nil, err
	}
	signed, at, err := c.signer.Sign(unsigned, note)
	if err != nil {
		return nil, err
	}
	if err := notePlaced(at, want); err != nil {
		return nil, err
	}
	return signed, nil
}

func notePlaced(at, want int) error {
	if at != want {
		return fmt.Errorf("%w: found at %d, laid out at %d", ErrNoteMisplaced, at, want)
	}
	return nil
}

// SignFile runs the whole pipeline for one input and writes slot.Path.
func (c *Core) SignFile(file string, slot storage.Slot) error {
	log := logger.Log.WithField("scope", "core sign").WithField("file", file)

	src, err := imaging.DecodeFile(file)
	if err != nil {
		return err
	}
	signed, err := c.Screenshot(src, slot.Time)
	if err != nil {
		return err
	}
	if err := storage.WriteFile(slot.Path, signed); err != nil {
		return err
	}
	log.Debugf("wrote %d bytes to %s", len(signed), slot.Path)
	return nil
}
