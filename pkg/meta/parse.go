package meta

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	cfg "github.com/1F47E/go-albumsign/pkg/config"
	"github.com/1F47E/go-albumsign/pkg/jpegseg"
)

var ErrNoteNotFound = errors.New("maker note not found")

// Info is what Read recovers from a signed screenshot.
type Info struct {
	Make      string
	DateTime  time.Time
	Width     uint32
	Height    uint32
	Thumbnail []byte
	Note      Note
	// NoteOffset is the position of the note in the whole JPEG stream.
	NoteOffset int
}

type rawEntry struct {
	typ   uint16
	count uint32
	// offset of the value relative to the TIFF header
	at int
}

type reader struct {
	tiff  []byte
	order binary.ByteOrder
}

// dir reads the IFD at offset at. The returned int is where its next-IFD
// link would sit.
func (r *reader) dir(at int) (map[uint16]rawEntry, int, error) {
	if at < tiffHeaderSize || at+2 > len(r.tiff) {
		return nil, 0, fmt.Errorf("IFD offset %d out of range", at)
	}
	n := int(r.order.Uint16(r.tiff[at:]))
	if at+2+n*entrySize > len(r.tiff) {
		return nil, 0, fmt.Errorf("IFD at %d overruns block", at)
	}
	entries := make(map[uint16]rawEntry, n)
	for i := 0; i < n; i++ {
		pos := at + 2 + i*entrySize
		e := rawEntry{
			typ:   r.order.Uint16(r.tiff[pos+2:]),
			count: r.order.Uint32(r.tiff[pos+4:]),
			at:    pos + 8,
		}
		size, ok := typeSize[e.typ]
		if !ok {
			continue
		}
		if e.count > uint32(len(r.tiff)) {
			return nil, 0, fmt.Errorf("tag 0x%04X count %d out of range", r.order.Uint16(r.tiff[pos:]), e.count)
		}
		if size*int(e.count) > 4 {
			e.at = int(r.order.Uint32(r.tiff[pos+8:]))
		}
		if e.at+size*int(e.count) > len(r.tiff) {
			return nil, 0, fmt.Errorf("value of tag 0x%04X overruns block", r.order.Uint16(r.tiff[pos:]))
		}
		entries[r.order.Uint16(r.tiff[pos:])] = e
	}
	return entries, at + 2 + n*entrySize, nil
}

func (r *reader) bytes(e rawEntry) []byte {
	return r.tiff[e.at : e.at+typeSize[e.typ]*int(e.count)]
}

func (r *reader) long(e rawEntry) uint32 {
	if e.typ == typeShort {
		return uint32(r.order.Uint16(r.tiff[e.at:]))
	}
	return r.order.Uint32(r.tiff[e.at:])
}

func (r *reader) ascii(e rawEntry) string {
	b := r.bytes(e)
	if len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b)
}

// Read parses the Exif block of a JPEG written by Build. It understands
// only the fields Build emits.
func Read(jpeg []byte) (*Info, error) {
	payload, at, err := jpegseg.FindExif(jpeg)
	if err != nil {
		return nil, err
	}
	hdr := len(jpegseg.ExifHeader)
	r := &reader{tiff: payload[hdr:]}
	if len(r.tiff) < tiffHeaderSize {
		return nil, errors.New("short TIFF header")
	}
	switch string(r.tiff[:2]) {
	case "MM":
		r.order = binary.BigEndian
	case "II":
		r.order = binary.LittleEndian
	default:
		return nil, errors.New("bad TIFF byte order")
	}

	zerothAt := int(r.order.Uint32(r.tiff[4:]))
	zeroth, linkAt, err := r.dir(zerothAt)
	if err != nil {
		return nil, fmt.Errorf("0th IFD: %w", err)
	}
	info := &Info{}
	if e, ok := zeroth[TagMake]; ok {
		info.Make = r.ascii(e)
	}
	if e, ok := zeroth[TagDateTime]; ok {
		if info.DateTime, err = time.ParseInLocation(cfg.DateTimeFormat, r.ascii(e), time.Local); err != nil {
			return nil, fmt.Errorf("DateTime: %w", err)
		}
	}

	ptr, ok := zeroth[TagExifIFD]
	if !ok {
		return nil, fmt.Errorf("%w: no Exif IFD", ErrNoteNotFound)
	}
	exif, _, err := r.dir(int(r.long(ptr)))
	if err != nil {
		return nil, fmt.Errorf("Exif IFD: %w", err)
	}
	if e, ok := exif[TagPixelXDimension]; ok {
		info.Width = r.long(e)
	}
	if e, ok := exif[TagPixelYDimension]; ok {
		info.Height = r.long(e)
	}
	mn, ok := exif[TagMakerNote]
	if !ok {
		return nil, ErrNoteNotFound
	}
	if info.Note, err = ParseNote(r.bytes(mn)); err != nil {
		return nil, err
	}
	info.NoteOffset = at + hdr + mn.at

	// 1st IFD follows the 0th through its link
	if linkAt+4 <= len(r.tiff) {
		if next := int(r.order.Uint32(r.tiff[linkAt:])); next != 0 {
			first, _, err := r.dir(next)
			if err != nil {
				return nil, fmt.Errorf("1st IFD: %w", err)
			}
			off, okOff := first[TagJPEGIF]
			n, okLen := first[TagJPEGIFLength]
			if okOff && okLen {
				start, size := int(r.long(off)), int(r.long(n))
				if start+size > len(r.tiff) {
					return nil, errors.New("thumbnail overruns block")
				}
				info.Thumbnail = r.tiff[start : start+size]
			}
		}
	}
	return info, nil
}

// FindNote returns the offset of the MakerNote in jpeg and its content.
func FindNote(jpeg []byte) (int, Note, error) {
	info, err := Read(jpeg)
	if err != nil {
		return 0, Note{}, err
	}
	return info.NoteOffset, info.Note, nil
}
