// Package meta builds the Exif block the album app checks and reads it back.
//
// The block is laid out by hand: every IFD, value area and the thumbnail get
// a known offset before a single byte is written, so the MakerNote position
// is a computed fact rather than something found by searching.
package meta

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/1F47E/go-albumsign/pkg/capture"
	cfg "github.com/1F47E/go-albumsign/pkg/config"
	"github.com/1F47E/go-albumsign/pkg/jpegseg"
)

// TIFF field types
const (
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeUndefined = 7
)

var typeSize = map[uint16]int{
	typeASCII:     1,
	typeShort:     2,
	typeLong:      4,
	typeRational:  8,
	typeUndefined: 1,
}

// Tags
const (
	TagCompression      = 0x0103
	TagMake             = 0x010F
	TagOrientation      = 0x0112
	TagXResolution      = 0x011A
	TagYResolution      = 0x011B
	TagResolutionUnit   = 0x0128
	TagDateTime         = 0x0132
	TagJPEGIF           = 0x0201
	TagJPEGIFLength     = 0x0202
	TagYCbCrPositioning = 0x0213
	TagExifIFD          = 0x8769

	TagExifVersion      = 0x9000
	TagComponentsConfig = 0x9101
	TagMakerNote        = 0x927C
	TagFlashpixVersion  = 0xA000
	TagColorSpace       = 0xA001
	TagPixelXDimension  = 0xA002
	TagPixelYDimension  = 0xA003
)

const (
	tiffHeaderSize = 8
	entrySize      = 12
)

var order = binary.BigEndian

var ErrThumbnailTooLarge = errors.New("thumbnail too large")

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func ascii(tag uint16, s string) entry {
	data := append([]byte(s), 0)
	return entry{tag, typeASCII, uint32(len(data)), data}
}

func short(tag uint16, v uint16) entry {
	data := make([]byte, 2)
	order.PutUint16(data, v)
	return entry{tag, typeShort, 1, data}
}

func long(tag uint16, v uint32) entry {
	data := make([]byte, 4)
	order.PutUint32(data, v)
	return entry{tag, typeLong, 1, data}
}

func rational(tag uint16, num, den uint32) entry {
	data := make([]byte, 8)
	order.PutUint32(data, num)
	order.PutUint32(data[4:], den)
	return entry{tag, typeRational, 1, data}
}

func undefined(tag uint16, b []byte) entry {
	return entry{tag, typeUndefined, uint32(len(b)), b}
}

func (e entry) inline() bool {
	return len(e.data) <= 4
}

// ifd is a directory plus its value area. The Exif IFD is written without
// a next-IFD link, the layout the album app was validated against.
type ifd struct {
	entries []entry
	link    bool
}

func newIFD(link bool, entries ...entry) *ifd {
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })
	return &ifd{entries: entries, link: link}
}

func (d *ifd) dirSize() int {
	n := 2 + entrySize*len(d.entries)
	if d.link {
		n += 4
	}
	return n
}

func (d *ifd) size() int {
	n := d.dirSize()
	for _, e := range d.entries {
		if !e.inline() {
			n += len(e.data)
		}
	}
	return n
}

func (d *ifd) setLong(tag uint16, v uint32) {
	for i := range d.entries {
		if d.entries[i].tag == tag {
			order.PutUint32(d.entries[i].data, v)
			return
		}
	}
	panic(fmt.Sprintf("meta: tag 0x%04X not in IFD", tag))
}

// put writes the IFD at buf[at:] and returns where each value landed,
// relative to the TIFF header.
func (d *ifd) put(buf []byte, at int, next uint32) map[uint16]int {
	where := make(map[uint16]int, len(d.entries))
	order.PutUint16(buf[at:], uint16(len(d.entries)))
	pos := at + 2
	area := at + d.dirSize()
	for _, e := range d.entries {
		order.PutUint16(buf[pos:], e.tag)
		order.PutUint16(buf[pos+2:], e.typ)
		order.PutUint32(buf[pos+4:], e.count)
		if e.inline() {
			copy(buf[pos+8:pos+12], e.data)
			where[e.tag] = pos + 8
		} else {
			order.PutUint32(buf[pos+8:], uint32(area))
			copy(buf[area:], e.data)
			where[e.tag] = area
			area += len(e.data)
		}
		pos += entrySize
	}
	if d.link {
		order.PutUint32(buf[pos:], next)
	}
	return where
}

// Fields are the per-image inputs of the block.
type Fields struct {
	Time      time.Time
	Thumbnail []byte
	Identity  capture.ID
}

// Block is a serialized Exif APP1 payload.
type Block struct {
	Payload []byte
	// NoteOffset is where the placeholder note starts inside Payload.
	NoteOffset int
	Note       Note
}

// Build lays out the 0th, Exif and 1st IFDs followed by the thumbnail and
// returns the payload carrying a placeholder note.
func Build(f Fields) (*Block, error) {
	if len(f.Thumbnail) == 0 {
		return nil, errors.New("thumbnail is empty")
	}
	if len(f.Thumbnail) > cfg.ThumbMaxSize {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrThumbnailTooLarge, len(f.Thumbnail), cfg.ThumbMaxSize)
	}
	note := NewPlaceholderNote(f.Identity)

	zeroth := newIFD(true,
		ascii(TagMake, cfg.Vendor),
		short(TagOrientation, 1),
		rational(TagXResolution, 72, 1),
		rational(TagYResolution, 72, 1),
		short(TagResolutionUnit, 2),
		ascii(TagDateTime, f.Time.Format(cfg.DateTimeFormat)),
		short(TagYCbCrPositioning, 1),
		long(TagExifIFD, 0),
	)
	exif := newIFD(false,
		undefined(TagExifVersion, []byte("0230")),
		undefined(TagComponentsConfig, []byte{1, 2, 3, 0}),
		undefined(TagMakerNote, note.Bytes()),
		undefined(TagFlashpixVersion, []byte("0100")),
		short(TagColorSpace, 1),
		long(TagPixelXDimension, cfg.ImageWidth),
		long(TagPixelYDimension, cfg.ImageHeight),
	)
	first := newIFD(true,
		short(TagCompression, 6),
		rational(TagXResolution, 72, 1),
		rational(TagYResolution, 72, 1),
		short(TagResolutionUnit, 2),
		long(TagJPEGIF, 0),
		long(TagJPEGIFLength, uint32(len(f.Thumbnail))),
	)

	zerothAt := tiffHeaderSize
	exifAt := zerothAt + zeroth.size()
	firstAt := exifAt + exif.size()
	thumbAt := firstAt + first.size()
	zeroth.setLong(TagExifIFD, uint32(exifAt))
	first.setLong(TagJPEGIF, uint32(thumbAt))

	hdr := len(jpegseg.ExifHeader)
	payload := make([]byte, hdr+thumbAt+len(f.Thumbnail))
	copy(payload, jpegseg.ExifHeader)
	tiff := payload[hdr:]
	copy(tiff, "MM")
	order.PutUint16(tiff[2:], 0x002A)
	order.PutUint32(tiff[4:], uint32(zerothAt))

	zeroth.put(tiff, zerothAt, uint32(firstAt))
	where := exif.put(tiff, exifAt, 0)
	first.put(tiff, firstAt, 0)
	copy(tiff[thumbAt:], f.Thumbnail)

	return &Block{
		Payload:    payload,
		NoteOffset: hdr + where[TagMakerNote],
		Note:       note,
	}, nil
}
