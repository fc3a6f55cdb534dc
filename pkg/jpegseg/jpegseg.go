// Package jpegseg walks the marker segments that precede the scan data of
// a JPEG stream and splices an Exif APP1 segment into it. Scan data is never
// decoded, it is carried over byte for byte.
package jpegseg

import (
	"bytes"
	"errors"
	"fmt"
)

const (
	TEM  = 0x01
	RST0 = 0xD0 // RSTn = RST0+n, n = 0-7
	SOI  = 0xD8
	EOI  = 0xD9
	SOS  = 0xDA
	APP0 = 0xE0 // APPn = APP0+n, n = 0-15
	APP1 = APP0 + 1
)

// Largest payload a segment can carry, the length field counts itself.
const MaxData = 1<<16 - 3

// ExifHeader starts every Exif APP1 payload.
var ExifHeader = []byte("Exif\x00\x00")

var (
	ErrNotJPEG   = errors.New("SOI marker not found")
	ErrTruncated = errors.New("truncated JPEG segment")
	ErrTooLong   = errors.New("segment data is too long")
)

// Marker is the byte following 0xFF.
type Marker uint8

func (m Marker) String() string {
	switch {
	case m == SOI:
		return "SOI"
	case m == EOI:
		return "EOI"
	case m == SOS:
		return "SOS"
	case m >= APP0 && m <= APP0+0xF:
		return fmt.Sprintf("APP%d", m-APP0)
	}
	return fmt.Sprintf("0x%02X", uint8(m))
}

// Segment is one marker segment. Offset is where the 0xFF directly before
// the marker code sits, after any fill bytes. Data excludes marker and length.
type Segment struct {
	Marker Marker
	Offset int
	Data   []byte
}

// End is the offset of the first byte after the segment.
func (s Segment) End() int {
	return s.Offset + 4 + len(s.Data)
}

func standalone(m Marker) bool {
	return m == TEM || (m >= RST0 && m <= RST0+7)
}

// Scan returns the segments between SOI and SOS and the offset of the SOS
// marker. Data slices alias buf.
func Scan(buf []byte) ([]Segment, int, error) {
	if len(buf) < 2 || buf[0] != 0xFF || buf[1] != SOI {
		return nil, 0, ErrNotJPEG
	}
	segments := make([]Segment, 0, 8)
	pos := 2
	for {
		if pos+2 > len(buf) {
			return nil, 0, ErrTruncated
		}
		if buf[pos] != 0xFF {
			return nil, 0, fmt.Errorf("0xFF expected at offset %d, got 0x%02X", pos, buf[pos])
		}
		// fill bytes
		for pos+1 < len(buf) && buf[pos+1] == 0xFF {
			pos++
		}
		if pos+1 >= len(buf) {
			return nil, 0, ErrTruncated
		}
		start := pos
		marker := Marker(buf[pos+1])
		pos += 2
		switch {
		case marker == 0:
			return nil, 0, fmt.Errorf("invalid marker 0 at offset %d", start)
		case marker == SOS:
			return segments, start, nil
		case marker == EOI:
			return nil, 0, fmt.Errorf("EOI before SOS at offset %d", start)
		case standalone(marker):
			continue
		}
		if pos+2 > len(buf) {
			return nil, 0, ErrTruncated
		}
		length := int(buf[pos])<<8 | int(buf[pos+1])
		if length < 2 || pos+length > len(buf) {
			return nil, 0, fmt.Errorf("%w: %s at offset %d", ErrTruncated, marker, start)
		}
		segments = append(segments, Segment{
			Marker: marker,
			Offset: start,
			Data:   buf[pos+2 : pos+length],
		})
		pos += length
	}
}

func isExif(s Segment) bool {
	return s.Marker == APP1 && bytes.HasPrefix(s.Data, ExifHeader)
}

// InsertExif places payload in an APP1 segment directly after SOI. A leading
// JFIF APP0 and a leading Exif APP1 are replaced, everything else is kept
// as is. It returns the new stream and the offset of payload inside it.
func InsertExif(buf, payload []byte) ([]byte, int, error) {
	if !bytes.HasPrefix(payload, ExifHeader) {
		return nil, 0, errors.New("payload lacks Exif header")
	}
	if len(payload) > MaxData {
		return nil, 0, fmt.Errorf("%w: %d bytes, max %d", ErrTooLong, len(payload), MaxData)
	}
	segments, _, err := Scan(buf)
	if err != nil {
		return nil, 0, err
	}

	keepFrom := 2
	switch {
	case len(segments) > 1 && segments[0].Marker == APP0 && isExif(segments[1]):
		keepFrom = segments[1].End()
	case len(segments) > 0 && (segments[0].Marker == APP0 || isExif(segments[0])):
		keepFrom = segments[0].End()
	}

	length := len(payload) + 2
	out := make([]byte, 0, len(buf)+len(payload)+4)
	out = append(out, 0xFF, SOI, 0xFF, APP1, byte(length>>8), byte(length))
	at := len(out)
	out = append(out, payload...)
	out = append(out, buf[keepFrom:]...)
	return out, at, nil
}

// FindExif returns the first Exif APP1 payload and its offset in buf.
func FindExif(buf []byte) ([]byte, int, error) {
	segments, _, err := Scan(buf)
	if err != nil {
		return nil, 0, err
	}
	for _, s := range segments {
		if isExif(s) {
			return s.Data, s.Offset + 4, nil
		}
	}
	return nil, 0, errors.New("no Exif APP1 segment")
}
