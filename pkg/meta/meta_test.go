package meta

import (
	"bytes"
	"encoding/hex"
	"image"
	"image/jpeg"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/1F47E/go-albumsign/pkg/capture"
	cfg "github.com/1F47E/go-albumsign/pkg/config"
	"github.com/1F47E/go-albumsign/pkg/jpegseg"
)

var (
	testID    = capture.ID{0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f}
	testTime  = time.Date(2026, 10, 18, 12, 34, 56, 0, time.Local)
	testThumb = []byte("\xff\xd8THUMB\xff\xd9")
)

// Reference payload for testID, testTime and testThumb, as produced by
// piexif.dump for the same field dictionaries.
var wantPayload = strings.Join([]string{
	"4578696600004d4d002a000000080008010f0002000000120000006e01120003",
	"0000000100010000011a00050000000100000080011b00050000000100000088",
	"0128000300000001000200000132000200000014000000900213000300000001",
	"000100008769000400000001000000a4000001264e696e74656e646f20636f2e",
	"2c206c74640000000048000000010000004800000001323032363a31303a3138",
	"2031323a33343a35360000079000000700000004303233309101000700000004",
	"01020300927c00070000002c000000faa00000070000000430313030a0010003",
	"0000000100010000a00200040000000100000500a003000400000001000002d0",
	"0000000000001000000000000000000000000000000000000100100010111213",
	"1415161718191a1b1c1d1e1f0006010300030000000100060000011a00050000",
	"000100000174011b0005000000010000017c0128000300000001000200000201",
	"0004000000010000018402020004000000010000000900000000000000480000",
	"00010000004800000001ffd85448554d42ffd9",
}, "")

func TestPlaceholderNoteLayout(t *testing.T) {
	n := NewPlaceholderNote(testID)
	want := "00000000000010000000000000000000000000000000000001001000" + "101112131415161718191a1b1c1d1e1f"
	require.Equal(t, want, hex.EncodeToString(n[:]))
	require.Equal(t, testID, n.Identity())
	require.Equal(t, make([]byte, DigestSize), n.Digest())
}

func TestNoteWithDigest(t *testing.T) {
	digest := bytes.Repeat([]byte{0xAB}, 32)
	n := NewPlaceholderNote(testID).WithDigest(digest)

	require.Equal(t, digest[:DigestSize], n.Digest())
	require.Equal(t, testID, n.Identity())
	require.Equal(t, NewPlaceholderNote(testID), n.Placeholder())

	parsed, err := ParseNote(n.Bytes())
	require.NoError(t, err)
	require.Equal(t, n, parsed)
}

func TestParseNoteErrors(t *testing.T) {
	good := NewPlaceholderNote(testID).Bytes()

	_, err := ParseNote(good[:NoteSize-1])
	require.ErrorIs(t, err, ErrBadNote)

	bad := append([]byte(nil), good...)
	bad[6] = 0x11
	_, err = ParseNote(bad)
	require.ErrorIs(t, err, ErrBadNote)

	bad = append([]byte(nil), good...)
	bad[tailOffset] = 0x02
	_, err = ParseNote(bad)
	require.ErrorIs(t, err, ErrBadNote)
}

func TestBuildLayout(t *testing.T) {
	block, err := Build(Fields{Time: testTime, Thumbnail: testThumb, Identity: testID})
	require.NoError(t, err)
	require.Equal(t, wantPayload, hex.EncodeToString(block.Payload))
	require.Equal(t, 256, block.NoteOffset)
	require.Equal(t, block.Note[:], block.Payload[block.NoteOffset:block.NoteOffset+NoteSize])
	require.Equal(t, 1, bytes.Count(block.Payload, block.Note[:]))
}

func TestBuildThumbnailLimits(t *testing.T) {
	_, err := Build(Fields{Time: testTime, Thumbnail: make([]byte, cfg.ThumbMaxSize+1), Identity: testID})
	require.ErrorIs(t, err, ErrThumbnailTooLarge)

	_, err = Build(Fields{Time: testTime, Identity: testID})
	require.Error(t, err)
}

func TestReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 16, 16)), nil))

	block, err := Build(Fields{Time: testTime, Thumbnail: testThumb, Identity: testID})
	require.NoError(t, err)
	out, at, err := jpegseg.InsertExif(buf.Bytes(), block.Payload)
	require.NoError(t, err)

	info, err := Read(out)
	require.NoError(t, err)
	require.Equal(t, cfg.Vendor, info.Make)
	require.True(t, testTime.Equal(info.DateTime))
	require.Equal(t, uint32(cfg.ImageWidth), info.Width)
	require.Equal(t, uint32(cfg.ImageHeight), info.Height)
	require.Equal(t, testThumb, info.Thumbnail)
	require.Equal(t, block.Note, info.Note)
	require.Equal(t, at+block.NoteOffset, info.NoteOffset)

	off, note, err := FindNote(out)
	require.NoError(t, err)
	require.Equal(t, info.NoteOffset, off)
	require.Equal(t, block.Note, note)
}

func TestReadWithoutExif(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil))
	_, _, err := FindNote(buf.Bytes())
	require.Error(t, err)
}
