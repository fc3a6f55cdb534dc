// Package imaging turns an arbitrary input picture into the two letterboxed
// JPEG renditions a screenshot needs.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"os"

	// decoders
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	cfg "github.com/1F47E/go-albumsign/pkg/config"
	"github.com/1F47E/go-albumsign/pkg/logger"
)

var ErrImageDecode = errors.New("cannot decode image")

// Decode reads any registered raster format.
func Decode(r io.Reader) (image.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageDecode, err)
	}
	logger.Log.WithField("scope", "imaging").Debugf("decoded %s %v", format, img.Bounds().Size())
	return img, nil
}

func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// roundAspect picks floor or ceil of n, whichever keeps the aspect closer,
// never below 1.
func roundAspect(n float64, dist func(float64) float64) int {
	lo, hi := math.Floor(n), math.Ceil(n)
	v := lo
	if dist(hi) < dist(lo) {
		v = hi
	}
	return int(math.Max(v, 1))
}

// Fit returns the size of a w×h picture shrunk to fit in maxW×maxH with its
// aspect kept. Pictures that already fit are left alone.
func Fit(w, h, maxW, maxH int) (int, int) {
	if maxW >= w && maxH >= h {
		return w, h
	}
	aspect := float64(w) / float64(h)
	x, y := maxW, maxH
	if float64(x)/float64(y) >= aspect {
		x = roundAspect(float64(y)*aspect, func(n float64) float64 {
			return math.Abs(aspect - n/float64(y))
		})
	} else {
		y = roundAspect(float64(x)/aspect, func(n float64) float64 {
			if n == 0 {
				return 0
			}
			return math.Abs(aspect - float64(x)/n)
		})
	}
	return x, y
}

// flatten drops transparency the way an RGB conversion does: the stored
// colour channels are kept and alpha is ignored, nothing is blended.
func flatten(src image.Image) image.Image {
	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		return src
	}
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	if n, ok := src.(*image.NRGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			copy(dst.Pix[dst.PixOffset(b.Min.X, y):dst.PixOffset(b.Max.X, y)], n.Pix[n.PixOffset(b.Min.X, y):n.PixOffset(b.Max.X, y)])
		}
	} else {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst.SetNRGBA(x, y, color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA))
			}
		}
	}
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xFF
	}
	return dst
}

// Letterbox centers src, shrunk to fit, on a black w×h canvas.
func Letterbox(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	src = flatten(src)
	b := src.Bounds()
	fw, fh := Fit(b.Dx(), b.Dy(), w, h)
	x, y := (w-fw)/2, (h-fh)/2
	r := image.Rect(x, y, x+fw, y+fh)
	if fw == b.Dx() && fh == b.Dy() {
		draw.Draw(dst, r, src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, r, src, b, draw.Src, nil)
	}
	return dst
}

// Encode writes img as baseline JPEG.
func Encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Renditions are the encoded screenshot and thumbnail of one input.
type Renditions struct {
	Image     []byte
	Thumbnail []byte
}

// Render produces both renditions from a decoded picture.
func Render(src image.Image) (*Renditions, error) {
	full, err := Encode(Letterbox(src, cfg.ImageWidth, cfg.ImageHeight), cfg.ImageQuality)
	if err != nil {
		return nil, fmt.Errorf("encoding screenshot: %w", err)
	}
	thumb, err := Encode(Letterbox(src, cfg.ThumbWidth, cfg.ThumbHeight), cfg.ThumbQuality)
	if err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}
	return &Renditions{Image: full, Thumbnail: thumb}, nil
}
