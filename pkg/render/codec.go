package render

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 95

// Decode applies EXIF orientation so boxes line up with what viewers show.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("image has no pixels")
	}
	return img, nil
}

// Encode picks the format from the filename extension and falls back to
// JPEG for names it cannot encode, such as .webp.
func Encode(w io.Writer, img image.Image, filename string) error {
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		format = imaging.JPEG
	}
	return imaging.Encode(w, img, format, imaging.JPEGQuality(jpegQuality))
}

func EncodeBytes(img image.Image, filename string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, filename); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
