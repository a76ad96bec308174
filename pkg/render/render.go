package render

import (
	"DetectionRelay/internal/entity"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	DefaultFontSize = 16
	lineWidth       = 2
	labelPadding    = 10
)

var (
	BoxColor  = color.RGBA{R: 32, G: 36, B: 44, A: 255}
	TextColor = color.RGBA{R: 232, G: 241, B: 245, A: 255}
)

// Renderer draws detection boxes and labels onto a copy of an image. It is
// safe for concurrent use.
type Renderer struct {
	font     *truetype.Font
	fontSize float64
}

func New() (*Renderer, error) {
	return NewWithFontSize(DefaultFontSize)
}

func NewWithFontSize(size float64) (*Renderer, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse label font: %w", err)
	}
	if size <= 0 {
		size = DefaultFontSize
	}
	return &Renderer{font: f, fontSize: size}, nil
}

func Label(d entity.Detection) string {
	return fmt.Sprintf("%s %.2f", d.Class, d.Confidence)
}

// Render never mutates img. With no detections the result is a plain copy.
//
// A label whose background would start above the image is drawn inside the
// box, just below its top edge, and labels are shifted left to stay within
// the right edge.
func (r *Renderer) Render(img image.Image, detections []entity.Detection) image.Image {
	if len(detections) == 0 {
		return imaging.Clone(img)
	}

	dc := gg.NewContextForImage(img)
	dc.SetFontFace(truetype.NewFace(r.font, &truetype.Options{Size: r.fontSize}))
	dc.SetLineWidth(lineWidth)
	width := float64(dc.Width())

	for _, d := range detections {
		x1, y1 := math.Trunc(d.BBox[0]), math.Trunc(d.BBox[1])
		x2, y2 := math.Trunc(d.BBox[2]), math.Trunc(d.BBox[3])

		dc.SetColor(BoxColor)
		dc.DrawRectangle(x1, y1, x2-x1, y2-y1)
		dc.Stroke()

		label := Label(d)
		tw, th := dc.MeasureString(label)

		lx := x1
		if lx+tw > width {
			lx = math.Max(0, width-tw)
		}
		top := y1 - th - labelPadding
		if top < 0 {
			top = y1
		}

		dc.DrawRectangle(lx, top, tw, th+labelPadding)
		dc.Fill()

		dc.SetColor(TextColor)
		dc.DrawString(label, lx, top+th+labelPadding/2)
	}

	return dc.Image()
}
