package inference

import (
	"DetectionRelay/internal/entity"
	"image"
	"image/color"
	"sort"

	"github.com/chewxy/math32"
	"github.com/disintegration/imaging"
)

// Gray fill used by the ultralytics letterbox.
var padColor = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

type box struct {
	x1, y1, x2, y2 float32
}

func (b box) area() float32 {
	return math32.Max(0, b.x2-b.x1) * math32.Max(0, b.y2-b.y1)
}

// Intersection over Union
func (b box) iou(o box) float32 {
	ix1 := math32.Max(b.x1, o.x1)
	iy1 := math32.Max(b.y1, o.y1)
	ix2 := math32.Min(b.x2, o.x2)
	iy2 := math32.Min(b.y2, o.y2)
	inter := math32.Max(0, ix2-ix1) * math32.Max(0, iy2-iy1)
	union := b.area() + o.area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

type candidate struct {
	box   box
	class int
	score float32
}

type letterbox struct {
	size       int
	scale      float32
	padX, padY int
	newW, newH int
	srcW, srcH int
}

func newLetterbox(srcW, srcH, size int) letterbox {
	scale := math32.Min(float32(size)/float32(srcW), float32(size)/float32(srcH))
	newW := int(math32.Round(float32(srcW) * scale))
	newH := int(math32.Round(float32(srcH) * scale))
	return letterbox{
		size:  size,
		scale: scale,
		padX:  (size - newW) / 2,
		padY:  (size - newH) / 2,
		newW:  newW,
		newH:  newH,
		srcW:  srcW,
		srcH:  srcH,
	}
}

func (l letterbox) apply(img image.Image) *image.NRGBA {
	resized := imaging.Resize(img, l.newW, l.newH, imaging.Linear)
	canvas := imaging.New(l.size, l.size, padColor)
	return imaging.Paste(canvas, resized, image.Pt(l.padX, l.padY))
}

// unmap converts a box from model input space back to source pixels.
func (l letterbox) unmap(b box) box {
	clampX := func(v float32) float32 { return math32.Max(0, math32.Min(float32(l.srcW), v)) }
	clampY := func(v float32) float32 { return math32.Max(0, math32.Min(float32(l.srcH), v)) }
	return box{
		x1: clampX((b.x1 - float32(l.padX)) / l.scale),
		y1: clampY((b.y1 - float32(l.padY)) / l.scale),
		x2: clampX((b.x2 - float32(l.padX)) / l.scale),
		y2: clampY((b.y2 - float32(l.padY)) / l.scale),
	}
}

// fillTensor writes img as normalized CHW RGB into dst.
func fillTensor(img *image.NRGBA, dst []float32) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	plane := w * h
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			i := y*w + x
			p := row[x*4:]
			dst[i] = float32(p[0]) / 255.0
			dst[plane+i] = float32(p[1]) / 255.0
			dst[2*plane+i] = float32(p[2]) / 255.0
		}
	}
}

// decodeOutput reads a YOLOv8 head laid out as [4+numClasses, numAnchors]
// and keeps anchors whose best class score meets conf.
func decodeOutput(out []float32, numClasses, numAnchors int, conf float32) []candidate {
	cands := make([]candidate, 0, 64)
	for i := 0; i < numAnchors; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < numClasses; c++ {
			s := out[(4+c)*numAnchors+i]
			if s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < conf {
			continue
		}

		cx, cy := out[i], out[numAnchors+i]
		w, h := out[2*numAnchors+i], out[3*numAnchors+i]
		cands = append(cands, candidate{
			box:   box{x1: cx - w/2, y1: cy - h/2, x2: cx + w/2, y2: cy + h/2},
			class: best,
			score: bestScore,
		})
	}
	return cands
}

// nonMaxSuppression is class-aware: boxes of different classes never
// suppress each other. The result is ordered by descending score.
func nonMaxSuppression(cands []candidate, iouThreshold float32) []candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	kept := make([]candidate, 0, len(cands))
	for _, c := range cands {
		suppressed := false
		for _, k := range kept {
			if k.class == c.class && k.box.iou(c.box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}

func toDetections(cands []candidate, lb letterbox, classes []string) []entity.Detection {
	dets := make([]entity.Detection, 0, len(cands))
	for _, c := range cands {
		b := lb.unmap(c.box)
		bbox := entity.BBox{float64(b.x1), float64(b.y1), float64(b.x2), float64(b.y2)}
		if !bbox.Valid() {
			continue
		}
		label := "unknown"
		if c.class < len(classes) {
			label = classes[c.class]
		}
		dets = append(dets, entity.Detection{
			Class:      label,
			Confidence: float64(math32.Min(c.score, 1)),
			BBox:       bbox,
		})
	}
	return dets
}
