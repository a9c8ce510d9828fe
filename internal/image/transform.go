package image

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// maxEdge is the target length of the longer edge of the compressed variant.
const maxEdge = 1080

// watermarkAlpha is the label opacity, roughly 50%.
const watermarkAlpha = 128

// Transformer stamps the watermark label onto images. The face is parsed
// once at startup; placement depends only on the label and image size, so
// identical dimensions always yield the identical bounding box.
type Transformer struct {
	label string
	face  font.Face
}

// NewTransformer parses the watermark font and returns a ready Transformer.
// An empty fontPath selects the built-in Go Regular face.
func NewTransformer(label, fontPath string, ptSize float64) (*Transformer, error) {
	data := goregular.TTF
	if fontPath != "" {
		var err error
		data, err = os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("read watermark font: %w", err)
		}
	}
	fnt, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse watermark font: %w", err)
	}
	face := truetype.NewFace(fnt, &truetype.Options{Size: ptSize})
	return &Transformer{label: label, face: face}, nil
}

// Stamp renders the label centered horizontally and near the bottom edge
// (top of the text sits at height minus twice the text height), composited
// at partial opacity over an alpha-capable copy of src.
func (t *Transformer) Stamp(src image.Image) *image.NRGBA {
	base := imaging.Clone(src)
	overlay := image.NewNRGBA(base.Bounds())

	d := &font.Drawer{
		Dst:  overlay,
		Src:  image.NewUniform(color.NRGBA{A: watermarkAlpha}),
		Face: t.face,
	}
	textW := d.MeasureString(t.label).Ceil()
	metrics := t.face.Metrics()
	textH := metrics.Height.Ceil()

	w, h := base.Bounds().Dx(), base.Bounds().Dy()
	x := w/2 - textW/2
	y := h - 2*textH
	d.Dot = fixed.P(x, y+metrics.Ascent.Ceil())
	d.DrawString(t.label)

	return imaging.Overlay(base, overlay, image.Pt(0, 0), 1.0)
}

// labelBox reports the watermark bounding box for an image of the given
// dimensions without rendering anything.
func (t *Transformer) labelBox(w, h int) image.Rectangle {
	d := &font.Drawer{Face: t.face}
	textW := d.MeasureString(t.label).Ceil()
	textH := t.face.Metrics().Height.Ceil()
	x := w/2 - textW/2
	y := h - 2*textH
	return image.Rect(x, y, x+textW, y+textH)
}

// Compress scales src so its longer edge becomes maxEdge, preserving the
// aspect ratio.
func Compress(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if b.Dx() >= b.Dy() {
		return imaging.Resize(src, maxEdge, 0, imaging.Lanczos)
	}
	return imaging.Resize(src, 0, maxEdge, imaging.Lanczos)
}

// CropSquare produces a centered square crop whose side equals the shorter
// edge of src.
func CropSquare(src image.Image) *image.NRGBA {
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	return imaging.CropCenter(src, side, side)
}
