package image

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func newTransformer(t *testing.T) *Transformer {
	t.Helper()
	tr, err := NewTransformer("youpai", "", 32)
	if err != nil {
		t.Fatalf("NewTransformer: %v", err)
	}
	return tr
}

func TestCompressDimensions(t *testing.T) {
	tests := []struct {
		name           string
		srcW, srcH     int
		wantW, wantH   int
	}{
		{"Landscape", 2000, 1000, 1080, 540},
		{"Portrait", 800, 1600, 540, 1080},
		{"Square", 1080, 1080, 1080, 1080},
		{"WideOddRatio", 1920, 1081, 1080, 608},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := imaging.New(tt.srcW, tt.srcH, color.NRGBA{R: 200, A: 255})
			got := Compress(src)
			if got.Bounds().Dx() != tt.wantW || got.Bounds().Dy() != tt.wantH {
				t.Errorf("Compress(%dx%d) = %dx%d, want %dx%d",
					tt.srcW, tt.srcH, got.Bounds().Dx(), got.Bounds().Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestCropSquareDimensions(t *testing.T) {
	tests := []struct {
		name       string
		srcW, srcH int
		wantSide   int
	}{
		{"Landscape", 2000, 1000, 1000},
		{"Portrait", 600, 900, 600},
		{"Square", 512, 512, 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := imaging.New(tt.srcW, tt.srcH, color.NRGBA{G: 120, A: 255})
			got := CropSquare(src)
			if got.Bounds().Dx() != tt.wantSide || got.Bounds().Dy() != tt.wantSide {
				t.Errorf("CropSquare(%dx%d) = %dx%d, want %dx%d square",
					tt.srcW, tt.srcH, got.Bounds().Dx(), got.Bounds().Dy(), tt.wantSide, tt.wantSide)
			}
		})
	}
}

func TestCropSquareIsCentered(t *testing.T) {
	// Mark the corners of the expected 1000x1000 window at x in [500,1500).
	src := imaging.New(2000, 1000, color.NRGBA{A: 255})
	src.Set(500, 0, color.NRGBA{R: 255, A: 255})
	src.Set(1499, 999, color.NRGBA{B: 255, A: 255})

	got := CropSquare(src)

	if c := got.NRGBAAt(0, 0); c.R != 255 {
		t.Errorf("top-left of crop = %v, want the pixel from source x=500", c)
	}
	if c := got.NRGBAAt(999, 999); c.B != 255 {
		t.Errorf("bottom-right of crop = %v, want the pixel from source x=1499", c)
	}
}

func TestLabelBoxDeterministic(t *testing.T) {
	tr := newTransformer(t)

	first := tr.labelBox(1080, 720)
	second := tr.labelBox(1080, 720)
	if first != second {
		t.Errorf("labelBox not deterministic: %v vs %v", first, second)
	}

	w, h := 1080, 720
	textH := first.Dy()
	if first.Min.Y != h-2*textH {
		t.Errorf("label top = %d, want height minus twice text height (%d)", first.Min.Y, h-2*textH)
	}
	leftGap := first.Min.X
	rightGap := w - first.Max.X
	if diff := leftGap - rightGap; diff < -1 || diff > 1 {
		t.Errorf("label not horizontally centered: left gap %d, right gap %d", leftGap, rightGap)
	}
}

func TestStampPreservesDimensionsAndMarksLabelArea(t *testing.T) {
	tr := newTransformer(t)
	src := imaging.New(640, 480, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	got := tr.Stamp(src)

	if got.Bounds() != src.Bounds() {
		t.Fatalf("Stamp changed dimensions: %v -> %v", src.Bounds(), got.Bounds())
	}

	box := tr.labelBox(640, 480)
	marked := false
	for y := box.Min.Y; y < box.Max.Y && !marked; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			if got.NRGBAAt(x, y) != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
				marked = true
				break
			}
		}
	}
	if !marked {
		t.Error("no pixel inside the label box was altered by the watermark")
	}

	// Rows far above the label stay untouched.
	for x := 0; x < 640; x += 13 {
		if got.NRGBAAt(x, 10) != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
			t.Errorf("pixel (%d,10) outside label area was altered", x)
			break
		}
	}
}

func TestStampSamePlacementForSameDimensions(t *testing.T) {
	tr := newTransformer(t)

	a := tr.Stamp(imaging.New(800, 600, color.NRGBA{R: 10, G: 10, B: 10, A: 255}))
	b := tr.Stamp(imaging.New(800, 600, color.NRGBA{R: 10, G: 10, B: 10, A: 255}))

	if !sameImage(a, b) {
		t.Error("identical inputs produced different watermark output")
	}
}

func sameImage(a, b image.Image) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	for y := a.Bounds().Min.Y; y < a.Bounds().Max.Y; y++ {
		for x := a.Bounds().Min.X; x < a.Bounds().Max.X; x++ {
			if a.At(x, y) != b.At(x, y) {
				return false
			}
		}
	}
	return true
}
