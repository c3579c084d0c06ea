package media

import (
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// FitWithin returns the size of a w×h image scaled to fit a maxSide box while
// keeping its aspect ratio. Sizes already inside the box, and maxSide <= 0,
// are returned unchanged. The result is never smaller than 1×1.
func FitWithin(w, h, maxSide int) (int, int) {
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) || w <= 0 || h <= 0 {
		return w, h
	}
	scale := math.Min(float64(maxSide)/float64(w), float64(maxSide)/float64(h))
	nw := int(math.Max(1, math.Round(float64(w)*scale)))
	nh := int(math.Max(1, math.Round(float64(h)*scale)))
	return nw, nh
}

// toNRGBA renders src into a tightly packed NRGBA image of size w×h,
// scaling with a bilinear filter when the size differs.
func toNRGBA(src image.Image, w, h int) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// Downscale returns src as a Frame no larger than maxSide on either axis.
// OriginalWidth/OriginalHeight keep the pre-scale size.
func Downscale(src image.Image, maxSide int, kind Kind) Frame {
	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), maxSide)
	img := toNRGBA(src, w, h)
	return Frame{
		Pix:            img.Pix,
		Width:          w,
		Height:         h,
		OriginalWidth:  b.Dx(),
		OriginalHeight: b.Dy(),
		Kind:           kind,
	}
}

// placeholder builds an opaque black frame for sources that can be measured
// but not rendered.
func placeholder(origW, origH, side int) Frame {
	w, h := FitWithin(origW, origH, side)
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return Frame{Pix: img.Pix, Width: w, Height: h, OriginalWidth: origW, OriginalHeight: origH, Kind: Video}
}
