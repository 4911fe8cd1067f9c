// Package composite applies a region mask to a coverage layer and blends the
// result over a base image.
package composite

import (
	"fmt"
	"image"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// MaskFilter selects the interpolator used to resize a mask.
type MaskFilter int

const (
	// Bilinear keeps soft mask edges soft after resizing.
	Bilinear MaskFilter = iota
	// Nearest keeps mask values exactly as painted.
	Nearest
)

// String returns the config name of the filter.
func (f MaskFilter) String() string {
	switch f {
	case Bilinear:
		return "bilinear"
	case Nearest:
		return "nearest"
	default:
		return "unknown"
	}
}

// ParseMaskFilter parses a filter name.
func ParseMaskFilter(name string) (MaskFilter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bilinear", "":
		return Bilinear, nil
	case "nearest":
		return Nearest, nil
	default:
		return Bilinear, fmt.Errorf("unknown mask filter: %s (supported: bilinear, nearest)", name)
	}
}

func (f MaskFilter) interpolator() draw.Interpolator {
	if f == Nearest {
		return draw.NearestNeighbor
	}
	return draw.BiLinear
}

// ResizeMask returns mask scaled to w x h. A mask that already has the
// requested size is returned unchanged.
func ResizeMask(mask *image.Gray, w, h int, f MaskFilter) *image.Gray {
	b := mask.Bounds()
	if b.Min == (image.Point{}) && b.Dx() == w && b.Dy() == h {
		return mask
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	f.interpolator().Scale(dst, dst.Bounds(), mask, b, draw.Src, nil)
	return dst
}

// ApplyMask replaces the alpha channel of layer with the mask intensity.
// Color channels are left untouched and mask values are used as-is, so
// partial values give partial blending. layer is modified in place.
func ApplyMask(layer *image.NRGBA, mask *image.Gray) error {
	lb, mb := layer.Bounds(), mask.Bounds()
	if lb.Dx() != mb.Dx() || lb.Dy() != mb.Dy() {
		return fmt.Errorf("mask size %dx%d does not match layer size %dx%d", mb.Dx(), mb.Dy(), lb.Dx(), lb.Dy())
	}

	for y := 0; y < lb.Dy(); y++ {
		li := layer.PixOffset(lb.Min.X, lb.Min.Y+y)
		mi := mask.PixOffset(mb.Min.X, mb.Min.Y+y)
		for x := 0; x < lb.Dx(); x++ {
			layer.Pix[li+4*x+3] = mask.Pix[mi+x]
		}
	}
	return nil
}

// Over blends layer over base with the "over" operator and returns an opaque
// image of the base size:
//
//	out = a*layer + (1-a)*base, a = layer.alpha/255
//
// The base is treated as fully opaque; its own alpha is ignored.
func Over(base, layer *image.NRGBA) (*image.RGBA, error) {
	bb, lb := base.Bounds(), layer.Bounds()
	if bb.Dx() != lb.Dx() || bb.Dy() != lb.Dy() {
		return nil, fmt.Errorf("layer size %dx%d does not match base size %dx%d", lb.Dx(), lb.Dy(), bb.Dx(), bb.Dy())
	}

	out := image.NewRGBA(image.Rect(0, 0, bb.Dx(), bb.Dy()))
	for y := 0; y < bb.Dy(); y++ {
		bi := base.PixOffset(bb.Min.X, bb.Min.Y+y)
		li := layer.PixOffset(lb.Min.X, lb.Min.Y+y)
		oi := out.PixOffset(0, y)
		for x := 0; x < bb.Dx(); x++ {
			bp := base.Pix[bi+4*x : bi+4*x+4 : bi+4*x+4]
			lp := layer.Pix[li+4*x : li+4*x+4 : li+4*x+4]
			op := out.Pix[oi+4*x : oi+4*x+4 : oi+4*x+4]

			switch a := lp[3]; a {
			case 0:
				copy(op[:3], bp[:3])
			case 255:
				copy(op[:3], lp[:3])
			default:
				fa := float64(a) / 255
				for c := 0; c < 3; c++ {
					op[c] = uint8(math.Round(fa*float64(lp[c]) + (1-fa)*float64(bp[c])))
				}
			}
			op[3] = 255
		}
	}
	return out, nil
}
