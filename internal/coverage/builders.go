package coverage

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

type tileBuilder struct{}

func (tileBuilder) Name() string { return Tile.String() }

// Build tiles a resized copy of the texture over a canvas one tile larger
// than the base in each direction, then crops the centre.
func (tileBuilder) Build(texture *image.NRGBA, width, height int, p Params) (*image.NRGBA, error) {
	texture, err := prepare(texture, width, height)
	if err != nil {
		return nil, err
	}
	texW, texH := texture.Bounds().Dx(), texture.Bounds().Dy()

	ratio := p.TileWidthRatio
	if ratio <= 0 {
		ratio = DefaultParams().TileWidthRatio
	}
	tileW := min(int(float64(width)*ratio), texW)
	tileW = max(tileW, 1)
	aspect := float64(texW) / float64(texH)
	tileH := max(int(float64(tileW)/aspect), 1)

	tile := resample(texture, tileW, tileH)

	tilesX := width/tileW + 2
	tilesY := height/tileH + 2
	canvas := image.NewNRGBA(image.Rect(0, 0, tilesX*tileW, tilesY*tileH))
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			paste(canvas, tile, image.Pt(tx*tileW, ty*tileH))
		}
	}

	return centerCrop(canvas, width, height), nil
}

type coverBuilder struct{}

func (coverBuilder) Name() string { return ScaleToCover.String() }

// Build scales the texture uniformly past the covering size and crops the
// centre. If rounding still leaves it short in a dimension, the scaled
// texture is resized to the exact base size instead.
func (coverBuilder) Build(texture *image.NRGBA, width, height int, p Params) (*image.NRGBA, error) {
	texture, err := prepare(texture, width, height)
	if err != nil {
		return nil, err
	}
	texW, texH := texture.Bounds().Dx(), texture.Bounds().Dy()

	slack := p.CoverSlack
	if slack <= 0 {
		slack = DefaultParams().CoverSlack
	}
	factor := math.Max(float64(width)/float64(texW), float64(height)/float64(texH)) * slack
	scaledW := max(int(math.Round(float64(texW)*factor)), 1)
	scaledH := max(int(math.Round(float64(texH)*factor)), 1)

	scaled := resample(texture, scaledW, scaledH)
	if scaledW < width || scaledH < height {
		return resample(scaled, width, height), nil
	}
	return centerCrop(scaled, width, height), nil
}

type stretchBuilder struct{}

func (stretchBuilder) Name() string { return Stretch.String() }

func (stretchBuilder) Build(texture *image.NRGBA, width, height int, _ Params) (*image.NRGBA, error) {
	texture, err := prepare(texture, width, height)
	if err != nil {
		return nil, err
	}
	return resample(texture, width, height), nil
}

// resample scales src to w x h with a Lanczos kernel. src must be opaque.
func resample(src *image.NRGBA, w, h int) *image.NRGBA {
	if src.Bounds().Dx() == w && src.Bounds().Dy() == h {
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		paste(dst, src, image.Point{})
		return dst
	}
	return imaging.Resize(src, w, h, imaging.Lanczos)
}

// paste copies src into dst with its top-left corner at at, clipped to dst.
func paste(dst, src *image.NRGBA, at image.Point) {
	r := src.Bounds().Sub(src.Bounds().Min).Add(at).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	rowBytes := r.Dx() * 4
	for y := r.Min.Y; y < r.Max.Y; y++ {
		sp := image.Pt(r.Min.X-at.X, y-at.Y).Add(src.Bounds().Min)
		si := src.PixOffset(sp.X, sp.Y)
		di := dst.PixOffset(r.Min.X, y)
		copy(dst.Pix[di:di+rowBytes], src.Pix[si:si+rowBytes])
	}
}

// centerCrop returns a new w x h image cut from the middle of src.
func centerCrop(src *image.NRGBA, w, h int) *image.NRGBA {
	b := src.Bounds()
	offset := image.Pt(b.Min.X+(b.Dx()-w)/2, b.Min.Y+(b.Dy()-h)/2)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	paste(dst, src, image.Point{}.Sub(offset).Add(b.Min))
	return dst
}
