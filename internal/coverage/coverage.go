// Package coverage builds the texture layer that covers a base image before
// it is masked and composited.
package coverage

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

var (
	// ErrEmptyTexture is returned when the texture has no pixels.
	ErrEmptyTexture = errors.New("texture image is empty")
	// ErrInvalidSize is returned when the requested coverage size is not positive.
	ErrInvalidSize = errors.New("coverage size must be positive")
)

// Strategy selects how a texture is made to cover the base image.
type Strategy int

const (
	// Tile resizes the texture to a tile and repeats it in a hard-edged grid.
	Tile Strategy = iota
	// ScaleToCover scales the texture uniformly until it covers the base.
	ScaleToCover
	// Stretch resizes the texture to the base size, ignoring aspect ratio.
	Stretch
)

// String returns the registry name of the strategy.
func (s Strategy) String() string {
	switch s {
	case Tile:
		return "tile"
	case ScaleToCover:
		return "cover"
	case Stretch:
		return "stretch"
	default:
		return "unknown"
	}
}

// ParseStrategy parses a strategy name as used in flags and config files.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tile", "":
		return Tile, nil
	case "cover", "scale", "scale-to-cover":
		return ScaleToCover, nil
	case "stretch":
		return Stretch, nil
	default:
		return Tile, fmt.Errorf("unknown strategy: %s (supported: tile, cover, stretch)", name)
	}
}

// Params holds the tunable constants of the built-in strategies.
type Params struct {
	// TileWidthRatio is the tile width as a fraction of the base width.
	TileWidthRatio float64 `json:"tile_width_ratio"`
	// CoverSlack multiplies the minimum covering scale factor.
	CoverSlack float64 `json:"cover_slack"`
}

// DefaultParams returns half-width tiles and 1.5x cover slack.
func DefaultParams() Params {
	return Params{
		TileWidthRatio: 0.5,
		CoverSlack:     1.5,
	}
}

// Builder produces an opaque coverage layer of exactly width x height pixels
// from a texture. Implementations must be deterministic and must not modify
// the texture.
type Builder interface {
	// Name returns the registry identifier (e.g., "tile").
	Name() string

	// Build returns a new image of exactly width x height.
	Build(texture *image.NRGBA, width, height int, p Params) (*image.NRGBA, error)
}

// Build looks up the builder for s in the default registry and runs it.
func Build(s Strategy, texture *image.NRGBA, width, height int, p Params) (*image.NRGBA, error) {
	b, err := DefaultRegistry.Get(s.String())
	if err != nil {
		return nil, err
	}
	return b.Build(texture, width, height, p)
}

// prepare validates the inputs and returns the texture the builders work
// from. Texture alpha is not part of the coverage layer: the mask supplies
// it later. A texture with any transparency is copied and made opaque so
// every resampling path sees the same colors.
func prepare(texture *image.NRGBA, width, height int) (*image.NRGBA, error) {
	if texture == nil || texture.Bounds().Empty() {
		return nil, ErrEmptyTexture
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if texture.Opaque() {
		return texture, nil
	}

	b := texture.Bounds()
	opaque := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	paste(opaque, texture, image.Point{})
	for i := 3; i < len(opaque.Pix); i += 4 {
		opaque.Pix[i] = 0xff
	}
	return opaque, nil
}
