package raster

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"

	"golang.org/x/image/draw"
)

// ErrNotFound is returned by Validate when an input path does not resolve
// to a readable regular file.
var ErrNotFound = errors.New("file not found")

// Validate checks that every path names a readable regular file. It stops at
// the first failure and reports the offending path.
func Validate(paths ...string) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrNotFound, p)
			}
			return fmt.Errorf("%w: %s: %v", ErrNotFound, p, err)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%w: %s is not a regular file", ErrNotFound, p)
		}
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrNotFound, p, err)
		}
		f.Close()
	}
	return nil
}

// Load decodes the image at path. The decoder is chosen from the file
// content, so a mislabelled extension still decodes.
func Load(path string) (image.Image, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, FormatUnknown, err
	}
	defer f.Close()

	format, err := DetectFormatFromReader(f)
	if err != nil {
		return nil, FormatUnknown, fmt.Errorf("failed to detect format of %s: %w", path, err)
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, format, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, format, fmt.Errorf("image %s has no pixels", path)
	}
	return img, format, nil
}

// ToNRGBA returns a fresh non-premultiplied RGBA copy of img whose bounds
// start at the origin.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// ToGray returns a single-channel intensity copy of img whose bounds start
// at the origin. Intensity is the ITU-R 601 luma of the non-premultiplied
// color; alpha is ignored.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		b := g.Bounds()
		dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), g, b.Min, draw.Src)
		return dst
	}

	src := ToNRGBA(img)
	dst := image.NewGray(src.Bounds())
	for i, j := 0, 0; i < len(src.Pix); i, j = i+4, j+1 {
		r, g, b := uint32(src.Pix[i]), uint32(src.Pix[i+1]), uint32(src.Pix[i+2])
		// Same weights as color.GrayModel, applied to 8-bit channels.
		dst.Pix[j] = uint8((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
	}
	return dst
}
