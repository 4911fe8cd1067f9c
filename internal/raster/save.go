package raster

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 95

// EncodeOptions controls how Save writes an image.
type EncodeOptions struct {
	Format  Format // FormatJPEG or FormatPNG; FormatUnknown means JPEG
	Quality int    // JPEG quality 1-100
}

// DefaultEncodeOptions returns JPEG at DefaultQuality.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		Format:  FormatJPEG,
		Quality: DefaultQuality,
	}
}

// Save encodes img to path and returns the number of bytes written.
//
// The image is written to a temporary file next to path and renamed into
// place only after a successful encode and sync, so a failed Save never
// leaves a partial file at path. A replaced file keeps its permissions; a new
// one gets 0666 minus the umask, as os.Create would give it.
func Save(path string, img image.Image, opts EncodeOptions) (int64, error) {
	dir := filepath.Dir(path)
	tmpPath := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	tmp, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := encode(tmp, img, opts); err != nil {
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync %s: %w", tmpPath, err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if existing, err := os.Stat(path); err == nil {
		if err := os.Chmod(tmpPath, existing.Mode().Perm()); err != nil {
			return 0, fmt.Errorf("failed to set permissions: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("failed to move output into place: %w", err)
	}
	committed = true

	return info.Size(), nil
}

func encode(f *os.File, img image.Image, opts EncodeOptions) error {
	switch opts.Format {
	case FormatPNG:
		if err := png.Encode(f, img); err != nil {
			return fmt.Errorf("failed to encode png: %w", err)
		}
	case FormatJPEG, FormatUnknown:
		q := opts.Quality
		if q <= 0 {
			q = DefaultQuality
		}
		if err := jpeg.Encode(f, img, &jpeg.Options{Quality: q}); err != nil {
			return fmt.Errorf("failed to encode jpeg: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
	return nil
}

// OutputFormat resolves a configured output format name against the output
// path. "auto" picks PNG for .png paths and JPEG otherwise.
func OutputFormat(name, path string) (Format, error) {
	switch name {
	case "", "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "auto":
		if DetectFormat(path) == FormatPNG {
			return FormatPNG, nil
		}
		return FormatJPEG, nil
	default:
		return FormatUnknown, fmt.Errorf("unsupported output format: %s (supported: jpeg, png, auto)", name)
	}
}
