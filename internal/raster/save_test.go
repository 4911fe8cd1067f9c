package raster

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave_JPEG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "render.jpg")

	n, err := Save(path, solid(40, 30, color.NRGBA{R: 128, G: 128, B: 128, A: 255}), DefaultEncodeOptions())
	require.NoError(t, err)
	assert.Greater(t, n, int64(0))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, n, info.Size())

	img, format, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, format)
	assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())
}

func TestSave_PNGIsLossless(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "render.png")
	src := solid(5, 5, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	_, err := Save(path, src, EncodeOptions{Format: FormatPNG})
	require.NoError(t, err)

	img, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, ToNRGBA(img).Pix)
}

func TestSave_NoPartialFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "render.gif")

	_, err := Save(path, solid(2, 2, color.White), EncodeOptions{Format: FormatGIF})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file must be cleaned up")
}

func TestSave_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "render.jpg")

	_, err := Save(path, solid(2, 2, color.White), DefaultEncodeOptions())
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSave_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "render.png")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	_, err := Save(path, solid(3, 2, color.White), EncodeOptions{Format: FormatPNG})
	require.NoError(t, err)

	img, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
}

func TestSave_KeepsExistingMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "private.png")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0600))
	require.NoError(t, os.Chmod(path, 0600))

	_, err := Save(path, solid(2, 2, color.White), EncodeOptions{Format: FormatPNG})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSave_NewFileFollowsUmask(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref")
	require.NoError(t, os.WriteFile(ref, nil, 0666))
	want, err := os.Stat(ref)
	require.NoError(t, err)

	path := filepath.Join(dir, "render.jpg")
	_, err = Save(path, solid(2, 2, color.White), DefaultEncodeOptions())
	require.NoError(t, err)

	got, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, want.Mode().Perm(), got.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}
