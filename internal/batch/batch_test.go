package batch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/multierr"

	"github.com/roboco-io/slabrender/internal/compositor"
	"github.com/roboco-io/slabrender/internal/coverage"
	"github.com/roboco-io/slabrender/internal/job"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writePNG(t *testing.T, path string, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

type fixture struct {
	dir     string
	base    string
	texture string
	mask    string
}

func newFixture(t *testing.T) fixture {
	dir := t.TempDir()
	return fixture{
		dir:     dir,
		base:    writePNG(t, filepath.Join(dir, "base.png"), 32, 24, color.NRGBA{R: 128, G: 128, B: 128, A: 255}),
		texture: writePNG(t, filepath.Join(dir, "tex.png"), 8, 8, color.NRGBA{R: 255, A: 255}),
		mask:    writePNG(t, filepath.Join(dir, "mask.png"), 32, 24, color.Gray{Y: 255}),
	}
}

func (f fixture) job(id string) job.Job {
	return job.Job{
		ID: id,
		Request: compositor.Request{
			Base:    f.base,
			Texture: f.texture,
			Mask:    f.mask,
			Output:  filepath.Join(f.dir, id+".jpg"),
		},
	}
}

func TestRunner_RunsAllJobs(t *testing.T) {
	f := newFixture(t)
	m := job.NewManifest()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		m.AddJob(f.job(id))
	}

	var mu sync.Mutex
	var seen []string
	r := NewRunner(compositor.New(compositor.DefaultOptions(), nil), 2, nil)
	r.OnDone(func(o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, o.Job.ID)
	})

	outcomes, err := r.Run(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, outcomes, 5)
	assert.Len(t, seen, 5)

	for i, o := range outcomes {
		assert.Equal(t, m.Jobs[i].ID, o.Job.ID, "outcomes keep manifest order")
		require.NoError(t, o.Err)
		require.NotNil(t, o.Result)
		assert.Equal(t, 32, o.Result.Width)
		assert.Equal(t, 24, o.Result.Height)
		assert.False(t, o.Finished.Before(o.Started))
		assert.FileExists(t, o.Job.Output)
	}
}

func TestRunner_FailureDoesNotStopOthers(t *testing.T) {
	f := newFixture(t)
	m := job.NewManifest()
	m.AddJob(f.job("ok-1"))
	broken := f.job("broken")
	broken.Texture = filepath.Join(f.dir, "missing.png")
	m.AddJob(broken)
	m.AddJob(f.job("ok-2"))

	outcomes, err := NewRunner(compositor.New(compositor.DefaultOptions(), nil), 1, nil).Run(context.Background(), m)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	assert.True(t, errors.Is(err, compositor.ErrInputNotFound))

	assert.NoError(t, outcomes[0].Err)
	assert.Error(t, outcomes[1].Err)
	assert.Nil(t, outcomes[1].Result)
	assert.Equal(t, compositor.KindInputNotFound, compositor.KindOf(outcomes[1].Err))
	assert.NoError(t, outcomes[2].Err)
	assert.FileExists(t, outcomes[2].Job.Output)
	assert.NoFileExists(t, outcomes[1].Job.Output)
}

func TestRunner_StrategyResolution(t *testing.T) {
	f := newFixture(t)
	m := job.NewManifest()
	m.Defaults.Strategy = "cover"
	a := f.job("default")
	b := f.job("override")
	b.Strategy = "stretch"
	m.AddJob(a)
	m.AddJob(b)

	outcomes, err := NewRunner(compositor.New(compositor.DefaultOptions(), nil), 2, nil).Run(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, coverage.ScaleToCover, outcomes[0].Result.Strategy)
	assert.Equal(t, coverage.Stretch, outcomes[1].Result.Strategy)
}

func TestRunner_CancelledContextSkipsJobs(t *testing.T) {
	f := newFixture(t)
	m := job.NewManifest()
	m.AddJob(f.job("a"))
	m.AddJob(f.job("b"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := NewRunner(compositor.New(compositor.DefaultOptions(), nil), 4, nil).Run(ctx, m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	for _, o := range outcomes {
		assert.ErrorIs(t, o.Err, context.Canceled)
		assert.NoFileExists(t, o.Job.Output)
	}
}

func TestNewRunner_ClampsConcurrency(t *testing.T) {
	r := NewRunner(compositor.New(compositor.DefaultOptions(), nil), 0, nil)
	assert.Equal(t, 1, r.concurrency)
}
