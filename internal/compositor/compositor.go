// Package compositor runs the slab-to-countertop pipeline: load the base,
// texture and mask, cover the base with the texture, apply the mask as alpha,
// blend over the base and save the flattened result.
package compositor

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"time"

	"go.uber.org/zap"

	"github.com/roboco-io/slabrender/internal/composite"
	"github.com/roboco-io/slabrender/internal/coverage"
	"github.com/roboco-io/slabrender/internal/raster"
)

// Stage is a step of the pipeline. Stages run strictly in order.
type Stage int

const (
	StageLoad Stage = iota
	StageCover
	StageMask
	StageComposite
	StageSave
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageLoad:
		return "load"
	case StageCover:
		return "cover"
	case StageMask:
		return "mask"
	case StageComposite:
		return "composite"
	case StageSave:
		return "save"
	default:
		return "unknown"
	}
}

// Options configures a Compositor.
type Options struct {
	Strategy     coverage.Strategy
	Coverage     coverage.Params
	MaskFilter   composite.MaskFilter
	OutputFormat string // jpeg, png or auto
	Quality      int
}

// DefaultOptions returns tile coverage, bilinear mask resize and JPEG
// output at quality 95.
func DefaultOptions() Options {
	return Options{
		Strategy:     coverage.Tile,
		Coverage:     coverage.DefaultParams(),
		MaskFilter:   composite.Bilinear,
		OutputFormat: "jpeg",
		Quality:      raster.DefaultQuality,
	}
}

// Request names the files of one render.
type Request struct {
	Base    string `json:"base" yaml:"base"`
	Texture string `json:"texture" yaml:"texture"`
	Mask    string `json:"mask" yaml:"mask"`
	Output  string `json:"output" yaml:"output"`
}

// Result describes a successful render.
type Result struct {
	Width    int
	Height   int
	Bytes    int64
	Format   raster.Format
	Strategy coverage.Strategy
	Stages   map[Stage]time.Duration
	Elapsed  time.Duration
}

// Compositor renders requests. It holds no per-request state and is safe
// for concurrent use.
type Compositor struct {
	opts   Options
	logger *zap.Logger
}

// New creates a Compositor. A nil logger disables logging.
func New(opts Options, logger *zap.Logger) *Compositor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compositor{opts: opts, logger: logger}
}

// Options returns the options the compositor was created with.
func (c *Compositor) Options() Options {
	return c.opts
}

// WithStrategy returns a copy of c that uses s for coverage.
func (c *Compositor) WithStrategy(s coverage.Strategy) *Compositor {
	opts := c.opts
	opts.Strategy = s
	return &Compositor{opts: opts, logger: c.logger}
}

// Render runs the full pipeline for req and writes req.Output. On failure
// the returned error is an *Error and no output file is created.
func (c *Compositor) Render(req Request) (*Result, error) {
	start := time.Now()
	log := c.logger.With(zap.String("output", req.Output), zap.Stringer("strategy", c.opts.Strategy))
	res := &Result{Strategy: c.opts.Strategy, Stages: make(map[Stage]time.Duration, 5)}

	format, err := raster.OutputFormat(c.opts.OutputFormat, req.Output)
	if err != nil {
		return nil, newError(KindEncode, StageSave, req.Output, err)
	}

	for _, p := range []string{req.Base, req.Texture, req.Mask} {
		if err := raster.Validate(p); err != nil {
			return nil, newError(KindInputNotFound, StageLoad, p, err)
		}
	}

	t := time.Now()
	base, err := c.load(req.Base)
	if err != nil {
		return nil, err
	}
	texture, err := c.load(req.Texture)
	if err != nil {
		return nil, err
	}
	mask, err := c.load(req.Mask)
	if err != nil {
		return nil, err
	}
	res.Stages[StageLoad] = time.Since(t)
	log.Debug("inputs loaded",
		zap.Int("base_width", base.Bounds().Dx()),
		zap.Int("base_height", base.Bounds().Dy()),
		zap.Int("texture_width", texture.Bounds().Dx()),
		zap.Int("texture_height", texture.Bounds().Dy()),
		zap.Duration("elapsed", res.Stages[StageLoad]))

	out, err := c.compose(base, texture, mask, res.Stages, log)
	if err != nil {
		return nil, err
	}

	t = time.Now()
	n, err := raster.Save(req.Output, out, raster.EncodeOptions{Format: format, Quality: c.opts.Quality})
	if err != nil {
		return nil, newError(KindEncode, StageSave, req.Output, err)
	}
	res.Stages[StageSave] = time.Since(t)

	res.Width, res.Height = out.Bounds().Dx(), out.Bounds().Dy()
	res.Bytes = n
	res.Format = format
	res.Elapsed = time.Since(start)
	log.Debug("output saved",
		zap.Stringer("format", format),
		zap.Int64("bytes", n),
		zap.Duration("elapsed", res.Stages[StageSave]))

	return res, nil
}

// Compose runs the in-memory part of the pipeline: cover, mask and blend.
// The result has exactly the size of base and is fully opaque.
func (c *Compositor) Compose(base, texture, mask image.Image) (*image.RGBA, error) {
	return c.compose(base, texture, mask, make(map[Stage]time.Duration, 3), c.logger)
}

func (c *Compositor) compose(base, texture, mask image.Image, stages map[Stage]time.Duration, log *zap.Logger) (*image.RGBA, error) {
	baseRGBA := raster.ToNRGBA(base)
	w, h := baseRGBA.Bounds().Dx(), baseRGBA.Bounds().Dy()

	t := time.Now()
	layer, err := coverage.Build(c.opts.Strategy, raster.ToNRGBA(texture), w, h, c.opts.Coverage)
	if err != nil {
		return nil, newError(KindProcessing, StageCover, "", err)
	}
	stages[StageCover] = time.Since(t)
	log.Debug("coverage built", zap.Duration("elapsed", stages[StageCover]))

	t = time.Now()
	alpha := composite.ResizeMask(raster.ToGray(mask), w, h, c.opts.MaskFilter)
	if err := composite.ApplyMask(layer, alpha); err != nil {
		return nil, newError(KindProcessing, StageMask, "", err)
	}
	stages[StageMask] = time.Since(t)
	log.Debug("mask applied", zap.Stringer("filter", c.opts.MaskFilter), zap.Duration("elapsed", stages[StageMask]))

	t = time.Now()
	out, err := composite.Over(baseRGBA, layer)
	if err != nil {
		return nil, newError(KindProcessing, StageComposite, "", err)
	}
	stages[StageComposite] = time.Since(t)
	log.Debug("layers composited", zap.Duration("elapsed", stages[StageComposite]))

	return out, nil
}

func (c *Compositor) load(path string) (image.Image, error) {
	img, _, err := raster.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError(KindInputNotFound, StageLoad, path, fmt.Errorf("%w: %s", raster.ErrNotFound, path))
		}
		return nil, newError(KindDecode, StageLoad, path, err)
	}
	return img, nil
}
