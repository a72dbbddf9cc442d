package dither

import (
	"github.com/gogpu/dither/internal/arena"
	"github.com/gogpu/dither/internal/ordered"
	"github.com/gogpu/dither/internal/perf"
)

// DefaultLabel prefixes every performance sample.
const DefaultLabel = "Ordered dithering performance"

// Option configures a Processor during creation.
//
// Example:
//
//	p, err := dither.New(
//	    dither.WithMatrixSize(8),
//	    dither.WithLevels(4),
//	    dither.WithWorkers(runtime.NumCPU()),
//	)
type Option func(*options)

// options holds Processor configuration.
type options struct {
	engine       string
	matrixSize   int
	levels       int
	workers      int
	checked      bool
	initialPages uint32
	maxPages     uint32
	alloc        arena.Allocator
	clock        perf.Clock
	label        string
	kernel       string
	monochrome   bool
}

// defaultOptions returns the default processor options.
func defaultOptions() options {
	return options{
		engine:     EngineCPU,
		matrixSize: ordered.DefaultMatrixSize,
		levels:     ordered.DefaultLevels,
		workers:    1,
		label:      DefaultLabel,
	}
}

// WithEngine selects the engine: "cpu" (default), "gpu", or "auto", which
// uses the GPU engine when one is registered and falls back to the CPU.
// Any other name selects the registered engine of that name.
func WithEngine(name string) Option {
	return func(o *options) {
		o.engine = name
	}
}

// WithMatrixSize sets the Bayer matrix side: 2, 4, 8 or 16.
func WithMatrixSize(n int) Option {
	return func(o *options) {
		o.matrixSize = n
	}
}

// WithLevels sets the number of output levels per channel (2..256).
func WithLevels(levels int) Option {
	return func(o *options) {
		o.levels = levels
	}
}

// WithWorkers sets the number of CPU band workers. Values <= 1 run serially.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithChecked enables engine precondition checks on every image.
func WithChecked(checked bool) Option {
	return func(o *options) {
		o.checked = checked
	}
}

// WithInitialPages sets the arena's starting size in 64 KiB pages.
func WithInitialPages(pages uint32) Option {
	return func(o *options) {
		o.initialPages = pages
	}
}

// WithMaxPages caps arena growth. Zero means the 4 GiB default.
func WithMaxPages(pages uint32) Option {
	return func(o *options) {
		o.maxPages = pages
	}
}

// WithAllocator replaces the arena's backing allocator.
func WithAllocator(a arena.Allocator) Option {
	return func(o *options) {
		o.alloc = a
	}
}

// WithClock replaces the clock used for performance samples.
func WithClock(c perf.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLabel sets the performance sample label.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithKernel names the resampling kernel used by ProcessFile and
// ProcessReader: "catmullrom" (default), "bilinear", "approxbilinear" or
// "nearest".
func WithKernel(name string) Option {
	return func(o *options) {
		o.kernel = name
	}
}

// WithMonochrome converts loaded images to perceptual gray before dithering.
func WithMonochrome(mono bool) Option {
	return func(o *options) {
		o.monochrome = mono
	}
}
