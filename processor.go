package dither

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"

	"github.com/gogpu/dither/internal/arena"
	"github.com/gogpu/dither/internal/loader"
	"github.com/gogpu/dither/internal/ordered"
	"github.com/gogpu/dither/internal/perf"
)

// State is the processor lifecycle state.
type State int32

const (
	// Idle means the processor accepts a new image.
	Idle State = iota

	// Busy means an image is being processed.
	Busy
)

// String returns the state name.
func (s State) String() string {
	if s == Busy {
		return "Busy"
	}
	return "Idle"
}

// Result is the outcome of processing one image.
type Result struct {
	Width  int
	Height int

	// Pix holds the dithered Width*Height*4 RGBA8 bytes. It is a copy, so
	// it stays valid after the next Process call.
	Pix []byte

	// Sample times the engine invocation alone.
	Sample perf.Sample

	// Stats describes the arena after the image was placed.
	Stats arena.Stats
}

// cpuEngine adapts the ordered engine to the Engine interface.
type cpuEngine struct {
	*ordered.Engine
}

func (cpuEngine) Init() error { return nil }

// Processor dithers images one at a time in a shared, growing arena.
//
// A Processor is safe for concurrent use, but it processes one image at a
// time: a call made while another is in flight fails with ErrBusy.
type Processor struct {
	busy atomic.Bool

	memory  *arena.Memory
	manager *arena.Manager

	engine Engine
	owned  bool // engine belongs to this processor and is closed with it

	matrix ordered.Matrix
	levels int

	clock perf.Clock
	label string

	loadOpts loader.Options
}

// New creates a Processor.
//
// Engine selection failures wrap ErrInitialization. With WithEngine("auto")
// a missing GPU engine is not an error: the CPU engine is used and a warning
// is logged.
func New(opts ...Option) (*Processor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	matrix, err := ordered.Bayer(o.matrixSize)
	if err != nil {
		return nil, newError(KindInitialization, "", err)
	}
	if _, err := loader.KernelByName(o.kernel); err != nil {
		return nil, newError(KindInvalidInput, o.kernel, err)
	}

	mem, err := arena.NewMemory(o.initialPages, o.maxPages, o.alloc)
	if err != nil {
		return nil, newError(KindInitialization, "arena", err)
	}

	p := &Processor{
		memory:  mem,
		manager: arena.NewManager(mem),
		matrix:  matrix,
		levels:  o.levels,
		clock:   o.clock,
		label:   o.label,
		loadOpts: loader.Options{
			Kernel:     o.kernel,
			Monochrome: o.monochrome,
		},
	}
	if p.clock == nil {
		p.clock = perf.DefaultClock()
	}

	if err := p.selectEngine(o); err != nil {
		return nil, err
	}
	Logger().Info("dither: processor ready",
		"engine", p.engine.Name(),
		"matrix", matrix.N,
		"levels", p.levels,
		"pages", mem.Pages())
	return p, nil
}

func (p *Processor) selectEngine(o options) error {
	name := o.engine
	if name == "" {
		name = EngineCPU
	}

	if name != EngineCPU {
		lookup := name
		if name == EngineAuto {
			lookup = EngineGPU
		}
		if e := RegisteredEngine(lookup); e != nil {
			if c, ok := e.(Configurable); ok {
				if err := c.Configure(p.matrix.N, p.matrix.T, p.levels); err != nil {
					return newError(KindInitialization, lookup, err)
				}
			}
			p.engine = e
			return nil
		}
		if name != EngineAuto {
			return newError(KindInitialization, name, fmt.Errorf("engine %q not registered", name))
		}
		Logger().Warn("dither: GPU engine not available, falling back to CPU")
	}

	cpu, err := ordered.New(ordered.Config{
		Matrix:  p.matrix,
		Levels:  p.levels,
		Workers: o.workers,
		Checked: o.checked,
	})
	if err != nil {
		return newError(KindInitialization, EngineCPU, err)
	}
	p.engine = cpuEngine{cpu}
	p.owned = true
	return nil
}

// Close releases the processor's own engine. Registered engines are shared
// and stay open.
func (p *Processor) Close() {
	if p.owned && p.engine != nil {
		p.engine.Close()
	}
}

// EngineName returns the name of the engine in use.
func (p *Processor) EngineName() string { return p.engine.Name() }

// State reports whether an image is being processed.
func (p *Processor) State() State {
	if p.busy.Load() {
		return Busy
	}
	return Idle
}

// Stats returns the current arena statistics.
func (p *Processor) Stats() arena.Stats { return p.manager.Stats() }

// Process dithers frame. It sizes the arena, copies the pixels in, runs the
// engine and returns a copy of the result.
//
// On failure the processor returns to Idle and the next call may proceed.
// A growth failure leaves the arena untouched and never invokes the engine.
func (p *Processor) Process(frame *loader.Frame) (*Result, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, newError(KindBusy, frameName(frame), nil)
	}
	defer p.busy.Store(false)

	if err := checkFrame(frame); err != nil {
		return nil, newError(KindInvalidInput, frameName(frame), err)
	}
	w, h := uint32(frame.Width), uint32(frame.Height) //nolint:gosec // checked positive

	imageBytes, err := arena.ImageBytes(w, h)
	if err != nil {
		return nil, newError(KindInvalidInput, frame.Name, err)
	}
	grown, err := p.manager.Ensure(imageBytes)
	if err != nil {
		Logger().Warn("dither: arena growth failed", "image", frame.Name, "err", err)
		return nil, newError(KindCapacityGrowth, frame.Name, err)
	}
	if grown > 0 {
		Logger().Info("dither: arena grown", "pages", grown, "total_pages", p.memory.Pages())
	}

	// Growth may have moved the region: fetch it after Ensure.
	mem := p.memory.Bytes()
	layout, err := arena.LayoutFor(w, h, uint64(len(mem)))
	if err != nil {
		return nil, newError(KindCapacityGrowth, frame.Name, err)
	}
	Logger().Debug("dither: image placed", "image", frame.Name, "layout", layout.String())

	copy(mem[layout.ImageOffset:], frame.Pix)

	if c, ok := p.engine.(Configurable); ok && !p.owned {
		if err := c.Configure(p.matrix.N, p.matrix.T, p.levels); err != nil {
			return nil, newError(KindInitialization, p.engine.Name(), err)
		}
	}

	sample, err := perf.MeasureMegapixels(p.label, uint64(w)*uint64(h), p.clock, func() error {
		return p.engine.Dither(mem, w, h, layout.ImageOffset, layout.ScratchSize)
	})
	if err != nil {
		kind := KindEngine
		if errors.Is(err, ordered.ErrPrecondition) {
			kind = KindPrecondition
		}
		return nil, newError(kind, frame.Name, err)
	}
	Logger().Debug("dither: image done", "image", frame.Name, "elapsed", sample.Elapsed,
		"mpx_per_s", sample.Throughput())

	pix := make([]byte, layout.ImageSize)
	copy(pix, mem[layout.ImageOffset:layout.ImageOffset+layout.ImageSize])

	return &Result{
		Width:  frame.Width,
		Height: frame.Height,
		Pix:    pix,
		Sample: sample,
		Stats:  p.manager.Stats(),
	}, nil
}

// ProcessReader loads an image from r, scales it to fit viewport and
// processes it. name is used for type detection and error messages.
func (p *Processor) ProcessReader(name string, r io.Reader, viewport int) (*Result, error) {
	if p.busy.Load() {
		return nil, newError(KindBusy, name, nil)
	}
	opts := p.loadOpts
	opts.Viewport = viewport
	frame, err := loader.Load(name, r, opts)
	if err != nil {
		return nil, loadError(name, err)
	}
	return p.Process(frame)
}

// ProcessFile is ProcessReader for a file on disk.
func (p *Processor) ProcessFile(path string, viewport int) (*Result, error) {
	if p.busy.Load() {
		return nil, newError(KindBusy, filepath.Base(path), nil)
	}
	opts := p.loadOpts
	opts.Viewport = viewport
	frame, err := loader.LoadFile(path, opts)
	if err != nil {
		return nil, loadError(filepath.Base(path), err)
	}
	return p.Process(frame)
}

// loadError classifies a loader failure: content the loader rejected is
// invalid input, anything else is an I/O failure.
func loadError(name string, err error) *Error {
	if errors.Is(err, loader.ErrNotImage) || errors.Is(err, loader.ErrDecode) || errors.Is(err, loader.ErrEmptyData) {
		return newError(KindInvalidInput, name, err)
	}
	return newError(KindIO, name, err)
}

func checkFrame(f *loader.Frame) error {
	if f == nil {
		return errors.New("nil frame")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("empty image %dx%d", f.Width, f.Height)
	}
	if want := f.Width * f.Height * arena.BytesPerPixel; len(f.Pix) != want {
		return fmt.Errorf("pixel buffer is %d bytes, want %d", len(f.Pix), want)
	}
	return nil
}

func frameName(f *loader.Frame) string {
	if f == nil {
		return ""
	}
	return f.Name
}
