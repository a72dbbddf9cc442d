// Package ordered implements ordered (matrix) dithering in place over a
// linear RGBA8 region.
//
// The engine sees only a byte slice and four numbers: width, height, the
// image offset and the scratch length. The threshold matrix is written into
// the scratch area that follows the image and read back from there, so the
// engine touches no memory outside the region it was given.
//
// For every pixel (x, y) and each of R, G, B:
//
//	t  = matrix[y mod N][x mod N]
//	v  = c / 255
//	v' = clamp(round(v*(L-1) + (t-0.5)) / (L-1), 0, 1)
//	c' = round(v' * 255)
//
// Thresholds are stored as float32; the arithmetic is float64 and round
// is math.Round.
//
// Alpha is copied through unchanged. A pixel's output depends only on its own
// value and coordinates, so rows may be processed in any order or in
// parallel with byte-identical results.
package ordered

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/dither/internal/parallel"
)

// Engine defaults.
const (
	// DefaultMatrixSize is the side of the default Bayer matrix.
	DefaultMatrixSize = 4

	// DefaultLevels is the default number of output levels per channel.
	DefaultLevels = 2

	// parallelMinPixels is the smallest image split across workers.
	parallelMinPixels = 64 * 1024
)

// ErrPrecondition is returned in checked mode when the caller breaks the
// dither contract (bad dimensions, undersized region or scratch).
var ErrPrecondition = errors.New("ordered: precondition violated")

// Config configures an Engine.
type Config struct {
	// Matrix is the threshold matrix. Zero value selects Bayer 4x4.
	Matrix Matrix

	// Levels is the number of output levels per channel (>= 2).
	// Zero selects DefaultLevels.
	Levels int

	// Workers is the number of band workers. Values <= 1 run serially.
	Workers int

	// Checked enables precondition validation on every call.
	// Unchecked calls trust the caller and panic on out-of-range access.
	Checked bool

	// Kernel forces a row kernel. KernelAuto uses DetectKernel.
	Kernel Kernel
}

// levelTable maps an input channel value to its output for one threshold.
type levelTable [256]byte

// Engine dithers RGBA8 images in place.
//
// An Engine may be reused for any number of images. Dither calls must not
// overlap on the same region.
type Engine struct {
	matrix  Matrix
	levels  int
	checked bool
	kernel  Kernel
	pool    *parallel.WorkerPool

	// tables caches level tables by threshold bits for the wide kernel.
	mu     sync.Mutex
	tables map[uint32]*levelTable
}

// New creates an engine from cfg.
func New(cfg Config) (*Engine, error) {
	if cfg.Matrix.N == 0 {
		cfg.Matrix = MustBayer(DefaultMatrixSize)
	}
	if cfg.Matrix.N < 1 || cfg.Matrix.N > MaxMatrixSize || len(cfg.Matrix.T) != cfg.Matrix.N*cfg.Matrix.N {
		return nil, fmt.Errorf("%w: matrix %dx%d with %d entries",
			ErrMatrixSize, cfg.Matrix.N, cfg.Matrix.N, len(cfg.Matrix.T))
	}
	if cfg.Levels == 0 {
		cfg.Levels = DefaultLevels
	}
	if cfg.Levels < 2 || cfg.Levels > 256 {
		return nil, fmt.Errorf("%w: levels %d not in [2, 256]", ErrPrecondition, cfg.Levels)
	}
	switch cfg.Kernel {
	case KernelAuto:
		cfg.Kernel = DetectKernel()
	case KernelScalar, KernelWide:
	default:
		return nil, fmt.Errorf("ordered: unknown kernel %d", int(cfg.Kernel))
	}

	e := &Engine{
		matrix:  cfg.Matrix,
		levels:  cfg.Levels,
		checked: cfg.Checked,
		kernel:  cfg.Kernel,
	}
	if e.kernel == KernelWide {
		e.tables = make(map[uint32]*levelTable, cfg.Matrix.N*cfg.Matrix.N)
	}
	if cfg.Workers > 1 {
		e.pool = parallel.NewWorkerPool(cfg.Workers)
	}
	return e, nil
}

// Name returns the engine name including the row kernel in use.
func (e *Engine) Name() string {
	if e.pool != nil {
		return fmt.Sprintf("ordered-%s-x%d", e.kernel, e.pool.Workers())
	}
	return "ordered-" + e.kernel.String()
}

// Kernel returns the row kernel in use.
func (e *Engine) Kernel() Kernel { return e.kernel }

// Matrix returns the engine's threshold matrix.
func (e *Engine) Matrix() Matrix { return e.matrix }

// Levels returns the number of output levels per channel.
func (e *Engine) Levels() int { return e.levels }

// ScratchBytes returns the scratch space a Dither call needs.
func (e *Engine) ScratchBytes() int { return e.matrix.ByteSize() }

// Close releases the worker pool, if any.
func (e *Engine) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

// Dither replaces the width x height RGBA8 image at mem[offset:] with its
// dithered equivalent. The scratch area starts right after the image and is
// scratchLen bytes long.
func (e *Engine) Dither(mem []byte, width, height, offset, scratchLen uint32) error {
	if e.checked {
		if err := e.validate(len(mem), width, height, offset, scratchLen); err != nil {
			return err
		}
	}
	if width == 0 || height == 0 {
		return nil
	}

	w, h := int(width), int(height)
	img := int(offset)
	scr := img + w*h*4
	scratch := mem[scr : scr+e.matrix.ByteSize()]
	e.matrix.Encode(scratch)

	pix := mem[img:scr]
	n := e.matrix.N
	rows := func(y0, y1 int) { scalarRows(pix, scratch, w, y0, y1, n, e.levels) }
	if e.kernel == KernelWide {
		tabs := e.levelTables(scratch)
		rows = func(y0, y1 int) { wideRows(pix, tabs, w, y0, y1, n) }
	}

	if e.pool == nil || w*h < parallelMinPixels {
		rows(0, h)
		return nil
	}
	e.pool.ForEachBand(h, func(b parallel.Band) {
		rows(b.Y0, b.Y1)
	})
	return nil
}

func (e *Engine) validate(memLen int, width, height, offset, scratchLen uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrPrecondition, width, height)
	}
	imageEnd := uint64(offset) + uint64(width)*uint64(height)*4
	if imageEnd > uint64(memLen) {
		return fmt.Errorf("%w: image ends at %d, region is %d bytes", ErrPrecondition, imageEnd, memLen)
	}
	if uint64(scratchLen) < uint64(e.matrix.ByteSize()) {
		return fmt.Errorf("%w: scratch %d bytes, matrix needs %d", ErrPrecondition, scratchLen, e.matrix.ByteSize())
	}
	if imageEnd+uint64(scratchLen) > uint64(memLen) {
		return fmt.Errorf("%w: scratch ends at %d, region is %d bytes",
			ErrPrecondition, imageEnd+uint64(scratchLen), memLen)
	}
	return nil
}

// levelTables returns one table per matrix position for the thresholds
// currently encoded in scratch. Tables are built once per distinct threshold.
func (e *Engine) levelTables(scratch []byte) []*levelTable {
	n := e.matrix.N
	steps := float64(e.levels - 1)
	tabs := make([]*levelTable, n*n)

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range tabs {
		t := threshold(scratch, i)
		key := math.Float32bits(t)
		tab, ok := e.tables[key]
		if !ok {
			tab = new(levelTable)
			for c := range tab {
				tab[c] = quantize(uint8(c), t, steps)
			}
			e.tables[key] = tab
		}
		tabs[i] = tab
	}
	return tabs
}

// scalarRows processes rows [y0, y1) of pix, a width-pixel RGBA8 image,
// evaluating the formula per channel. scratch holds the encoded n x n matrix.
func scalarRows(pix, scratch []byte, width, y0, y1, n, levels int) {
	steps := float64(levels - 1)
	var row [MaxMatrixSize]float32

	for y := y0; y < y1; y++ {
		base := (y % n) * n
		for i := 0; i < n; i++ {
			row[i] = threshold(scratch, base+i)
		}

		line := pix[y*width*4 : (y+1)*width*4]
		for x := 0; x < width; x++ {
			t := row[x%n]
			p := line[x*4 : x*4+3 : x*4+3]
			p[0] = quantize(p[0], t, steps)
			p[1] = quantize(p[1], t, steps)
			p[2] = quantize(p[2], t, steps)
		}
	}
}

// wideRows processes rows [y0, y1) through level tables, four pixels per
// step as two little-endian 64-bit words. tabs holds n*n tables in matrix
// order.
func wideRows(pix []byte, tabs []*levelTable, width, y0, y1, n int) {
	for y := y0; y < y1; y++ {
		row := tabs[(y%n)*n : (y%n)*n+n]
		line := pix[y*width*4 : (y+1)*width*4]

		x := 0
		for ; x+4 <= width; x += 4 {
			lo := line[x*4 : x*4+8]
			hi := line[x*4+8 : x*4+16]
			binary.LittleEndian.PutUint64(lo, mapPair(binary.LittleEndian.Uint64(lo), row[x%n], row[(x+1)%n]))
			binary.LittleEndian.PutUint64(hi, mapPair(binary.LittleEndian.Uint64(hi), row[(x+2)%n], row[(x+3)%n]))
		}
		for ; x < width; x++ {
			tab := row[x%n]
			p := line[x*4 : x*4+3 : x*4+3]
			p[0], p[1], p[2] = tab[p[0]], tab[p[1]], tab[p[2]]
		}
	}
}

// mapPair rewrites the RGB bytes of the two pixels packed in w. Alpha bytes
// pass through.
func mapPair(w uint64, a, b *levelTable) uint64 {
	return uint64(a[byte(w)]) |
		uint64(a[byte(w>>8)])<<8 |
		uint64(a[byte(w>>16)])<<16 |
		w&0xff000000 |
		uint64(b[byte(w>>32)])<<32 |
		uint64(b[byte(w>>40)])<<40 |
		uint64(b[byte(w>>48)])<<48 |
		w&0xff00000000000000
}

// quantize applies the formula to channel value c with threshold t and
// steps = L-1 output intervals.
func quantize(c uint8, t float32, steps float64) uint8 {
	v := float64(c) / 255
	q := math.Round(v*steps+(float64(t)-0.5)) / steps
	if q < 0 {
		q = 0
	} else if q > 1 {
		q = 1
	}
	return uint8(math.Round(q * 255))
}

// Quantize applies the dithering rule to one channel value c with matrix
// threshold t and the given number of levels.
func Quantize(c uint8, t float32, levels int) uint8 {
	return quantize(c, t, float64(levels-1))
}
