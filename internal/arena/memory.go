package arena

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// Region sizing constants.
const (
	// PageSize is the growth unit of the region (64 KiB).
	PageSize = 64 * 1024

	// ScratchReserve is the scratch space kept after the image: room for a
	// 16x16 threshold matrix of 32-bit floats.
	ScratchReserve = 16 * 16 * 4

	// DefaultMaxPages caps the region at 4 GiB, the 32-bit address space
	// the engine entry point can address.
	DefaultMaxPages = 1 << 16
)

// Memory errors.
var (
	// ErrGrowFailed is returned when the allocator refuses to grow the region.
	ErrGrowFailed = errors.New("arena: grow failed")

	// ErrMaxPages is returned when growth would exceed the page limit.
	ErrMaxPages = errors.New("arena: page limit exceeded")
)

// maxRegionBytes is the largest region the platform can index.
var maxRegionBytes = uint64(math.MaxInt)

// regionBytes returns the byte size of pages pages, or ErrMaxPages when it
// does not fit in an int.
func regionBytes(pages uint32) (int, error) {
	size := uint64(pages) * PageSize
	if size > maxRegionBytes {
		return 0, fmt.Errorf("%w: %d pages is %d bytes, platform limit %d", ErrMaxPages, pages, size, maxRegionBytes)
	}
	return int(size), nil //nolint:gosec // checked against maxRegionBytes
}

// Allocator provides the backing storage for a Memory.
//
// Grow returns a slice of exactly newSize bytes whose prefix equals old.
// It may return old's backing array re-sliced if capacity allows.
// Returning an error leaves the region untouched.
type Allocator interface {
	Grow(old []byte, newSize int) ([]byte, error)
}

// heapAllocator grows the region on the Go heap.
type heapAllocator struct{}

func (heapAllocator) Grow(old []byte, newSize int) ([]byte, error) {
	if newSize <= cap(old) {
		grown := old[:newSize]
		clear(grown[len(old):])
		return grown, nil
	}
	buf := make([]byte, newSize)
	copy(buf, old)
	return buf, nil
}

// Memory is a page-granular, append-only linear byte region.
//
// Memory is safe for concurrent use, but the bytes returned by Bytes are not
// synchronized: the host and the engine take turns on them.
type Memory struct {
	mu       sync.RWMutex
	buf      []byte
	maxPages uint32
	alloc    Allocator
}

// NewMemory creates a region of initialPages zeroed pages.
// A maxPages of 0 selects DefaultMaxPages. A nil allocator uses the Go heap.
func NewMemory(initialPages, maxPages uint32, alloc Allocator) (*Memory, error) {
	if maxPages == 0 || maxPages > DefaultMaxPages {
		maxPages = DefaultMaxPages
	}
	if initialPages > maxPages {
		return nil, fmt.Errorf("%w: initial %d pages, limit %d", ErrMaxPages, initialPages, maxPages)
	}
	if alloc == nil {
		alloc = heapAllocator{}
	}

	m := &Memory{maxPages: maxPages, alloc: alloc}
	if initialPages > 0 {
		size, err := regionBytes(initialPages)
		if err != nil {
			return nil, err
		}
		buf, err := alloc.Grow(nil, size)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGrowFailed, err)
		}
		m.buf = buf
	}
	return m, nil
}

// Grow appends delta zeroed pages to the region and returns the page count
// before growth. A delta of 0 only reports the current page count.
//
// On failure the region keeps its previous size and contents.
func (m *Memory) Grow(delta uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := uint32(len(m.buf) / PageSize) //nolint:gosec // bounded by maxPages
	if delta == 0 {
		return prev, nil
	}
	if uint64(prev)+uint64(delta) > uint64(m.maxPages) {
		return prev, fmt.Errorf("%w: %d + %d pages, limit %d", ErrMaxPages, prev, delta, m.maxPages)
	}

	newSize, err := regionBytes(prev + delta)
	if err != nil {
		return prev, err
	}
	buf, err := m.alloc.Grow(m.buf, newSize)
	if err != nil {
		return prev, fmt.Errorf("%w: %w", ErrGrowFailed, err)
	}
	if len(buf) != newSize {
		return prev, fmt.Errorf("%w: allocator returned %d bytes, want %d", ErrGrowFailed, len(buf), newSize)
	}
	m.buf = buf
	return prev, nil
}

// Bytes returns the whole region. Re-fetch after Grow.
func (m *Memory) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buf
}

// Size returns the region size in bytes.
func (m *Memory) Size() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.buf))
}

// Pages returns the region size in pages.
func (m *Memory) Pages() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint32(len(m.buf) / PageSize) //nolint:gosec // bounded by maxPages
}

// MaxPages returns the page limit.
func (m *Memory) MaxPages() uint32 {
	return m.maxPages
}
