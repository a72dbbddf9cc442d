package arena

import (
	"errors"
	"fmt"
	"sync"
)

// ErrCapacityGrowth is returned by Ensure when the region cannot be grown to
// the required size. The region is unchanged.
var ErrCapacityGrowth = errors.New("arena: capacity growth failed")

// Stats contains region usage statistics.
type Stats struct {
	// Pages is the current region size in pages.
	Pages uint32

	// SizeBytes is the current region size in bytes.
	SizeBytes uint64

	// MaxPages is the page limit.
	MaxPages uint32

	// GrowCalls is the number of Grow requests issued by the manager.
	GrowCalls uint64

	// GrownPages is the total number of pages added by the manager.
	GrownPages uint64

	// LastRequired is the byte requirement of the most recent Ensure call.
	LastRequired uint64
}

// String returns a human-readable summary of the stats.
func (s Stats) String() string {
	return fmt.Sprintf("Arena[%d pages, %d KiB, %d grow calls, %d pages grown, last need %d bytes]",
		s.Pages,
		s.SizeBytes/1024,
		s.GrowCalls,
		s.GrownPages,
		s.LastRequired)
}

// GrowthPages returns the minimal number of whole pages that lifts a region
// of current bytes to at least required bytes. It returns 0 when no growth is
// needed.
func GrowthPages(current, required uint64) uint32 {
	if required <= current {
		return 0
	}
	pages := (required - current + PageSize - 1) / PageSize
	if pages > DefaultMaxPages {
		// Unsatisfiable; let Grow report the limit.
		return DefaultMaxPages + 1
	}
	return uint32(pages) //nolint:gosec // bounded above
}

// Manager sizes a Memory for one image at a time.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	mem     *Memory
	reserve uint64

	growCalls    uint64
	grownPages   uint64
	lastRequired uint64
}

// NewManager creates a manager for mem that keeps ScratchReserve bytes of
// scratch after every image.
func NewManager(mem *Memory) *Manager {
	return &Manager{mem: mem, reserve: ScratchReserve}
}

// Memory returns the managed region.
func (m *Manager) Memory() *Memory {
	return m.mem
}

// Required returns the region size needed for imageBytes of pixels.
func (m *Manager) Required(imageBytes uint64) uint64 {
	return imageBytes + m.reserve
}

// Ensure grows the region so it holds imageBytes plus the scratch reserve.
// It issues at most one Grow of the minimal page count and returns the number
// of pages added. Calling it again with the same size does nothing.
//
// On failure the error wraps ErrCapacityGrowth and the region is unchanged.
func (m *Manager) Ensure(imageBytes uint64) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	required := m.Required(imageBytes)
	m.lastRequired = required

	current := m.mem.Size()
	pages := GrowthPages(current, required)
	if pages == 0 {
		return 0, nil
	}

	m.growCalls++
	prev, err := m.mem.Grow(pages)
	if err != nil {
		return 0, fmt.Errorf("%w: need %d bytes, have %d (%d pages): %w",
			ErrCapacityGrowth, required, current, prev, err)
	}
	m.grownPages += uint64(pages)
	return pages, nil
}

// Stats returns current region statistics.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		Pages:        m.mem.Pages(),
		SizeBytes:    m.mem.Size(),
		MaxPages:     m.mem.MaxPages(),
		GrowCalls:    m.growCalls,
		GrownPages:   m.grownPages,
		LastRequired: m.lastRequired,
	}
}
