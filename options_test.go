package dither

import (
	"testing"
	"time"

	"github.com/gogpu/dither/internal/ordered"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.engine != EngineCPU {
		t.Errorf("engine = %q, want %q", o.engine, EngineCPU)
	}
	if o.matrixSize != ordered.DefaultMatrixSize || o.levels != ordered.DefaultLevels {
		t.Errorf("matrix/levels = %d/%d, want %d/%d", o.matrixSize, o.levels,
			ordered.DefaultMatrixSize, ordered.DefaultLevels)
	}
	if o.label != DefaultLabel {
		t.Errorf("label = %q, want %q", o.label, DefaultLabel)
	}
	if o.clock != nil || o.alloc != nil {
		t.Error("clock and allocator should default to nil")
	}
}

func TestOptionsApply(t *testing.T) {
	clock := &fakeClock{step: time.Millisecond}
	o := defaultOptions()
	for _, opt := range []Option{
		WithEngine(EngineAuto),
		WithMatrixSize(16),
		WithLevels(8),
		WithWorkers(3),
		WithChecked(true),
		WithInitialPages(2),
		WithMaxPages(64),
		WithAllocator(refusingAllocator{}),
		WithClock(clock),
		WithLabel("x"),
		WithKernel("nearest"),
		WithMonochrome(true),
	} {
		opt(&o)
	}

	if o.engine != EngineAuto || o.matrixSize != 16 || o.levels != 8 || o.workers != 3 {
		t.Errorf("engine options not applied: %+v", o)
	}
	if !o.checked || o.initialPages != 2 || o.maxPages != 64 {
		t.Errorf("arena options not applied: %+v", o)
	}
	if o.clock != clock || o.label != "x" || o.kernel != "nearest" || !o.monochrome {
		t.Errorf("misc options not applied: %+v", o)
	}
	if _, ok := o.alloc.(refusingAllocator); !ok {
		t.Errorf("alloc = %T, want refusingAllocator", o.alloc)
	}
}

func TestNewDefaults(t *testing.T) {
	p := mustNew(t)
	if p.State() != Idle {
		t.Errorf("State() = %v, want Idle", p.State())
	}
	if s := p.Stats(); s.Pages != 0 || s.GrowCalls != 0 {
		t.Errorf("fresh processor Stats = %v", s)
	}
	if p.label != DefaultLabel {
		t.Errorf("label = %q", p.label)
	}
}
