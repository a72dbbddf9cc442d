package dither

import (
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/gogpu/dither/internal/ordered"
)

// mockEngine implements Engine, Configurable and loggerSetter for testing.
type mockEngine struct {
	name    string
	initErr error
	ditherF func(mem []byte, w, h, off, scratch uint32) error

	mu         sync.Mutex
	closed     bool
	calls      int
	configured int
	levels     int
	logger     *slog.Logger
}

func (m *mockEngine) Name() string { return m.name }

func (m *mockEngine) Init() error { return m.initErr }

func (m *mockEngine) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *mockEngine) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockEngine) Dither(mem []byte, w, h, off, scratch uint32) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.ditherF != nil {
		return m.ditherF(mem, w, h, off, scratch)
	}
	return nil
}

func (m *mockEngine) Configure(n int, _ []float32, levels int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configured = n
	m.levels = levels
	return nil
}

func (m *mockEngine) SetLogger(l *slog.Logger) {
	m.mu.Lock()
	m.logger = l
	m.mu.Unlock()
}

func (m *mockEngine) SetDeviceProvider(any) error { return errors.New("mock provider") }

// resetEngines clears the global registry between tests.
func resetEngines() {
	enginesMu.Lock()
	engines = map[string]Engine{}
	enginesMu.Unlock()
}

func TestRegisterEngineNil(t *testing.T) {
	resetEngines()

	err := RegisterEngine(nil)
	if err == nil {
		t.Fatal("expected error when registering nil engine")
	}
	if err.Error() != "dither: engine must not be nil" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
	if len(EngineNames()) != 0 {
		t.Error("registry should stay empty after failed registration")
	}
}

func TestRegisterEngineReservedName(t *testing.T) {
	resetEngines()
	for _, name := range []string{"", EngineCPU, EngineAuto} {
		if err := RegisterEngine(&mockEngine{name: name}); err == nil {
			t.Errorf("RegisterEngine(%q) error = nil, want error", name)
		}
	}
}

func TestRegisterEngineInitError(t *testing.T) {
	resetEngines()
	t.Cleanup(resetEngines)

	initErr := errors.New("no adapter")
	err := RegisterEngine(&mockEngine{name: "gpu", initErr: initErr})
	if !errors.Is(err, ErrInitialization) {
		t.Fatalf("RegisterEngine() error = %v, want ErrInitialization", err)
	}
	if !errors.Is(err, initErr) {
		t.Errorf("RegisterEngine() error should keep the cause")
	}
	if err.Error() != "capability unsupported" {
		t.Errorf("Error() = %q, want generic message", err.Error())
	}
	if RegisteredEngine("gpu") != nil {
		t.Error("engine registered despite Init failure")
	}
}

func TestRegisterEngineReplacesAndCloses(t *testing.T) {
	resetEngines()
	t.Cleanup(resetEngines)

	first := &mockEngine{name: "gpu"}
	second := &mockEngine{name: "gpu"}
	if err := RegisterEngine(first); err != nil {
		t.Fatal(err)
	}
	if err := RegisterEngine(second); err != nil {
		t.Fatal(err)
	}
	if RegisteredEngine("gpu") != second {
		t.Error("RegisteredEngine() did not return the replacement")
	}
	if !first.isClosed() {
		t.Error("replaced engine was not closed")
	}
	if second.isClosed() {
		t.Error("active engine was closed")
	}
}

func TestEngineNamesSorted(t *testing.T) {
	resetEngines()
	t.Cleanup(resetEngines)

	for _, n := range []string{"vk", "gpu", "metal"} {
		if err := RegisterEngine(&mockEngine{name: n}); err != nil {
			t.Fatal(err)
		}
	}
	got := EngineNames()
	want := []string{"gpu", "metal", "vk"}
	if len(got) != len(want) {
		t.Fatalf("EngineNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("EngineNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSetEngineDeviceProvider(t *testing.T) {
	resetEngines()
	t.Cleanup(resetEngines)

	if err := SetEngineDeviceProvider("gpu", nil); err != nil {
		t.Errorf("SetEngineDeviceProvider(unregistered) = %v, want nil", err)
	}
	if err := RegisterEngine(&mockEngine{name: "gpu"}); err != nil {
		t.Fatal(err)
	}
	if err := SetEngineDeviceProvider("gpu", nil); err == nil {
		t.Error("SetEngineDeviceProvider() did not reach the engine")
	}
}

func TestSelectRegisteredEngineConfigures(t *testing.T) {
	resetEngines()
	t.Cleanup(resetEngines)

	mock := &mockEngine{name: "gpu"}
	if err := RegisterEngine(mock); err != nil {
		t.Fatal(err)
	}
	p, err := New(WithEngine(EngineGPU), WithMatrixSize(8), WithLevels(3))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Close()

	if p.EngineName() != "gpu" {
		t.Errorf("EngineName() = %q, want gpu", p.EngineName())
	}
	if mock.configured != 8 || mock.levels != 3 {
		t.Errorf("Configure got n=%d levels=%d, want 8 and 3", mock.configured, mock.levels)
	}
	p.Close()
	if mock.isClosed() {
		t.Error("Processor.Close() closed a shared engine")
	}
}

func TestSelectEngineMissing(t *testing.T) {
	resetEngines()

	_, err := New(WithEngine(EngineGPU))
	if !errors.Is(err, ErrInitialization) {
		t.Fatalf("New(gpu) error = %v, want ErrInitialization", err)
	}

	p, err := New(WithEngine(EngineAuto))
	if err != nil {
		t.Fatalf("New(auto) error = %v", err)
	}
	defer p.Close()
	if name := p.EngineName(); name != "ordered-"+ordered.DetectKernel().String() {
		t.Errorf("EngineName() = %q, want CPU engine", name)
	}
}
