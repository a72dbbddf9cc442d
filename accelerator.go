package dither

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Engine names understood by WithEngine.
const (
	EngineCPU  = "cpu"
	EngineGPU  = "gpu"
	EngineAuto = "auto"
)

// Engine dithers a width x height RGBA8 image in place at mem[offset:].
// The scratch area follows the image and is scratchLen bytes long.
//
// Accelerated engines are provided by sub-packages and opt in via blank
// import:
//
//	import _ "github.com/gogpu/dither/gpu"
type Engine interface {
	// Name returns the engine name (e.g., "gpu").
	Name() string

	// Init initializes engine resources. Called once during registration.
	Init() error

	// Dither processes one image. Calls never overlap.
	Dither(mem []byte, width, height, offset, scratchLen uint32) error

	// Close releases engine resources.
	Close()
}

// Configurable is implemented by engines that take their threshold matrix
// and level count from the processor.
type Configurable interface {
	Configure(n int, thresholds []float32, levels int) error
}

// DeviceProviderAware is an optional interface for engines that can share
// GPU resources with an external provider.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	enginesMu sync.RWMutex
	engines   = map[string]Engine{}
)

// RegisterEngine registers an accelerated engine under e.Name().
//
// The engine's Init method is called during registration. If Init fails, the
// engine is not registered and the error wraps ErrInitialization.
// Registering a second engine with the same name replaces and closes the
// first.
func RegisterEngine(e Engine) error {
	if e == nil {
		return errors.New("dither: engine must not be nil")
	}
	name := e.Name()
	if name == "" || name == EngineCPU || name == EngineAuto {
		return fmt.Errorf("dither: reserved engine name %q", name)
	}
	if err := e.Init(); err != nil {
		return newError(KindInitialization, name, err)
	}
	propagateLogger(e, Logger())

	enginesMu.Lock()
	old := engines[name]
	engines[name] = e
	enginesMu.Unlock()
	if old != nil && old != e {
		old.Close()
	}
	Logger().Info("dither: engine registered", "engine", name)
	return nil
}

// RegisteredEngine returns the engine registered under name, or nil.
func RegisteredEngine(name string) Engine {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	return engines[name]
}

// EngineNames returns the names of all registered engines, sorted.
func EngineNames() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	names := make([]string, 0, len(engines))
	for n := range engines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func registeredEngines() []Engine {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	out := make([]Engine, 0, len(engines))
	for _, e := range engines {
		out = append(out, e)
	}
	return out
}

// SetEngineDeviceProvider passes a device provider to the engine registered
// under name. If there is no such engine, or it does not support device
// sharing, this is a no-op.
func SetEngineDeviceProvider(name string, provider any) error {
	e := RegisteredEngine(name)
	if e == nil {
		return nil
	}
	if dpa, ok := e.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
