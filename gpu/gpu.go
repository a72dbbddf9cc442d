//go:build !nogpu

// Package gpu registers the WebGPU compute dithering engine.
//
// Import this package to make the "gpu" engine available to
// dither.WithEngine("gpu") and dither.WithEngine("auto"). The engine runs the
// same ordered dithering as the CPU engine as a wgpu/hal compute shader.
//
// If GPU initialization fails (no Vulkan device available), registration is
// skipped with a warning and "auto" processors fall back to the CPU.
//
// Usage:
//
//	import _ "github.com/gogpu/dither/gpu" // enable GPU dithering
package gpu

import (
	"errors"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/dither"
	gpuimpl "github.com/gogpu/dither/internal/gpu"
)

func init() {
	if err := dither.RegisterEngine(gpuimpl.NewDitherEngine()); err != nil {
		var de *dither.Error
		cause := err
		if errors.As(err, &de) && de.Err != nil {
			cause = de.Err
		}
		dither.Logger().Warn("GPU dithering engine not available", "err", cause)
	}
}

// Available reports whether the GPU engine registered successfully.
func Available() bool {
	return dither.RegisteredEngine(dither.EngineGPU) != nil
}

// SetDeviceProvider makes the GPU engine use a shared GPU device from an
// external provider (e.g., a gogpu window) instead of its own.
//
// The provider must also expose HalDevice() any and HalQueue() any returning
// wgpu/hal types. It is a no-op when the GPU engine is not registered.
func SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	if provider == nil {
		return errors.New("gpu: nil device provider")
	}
	return dither.SetEngineDeviceProvider(dither.EngineGPU, provider)
}
