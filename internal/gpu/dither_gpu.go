// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/dither/internal/ordered"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

//go:embed shaders/dither.wgsl
var ditherShaderWGSL string

// paramsSize is the size of the Params uniform in dither.wgsl.
const paramsSize = 32

// fenceTimeout bounds the wait for one dispatch.
const fenceTimeout = 5 * time.Second

// Engine errors.
var (
	// ErrNotReady is returned by Dither before a successful Init.
	ErrNotReady = errors.New("gpu-dither: engine not initialized")

	// ErrUnaligned is returned when the image offset is not 4-byte aligned.
	ErrUnaligned = errors.New("gpu-dither: image offset not word aligned")

	// ErrTimeout is returned when a dispatch does not finish within the
	// fence timeout.
	ErrTimeout = errors.New("gpu-dither: fence wait timed out")
)

// DitherEngine runs ordered dithering as a wgpu/hal compute shader.
//
// The region handed to Dither is uploaded as a single storage buffer, image
// and scratch together, dispatched once and read back in place. The threshold
// matrix is encoded into the scratch area on the host before upload, so the
// buffer layout matches the CPU engine's byte for byte.
type DitherEngine struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	matrix ordered.Matrix
	levels int

	adapterName    string
	gpuReady       bool
	externalDevice bool // true when using shared device (don't destroy on Close)
}

// NewDitherEngine creates an engine with the default Bayer 4x4 matrix and
// two levels. Call Init before Dither.
func NewDitherEngine() *DitherEngine {
	return &DitherEngine{
		matrix: ordered.MustBayer(ordered.DefaultMatrixSize),
		levels: ordered.DefaultLevels,
	}
}

// Name returns the engine name.
func (e *DitherEngine) Name() string { return "gpu" }

// Adapter returns the name of the selected GPU adapter, if any.
func (e *DitherEngine) Adapter() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.adapterName
}

// SetLogger routes this package's logging to l.
func (e *DitherEngine) SetLogger(l *slog.Logger) { setLogger(l) }

// Configure sets the threshold matrix and level count.
func (e *DitherEngine) Configure(n int, thresholds []float32, levels int) error {
	if n < 1 || n > ordered.MaxMatrixSize || len(thresholds) != n*n {
		return fmt.Errorf("%w: %dx%d with %d entries", ordered.ErrMatrixSize, n, n, len(thresholds))
	}
	if levels < 2 || levels > 256 {
		return fmt.Errorf("%w: levels %d not in [2, 256]", ordered.ErrPrecondition, levels)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.matrix = ordered.Matrix{N: n, T: append([]float32(nil), thresholds...)}
	e.levels = levels
	return nil
}

// Init opens a GPU device and builds the compute pipeline.
func (e *DitherEngine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gpuReady {
		return nil
	}
	if err := e.initGPU(); err != nil {
		e.releaseLocked()
		return err
	}
	return nil
}

// Close releases GPU resources.
func (e *DitherEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseLocked()
}

func (e *DitherEngine) releaseLocked() {
	e.destroyPipeline()
	if !e.externalDevice {
		if e.device != nil {
			e.device.Destroy()
		}
		if e.instance != nil {
			e.instance.Destroy()
		}
	}
	e.device = nil
	e.instance = nil
	e.queue = nil
	e.gpuReady = false
	e.externalDevice = false
}

// SetDeviceProvider switches the engine to a shared GPU device. The provider
// must implement HalDevice() any and HalQueue() any returning hal.Device and
// hal.Queue.
func (e *DitherEngine) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu-dither: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu-dither: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu-dither: provider HalQueue is not hal.Queue")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.releaseLocked()
	e.device = device
	e.queue = queue
	e.externalDevice = true
	e.adapterName = "shared"

	if err := e.createPipeline(); err != nil {
		return fmt.Errorf("gpu-dither: create pipeline with shared device: %w", err)
	}
	e.gpuReady = true
	slogger().Info("gpu-dither: switched to shared GPU device")
	return nil
}

// Dither dithers the width x height image at mem[offset:] in place on the
// GPU. The contract is the CPU engine's: scratch follows the image and holds
// at least the encoded matrix.
func (e *DitherEngine) Dither(mem []byte, width, height, offset, scratchLen uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.gpuReady {
		return ErrNotReady
	}
	if offset%4 != 0 {
		return fmt.Errorf("%w: offset %d", ErrUnaligned, offset)
	}
	if err := validate(len(mem), width, height, offset, scratchLen, e.matrix.ByteSize()); err != nil {
		return err
	}

	imageSize := uint64(width) * uint64(height) * 4
	scratchOff := uint64(offset) + imageSize
	e.matrix.Encode(mem[scratchOff : scratchOff+uint64(e.matrix.ByteSize())])

	regionSize := imageSize + uint64(e.matrix.ByteSize())
	region := mem[offset : uint64(offset)+regionSize]
	params := makeParams(width, height, 0, uint32(imageSize/4), uint32(e.matrix.N), uint32(e.levels)) //nolint:gosec // bounded by validate

	return e.dispatch(region, params, width, height, imageSize)
}

func validate(memLen int, width, height, offset, scratchLen uint32, matrixBytes int) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ordered.ErrPrecondition, width, height)
	}
	imageEnd := uint64(offset) + uint64(width)*uint64(height)*4
	if uint64(scratchLen) < uint64(matrixBytes) {
		return fmt.Errorf("%w: scratch %d bytes, matrix needs %d", ordered.ErrPrecondition, scratchLen, matrixBytes)
	}
	if imageEnd+uint64(scratchLen) > uint64(memLen) {
		return fmt.Errorf("%w: region ends at %d, memory is %d bytes",
			ordered.ErrPrecondition, imageEnd+uint64(scratchLen), memLen)
	}
	return nil
}

// makeParams returns the 32-byte Params uniform.
func makeParams(width, height, imageWord, scratchWord, n, levels uint32) []byte {
	b := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(b[0:], width)
	binary.LittleEndian.PutUint32(b[4:], height)
	binary.LittleEndian.PutUint32(b[8:], imageWord)
	binary.LittleEndian.PutUint32(b[12:], scratchWord)
	binary.LittleEndian.PutUint32(b[16:], n)
	binary.LittleEndian.PutUint32(b[20:], levels)
	return b
}

// dispatch uploads region, runs one compute pass and copies the image part
// of the result back into region.
func (e *DitherEngine) dispatch(region, params []byte, w, h uint32, imageSize uint64) error {
	regionSize := uint64(len(region))

	paramsBuf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "dither_params", Size: paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create params buffer: %w", err)
	}
	defer e.device.DestroyBuffer(paramsBuf)

	storageBuf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "dither_region", Size: regionSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create storage buffer: %w", err)
	}
	defer e.device.DestroyBuffer(storageBuf)

	stagingBuf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "dither_staging", Size: imageSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer e.device.DestroyBuffer(stagingBuf)

	e.queue.WriteBuffer(paramsBuf, 0, params)
	e.queue.WriteBuffer(storageBuf, 0, region)

	bg, err := e.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "dither_bind", Layout: e.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: paramsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: storageBuf.NativeHandle(), Offset: 0, Size: regionSize}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer e.device.DestroyBindGroup(bg)

	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "dither_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("dither"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "dither_pass"})
	pass.SetPipeline(e.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch((w+7)/8, (h+7)/8, 1)
	pass.End()

	encoder.CopyBufferToBuffer(storageBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: imageSize},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer e.device.FreeCommandBuffer(cmdBuf)

	fence, err := e.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer e.device.DestroyFence(fence)
	if err := e.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := waitResult(e.device.Wait(fence, 1, fenceTimeout)); err != nil {
		return err
	}

	if err := e.queue.ReadBuffer(stagingBuf, 0, region[:imageSize]); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	return nil
}

func (e *DitherEngine) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	e.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	e.device = openDev.Device
	e.queue = openDev.Queue
	if err := e.createPipeline(); err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	e.adapterName = selected.Info.Name
	e.gpuReady = true
	slogger().Info("gpu-dither: engine initialized", "adapter", selected.Info.Name)
	return nil
}

func (e *DitherEngine) createPipeline() error {
	spirv, err := CompileShaderToSPIRV(ditherShaderWGSL)
	if err != nil {
		return err
	}
	slogger().Debug("gpu-dither: shader compiled", "spirv_words", len(spirv))

	shader, err := e.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "dither",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create dither shader module: %w", err)
	}
	e.shader = shader

	bindLayout, err := e.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "dither_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create dither bind group layout: %w", err)
	}
	e.bindLayout = bindLayout

	pipeLayout, err := e.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "dither_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{e.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create dither pipeline layout: %w", err)
	}
	e.pipeLayout = pipeLayout

	pipeline, err := e.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "dither_pipeline", Layout: e.pipeLayout,
		Compute: hal.ComputeState{Module: e.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create dither compute pipeline: %w", err)
	}
	e.pipeline = pipeline
	return nil
}

func (e *DitherEngine) destroyPipeline() {
	if e.device == nil {
		return
	}
	if e.pipeline != nil {
		e.device.DestroyComputePipeline(e.pipeline)
		e.pipeline = nil
	}
	if e.pipeLayout != nil {
		e.device.DestroyPipelineLayout(e.pipeLayout)
		e.pipeLayout = nil
	}
	if e.bindLayout != nil {
		e.device.DestroyBindGroupLayout(e.bindLayout)
		e.bindLayout = nil
	}
	if e.shader != nil {
		e.device.DestroyShaderModule(e.shader)
		e.shader = nil
	}
}

// waitResult converts the outcome of a fence wait into an error.
func waitResult(signaled bool, err error) error {
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !signaled {
		return fmt.Errorf("%w after %v", ErrTimeout, fenceTimeout)
	}
	return nil
}
