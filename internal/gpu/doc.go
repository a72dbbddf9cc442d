// Package gpu runs ordered dithering as a WebGPU compute shader.
//
// The engine compiles shaders/dither.wgsl to SPIR-V with naga and drives it
// through the gogpu/wgpu HAL (Vulkan backend, zero CGO). The arena region that
// holds the image and its scratch area is uploaded as one storage buffer of
// u32 words. One invocation handles one pixel: it reads the threshold for
// (x mod N, y mod N) from the scratch words, quantizes R, G and B, and leaves
// alpha untouched. The dithered image words are copied back into the region.
//
// Build with -tags nogpu to compile a stub whose Init always fails, so
// callers fall back to the CPU engine.
package gpu
