// Package arena manages the single linear memory region shared between the
// host and a dithering engine.
//
// # Region Layout
//
// The region is one contiguous byte slice whose length is always a whole
// number of 64 KiB pages. An image occupies the front of the region and the
// engine's scratch area follows it with no gap:
//
//	offset 0                 imageSize                     Size()
//	|------ RGBA8 pixels -----|---- scratch (matrix, ...) ----|
//
// The image is always at offset 0. The scratch offset is always exactly the
// image byte size. Everything past the image is handed to the engine as
// scratch, and [ScratchReserve] bytes of it are guaranteed by [Manager.Ensure].
//
// # Growth
//
// Growth is append-only: [Memory.Grow] adds zeroed pages at the end and keeps
// every existing byte at its offset. The region never shrinks. Slices returned
// by [Memory.Bytes] before a Grow may refer to the old backing array, so
// callers re-fetch them after growing, the same way a WebAssembly host
// re-wraps memory.buffer.
//
// [Manager.Ensure] computes the minimal page count for a requirement and
// issues at most one Grow per call. When the allocator refuses, the region is
// left exactly as it was and the caller must not write pixels or run the
// engine for that image.
package arena
