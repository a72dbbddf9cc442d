// Package dither applies ordered (Bayer matrix) dithering to RGBA8 images
// held in a shared, page-granular linear memory arena.
//
// # Overview
//
// A [Processor] owns one arena and one engine. For each image it:
//
//  1. grows the arena, in whole 64 KiB pages, until it holds the image plus a
//     fixed scratch reserve (at most one growth per image);
//  2. copies the image pixels to offset 0;
//  3. invokes the engine on the region, timing the call;
//  4. copies the dithered pixels out into the [Result].
//
// The region only grows. A later, smaller image reuses it without growth.
//
// # Quick Start
//
//	import "github.com/gogpu/dither"
//
//	p, err := dither.New(dither.WithMatrixSize(8))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	res, err := p.ProcessFile("photo.jpg", 1024)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Sample) // Ordered dithering performance: 0.012s, 43.69 megapixels/s
//
// # Engines
//
// The default engine runs on the CPU, optionally split into row bands across
// a worker pool. A GPU compute engine is available via blank import:
//
//	import _ "github.com/gogpu/dither/gpu"
//
// and selected with [WithEngine]("gpu") or [WithEngine]("auto").
//
// # Errors
//
// Failures are reported as [*Error] values wrapping one of the sentinels
// [ErrInitialization], [ErrCapacityGrowth], [ErrInvalidInput], [ErrIO],
// [ErrPrecondition], [ErrEngine] or [ErrBusy]. Content the loader rejects is
// ErrInvalidInput; a file that cannot be opened or read is ErrIO with the
// underlying cause, such as [io/fs.ErrNotExist], still in the chain. Every
// failure leaves the processor idle and ready for the next image.
package dither
