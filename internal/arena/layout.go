package arena

import (
	"errors"
	"fmt"
	"math"
)

// BytesPerPixel is the size of one RGBA8 pixel.
const BytesPerPixel = 4

var (
	// ErrImageTooLarge is returned when the image byte size does not fit the
	// 32-bit engine interface.
	ErrImageTooLarge = errors.New("arena: image too large")

	// ErrRegionTooSmall is returned when the region cannot hold the image.
	ErrRegionTooSmall = errors.New("arena: region too small for image")
)

// Layout describes where the image and the scratch area live in the region.
type Layout struct {
	ImageOffset   uint32
	ImageSize     uint32
	ScratchOffset uint32
	ScratchSize   uint32
}

// ImageBytes returns width*height*4, or an error if it overflows 32 bits.
func ImageBytes(width, height uint32) (uint64, error) {
	n := uint64(width) * uint64(height) * BytesPerPixel
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, width, height)
	}
	return n, nil
}

// LayoutFor places a width x height image at offset 0 of a region of
// regionSize bytes and hands the rest of the region to scratch.
func LayoutFor(width, height uint32, regionSize uint64) (Layout, error) {
	imageSize, err := ImageBytes(width, height)
	if err != nil {
		return Layout{}, err
	}
	if imageSize > regionSize {
		return Layout{}, fmt.Errorf("%w: need %d bytes, region has %d", ErrRegionTooSmall, imageSize, regionSize)
	}
	scratch := regionSize - imageSize
	if scratch > math.MaxUint32 {
		scratch = math.MaxUint32
	}
	return Layout{
		ImageOffset:   0,
		ImageSize:     uint32(imageSize), //nolint:gosec // checked above
		ScratchOffset: uint32(imageSize), //nolint:gosec // checked above
		ScratchSize:   uint32(scratch),   //nolint:gosec // clamped above
	}, nil
}

// End returns the first byte past the scratch area.
func (l Layout) End() uint64 {
	return uint64(l.ScratchOffset) + uint64(l.ScratchSize)
}

// String implements fmt.Stringer.
func (l Layout) String() string {
	return fmt.Sprintf("Layout[image %d+%d, scratch %d+%d]",
		l.ImageOffset, l.ImageSize, l.ScratchOffset, l.ScratchSize)
}
