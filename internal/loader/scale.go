package loader

import (
	"fmt"
	"image"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
)

// Cap returns the largest allowed image side for a viewport width:
// min(viewport, MaxDimension). A non-positive viewport yields MaxDimension.
func Cap(viewport int) int {
	if viewport <= 0 || viewport > MaxDimension {
		return MaxDimension
	}
	return viewport
}

// ScaledSize fits a w x h image under limit. If max(w, h) exceeds limit both
// sides are scaled by limit/max(w, h) and rounded independently to the
// nearest integer (halves round up, never below 1). Otherwise the size is
// returned unchanged.
func ScaledSize(w, h, limit int) (int, int) {
	largest := max(w, h)
	if limit <= 0 || largest <= limit {
		return w, h
	}
	return scaleDim(w, limit, largest), scaleDim(h, limit, largest)
}

func scaleDim(v, limit, largest int) int {
	s := int(math.Floor(float64(v)*float64(limit)/float64(largest) + 0.5))
	if s < 1 {
		s = 1
	}
	return s
}

// KernelByName returns the resampling kernel for name: "catmullrom" (default),
// "bilinear", "approxbilinear" or "nearest".
func KernelByName(name string) (xdraw.Interpolator, error) {
	switch strings.ToLower(name) {
	case "", "catmullrom":
		return xdraw.CatmullRom, nil
	case "bilinear":
		return xdraw.BiLinear, nil
	case "approxbilinear":
		return xdraw.ApproxBiLinear, nil
	case "nearest":
		return xdraw.NearestNeighbor, nil
	default:
		return nil, fmt.Errorf("loader: unknown kernel %q", name)
	}
}

// Scale draws src into a new w x h non-premultiplied RGBA image. When the
// size is unchanged the pixels are copied without resampling.
func Scale(src image.Image, w, h int, kernel xdraw.Interpolator) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		if s, ok := src.(*image.NRGBA); ok {
			for y := 0; y < h; y++ {
				copy(dst.Pix[y*dst.Stride:y*dst.Stride+w*4], s.Pix[s.PixOffset(b.Min.X, b.Min.Y+y):])
			}
			return dst
		}
		xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
		return dst
	}
	if kernel == nil {
		kernel = xdraw.CatmullRom
	}
	kernel.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// Monochrome replaces the RGB of every RGBA8 pixel in pix with the gray of
// equal CIE L* lightness. Alpha is untouched.
func Monochrome(pix []byte) {
	cache := make(map[uint32]uint8)
	for i := 0; i+3 < len(pix); i += 4 {
		key := uint32(pix[i])<<16 | uint32(pix[i+1])<<8 | uint32(pix[i+2])
		g, ok := cache[key]
		if !ok {
			g = lightnessGray(pix[i], pix[i+1], pix[i+2])
			cache[key] = g
		}
		pix[i], pix[i+1], pix[i+2] = g, g, g
	}
}

func lightnessGray(r, g, b uint8) uint8 {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	l, _, _ := c.Lab()
	gray := colorful.Lab(l, 0, 0).Clamped()
	return uint8(math.Floor(gray.R*255 + 0.5))
}
