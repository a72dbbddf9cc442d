package ordered

import (
	"os"
	"strconv"
)

// Kernel selects the row loop used by Dither.
type Kernel int

const (
	// KernelAuto picks the kernel for the running CPU with DetectKernel.
	KernelAuto Kernel = iota

	// KernelScalar evaluates the formula per channel in float64.
	KernelScalar

	// KernelWide looks up per-threshold level tables and rewrites four
	// pixels per step through two 64-bit words.
	KernelWide
)

// String returns the kernel name.
func (k Kernel) String() string {
	switch k {
	case KernelAuto:
		return "auto"
	case KernelScalar:
		return "scalar"
	case KernelWide:
		return "wide"
	default:
		return "unknown"
	}
}

// DetectKernel returns KernelWide when the CPU has native 64-bit vector
// registers (SSE2 on amd64, ASIMD on arm64) and KernelScalar otherwise.
// A true DITHER_SCALAR forces KernelScalar.
func DetectKernel() Kernel {
	if noWideEnv() {
		return KernelScalar
	}
	if hasWideWords() {
		return KernelWide
	}
	return KernelScalar
}

// noWideEnv reports whether DITHER_SCALAR disables the wide kernel.
// Unparsable values count as true.
func noWideEnv() bool {
	v := os.Getenv("DITHER_SCALAR")
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err != nil || b
}
