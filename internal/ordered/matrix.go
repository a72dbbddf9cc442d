package ordered

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// MaxMatrixSize is the largest supported matrix side. A 16x16 table of
// float32 thresholds fills the 1024-byte scratch reserve exactly.
const MaxMatrixSize = 16

// ErrMatrixSize is returned for a matrix side that is not 2, 4, 8 or 16.
var ErrMatrixSize = errors.New("ordered: matrix size must be 2, 4, 8 or 16")

// Matrix is a square threshold matrix tiled over the image.
// T holds N*N thresholds in [0, 1), row-major.
type Matrix struct {
	N int
	T []float32
}

// Bayer returns the n x n Bayer matrix with thresholds (v + 0.5) / n².
func Bayer(n int) (Matrix, error) {
	switch n {
	case 2, 4, 8, 16:
	default:
		return Matrix{}, fmt.Errorf("%w: got %d", ErrMatrixSize, n)
	}

	// Index matrix built by doubling: M(2k) = [4M, 4M+2; 4M+3, 4M+1].
	idx := []int{0}
	for size := 1; size < n; size *= 2 {
		next := make([]int, 4*size*size)
		stride := 2 * size
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				v := 4 * idx[y*size+x]
				next[y*stride+x] = v
				next[y*stride+x+size] = v + 2
				next[(y+size)*stride+x] = v + 3
				next[(y+size)*stride+x+size] = v + 1
			}
		}
		idx = next
	}

	area := float32(n * n)
	t := make([]float32, n*n)
	for i, v := range idx {
		t[i] = (float32(v) + 0.5) / area
	}
	return Matrix{N: n, T: t}, nil
}

// MustBayer is like Bayer but panics on an invalid size.
func MustBayer(n int) Matrix {
	m, err := Bayer(n)
	if err != nil {
		panic(err)
	}
	return m
}

// At returns the threshold for pixel (x, y).
func (m Matrix) At(x, y int) float32 {
	return m.T[(y%m.N)*m.N+x%m.N]
}

// ByteSize returns the size of the matrix encoded in scratch.
func (m Matrix) ByteSize() int {
	return m.N * m.N * 4
}

// Encode writes the thresholds to dst as little-endian float32.
// dst must hold at least ByteSize bytes.
func (m Matrix) Encode(dst []byte) {
	for i, v := range m.T {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// threshold reads entry i of an encoded matrix.
func threshold(scratch []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(scratch[i*4:]))
}
