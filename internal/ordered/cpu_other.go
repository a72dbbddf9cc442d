//go:build !amd64 && !arm64

package ordered

// Other architectures run the scalar kernel.
func hasWideWords() bool { return false }
