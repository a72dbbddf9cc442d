//go:build amd64

package ordered

import "golang.org/x/sys/cpu"

func hasWideWords() bool { return cpu.X86.HasSSE2 }
