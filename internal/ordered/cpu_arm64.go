//go:build arm64

package ordered

import "golang.org/x/sys/cpu"

func hasWideWords() bool { return cpu.ARM64.HasASIMD }
