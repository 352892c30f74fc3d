package vm

import (
	"path/filepath"
	"sort"
	"strings"
)

// OrderFiles returns 'paths' reordered so that 'Sys.vm' (if present) comes first, followed
// by every other file in alphabetical order. The VM translator must start the bootstrap's
// 'call Sys.init 0' only after Sys.vm's own top-level declarations have been seen by the
// caller, and nand2tetris programs rely on a deterministic, reproducible build order.
func OrderFiles(paths []string) []string {
	ordered := make([]string, len(paths))
	copy(ordered, paths)

	sort.Slice(ordered, func(i, j int) bool {
		iSys := strings.EqualFold(filepath.Base(ordered[i]), "Sys.vm")
		jSys := strings.EqualFold(filepath.Base(ordered[j]), "Sys.vm")
		if iSys != jSys {
			return iSys
		}
		return ordered[i] < ordered[j]
	})

	return ordered
}
