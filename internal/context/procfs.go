package context

import (
	"os"
	"strconv"
)

// readDirNames lists a directory's entry names; used to enumerate
// /proc/[pid] directories for the system-wide top-CPU fallback.
func readDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func parsePID(name string) (uint32, bool) {
	v, err := strconv.ParseUint(name, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
