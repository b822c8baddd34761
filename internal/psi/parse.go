package psi

import (
	"strconv"
	"strings"
)

// ParsePressureFile parses a cpu.pressure/memory.pressure/io.pressure file's
// "some …" and "full …" lines, returning the monotonic total=<µs> stall
// counters. Grounded on the original's parse_psi_file and the teacher's
// parseCPUPSI, generalized to read "total" instead of "avg10"/"avg60": the
// blame engine needs the cumulative counter to compute a delta, not an
// instantaneous average.
func ParsePressureFile(content string) Snapshot {
	var snap Snapshot
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		prefix := fields[0]
		if prefix != "some" && prefix != "full" {
			continue
		}
		for _, field := range fields[1:] {
			kv := strings.SplitN(field, "=", 2)
			if len(kv) != 2 || kv[0] != "total" {
				continue
			}
			v, err := strconv.ParseUint(kv[1], 10, 64)
			if err != nil {
				continue
			}
			if prefix == "some" {
				snap.SomeTotal = v
			} else {
				snap.FullTotal = v
			}
		}
	}
	return snap
}
