package psi

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// DefaultCgroupRoot is the standard unified-hierarchy cgroup mount point.
const DefaultCgroupRoot = "/sys/fs/cgroup"

// containerIDLen is the length of a full container hash suffix.
const containerIDLen = 64

// FindPressureFiles walks base for every cpu.pressure file under a
// kubepods-managed cgroup. Uses the standard library's filepath.WalkDir
// rather than a third-party directory-walking library: none appears
// anywhere in the example pack (the original Rust project's own walkdir
// crate has no idiomatic Go counterpart in this dependency surface), and
// WalkDir is the stdlib's direct, allocation-light equivalent.
func FindPressureFiles(base string) []string {
	var out []string
	_ = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree (permissions, race with cgroup teardown): skip
		}
		if d.IsDir() {
			return nil
		}
		if d.Name() != "cpu.pressure" {
			return nil
		}
		if !strings.Contains(path, "kubepods") {
			return nil
		}
		out = append(out, path)
		return nil
	})
	return out
}

// ExtractContainerID pulls the container id suffix (the part after the last
// '-') out of a cpu.pressure file's parent directory name, trimming a
// trailing ".scope". Returns ok=false unless that suffix is exactly 64
// characters long (e.g. for a pod-level or qos-level cgroup directory);
// the characters are not checked to be hex digits.
func ExtractContainerID(pressureFilePath string) (string, bool) {
	dir := filepath.Dir(pressureFilePath)
	name := filepath.Base(dir)
	clean := strings.TrimSuffix(name, ".scope")

	id := clean
	if idx := strings.LastIndexByte(clean, '-'); idx >= 0 {
		id = clean[idx+1:]
	}
	if len(id) != containerIDLen {
		return "", false
	}
	return id, true
}
