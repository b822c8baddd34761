// Package offsets implements startup offset discovery (spec §4.3, component
// C3): it walks kernel BTF type metadata to populate a telemetry.Config with
// byte offsets into task_struct/sched_entity/rss_stat, so the BPF probes can
// read those fields without being recompiled per kernel version. Grounded on
// the teacher's internal/ebpf/btf.go (kernel version + BTF-availability
// probing) and on cilium/ebpf's own BTF API, which the teacher already
// depends on for collection loading.
package offsets

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cilium/ebpf/btf"

	"github.com/linnix-systems/cognitod/internal/telemetry"
)

// ErrUnsupportedKernelLayout is returned when no known RSS accounting path
// (MM or SIGNAL) can be resolved from BTF (spec §4.3).
var ErrUnsupportedKernelLayout = errors.New("offsets: unsupported kernel layout")

// candidate rss_stat owner field names to try, in order, on task_struct.
var rssOwnerFields = []string{"mm", "signal"}

// knownPageKindEnumNames are the type names resolvePageKindEnum tries first
// for the MM_* page kind enum; when none match, it falls back to scanning
// every enum in the BTF spec for a matching variant name.
var knownPageKindEnumNames = []string{"mm_struct", "rss_stat_type"}

// BTFPathEnv overrides the well-known BTF metadata path (spec §6:
// SYSTEM_BTF_PATH).
const BTFPathEnv = "SYSTEM_BTF_PATH"

// LoadSpec loads kernel BTF metadata either from the path named by
// SYSTEM_BTF_PATH or from the running kernel's exported BTF.
func LoadSpec() (*btf.Spec, error) {
	if path := os.Getenv(BTFPathEnv); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("offsets: open %s: %w", path, err)
		}
		defer f.Close()
		spec, err := btf.LoadSpecFromReader(f)
		if err != nil {
			return nil, fmt.Errorf("offsets: parse BTF at %s: %w", path, err)
		}
		return spec, nil
	}

	spec, err := btf.LoadKernelSpec()
	if err != nil {
		return nil, fmt.Errorf("offsets: load kernel BTF: %w", err)
	}
	return spec, nil
}

// DeriveConfig produces a fully populated telemetry.Config by reading BTF
// type metadata (spec §4.3).
func DeriveConfig(spec *btf.Spec) (*telemetry.Config, error) {
	var task btf.Struct
	if err := spec.TypeByName("task_struct", &task); err != nil {
		return nil, fmt.Errorf("offsets: find task_struct: %w", err)
	}

	cfg := &telemetry.Config{
		PageSizeBytes: defaultPageSize(),
		TotalMemoryKB: readTotalMemoryKB(),
	}

	var err error
	if cfg.RealParentOffset, _, err = memberOffset(&task, "real_parent"); err != nil {
		return nil, err
	}
	if cfg.TgidOffset, _, err = memberOffset(&task, "tgid"); err != nil {
		return nil, err
	}
	if cfg.PidOffset, _, err = memberOffset(&task, "pid"); err != nil {
		return nil, err
	}
	if cfg.CommOffset, _, err = memberOffset(&task, "comm"); err != nil {
		return nil, err
	}

	seOffset, seType, err := memberOffset(&task, "se")
	if err != nil {
		return nil, err
	}
	cfg.SeOffset = seOffset

	seStruct, err := resolveStruct(seType)
	if err != nil {
		return nil, fmt.Errorf("offsets: resolve sched_entity: %w", err)
	}
	if cfg.SumExecRuntimeOffset, _, err = memberOffset(seStruct, "sum_exec_runtime"); err != nil {
		return nil, err
	}

	signalOffset, signalType, errSignal := memberOffset(&task, "signal")
	if errSignal == nil {
		cfg.SignalOffset = signalOffset
	}
	mmOffset, mmType, errMM := memberOffset(&task, "mm")
	if errMM == nil {
		cfg.MMOffset = mmOffset
	}

	fileIdx, anonIdx, errEnum := resolvePageKindEnum(spec)
	if errEnum != nil {
		return nil, fmt.Errorf("offsets: resolve MM_FILEPAGES/MM_ANONPAGES: %w", errEnum)
	}
	cfg.RSSFileIndex = fileIdx
	cfg.RSSAnonIndex = anonIdx

	// Prefer MM source, fall back to SIGNAL, else fail (spec §4.3).
	if errMM == nil {
		if off, stride, ok := resolveRSSStat(mmType); ok {
			cfg.RSSSource = telemetry.RSSSourceMM
			cfg.RSSStatOffset = off
			cfg.RSSCountOffset, cfg.RSSStride = 0, stride
			return cfg, nil
		}
	}
	if errSignal == nil {
		if off, stride, ok := resolveRSSStat(signalType); ok {
			cfg.RSSSource = telemetry.RSSSourceSignal
			cfg.RSSStatOffset = off
			cfg.RSSCountOffset, cfg.RSSStride = 0, stride
			return cfg, nil
		}
	}

	return nil, ErrUnsupportedKernelLayout
}

// memberOffset returns a struct member's byte offset and type. Per spec
// §4.3, every offset must divide evenly into bytes; a bit-packed field is an
// error.
func memberOffset(s *btf.Struct, name string) (uint32, btf.Type, error) {
	for _, m := range s.Members {
		if m.Name != name {
			continue
		}
		if m.Offset%8 != 0 {
			return 0, nil, fmt.Errorf("offsets: member %q is not byte-aligned (bit offset %d)", name, m.Offset)
		}
		return uint32(m.Offset / 8), m.Type, nil
	}
	return 0, nil, fmt.Errorf("offsets: member %q not found on %s", name, s.TypeName())
}

// resolveStruct dereferences pointers/typedefs/consts down to the underlying
// struct type.
func resolveStruct(t btf.Type) (*btf.Struct, error) {
	for i := 0; i < 16; i++ {
		switch v := t.(type) {
		case *btf.Struct:
			return v, nil
		case *btf.Pointer:
			t = v.Target
		case *btf.Typedef:
			t = v.Type
		case *btf.Const:
			t = v.Type
		case *btf.Volatile:
			t = v.Type
		default:
			return nil, fmt.Errorf("offsets: %T is not a struct", t)
		}
	}
	return nil, fmt.Errorf("offsets: type chain too deep resolving struct")
}

// resolveRSSStat recursively descends t (and any anonymous inline struct or
// union members) looking for a member named "count" that is an array, per
// spec §4.3: "walk either signal→rss_stat or mm→rss_stat, recursively
// descending anonymous inline containers, to locate a count array whose
// stride is determined from its element type."
func resolveRSSStat(t btf.Type) (offset uint32, stride uint32, ok bool) {
	s, err := resolveStruct(t)
	if err != nil {
		return 0, 0, false
	}

	// Direct or nested rss_stat member.
	for _, m := range s.Members {
		if m.Offset%8 != 0 {
			continue
		}
		base := uint32(m.Offset / 8)

		if arr, isArr := arrayType(m.Type); isArr && strings.Contains(strings.ToLower(m.Name), "count") {
			return base, arrayElementStride(arr), true
		}

		if nested, err := resolveStruct(m.Type); err == nil {
			if isAnonymousContainer(nested) || strings.Contains(strings.ToLower(m.Name), "rss_stat") {
				if off, str, ok := resolveRSSStat(nested); ok {
					return base + off, str, true
				}
			}
		}
	}
	return 0, 0, false
}

func isAnonymousContainer(s *btf.Struct) bool {
	return s.TypeName() == ""
}

func arrayType(t btf.Type) (*btf.Array, bool) {
	if arr, ok := t.(*btf.Array); ok {
		return arr, true
	}
	return nil, false
}

func arrayElementStride(arr *btf.Array) uint32 {
	if sized, ok := arr.Type.(interface{ TypeSize() uint32 }); ok {
		return sized.TypeSize()
	}
	// Conservative default: most kernels use a plain `long` counter (8 bytes
	// on 64-bit, atomic_long_t wraps the same width).
	return 8
}

// resolvePageKindEnum finds the numeric values of the MM_FILEPAGES and
// MM_ANONPAGES variants, first checking knownPageKindEnumNames, then
// scanning every enum in the spec (spec §4.3).
func resolvePageKindEnum(spec *btf.Spec) (fileIdx, anonIdx uint32, err error) {
	for _, name := range knownPageKindEnumNames {
		var e btf.Enum
		if err := spec.TypeByName(name, &e); err != nil {
			continue
		}
		if f, a, ok := scanEnumValues(&e); ok {
			return f, a, nil
		}
	}

	it := spec.Iterate()
	for it.Next() {
		e, ok := it.Type.(*btf.Enum)
		if !ok {
			continue
		}
		if f, a, ok := scanEnumValues(e); ok {
			return f, a, nil
		}
	}
	return 0, 0, fmt.Errorf("MM_FILEPAGES/MM_ANONPAGES not found in any enum")
}

func scanEnumValues(e *btf.Enum) (fileIdx, anonIdx uint32, ok bool) {
	var foundFile, foundAnon bool
	for _, v := range e.Values {
		switch v.Name {
		case "MM_FILEPAGES":
			fileIdx, foundFile = uint32(v.Value), true
		case "MM_ANONPAGES":
			anonIdx, foundAnon = uint32(v.Value), true
		}
	}
	return fileIdx, anonIdx, foundFile && foundAnon
}

func defaultPageSize() uint64 {
	return 4096
}

func readTotalMemoryKB() uint64 {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0
		}
		kb, _ := strconv.ParseUint(fields[1], 10, 64)
		return kb
	}
	return 0
}
