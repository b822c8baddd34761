package offsets

import (
	"testing"

	"github.com/cilium/ebpf/btf"
)

func intType(name string, size uint32) *btf.Int {
	return &btf.Int{Name: name, Size: size}
}

func TestMemberOffset(t *testing.T) {
	s := &btf.Struct{
		Name: "task_struct",
		Members: []btf.Member{
			{Name: "tgid", Type: intType("pid_t", 4), Offset: 32},
			{Name: "pid", Type: intType("pid_t", 4), Offset: 64},
		},
	}

	off, _, err := memberOffset(s, "pid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if off != 8 {
		t.Errorf("pid offset = %d, want 8", off)
	}

	if _, _, err := memberOffset(s, "missing"); err == nil {
		t.Error("expected error for missing member")
	}
}

func TestMemberOffsetRejectsBitfield(t *testing.T) {
	s := &btf.Struct{
		Name: "task_struct",
		Members: []btf.Member{
			{Name: "flags", Type: intType("unsigned int", 4), Offset: 5},
		},
	}
	if _, _, err := memberOffset(s, "flags"); err == nil {
		t.Error("expected error for non-byte-aligned member")
	}
}

func TestScanEnumValues(t *testing.T) {
	e := &btf.Enum{
		Name: "mm_rss_stat_item",
		Values: []btf.EnumValue{
			{Name: "MM_FILEPAGES", Value: 0},
			{Name: "MM_ANONPAGES", Value: 1},
			{Name: "MM_SWAPENTS", Value: 2},
		},
	}
	fileIdx, anonIdx, ok := scanEnumValues(e)
	if !ok {
		t.Fatal("expected to find both variants")
	}
	if fileIdx != 0 || anonIdx != 1 {
		t.Errorf("got file=%d anon=%d", fileIdx, anonIdx)
	}
}

func TestScanEnumValuesMissing(t *testing.T) {
	e := &btf.Enum{Values: []btf.EnumValue{{Name: "SOMETHING_ELSE", Value: 0}}}
	if _, _, ok := scanEnumValues(e); ok {
		t.Error("expected no match")
	}
}

func TestResolveRSSStatDirect(t *testing.T) {
	rssStat := &btf.Struct{
		Name: "mm_rss_stat",
		Members: []btf.Member{
			{Name: "count", Type: &btf.Array{Type: intType("atomic_long_t", 8), Nelems: 4}, Offset: 0},
		},
	}
	mm := &btf.Struct{
		Name: "mm_struct",
		Members: []btf.Member{
			{Name: "mmap_base", Type: intType("unsigned long", 8), Offset: 0},
			{Name: "rss_stat", Type: rssStat, Offset: 64},
		},
	}

	off, stride, ok := resolveRSSStat(mm)
	if !ok {
		t.Fatal("expected to resolve rss_stat")
	}
	if off != 8 {
		t.Errorf("offset = %d, want 8", off)
	}
	if stride != 8 {
		t.Errorf("stride = %d, want 8", stride)
	}
}

func TestResolveRSSStatNestedAnonymous(t *testing.T) {
	innerCount := &btf.Struct{
		Members: []btf.Member{
			{Name: "count", Type: &btf.Array{Type: intType("long", 8), Nelems: 4}, Offset: 0},
		},
	}
	rssStat := &btf.Struct{
		Name: "",
		Members: []btf.Member{
			{Name: "", Type: innerCount, Offset: 0},
		},
	}
	signal := &btf.Struct{
		Name: "signal_struct",
		Members: []btf.Member{
			{Name: "rss_stat", Type: rssStat, Offset: 128},
		},
	}

	off, stride, ok := resolveRSSStat(signal)
	if !ok {
		t.Fatal("expected to resolve nested rss_stat")
	}
	if off != 16 {
		t.Errorf("offset = %d, want 16", off)
	}
	if stride != 8 {
		t.Errorf("stride = %d, want 8", stride)
	}
}

func TestResolveRSSStatNotFound(t *testing.T) {
	mm := &btf.Struct{
		Name: "mm_struct",
		Members: []btf.Member{
			{Name: "mmap_base", Type: intType("unsigned long", 8), Offset: 0},
		},
	}
	if _, _, ok := resolveRSSStat(mm); ok {
		t.Error("expected no rss_stat found")
	}
}
