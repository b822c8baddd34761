// Package probes loads and attaches the kernel-side instrumentation (C1):
// process lifecycle (exec/fork/exit), optional I/O hooks, and the raw
// syscall-enter tracer. The per-task CPU%/RSS% sampling, page-fault
// throttle, and slot submission live inside the compiled BPF object itself
// (the kernel program cannot be expressed in Go); this package is
// responsible for the userspace side: describing each program, loading its
// object file, attaching it, and toggling the sequencer feature flag once
// the ring is mapped. Grounded on the teacher's internal/ebpf/loader.go,
// generalized from its single tcpretrans.o entry to the full event
// category table.
package probes

import "github.com/linnix-systems/cognitod/internal/telemetry"

// Category groups a ProgramSpec by the kind of kernel hook it installs.
type Category string

const (
	CategoryLifecycle Category = "lifecycle"
	CategoryNetwork    Category = "network"
	CategoryFileIO     Category = "fileio"
	CategorySyscall    Category = "syscall"
	CategoryBlockIO    Category = "blockio"
	CategoryPageFault  Category = "pagefault"
)

// AttachKind selects how a program is wired to its kernel hook point.
type AttachKind int

const (
	AttachKprobe AttachKind = iota
	AttachKretprobe
	AttachTracepoint
	AttachRawTracepoint
)

func (k AttachKind) String() string {
	switch k {
	case AttachKprobe:
		return "kprobe"
	case AttachKretprobe:
		return "kretprobe"
	case AttachTracepoint:
		return "tracepoint"
	case AttachRawTracepoint:
		return "raw_tracepoint"
	default:
		return "unknown"
	}
}

// ProgramSpec describes one compiled BPF program: where its object file
// lives, which section/function to load, and how to attach it. Mirrors
// the teacher's ebpf.ProgramSpec, extended with EventType (so the loader
// can report which ProcessEvent category a program contributes to) and
// AttachKind (the teacher only ever attached kprobes).
type ProgramSpec struct {
	Name       string
	Category   Category
	EventType  telemetry.EventType
	ObjectFile string
	Section    string
	AttachTo   string
	Kind       AttachKind
}

// DefaultObjectDir is where compiled .o files are expected unless a
// program spec gives an absolute path.
const DefaultObjectDir = "/usr/lib/cognitod/bpf"

// NativePrograms enumerates the full probe set (spec §4.1): process
// lifecycle plus the optional I/O hooks and the raw-syscall tracer. The
// teacher's table held exactly one network probe (tcp_retransmit_skb);
// this generalizes it to every category the event-type enum names.
var NativePrograms = []ProgramSpec{
	{
		Name:       "proc_exec",
		Category:   CategoryLifecycle,
		EventType:  telemetry.EventExec,
		ObjectFile: "proc_lifecycle.o",
		Section:    "tracepoint/sched/sched_process_exec",
		AttachTo:   "sched_process_exec",
		Kind:       AttachTracepoint,
	},
	{
		Name:       "proc_fork",
		Category:   CategoryLifecycle,
		EventType:  telemetry.EventFork,
		ObjectFile: "proc_lifecycle.o",
		Section:    "tracepoint/sched/sched_process_fork",
		AttachTo:   "sched_process_fork",
		Kind:       AttachTracepoint,
	},
	{
		Name:       "proc_exit",
		Category:   CategoryLifecycle,
		EventType:  telemetry.EventExit,
		ObjectFile: "proc_lifecycle.o",
		Section:    "tracepoint/sched/sched_process_exit",
		AttachTo:   "sched_process_exit",
		Kind:       AttachTracepoint,
	},
	{
		Name:       "net_tcp_sendmsg",
		Category:   CategoryNetwork,
		EventType:  telemetry.EventNet,
		ObjectFile: "net_io.o",
		Section:    "kprobe/tcp_sendmsg",
		AttachTo:   "tcp_sendmsg",
		Kind:       AttachKprobe,
	},
	{
		Name:       "net_udp_sendmsg",
		Category:   CategoryNetwork,
		EventType:  telemetry.EventNet,
		ObjectFile: "net_io.o",
		Section:    "kprobe/udp_sendmsg",
		AttachTo:   "udp_sendmsg",
		Kind:       AttachKprobe,
	},
	{
		Name:       "net_unix_stream",
		Category:   CategoryNetwork,
		EventType:  telemetry.EventNet,
		ObjectFile: "net_io.o",
		Section:    "kprobe/unix_stream_sendmsg",
		AttachTo:   "unix_stream_sendmsg",
		Kind:       AttachKprobe,
	},
	{
		Name:       "vfs_read",
		Category:   CategoryFileIO,
		EventType:  telemetry.EventFileIO,
		ObjectFile: "file_io.o",
		Section:    "kprobe/vfs_read",
		AttachTo:   "vfs_read",
		Kind:       AttachKprobe,
	},
	{
		Name:       "vfs_write",
		Category:   CategoryFileIO,
		EventType:  telemetry.EventFileIO,
		ObjectFile: "file_io.o",
		Section:    "kprobe/vfs_write",
		AttachTo:   "vfs_write",
		Kind:       AttachKprobe,
	},
	{
		Name:       "raw_syscall_enter",
		Category:   CategorySyscall,
		EventType:  telemetry.EventSyscall,
		ObjectFile: "syscall.o",
		Section:    "raw_tracepoint/sys_enter",
		AttachTo:   "sys_enter",
		Kind:       AttachRawTracepoint,
	},
	{
		Name:       "block_rq_issue",
		Category:   CategoryBlockIO,
		EventType:  telemetry.EventBlockIO,
		ObjectFile: "block_io.o",
		Section:    "tracepoint/block/block_rq_issue",
		AttachTo:   "block_rq_issue",
		Kind:       AttachTracepoint,
	},
	{
		Name:       "block_rq_complete",
		Category:   CategoryBlockIO,
		EventType:  telemetry.EventBlockIO,
		ObjectFile: "block_io.o",
		Section:    "tracepoint/block/block_rq_complete",
		AttachTo:   "block_rq_complete",
		Kind:       AttachTracepoint,
	},
	{
		Name:       "page_fault_user",
		Category:   CategoryPageFault,
		EventType:  telemetry.EventPageFault,
		ObjectFile: "page_fault.o",
		Section:    "tracepoint/exceptions/page_fault_user",
		AttachTo:   "page_fault_user",
		Kind:       AttachTracepoint,
	},
}

// PageFaultThrottleNs is the minimum interval between emitted page-fault
// events for a given pid (spec §4.1).
const PageFaultThrottleNs = 50 * 1_000_000
