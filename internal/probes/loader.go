package probes

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"

	"github.com/linnix-systems/cognitod/internal/telemetry"
)

// LoadedProgram is a running BPF program plus the link keeping it attached.
// Mirrors the teacher's ebpf.LoadedProgram.
type LoadedProgram struct {
	Spec       *ProgramSpec
	Collection *ebpf.Collection
	Link       link.Link
}

// Close detaches and unloads a program. Safe to call on a zero value.
func (p *LoadedProgram) Close() error {
	if p.Link != nil {
		p.Link.Close()
	}
	if p.Collection != nil {
		p.Collection.Close()
	}
	return nil
}

// LoadError wraps a single program's load/attach failure with its name,
// matching the teacher's ebpf.LoadError.
type LoadError struct {
	Program string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("probes: program %q: %v", e.Program, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader loads and attaches ProgramSpecs found under ObjectDir. It does not
// write a telemetry.Config into the SEQUENCER_CONFIG map: neither Load nor
// LoadAll calls InjectConfig (flag.go).
type Loader struct {
	objectDir string
	kernel    *KernelInfo
	verbose   bool
}

// NewLoader constructs a Loader rooted at dir (DefaultObjectDir if empty).
func NewLoader(dir string, verbose bool) *Loader {
	if dir == "" {
		dir = DefaultObjectDir
	}
	return &Loader{objectDir: dir, kernel: DetectKernel(), verbose: verbose}
}

// Kernel returns the detected kernel capability report.
func (l *Loader) Kernel() *KernelInfo { return l.kernel }

// Load attaches a single ProgramSpec and returns the running program.
func (l *Loader) Load(spec *ProgramSpec) (*LoadedProgram, error) {
	path := spec.ObjectFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.objectDir, path)
	}

	collSpec, err := ebpf.LoadCollectionSpec(path)
	if err != nil {
		return nil, &LoadError{Program: spec.Name, Err: fmt.Errorf("load spec: %w", err)}
	}

	coll, err := ebpf.NewCollection(collSpec)
	if err != nil {
		return nil, &LoadError{Program: spec.Name, Err: fmt.Errorf("load collection: %w", err)}
	}

	prog := coll.Programs[spec.Section]
	if prog == nil {
		coll.Close()
		return nil, &LoadError{Program: spec.Name, Err: fmt.Errorf("section %q not found", spec.Section)}
	}

	lnk, err := attach(spec, prog)
	if err != nil {
		coll.Close()
		return nil, &LoadError{Program: spec.Name, Err: err}
	}

	if l.verbose {
		log.Printf("[probes] loaded %s (%s: %s)", spec.Name, spec.Kind, spec.AttachTo)
	}

	return &LoadedProgram{Spec: spec, Collection: coll, Link: lnk}, nil
}

func attach(spec *ProgramSpec, prog *ebpf.Program) (link.Link, error) {
	switch spec.Kind {
	case AttachKprobe:
		return link.Kprobe(spec.AttachTo, prog, nil)
	case AttachKretprobe:
		return link.Kretprobe(spec.AttachTo, prog, nil)
	case AttachTracepoint:
		group, name, err := splitTracepoint(spec.Section)
		if err != nil {
			return nil, err
		}
		return link.Tracepoint(group, name, prog, nil)
	case AttachRawTracepoint:
		return link.AttachRawTracepoint(link.RawTracepointOptions{Name: spec.AttachTo, Program: prog})
	default:
		return nil, fmt.Errorf("unknown attach kind %d", spec.Kind)
	}
}

// splitTracepoint turns "tracepoint/sched/sched_process_exec" into
// ("sched", "sched_process_exec"), the group/name pair link.Tracepoint
// expects.
func splitTracepoint(section string) (group, name string, err error) {
	parts := strings.SplitN(section, "/", 3)
	if len(parts) != 3 || parts[0] != "tracepoint" {
		return "", "", fmt.Errorf("malformed tracepoint section %q", section)
	}
	return parts[1], parts[2], nil
}

// LoadAll attaches every program in specs, closing any already-loaded
// program and returning the first error if one fails partway through.
func (l *Loader) LoadAll(specs []ProgramSpec) ([]*LoadedProgram, error) {
	loaded := make([]*LoadedProgram, 0, len(specs))
	for i := range specs {
		p, err := l.Load(&specs[i])
		if err != nil {
			for _, lp := range loaded {
				lp.Close()
			}
			return nil, err
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}

// EventTypeFor reports which ProcessEvent category a loaded program feeds,
// used by the stream listener to label events whose object file serves
// more than one hook point.
func EventTypeFor(p *LoadedProgram) telemetry.EventType {
	if p == nil || p.Spec == nil {
		return telemetry.EventSyscall
	}
	return p.Spec.EventType
}
