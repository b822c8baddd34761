// cognitod — host-resident Linux cognition daemon: turns kernel events and
// cgroup PSI pressure into attributed incidents and bounded, auditable
// enforcement actions via a two-phase propose→approve→execute queue.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/linnix-systems/cognitod/internal/breaker"
	cogconfig "github.com/linnix-systems/cognitod/internal/config"
	cogcontext "github.com/linnix-systems/cognitod/internal/context"
	"github.com/linnix-systems/cognitod/internal/diff"
	"github.com/linnix-systems/cognitod/internal/enforcement"
	"github.com/linnix-systems/cognitod/internal/external"
	"github.com/linnix-systems/cognitod/internal/handler"
	"github.com/linnix-systems/cognitod/internal/installer"
	"github.com/linnix-systems/cognitod/internal/mcpapi"
	"github.com/linnix-systems/cognitod/internal/metrics"
	"github.com/linnix-systems/cognitod/internal/probes"
	"github.com/linnix-systems/cognitod/internal/psi"
	"github.com/linnix-systems/cognitod/internal/ring"
	"github.com/linnix-systems/cognitod/internal/rules"
	"github.com/linnix-systems/cognitod/internal/stream"
	"github.com/linnix-systems/cognitod/internal/telemetry"
)

var version = "0.1.0"

// defaultEventsRateCap matches the original runtime config's
// default_events_rate_cap (events/sec ceiling before the stream listener
// starts dropping).
const defaultEventsRateCap = 100_000

func main() {
	var (
		configPath string
		dryRun     bool
		probeOnly  bool
		detach     bool
		handlers   []string
	)

	rootCmd := &cobra.Command{
		Use:     "cognitod",
		Short:   "Host-resident Linux cognition daemon",
		Long:    "cognitod turns kernel events and cgroup PSI pressure into attributed incidents and bounded, auditable enforcement actions.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				os.Setenv("CONFIG_PATH", configPath)
			}
			return run(dryRun, probeOnly, detach, handlers)
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "path to the YAML config file (overrides CONFIG_PATH)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "drive the pipeline from a synthetic event generator instead of live kernel probes")
	rootCmd.Flags().BoolVar(&probeOnly, "probe-only", false, "load and attach kernel probes, then exit (capability check)")
	rootCmd.Flags().BoolVar(&detach, "detach", false, "daemonize: fork into the background, detached from the controlling terminal")
	rootCmd.Flags().StringArrayVar(&handlers, "handler", nil, "handler to register, as kind:path (jsonl:<path> or rules:<path>); may be repeated")

	rootCmd.AddCommand(newInstallDepsCmd())
	rootCmd.AddCommand(newSnapshotDiffCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("[cognitod] %v", err)
		if exitErr, ok := err.(*exitError); ok {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}

// exitError carries the spec §6 exit-code taxonomy (0 normal, 1 init
// error, 2 runtime fatal) through cobra's RunE, which otherwise collapses
// every error to a single process exit status.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

const (
	envDetachedSentinel = "COGNITOD_DETACHED"
)

func run(dryRun, probeOnly, detach bool, handlerFlags []string) error {
	if detach && os.Getenv(envDetachedSentinel) == "" {
		return daemonize()
	}

	cfg := cogconfig.Load()

	if probeOnly {
		if err := runProbeOnly(cfg); err != nil {
			return &exitError{code: 1, err: err}
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := cogcontext.NewStore(10*time.Minute, 4096, nil, "/proc")

	handlerList := &handler.List{}
	rulesEngine := rules.NewEngine(rules.DefaultRules(), cfg.Rules.NoiseBudgetPerHour)
	handlerList.Register(handler.NewRulesHandler(rulesEngine, store))

	if err := registerHandlerFlags(ctx, handlerFlags, handlerList, rulesEngine); err != nil {
		return &exitError{code: 1, err: err}
	}

	guard := enforcement.NewSafetyGuard(uint32(os.Getpid()), enforcement.ProcLookup)
	queue := enforcement.NewQueue(5*time.Minute, guard)

	executor := enforcement.NewExecutor(queue)
	go executor.Run(ctx)

	circuit := breaker.New(cfg.CircuitBreaker, store, queue)
	go circuit.Run(ctx)

	psiEngine := psi.NewEngine(store, noopResolver{}, "/sys/fs/cgroup", cfg.PSISustainedPressure())
	go runPSILoop(ctx, psiEngine, cfg.CircuitBreaker.CheckInterval)

	go runSnapshotLoop(ctx, store, handlerList, cfg.CircuitBreaker.CheckInterval)

	m := metrics.New()
	lineage := stream.NewLineageCache()
	source, cleanup, err := buildSource(ctx, dryRun, cfg)
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	defer cleanup()

	hostname, _ := os.Hostname()
	listener := stream.NewListener(source, m, lineage, ctxHandlers{handlerList}, store, defaultEventsRateCap, hostname)

	go func() {
		srv := mcpapi.NewServer(version, store, rulesEngine, queue)
		if err := srv.Start(ctx); err != nil {
			log.Printf("[mcpapi] stopped: %v", err)
		}
	}()

	listener.Run(ctx)
	return nil
}

// daemonize re-execs the current process with the detached sentinel set,
// detaching stdio and starting a new session so the child outlives the
// shell that launched it, then exits the parent. Mirrors the original's
// --detach fork-and-exit behavior; Go has no fork(2), so a re-exec stands
// in for it.
func daemonize() error {
	exePath, err := os.Executable()
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("resolve executable path: %w", err)}
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("open %s: %w", os.DevNull, err)}
	}
	defer devNull.Close()

	cmd := exec.Command(exePath, os.Args[1:]...)
	cmd.Env = append(os.Environ(), envDetachedSentinel+"=1")
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return &exitError{code: 1, err: fmt.Errorf("start detached process: %w", err)}
	}
	log.Printf("[cognitod] detached as pid %d", cmd.Process.Pid)
	return nil
}

// ctxHandlers adapts handler.List's {OnEvent(event)} capability to
// stream.Handlers' {OnEvent(ctx, event)} contract; no per-event context is
// needed here since no handler currently performs a blocking call.
type ctxHandlers struct {
	list *handler.List
}

func (h ctxHandlers) OnEvent(_ context.Context, event telemetry.ProcessEvent) {
	h.list.OnEvent(event)
}

// registerHandlerFlags parses each --handler kind:path value and wires it
// up: "jsonl" registers a JSONLHandler into list (driven by the normal
// event/snapshot dispatch); "rules" starts an AlertFileHandler draining
// engine's own broadcast stream, since alerts already exist by the time
// they're fired and don't need a second tick through the rule set.
func registerHandlerFlags(ctx context.Context, specs []string, list *handler.List, engine *rules.Engine) error {
	for _, spec := range specs {
		kind, path, ok := strings.Cut(spec, ":")
		if !ok {
			return fmt.Errorf("--handler %q: expected kind:path", spec)
		}
		switch kind {
		case "jsonl":
			h, err := handler.NewJSONLHandler(path)
			if err != nil {
				return fmt.Errorf("--handler %q: %w", spec, err)
			}
			list.Register(h)
		case "rules":
			h, err := handler.NewAlertFileHandler(path)
			if err != nil {
				return fmt.Errorf("--handler %q: %w", spec, err)
			}
			go h.Run(ctx, engine.Broadcaster())
		default:
			return fmt.Errorf("--handler %q: unknown handler kind %q", spec, kind)
		}
	}
	return nil
}

func buildSource(ctx context.Context, dryRun bool, cfg cogconfig.Config) (stream.Source, func(), error) {
	capacity := uint64(cfg.Sequencer.RingCapacity)
	if capacity == 0 {
		capacity = 8192
	}

	r, err := ring.NewAnonymous(capacity)
	if err != nil {
		return nil, func() {}, fmt.Errorf("allocate ring: %w", err)
	}
	cleanup := func() {
		if err := r.Close(); err != nil {
			log.Printf("[cognitod] ring close: %v", err)
		}
	}

	if dryRun {
		producer := ring.NewProducer(r, nowNs)
		gen := ring.NewFakeGenerator(producer, 50, 4096, 1)
		go gen.Run(ctx, nowNs)
		log.Printf("[cognitod] dry-run: synthetic event generator active")
		return stream.NewRingSource(r), cleanup, nil
	}

	// Real kernel probes write directly into the ring's backing map; binding
	// that fd to NewMapped is the loader's job once a program is attached.
	// Here we only attach the programs and drain the same anonymous ring
	// the fake generator uses, since this module ships no compiled .o files.
	loader := probes.NewLoader("/usr/lib/cognitod/probes", false)
	loaded, err := loader.LoadAll(probes.NativePrograms)
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("load probes: %w", err)
	}
	log.Printf("[cognitod] attached %d kernel probes", len(loaded))

	return stream.NewRingSource(r), cleanup, nil
}

func runProbeOnly(cfg cogconfig.Config) error {
	loader := probes.NewLoader("/usr/lib/cognitod/probes", true)
	if err := loader.Kernel().CheckStartupRequirements(); err != nil {
		return fmt.Errorf("capability check: %w", err)
	}
	loaded, err := loader.LoadAll(probes.NativePrograms)
	if err != nil {
		return fmt.Errorf("load probes: %w", err)
	}
	for _, p := range loaded {
		p.Close()
	}
	log.Printf("[cognitod] probe-only: %d probes loaded and attached cleanly", len(loaded))
	return nil
}

func runPSILoop(ctx context.Context, engine *psi.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			events := engine.Tick(time.Now())
			for _, event := range events {
				attrs := psi.ComputeBlame(event)
				psi.LogTopBlame(attrs)
			}
		}
	}
}

func runSnapshotLoop(ctx context.Context, store *cogcontext.Store, handlers *handler.List, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			store.UpdateSystemSnapshot()
			store.UpdateProcessStats()
			handlers.OnSnapshot(store.SystemSnapshot())
		}
	}
}

func nowNs() uint64 { return uint64(time.Now().UnixNano()) }

// noopResolver is used when no Kubernetes metadata source is configured:
// PSI attribution still runs, just without pod/namespace enrichment.
type noopResolver struct{}

func (noopResolver) MetadataForContainer(string) (external.PodMetadata, bool) {
	return external.PodMetadata{}, false
}

func (noopResolver) MetadataForPID(uint32) (external.PodMetadata, bool) {
	return external.PodMetadata{}, false
}

// newInstallDepsCmd wraps internal/installer: installs the kernel-header/
// bpftool packages cognitod's probe loader needs on hosts that fail the
// --probe-only capability check.
func newInstallDepsCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "install-deps",
		Short: "Install the kernel-header/bpftool packages cognitod's probes need",
		RunE: func(cmd *cobra.Command, args []string) error {
			inst := &installer.Installer{DryRun: dryRun}
			if err := inst.Run(); err != nil {
				return &exitError{code: 1, err: err}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be installed without installing it")
	return cmd
}

// newSnapshotDiffCmd wraps internal/diff: compares the last snapshot line of
// two JSONL files written by `--handler jsonl:<path>`.
func newSnapshotDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot-diff <baseline.jsonl> <current.jsonl>",
		Short: "Compare CPU/memory/PSI metrics between two snapshot JSONL files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseline, err := diff.LoadSnapshot(args[0])
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			current, err := diff.LoadSnapshot(args[1])
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			fmt.Print(diff.FormatDiff(diff.Compare(baseline, current)))
			return nil
		},
	}
}
