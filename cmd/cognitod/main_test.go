package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/linnix-systems/cognitod/internal/handler"
	"github.com/linnix-systems/cognitod/internal/rules"
)

func TestRegisterHandlerFlagsRejectsMalformedSpec(t *testing.T) {
	list := &handler.List{}
	engine := rules.NewEngine(rules.DefaultRules(), 0)

	err := registerHandlerFlags(context.Background(), []string{"no-colon-here"}, list, engine)
	if err == nil {
		t.Fatal("expected an error for a spec without a kind:path separator")
	}
}

func TestRegisterHandlerFlagsRejectsUnknownKind(t *testing.T) {
	list := &handler.List{}
	engine := rules.NewEngine(rules.DefaultRules(), 0)

	err := registerHandlerFlags(context.Background(), []string{"bogus:/tmp/x"}, list, engine)
	if err == nil {
		t.Fatal("expected an error for an unknown handler kind")
	}
}

func TestRegisterHandlerFlagsRegistersJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")

	list := &handler.List{}
	engine := rules.NewEngine(rules.DefaultRules(), 0)

	if err := registerHandlerFlags(context.Background(), []string{"jsonl:" + path}, list, engine); err != nil {
		t.Fatalf("registerHandlerFlags: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected jsonl sink file to be created, stat failed: %v", err)
	}
}

func TestRegisterHandlerFlagsRegistersRulesSink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.jsonl")

	list := &handler.List{}
	engine := rules.NewEngine(rules.DefaultRules(), 0)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := registerHandlerFlags(ctx, []string{"rules:" + path}, list, engine); err != nil {
		t.Fatalf("registerHandlerFlags: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected rules sink file to be created, stat failed: %v", err)
	}
}

func TestRegisterHandlerFlagsPropagatesOpenFailure(t *testing.T) {
	list := &handler.List{}
	engine := rules.NewEngine(rules.DefaultRules(), 0)

	err := registerHandlerFlags(context.Background(), []string{"jsonl:/nonexistent-dir/does/not/exist.jsonl"}, list, engine)
	if err == nil {
		t.Fatal("expected an error when the sink path's directory does not exist")
	}
}

func TestNewSnapshotDiffCmdRequiresTwoArgs(t *testing.T) {
	cmd := newSnapshotDiffCmd()
	if err := cmd.Args(cmd, []string{"only-one.jsonl"}); err == nil {
		t.Fatal("expected an arg-count error for a single path")
	}
}

func TestNewSnapshotDiffCmdRunsAgainstFixtures(t *testing.T) {
	dir := t.TempDir()
	baseline := filepath.Join(dir, "baseline.jsonl")
	current := filepath.Join(dir, "current.jsonl")
	if err := os.WriteFile(baseline, []byte(`{"timestamp_unix":1000,"cpu_percent":10}`+"\n"), 0o644); err != nil {
		t.Fatalf("write baseline fixture: %v", err)
	}
	if err := os.WriteFile(current, []byte(`{"timestamp_unix":2000,"cpu_percent":95}`+"\n"), 0o644); err != nil {
		t.Fatalf("write current fixture: %v", err)
	}

	cmd := newSnapshotDiffCmd()
	cmd.SetArgs([]string{baseline, current})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		t.Fatalf("snapshot-diff: %v", err)
	}
}

func TestNewInstallDepsCmdHasDryRunFlag(t *testing.T) {
	cmd := newInstallDepsCmd()
	if cmd.Flags().Lookup("dry-run") == nil {
		t.Fatal("expected install-deps to expose a --dry-run flag")
	}
}

func TestExitErrorWrapsUnderlyingError(t *testing.T) {
	base := errors.New("boom")
	wrapped := &exitError{code: 2, err: base}

	if wrapped.Error() != "boom" {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), "boom")
	}
	if !errors.Is(wrapped, base) {
		t.Errorf("errors.Is(wrapped, base) = false, want true")
	}
}
