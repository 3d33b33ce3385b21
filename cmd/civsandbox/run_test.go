package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestResolveParameters(t *testing.T) {
	defaults := sim.DefaultParameters()

	t.Run("defaults when nothing is set", func(t *testing.T) {
		p, err := resolveParameters(runFlags{}, changedSet(), defaults)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p != defaults {
			t.Fatalf("expected defaults, got %+v", p)
		}
	})

	t.Run("flags override defaults", func(t *testing.T) {
		f := runFlags{horizon: "10k", autonomy: 90, risk: 90}
		p, err := resolveParameters(f, changedSet("horizon", "autonomy", "risk"), defaults)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p.Horizon != sim.HorizonLong || p.AutonomyLevel != 90 || p.RiskTolerance != 90 || p.StepCount != 50 {
			t.Fatalf("unexpected parameters %+v", p)
		}
	})

	t.Run("flags override params file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "params.json")
		body := `{"decision":"Open the archives","duration_steps":12,"risk":70}`
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("writing params: %v", err)
		}
		f := runFlags{paramsFile: path, steps: 30}
		p, err := resolveParameters(f, changedSet("params", "steps"), defaults)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p.Directive != "Open the archives" || p.StepCount != 30 || p.RiskTolerance != 70 {
			t.Fatalf("unexpected parameters %+v", p)
		}
	})

	t.Run("out of range flag is rejected", func(t *testing.T) {
		_, err := resolveParameters(runFlags{autonomy: 101}, changedSet("autonomy"), defaults)
		var verr *sim.ValidationError
		if !errors.As(err, &verr) || verr.Field != "autonomy_level" {
			t.Fatalf("expected autonomy_level validation error, got %v", err)
		}
	})

	t.Run("unknown horizon is rejected", func(t *testing.T) {
		if _, err := resolveParameters(runFlags{horizon: "eon"}, changedSet("horizon"), defaults); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("missing params file", func(t *testing.T) {
		f := runFlags{paramsFile: filepath.Join(t.TempDir(), "missing.json")}
		if _, err := resolveParameters(f, changedSet("params"), defaults); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestPrintRun(t *testing.T) {
	p := sim.Parameters{Directive: "Calm", Horizon: sim.HorizonShort, StepCount: 10}
	rec := sandbox.RunRecord{
		ID:         "run-1",
		Parameters: p,
		Result:     sim.Simulate(p),
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	var buf bytes.Buffer
	printRun(&buf, rec)

	out := buf.String()
	for _, want := range []string{
		"Run run-1 (2026-01-02T03:04:05Z)",
		"[INFO] SIMULATION INITIALIZED: Calm",
		"Final status: SAFE",
		"Risks:        none",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestDirectiveSnippet(t *testing.T) {
	if got := directiveSnippet("  spread\n over   lines "); got != "spread over lines" {
		t.Fatalf("unexpected snippet %q", got)
	}
	long := strings.Repeat("x", 60)
	if got := directiveSnippet(long); len(got) != 48 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected snippet %q", got)
	}
	wide := strings.Repeat("é", 60)
	got := directiveSnippet(wide)
	if !utf8.ValidString(got) || utf8.RuneCountInString(got) != 48 {
		t.Fatalf("expected 48 valid runes, got %q", got)
	}
}

func TestOpenArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		store, err := openArchive(ctx, "sqlite://"+filepath.Join(t.TempDir(), "runs.db"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer store.Close(ctx)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		if _, err := openArchive(ctx, "redis://localhost:6379"); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "civsandbox.yaml")
	if err := runInit(path, "demo"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if !strings.HasPrefix(string(data), "project: demo\n") {
		t.Fatalf("unexpected config:\n%s", data)
	}
	if err := runInit(path, "demo"); err == nil {
		t.Fatalf("expected error when config already exists")
	}
}
