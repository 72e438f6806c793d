package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, vault string, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--vault", vault}, args...))
	if err := root.Execute(); err != nil {
		t.Fatalf("retort %s: %v\n%s", strings.Join(args, " "), err, errOut.String())
	}
	return out.String()
}

func TestSessionToReportFlow(t *testing.T) {
	vault := t.TempDir()
	created := run(t, vault, "session", "create",
		"--customer", "CV Maju", "--product", "Rendang", "--operator", "budi",
		"--date", "2026-03-02", "--baskets", "10,10,10", "--initial", "30", "--final", "30",
		"--reading", "0:95:0.8", "--reading", ":121.1:1.1", "--reading", ":121.5:1.1", "--reading", ":121.3:1.1",
	)
	fields := strings.Fields(created)
	if len(fields) < 3 || fields[0] != "session" {
		t.Fatalf("unexpected create output: %q", created)
	}
	sessionID := fields[2]

	evaluated := run(t, vault, "f0", "evaluate", "--session", sessionID)
	if !strings.Contains(evaluated, "PASS") || !strings.Contains(evaluated, "sealed") {
		t.Fatalf("unexpected evaluate output:\n%s", evaluated)
	}

	rendered := run(t, vault, "report", "render", "--session", sessionID, "--format", "csv")
	if !strings.Contains(rendered, "report csv via builtin") {
		t.Fatalf("unexpected render output: %q", rendered)
	}
	matches, err := filepath.Glob(filepath.Join(vault, "reports", "2026", "03", sessionID, "*.csv"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one archived csv, got %v (%v)", matches, err)
	}

	records, err := filepath.Glob(filepath.Join(vault, "batches", "*.md"))
	if err != nil || len(records) != 1 {
		t.Fatalf("expected one batch record, got %v (%v)", records, err)
	}

	listed := run(t, vault, "session", "list")
	if !strings.Contains(listed, sessionID) || !strings.Contains(listed, "sealed") {
		t.Fatalf("unexpected list output:\n%s", listed)
	}
}

func TestF0ComputeWithoutStore(t *testing.T) {
	vault := t.TempDir()
	out := run(t, vault, "f0", "compute", "--reading", "0:121.1", "--reading", "1:121.1", "--z", "10")
	if !strings.Contains(out, "Total F0: 2.00") {
		t.Fatalf("unexpected compute output:\n%s", out)
	}
	verify := run(t, vault, "f0", "verify", "--reading", "0:121.1", "--reading", "1:121.1", "--hold-minutes", "2")
	if !strings.Contains(verify, "PASS") {
		t.Fatalf("unexpected verify output:\n%s", verify)
	}
}

func TestConfigOverridesEngine(t *testing.T) {
	vault := t.TempDir()
	if err := os.WriteFile(filepath.Join(vault, "retort.yaml"), []byte("engine:\n  reference_temperature: 121.1\n  z_value: 10\n  activation_threshold: 90\n  interval_minutes: 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out := run(t, vault, "f0", "compute", "--reading", "0:121.1")
	if !strings.Contains(out, "Total F0: 2.00") {
		t.Fatalf("expected interval from config to double F0:\n%s", out)
	}
}
