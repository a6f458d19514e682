package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KI7MT/ki7mt-hfprop/internal/export"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("hfprop %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

const testTime = "2024-03-20T15:00:00Z"

func TestPredictCommand(t *testing.T) {
	out := run(t, "predict", "FN20", "JO22",
		"--map", "builtin:reference", "--log-level", "error",
		"--ssn", "100", "--time", testTime, "--bands", "hf")
	for _, want := range []string{"Path:", "SSN 100", "Circuit:", "BAND", "160m", "20m", "10m"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMapPackAndEval(t *testing.T) {
	file := filepath.Join(t.TempDir(), "maps", "reference.ccir.msgpack.zst")
	run(t, "map", "pack", file, "--map", "builtin:reference", "--log-level", "error")

	out := run(t, "map", "eval", "40.5,-75", "--map", file, "--log-level", "error",
		"--ssn", "100", "--time", testTime)
	for _, want := range []string{"Map reference", "foF2", "M3000F2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSweepCommand(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sweep.parquet")
	run(t, "sweep", "40,-75",
		"--map", "builtin:reference", "--log-level", "error",
		"--ssn", "100", "--time", testTime, "--bands", "20m,40m",
		"--lat-min", "30", "--lat-max", "50", "--lon-min", "-85", "--lon-max", "-65", "--step", "10",
		"--workers", "2", "--parquet", file)

	rows, err := export.ReadFile(file)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// Nine grid points less the transmitter's own square, two bands each.
	if len(rows) != 16 {
		t.Errorf("got %d rows, want 16", len(rows))
	}
}

func TestSweepNeedsOutput(t *testing.T) {
	rootCmd.SetArgs([]string{"sweep", "FN20", "--ssn", "50", "--parquet", "", "--log-level", "error"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	if err := rootCmd.ExecuteContext(context.Background()); err == nil {
		t.Error("sweep without an output succeeded")
	}
}
