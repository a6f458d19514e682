package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KI7MT/ki7mt-hfprop/internal/ccir"
)

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("CLICKHOUSE_HOST", "ch.example")
	t.Setenv("CLICKHOUSE_PORT", "9440")
	t.Setenv("HFPROP_WORKERS", "3")
	t.Setenv("HFPROP_DATA_DIR", "/data/hf")
	t.Setenv("HFPROP_MAP_FILE", "")

	c := DefaultConfig()
	if got := c.ClickHouseAddr(); got != "ch.example:9440" {
		t.Errorf("ClickHouseAddr = %q", got)
	}
	if c.Workers != 3 {
		t.Errorf("Workers = %d, want 3", c.Workers)
	}
	if c.MapSource() != ccir.BuiltinSource {
		t.Errorf("MapSource = %q, want builtin", c.MapSource())
	}

	c.MapFile = "itu.ccir.msgpack.zst"
	if want := filepath.Join("/data/hf", "maps", "itu.ccir.msgpack.zst"); c.MapSource() != want {
		t.Errorf("MapSource = %q, want %q", c.MapSource(), want)
	}
	c.MapFile = "/abs/map.ccir.msgpack.zst"
	if c.MapSource() != "/abs/map.ccir.msgpack.zst" {
		t.Errorf("absolute MapSource rewritten to %q", c.MapSource())
	}
}

func TestDefaultConfigIgnoresBadInts(t *testing.T) {
	t.Setenv("CLICKHOUSE_PORT", "not-a-port")
	t.Setenv("HFPROP_WORKERS", "-2")
	c := DefaultConfig()
	if c.ClickHousePort != 9000 {
		t.Errorf("port = %d, want default", c.ClickHousePort)
	}
	if c.Workers < 1 {
		t.Errorf("workers = %d, want positive default", c.Workers)
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "debug", Format: "json", Output: &buf}).
		With(String("component", "sweep"))
	log.Info(context.Background(), "point solved", Float("muf", 14.2), Int("hops", 1), Err(errors.New("boom")))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log output is not JSON: %v: %s", err, buf.String())
	}
	if rec["msg"] != "point solved" || rec["component"] != "sweep" || rec["muf"] != 14.2 || rec["error"] != "boom" {
		t.Errorf("record = %v", rec)
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "warn", Output: &buf})
	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("level filtering failed: %q", buf.String())
	}

	for in, want := range map[string]slog.Level{"debug": slog.LevelDebug, "WARNING": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo} {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	Noop().With(String("k", "v")).Error(context.Background(), "dropped")
}

func TestStatsCounters(t *testing.T) {
	s := NewStats()
	s.SetTotal(100)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				s.AddPoint(time.Millisecond)
				s.AddPrediction(j%2 == 0, j == 0)
			}
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.Points != 80 || snap.Predictions != 80 || snap.NoMode != 40 || snap.LowConfidence != 8 {
		t.Errorf("snapshot = %+v", snap)
	}

	var buf bytes.Buffer
	s.SetOutput(&buf)
	s.printStatus(s.lastTime.Add(time.Second))
	if !strings.Contains(buf.String(), "Points: 80/100 (80.0%)") {
		t.Errorf("progress line = %q", buf.String())
	}

	s.Reset()
	if snap := s.Snapshot(); snap.Points != 0 || snap.NoMode != 0 {
		t.Errorf("Reset left %+v", snap)
	}
}

func TestStatsReporterStops(t *testing.T) {
	s := NewStats()
	s.SetOutput(nil)
	s.StartReporter()
	s.StartReporter()
	s.StopReporter()
	s.StopReporter()
}
