package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/KI7MT/ki7mt-hfprop/internal/predict"
)

func TestWriteReadFile(t *testing.T) {
	rows := []predict.Row{
		{Time: 1710946800, TxLat: 40.5, TxLon: -75, RxLat: 52.5, RxLon: 5, Band: 107, BandName: "20m",
			Frequency: 14.074, Status: "ok", Mode: "2F2", Hops: 2, MUF: 21.3, Skip: 3100},
		{Time: 1710946800, TxLat: 40.5, TxLon: -75, RxLat: 52.5, RxLon: 5, Band: 111, BandName: "10m",
			Frequency: 28.074, Status: "above_muf", Mode: "2F2", Hops: 2, MUF: 21.3, Skip: -1, LowConfidence: true},
	}
	path := filepath.Join(t.TempDir(), "out", "sweep.parquet")
	if err := WriteFile(path, rows); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("read %d rows, want %d", len(got), len(rows))
	}
	for i := range rows {
		if got[i] != rows[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], rows[i])
		}
	}

	for i := range rows {
		if got[i].Hops != rows[i].Hops {
			t.Errorf("row %d hops = %d, want %d", i, got[i].Hops, rows[i].Hops)
		}
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestWriteEveryHopCount(t *testing.T) {
	var rows []predict.Row
	for hops := int32(0); hops <= 4; hops++ {
		rows = append(rows, predict.Row{Band: 107, BandName: "20m", Hops: hops, MUF: 14.2})
	}
	var buf bytes.Buffer
	if err := Write(&buf, rows); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := parquet.Read[predict.Row](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("parquet.Read: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("read %d rows, want %d", len(got), len(rows))
	}
	for i, r := range got {
		if r.Hops != int32(i) || r.MUF != 14.2 {
			t.Errorf("row %d = hops %d MUF %g", i, r.Hops, r.MUF)
		}
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "absent.parquet")); err == nil {
		t.Error("ReadFile succeeded on a missing file")
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 3, 20, 15, 0, 0, 0, time.FixedZone("EDT", -4*3600))
	if got := FileName("sweep", "FN20", at); got != "sweep-FN20-20240320T1900Z.parquet" {
		t.Errorf("FileName = %q", got)
	}
}
