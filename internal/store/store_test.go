package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ClickHouse/ch-go"

	"github.com/KI7MT/ki7mt-hfprop/internal/predict"
)

type fakeDoer struct {
	bodies []string
	rows   []int
	cols   []int
	err    error
}

func (f *fakeDoer) Do(_ context.Context, q ch.Query) error {
	if f.err != nil {
		return f.err
	}
	f.bodies = append(f.bodies, q.Body)
	if len(q.Input) > 0 {
		f.rows = append(f.rows, q.Input[0].Data.Rows())
		f.cols = append(f.cols, len(q.Input))
	}
	return nil
}

func testRow(band int32) predict.Row {
	return predict.Row{
		Time: 1710946800, TxLat: 40.5, TxLon: -75, RxLat: 52.5, RxLon: 5,
		Distance: 5941.6, Azimuth: 48.3, SSN: 100, Band: band, BandName: "20m",
		Frequency: 14.074, Status: "ok", Mode: "2F2", Hops: 2,
		MUF: 21.3, FOT: 18.1, HPF: 24.5, Elevation: 9.5, Skip: 3100, CircuitMUF: 21.3,
	}
}

func TestPredictionBatch(t *testing.T) {
	b := NewPredictionBatch()
	b.AddRow(testRow(107))
	b.AddRow(testRow(108))
	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
	for _, c := range b.Input() {
		if c.Data.Rows() != 2 {
			t.Errorf("column %s has %d rows", c.Name, c.Data.Rows())
		}
	}
	if b.Band.Row(1) != 108 || b.Mode.Row(0) != "2F2" || b.Hops.Row(0) != 2 || b.Time.Row(0).Unix() != 1710946800 {
		t.Errorf("row values not preserved")
	}
	b.Reset()
	for _, c := range b.Input() {
		if c.Data.Rows() != 0 {
			t.Errorf("column %s not reset", c.Name)
		}
	}
}

func TestWriterBatches(t *testing.T) {
	conn := &fakeDoer{}
	w := NewWriter(conn, "hfprop", "", 3)
	if w.Table() != "hfprop.predictions" {
		t.Errorf("table = %q", w.Table())
	}

	rows := make([]predict.Row, 7)
	for i := range rows {
		rows[i] = testRow(int32(100 + i))
	}
	ctx := context.Background()
	if err := w.Write(ctx, rows); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("empty Flush: %v", err)
	}

	if got := conn.rows; len(got) != 3 || got[0] != 3 || got[1] != 3 || got[2] != 1 {
		t.Errorf("insert sizes = %v, want [3 3 1]", got)
	}
	if w.Inserted() != 7 {
		t.Errorf("Inserted = %d", w.Inserted())
	}
	body := conn.bodies[0]
	if !strings.HasPrefix(body, "INSERT INTO hfprop.predictions (time, tx_lat") || !strings.HasSuffix(body, "low_confidence) VALUES") {
		t.Errorf("insert body = %q", body)
	}
	if conn.cols[0] != 22 {
		t.Errorf("insert has %d columns", conn.cols[0])
	}
}

func TestWriterDDL(t *testing.T) {
	conn := &fakeDoer{}
	w := NewWriter(conn, "hfprop", "area", 0)
	ctx := context.Background()
	if err := w.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if err := w.Truncate(ctx); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	if !strings.HasPrefix(conn.bodies[0], "CREATE TABLE IF NOT EXISTS hfprop.area (") {
		t.Errorf("DDL = %q", conn.bodies[0])
	}
	if !strings.Contains(conn.bodies[0], "hops           Int32,") {
		t.Error("hops column not declared Int32")
	}
	if conn.bodies[1] != "TRUNCATE TABLE hfprop.area" {
		t.Errorf("truncate = %q", conn.bodies[1])
	}

	// Every inserted column is declared.
	for _, c := range NewPredictionBatch().Input() {
		if !strings.Contains(conn.bodies[0], "\t"+c.Name+" ") {
			t.Errorf("column %s missing from DDL", c.Name)
		}
	}
}

func TestWriterError(t *testing.T) {
	boom := errors.New("connection reset")
	w := NewWriter(&fakeDoer{err: boom}, "hfprop", "", 10)
	_ = w.Write(context.Background(), []predict.Row{testRow(107)})
	err := w.Flush(context.Background())
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "1 rows") {
		t.Errorf("err = %v", err)
	}
	if w.Inserted() != 0 {
		t.Error("failed insert counted")
	}
}
