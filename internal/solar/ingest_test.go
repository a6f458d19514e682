package solar

import (
	"context"
	"strings"
	"testing"

	"github.com/ClickHouse/ch-go"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		head string
		want Format
	}{
		{"/data/sidc_2024.csv", "2024;01;01", FormatSIDC},
		{"sfi_daily_flux.txt", ` [{"time-tag":"2024-01"}]`, FormatSFIJSON},
		{"observed-solar-cycle-ssn.json", `[{}]`, FormatSFIJSON},
		{"sfi_daily_flux.txt", "# text header", FormatUnknown},
		{"notes.csv", "2024;01;01", FormatUnknown},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.name, []byte(tt.head)); got != tt.want {
			t.Errorf("DetectFormat(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestParseSIDC(t *testing.T) {
	src := `# SILSO daily total sunspot number
2024;01;01;2024.001; 118;11.2;21;0
2024;01;02;2024.004;  -1; -1.0; 0;1
2024;13;01;2024.999;  50; 1.0; 1;0
short;line
2024;01;03;2024.007; 131;12.0;25;0
`
	rows, err := ParseSIDC(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseSIDC: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].SSN != 118 || rows[1].SSN != -1 || rows[2].Date.Day() != 3 {
		t.Errorf("rows = %+v", rows)
	}
	means := MonthlyMeans(rows)
	if len(means) != 1 || means[0].SSN != 124.5 {
		t.Errorf("MonthlyMeans = %+v, want 124.5", means)
	}
}

func TestParseSFIJSON(t *testing.T) {
	src := `[
		{"time-tag":"2023-12","ssn":114.2,"smoothed_ssn":-1,"f10.7":153.1,"smoothed_f10.7":150.2},
		{"time-tag":"2024-01","ssn":123.0,"smoothed_ssn":-1,"f10.7":166.6,"smoothed_f10.7":-1},
		{"time-tag":"bad","ssn":1}
	]`
	rows, err := Parse(FormatSFIJSON, strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	// Rows carry the observed monthly number; R12 is derived by Smoothed.
	if rows[0].SSN != float32(114.2) || rows[0].ObservedFlux != float32(153.1) {
		t.Errorf("row = %+v", rows[0])
	}
	if rows[1].Date.Day() != 15 || rows[1].SSN != 123 || rows[1].AdjustedFlux != 0 {
		t.Errorf("row = %+v", rows[1])
	}
	if _, err := Parse(FormatUnknown, strings.NewReader("")); err == nil {
		t.Error("Parse accepted an unknown format")
	}
}

type fakeExecer struct {
	bodies []string
	rows   []int
}

func (f *fakeExecer) Do(_ context.Context, q ch.Query) error {
	f.bodies = append(f.bodies, q.Body)
	f.rows = append(f.rows, q.Input[0].Data.Rows())
	return nil
}

func TestIndexBatchFlush(t *testing.T) {
	rows, _ := ParseSIDC(strings.NewReader("2024;01;01;2024.001;118;11.2;21;0\n2024;01;02;2024.004;120;11.2;21;0\n"))
	b := NewIndexBatch()
	b.Add(rows, "sidc_2024.csv")
	if b.Len() != 2 || b.SourceFile.Row(1) != "sidc_2024.csv" {
		t.Fatalf("batch len %d", b.Len())
	}

	conn := &fakeExecer{}
	if err := b.Flush(context.Background(), conn, "solar.indices_raw"); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := b.Flush(context.Background(), conn, "solar.indices_raw"); err != nil {
		t.Fatalf("empty Flush: %v", err)
	}
	if len(conn.rows) != 1 || conn.rows[0] != 2 {
		t.Errorf("inserts = %v, want one of 2 rows", conn.rows)
	}
	if !strings.HasPrefix(conn.bodies[0], "INSERT INTO solar.indices_raw (date, time,") {
		t.Errorf("body = %q", conn.bodies[0])
	}
	if b.Len() != 0 {
		t.Error("batch not reset after flush")
	}
}
