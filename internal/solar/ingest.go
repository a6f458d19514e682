package solar

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
)

// =============================================================================
// Source formats
// =============================================================================

// Format identifies a solar index source file.
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatSIDC    Format = "sidc"     // SILSO daily CSV: YYYY;MM;DD;decimal_year;SSN;std_dev;observations;flag
	FormatSFIJSON Format = "sfi_json" // NOAA SWPC monthly JSON
)

// DetectFormat determines the format from the file name and its first bytes.
func DetectFormat(name string, head []byte) Format {
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.ToLower(filepath.Base(name))

	if strings.HasPrefix(base, "sidc_") && ext == ".csv" {
		return FormatSIDC
	}
	if (strings.Contains(base, "flux") || strings.Contains(base, "ssn")) && (ext == ".txt" || ext == ".json") {
		if h := bytes.TrimSpace(head); len(h) > 0 && h[0] == '[' {
			return FormatSFIJSON
		}
	}
	return FormatUnknown
}

// ParseSIDC reads SILSO daily sunspot numbers. Missing days keep the
// source's -1 marker and are ignored by MonthlyMeans.
func ParseSIDC(r io.Reader) ([]Index, error) {
	var out []Index
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, ";")
		if len(fields) < 5 {
			continue
		}

		year, _ := strconv.Atoi(strings.TrimSpace(fields[0]))
		month, _ := strconv.Atoi(strings.TrimSpace(fields[1]))
		day, _ := strconv.Atoi(strings.TrimSpace(fields[2]))
		ssn, err := strconv.ParseFloat(strings.TrimSpace(fields[4]), 32)
		if err != nil {
			continue
		}
		if year < 1900 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}

		out = append(out, Index{
			Date: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC),
			SSN:  float32(ssn),
		})
	}
	return out, scanner.Err()
}

// sfiRecord is one month of the NOAA SWPC observed solar cycle indices.
type sfiRecord struct {
	TimeTag      string  `json:"time-tag"`
	SSN          float64 `json:"ssn"`
	F107         float64 `json:"f10.7"`
	SmoothedF107 float64 `json:"smoothed_f10.7"`
}

// ParseSFIJSON reads the NOAA monthly indices. Each month becomes one row
// dated the 15th.
func ParseSFIJSON(r io.Reader) ([]Index, error) {
	var records []sfiRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode sfi json: %w", err)
	}

	out := make([]Index, 0, len(records))
	for _, rec := range records {
		// time-tag is "YYYY-MM"
		parts := strings.Split(rec.TimeTag, "-")
		if len(parts) != 2 {
			continue
		}
		year, _ := strconv.Atoi(parts[0])
		month, _ := strconv.Atoi(parts[1])
		if year < 1900 || year > 2100 || month < 1 || month > 12 {
			continue
		}

		out = append(out, Index{
			Date:         time.Date(year, time.Month(month), 15, 0, 0, 0, 0, time.UTC),
			ObservedFlux: float32(max(rec.F107, 0)),
			AdjustedFlux: float32(max(rec.SmoothedF107, 0)),
			SSN:          float32(max(rec.SSN, 0)),
		})
	}
	return out, nil
}

// Parse dispatches on format.
func Parse(format Format, r io.Reader) ([]Index, error) {
	switch format {
	case FormatSIDC:
		return ParseSIDC(r)
	case FormatSFIJSON:
		return ParseSFIJSON(r)
	default:
		return nil, fmt.Errorf("unsupported solar index format %q", format)
	}
}

// =============================================================================
// Native insert
// =============================================================================

// Execer runs a native-protocol query; *ch.Client satisfies it.
type Execer interface {
	Do(ctx context.Context, q ch.Query) error
}

// IndexBatch holds column data for a native insert into solar.indices_raw.
type IndexBatch struct {
	Date         *proto.ColDate32
	Time         *proto.ColDateTime
	ObservedFlux *proto.ColFloat32
	AdjustedFlux *proto.ColFloat32
	SSN          *proto.ColFloat32
	KpIndex      *proto.ColFloat32
	ApIndex      *proto.ColFloat32
	SourceFile   *proto.ColStr
}

func NewIndexBatch() *IndexBatch {
	return &IndexBatch{
		Date:         new(proto.ColDate32),
		Time:         new(proto.ColDateTime),
		ObservedFlux: new(proto.ColFloat32),
		AdjustedFlux: new(proto.ColFloat32),
		SSN:          new(proto.ColFloat32),
		KpIndex:      new(proto.ColFloat32),
		ApIndex:      new(proto.ColFloat32),
		SourceFile:   new(proto.ColStr),
	}
}

func (b *IndexBatch) Reset() {
	b.Date.Reset()
	b.Time.Reset()
	b.ObservedFlux.Reset()
	b.AdjustedFlux.Reset()
	b.SSN.Reset()
	b.KpIndex.Reset()
	b.ApIndex.Reset()
	b.SourceFile.Reset()
}

func (b *IndexBatch) Len() int {
	return b.Date.Rows()
}

func (b *IndexBatch) Input() proto.Input {
	return proto.Input{
		{Name: "date", Data: b.Date},
		{Name: "time", Data: b.Time},
		{Name: "observed_flux", Data: b.ObservedFlux},
		{Name: "adjusted_flux", Data: b.AdjustedFlux},
		{Name: "ssn", Data: b.SSN},
		{Name: "kp_index", Data: b.KpIndex},
		{Name: "ap_index", Data: b.ApIndex},
		{Name: "source_file", Data: b.SourceFile},
	}
}

// Add appends rows tagged with their source file name.
func (b *IndexBatch) Add(rows []Index, sourceFile string) {
	for _, r := range rows {
		b.Date.Append(r.Date)
		b.Time.Append(r.Date)
		b.ObservedFlux.Append(r.ObservedFlux)
		b.AdjustedFlux.Append(r.AdjustedFlux)
		b.SSN.Append(r.SSN)
		b.KpIndex.Append(r.KpIndex)
		b.ApIndex.Append(r.ApIndex)
		b.SourceFile.Append(sourceFile)
	}
}

// Flush inserts the batch into tableFQN and resets it.
func (b *IndexBatch) Flush(ctx context.Context, conn Execer, tableFQN string) error {
	n := b.Len()
	if n == 0 {
		return nil
	}
	query := fmt.Sprintf("INSERT INTO %s (date, time, observed_flux, adjusted_flux, ssn, kp_index, ap_index, source_file) VALUES", tableFQN)
	if err := conn.Do(ctx, ch.Query{Body: query, Input: b.Input()}); err != nil {
		return fmt.Errorf("insert %d solar rows into %s: %w", n, tableFQN, err)
	}
	b.Reset()
	return nil
}
