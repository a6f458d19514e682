// Package store writes prediction rows to ClickHouse over the native
// protocol using columnar blocks.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"

	"github.com/KI7MT/ki7mt-hfprop/internal/predict"
)

// DefaultBatchSize is the number of rows buffered before an insert.
const DefaultBatchSize = 100_000

// DefaultTable is the prediction table name within the configured database.
const DefaultTable = "predictions"

// =============================================================================
// Columnar batch
// =============================================================================

// PredictionBatch buffers prediction rows column by column.
type PredictionBatch struct {
	Time          *proto.ColDateTime
	TxLat         *proto.ColFloat64
	TxLon         *proto.ColFloat64
	RxLat         *proto.ColFloat64
	RxLon         *proto.ColFloat64
	Distance      *proto.ColFloat64
	Azimuth       *proto.ColFloat64
	SSN           *proto.ColFloat32
	Band          *proto.ColInt32
	BandName      *proto.ColStr
	Frequency     *proto.ColFloat64
	Status        *proto.ColStr
	Reason        *proto.ColStr
	Mode          *proto.ColStr
	Hops          *proto.ColInt32
	MUF           *proto.ColFloat64
	FOT           *proto.ColFloat64
	HPF           *proto.ColFloat64
	Elevation     *proto.ColFloat64
	Skip          *proto.ColFloat64
	CircuitMUF    *proto.ColFloat64
	LowConfidence *proto.ColBool
}

// NewPredictionBatch allocates an empty batch.
func NewPredictionBatch() *PredictionBatch {
	return &PredictionBatch{
		Time:          new(proto.ColDateTime),
		TxLat:         new(proto.ColFloat64),
		TxLon:         new(proto.ColFloat64),
		RxLat:         new(proto.ColFloat64),
		RxLon:         new(proto.ColFloat64),
		Distance:      new(proto.ColFloat64),
		Azimuth:       new(proto.ColFloat64),
		SSN:           new(proto.ColFloat32),
		Band:          new(proto.ColInt32),
		BandName:      new(proto.ColStr),
		Frequency:     new(proto.ColFloat64),
		Status:        new(proto.ColStr),
		Reason:        new(proto.ColStr),
		Mode:          new(proto.ColStr),
		Hops:          new(proto.ColInt32),
		MUF:           new(proto.ColFloat64),
		FOT:           new(proto.ColFloat64),
		HPF:           new(proto.ColFloat64),
		Elevation:     new(proto.ColFloat64),
		Skip:          new(proto.ColFloat64),
		CircuitMUF:    new(proto.ColFloat64),
		LowConfidence: new(proto.ColBool),
	}
}

func (b *PredictionBatch) Reset() {
	for _, c := range b.Input() {
		c.Data.(proto.Resettable).Reset()
	}
}

func (b *PredictionBatch) Len() int {
	return b.Time.Rows()
}

// Input returns the batch as a ch-go insert block. Column order matches
// insertColumns.
func (b *PredictionBatch) Input() proto.Input {
	return proto.Input{
		{Name: "time", Data: b.Time},
		{Name: "tx_lat", Data: b.TxLat},
		{Name: "tx_lon", Data: b.TxLon},
		{Name: "rx_lat", Data: b.RxLat},
		{Name: "rx_lon", Data: b.RxLon},
		{Name: "distance_km", Data: b.Distance},
		{Name: "azimuth", Data: b.Azimuth},
		{Name: "ssn", Data: b.SSN},
		{Name: "band", Data: b.Band},
		{Name: "band_name", Data: b.BandName},
		{Name: "frequency", Data: b.Frequency},
		{Name: "status", Data: b.Status},
		{Name: "reason", Data: b.Reason},
		{Name: "mode", Data: b.Mode},
		{Name: "hops", Data: b.Hops},
		{Name: "muf", Data: b.MUF},
		{Name: "fot", Data: b.FOT},
		{Name: "hpf", Data: b.HPF},
		{Name: "elevation", Data: b.Elevation},
		{Name: "skip_km", Data: b.Skip},
		{Name: "circuit_muf", Data: b.CircuitMUF},
		{Name: "low_confidence", Data: b.LowConfidence},
	}
}

// AddRow appends one prediction row.
func (b *PredictionBatch) AddRow(r predict.Row) {
	b.Time.Append(time.Unix(r.Time, 0).UTC())
	b.TxLat.Append(r.TxLat)
	b.TxLon.Append(r.TxLon)
	b.RxLat.Append(r.RxLat)
	b.RxLon.Append(r.RxLon)
	b.Distance.Append(r.Distance)
	b.Azimuth.Append(r.Azimuth)
	b.SSN.Append(r.SSN)
	b.Band.Append(r.Band)
	b.BandName.Append(r.BandName)
	b.Frequency.Append(r.Frequency)
	b.Status.Append(r.Status)
	b.Reason.Append(r.Reason)
	b.Mode.Append(r.Mode)
	b.Hops.Append(r.Hops)
	b.MUF.Append(r.MUF)
	b.FOT.Append(r.FOT)
	b.HPF.Append(r.HPF)
	b.Elevation.Append(r.Elevation)
	b.Skip.Append(r.Skip)
	b.CircuitMUF.Append(r.CircuitMUF)
	b.LowConfidence.Append(r.LowConfidence)
}

func insertColumns(b *PredictionBatch) string {
	cols := ""
	for i, c := range b.Input() {
		if i > 0 {
			cols += ", "
		}
		cols += c.Name
	}
	return cols
}

// =============================================================================
// Writer
// =============================================================================

// Doer executes a native-protocol query; *ch.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, q ch.Query) error
}

// Writer buffers rows and inserts them in batches.
type Writer struct {
	conn      Doer
	tableFQN  string
	query     string
	batch     *PredictionBatch
	batchSize int
	inserted  uint64
}

// NewWriter wraps conn. batchSize <= 0 selects DefaultBatchSize.
func NewWriter(conn Doer, database, table string, batchSize int) *Writer {
	if table == "" {
		table = DefaultTable
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	b := NewPredictionBatch()
	tableFQN := fmt.Sprintf("%s.%s", database, table)
	return &Writer{
		conn:      conn,
		tableFQN:  tableFQN,
		query:     fmt.Sprintf("INSERT INTO %s (%s) VALUES", tableFQN, insertColumns(b)),
		batch:     b,
		batchSize: batchSize,
	}
}

// Dial connects to ClickHouse at addr.
func Dial(ctx context.Context, addr, database, user, password string) (*ch.Client, error) {
	conn, err := ch.Dial(ctx, ch.Options{
		Address:     addr,
		Database:    database,
		User:        user,
		Password:    password,
		Compression: ch.CompressionLZ4,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse dial %s: %w", addr, err)
	}
	return conn, nil
}

// Table returns the fully qualified table name.
func (w *Writer) Table() string { return w.tableFQN }

// Inserted returns the number of rows sent so far.
func (w *Writer) Inserted() uint64 { return w.inserted }

// EnsureTable creates the prediction table when missing.
func (w *Writer) EnsureTable(ctx context.Context) error {
	return w.conn.Do(ctx, ch.Query{Body: fmt.Sprintf(createTable, w.tableFQN)})
}

// Truncate empties the prediction table.
func (w *Writer) Truncate(ctx context.Context) error {
	return w.conn.Do(ctx, ch.Query{Body: fmt.Sprintf("TRUNCATE TABLE %s", w.tableFQN)})
}

// Write buffers rows, inserting whenever the batch fills.
func (w *Writer) Write(ctx context.Context, rows []predict.Row) error {
	for _, r := range rows {
		w.batch.AddRow(r)
		if w.batch.Len() >= w.batchSize {
			if err := w.Flush(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush inserts any buffered rows.
func (w *Writer) Flush(ctx context.Context) error {
	n := w.batch.Len()
	if n == 0 {
		return nil
	}
	if err := w.conn.Do(ctx, ch.Query{Body: w.query, Input: w.batch.Input()}); err != nil {
		return fmt.Errorf("insert %d rows into %s: %w", n, w.tableFQN, err)
	}
	w.inserted += uint64(n)
	w.batch.Reset()
	return nil
}

const createTable = `CREATE TABLE IF NOT EXISTS %s (
	time           DateTime,
	tx_lat         Float64,
	tx_lon         Float64,
	rx_lat         Float64,
	rx_lon         Float64,
	distance_km    Float64,
	azimuth        Float64,
	ssn            Float32,
	band           Int32,
	band_name      LowCardinality(String),
	frequency      Float64,
	status         LowCardinality(String),
	reason         LowCardinality(String),
	mode           LowCardinality(String),
	hops           Int32,
	muf            Float64,
	fot            Float64,
	hpf            Float64,
	elevation      Float64,
	skip_km        Float64,
	circuit_muf    Float64,
	low_confidence Bool
) ENGINE = MergeTree
PARTITION BY toYYYYMM(time)
ORDER BY (time, band, tx_lat, tx_lon, rx_lat, rx_lon)`
