// Package export writes prediction rows to Parquet files.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/KI7MT/ki7mt-hfprop/internal/predict"
)

// Write encodes rows as a zstd-compressed Parquet stream.
func Write(w io.Writer, rows []predict.Row) error {
	pw := parquet.NewGenericWriter[predict.Row](w, parquet.Compression(&parquet.Zstd))
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		return fmt.Errorf("parquet write: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("parquet close: %w", err)
	}
	return nil
}

// WriteFile writes rows to path via a temporary file, so readers never see
// a partial file.
func WriteFile(path string, rows []predict.Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".hfprop-*.parquet")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadFile reads every row of a prediction file.
func ReadFile(path string) ([]predict.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	reader := parquet.NewGenericReader[predict.Row](pf)
	defer reader.Close()

	rows := make([]predict.Row, 0, reader.NumRows())
	buf := make([]predict.Row, 1024)
	for {
		n, err := reader.Read(buf)
		rows = append(rows, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return rows, nil
}

// FileName names a sweep output by transmitter and time, e.g.
// sweep-FN20-20240320T1500Z.parquet.
func FileName(prefix, tx string, t time.Time) string {
	return fmt.Sprintf("%s-%s-%s.parquet", prefix, tx, t.UTC().Format("20060102T1504Z"))
}
