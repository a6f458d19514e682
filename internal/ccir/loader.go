package ccir

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrDataUnavailable is returned when a map file cannot be read or decoded.
// It is fatal at load time only; an evaluated Map never produces it.
var ErrDataUnavailable = errors.New("ccir: coefficient data unavailable")

// FileVersion is the current map file format version.
const FileVersion = 1

// File extensions understood by LoadFile.
const (
	ExtZstd = ".ccir.msgpack.zst"
	ExtGzip = ".ccir.msgpack.gz"
	ExtRaw  = ".ccir.msgpack"
)

// fileHeader is the msgpack document stored in a map file.
type fileHeader struct {
	Version int             `msgpack:"version"`
	Name    string          `msgpack:"name"`
	Params  []*Coefficients `msgpack:"params"`
}

// Compression selects the outer encoding of a map file.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionGzip
)

// CompressionFor picks the compression from a file name.
func CompressionFor(path string) Compression {
	switch {
	case strings.HasSuffix(path, ".zst"):
		return CompressionZstd
	case strings.HasSuffix(path, ".gz"):
		return CompressionGzip
	default:
		return CompressionNone
	}
}

// Encode writes m as a zstd-compressed msgpack document.
func Encode(w io.Writer, m *Map) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if err := encodeRaw(enc, m); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd close: %w", err)
	}
	return nil
}

// EncodeGzip writes m in the legacy gzip form.
func EncodeGzip(w io.Writer, m *Map) error {
	gz := pgzip.NewWriter(w)
	if err := encodeRaw(gz, m); err != nil {
		gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("gzip close: %w", err)
	}
	return nil
}

func encodeRaw(w io.Writer, m *Map) error {
	hdr := fileHeader{Version: FileVersion, Name: m.name}
	for _, k := range m.Kinds() {
		hdr.Params = append(hdr.Params, m.params[k])
	}
	if err := msgpack.NewEncoder(w).Encode(&hdr); err != nil {
		return fmt.Errorf("msgpack encode: %w", err)
	}
	return nil
}

// Decode reads a map in the given compression.
func Decode(r io.Reader, c Compression) (*Map, error) {
	switch c {
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd reader: %v", ErrDataUnavailable, err)
		}
		defer dec.Close()
		return decodeRaw(dec)
	case CompressionGzip:
		gz, err := pgzip.NewReaderN(r, 256*1024, runtime.NumCPU())
		if err != nil {
			return nil, fmt.Errorf("%w: gzip reader: %v", ErrDataUnavailable, err)
		}
		defer gz.Close()
		return decodeRaw(gz)
	default:
		return decodeRaw(r)
	}
}

func decodeRaw(r io.Reader) (*Map, error) {
	var hdr fileHeader
	if err := msgpack.NewDecoder(r).Decode(&hdr); err != nil {
		return nil, fmt.Errorf("%w: msgpack decode: %v", ErrDataUnavailable, err)
	}
	if hdr.Version != FileVersion {
		return nil, fmt.Errorf("%w: unsupported file version %d", ErrDataUnavailable, hdr.Version)
	}
	m, err := NewMap(hdr.Name, hdr.Params...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return m, nil
}

// LoadFile reads a map file, choosing the decoder from its extension.
func LoadFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	defer f.Close()

	m, err := Decode(bufio.NewReaderSize(f, 1<<20), CompressionFor(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return m, nil
}

// WriteFile writes m to path; the extension selects the compression.
func WriteFile(path string, m *Map) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriterSize(f, 1<<20)

	switch CompressionFor(path) {
	case CompressionZstd:
		err = Encode(bw, m)
	case CompressionGzip:
		err = EncodeGzip(bw, m)
	default:
		err = encodeRaw(bw, m)
	}
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
