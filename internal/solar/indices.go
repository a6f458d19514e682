package solar

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// Querier is the subset of a clickhouse-go connection the index store uses.
type Querier interface {
	Select(ctx context.Context, dest any, query string, args ...any) error
}

// IndexStore reads solar indices from ClickHouse.
type IndexStore struct {
	conn  Querier
	table string // Fully qualified, e.g. solar.indices_raw
}

// NewIndexStore wraps an open connection.
func NewIndexStore(conn Querier, table string) *IndexStore {
	if table == "" {
		table = "solar.indices_raw"
	}
	return &IndexStore{conn: conn, table: table}
}

// Open connects to ClickHouse over the native protocol and verifies the
// connection. The caller closes the returned connection.
func Open(ctx context.Context, addr, database, user, password string) (clickhouse.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open %s: %w", addr, err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("clickhouse ping %s: %w", addr, err)
	}
	return conn, nil
}

// Daily returns the index rows with from <= date < to, ordered by date.
func (s *IndexStore) Daily(ctx context.Context, from, to time.Time) ([]Index, error) {
	var rows []Index
	query := fmt.Sprintf(`SELECT date, observed_flux, adjusted_flux, ssn, kp_index, ap_index
		FROM %s
		WHERE date >= ? AND date < ?
		ORDER BY date, time`, s.table)
	if err := s.conn.Select(ctx, &rows, query, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("select %s: %w", s.table, err)
	}
	return rows, nil
}

// SmoothedSSN returns R12 for the month containing t, falling back to the
// latest complete window when the record ends within six months of t.
func (s *IndexStore) SmoothedSSN(ctx context.Context, t time.Time) (float64, time.Time, error) {
	month := MonthStart(t)
	// Enough history to fall back across the trailing six months.
	rows, err := s.Daily(ctx, month.AddDate(0, -13, 0), month.AddDate(0, 7, 0))
	if err != nil {
		return 0, time.Time{}, err
	}
	r, used, err := SmoothedOrLatest(MonthlyMeans(rows), month)
	if err != nil {
		return 0, time.Time{}, err
	}
	return ClampSSN(r), used, nil
}
