package main

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/KI7MT/ki7mt-hfprop/internal/bands"
	"github.com/KI7MT/ki7mt-hfprop/internal/common"
	"github.com/KI7MT/ki7mt-hfprop/internal/export"
	"github.com/KI7MT/ki7mt-hfprop/internal/predict"
	"github.com/KI7MT/ki7mt-hfprop/internal/store"
)

var (
	area         predict.Area
	workers      int
	parquetOut   string
	toClickHouse bool
	chTable      string
	truncate     bool
	metricsAddr  string
	cacheSize    int
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep TX",
		Short: "Predict from one transmitter to a grid of receivers",
		Long: `sweep predicts every band from TX to each point of a latitude/longitude
grid. Results go to a Parquet file (--parquet), a ClickHouse table
(--clickhouse), or both. With --parquet auto the file is named after the
transmitter and time under the export directory.`,
		Args: cobra.ExactArgs(1),
		RunE: runSweep,
	}
	addCircuitFlags(cmd)
	f := cmd.Flags()
	f.Float64Var(&area.LatMin, "lat-min", -80, "southern grid bound, degrees")
	f.Float64Var(&area.LatMax, "lat-max", 80, "northern grid bound, degrees")
	f.Float64Var(&area.LonMin, "lon-min", -180, "western grid bound, degrees")
	f.Float64Var(&area.LonMax, "lon-max", 175, "eastern grid bound, degrees")
	f.Float64Var(&area.Step, "step", 5, "grid step, degrees")
	f.IntVar(&workers, "workers", cfg.Workers, "parallel workers")
	f.StringVar(&parquetOut, "parquet", "", `Parquet output file, or "auto"`)
	f.BoolVar(&toClickHouse, "clickhouse", false, "insert results into ClickHouse")
	f.StringVar(&chTable, "ch-table", store.DefaultTable, "ClickHouse table")
	f.BoolVar(&truncate, "truncate", false, "truncate the ClickHouse table before insert")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")
	f.IntVar(&cacheSize, "cache", predict.DefaultCacheSize, "control point profile cache entries")
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := newLogger()

	if parquetOut == "" && !toClickHouse {
		return errors.New("no output selected: use --parquet and/or --clickhouse")
	}
	tx, err := parseStation(args[0])
	if err != nil {
		return err
	}
	at, err := parseTime()
	if err != nil {
		return err
	}
	list, err := bands.Parse(bandList)
	if err != nil {
		return err
	}
	ssn, err := resolveSSN(ctx, log, at)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := predict.NewMetrics(reg)
	if err != nil {
		return err
	}
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "metrics server", common.Err(err))
			}
		}()
		defer srv.Close()
	}
	cache, err := predict.NewProfileCache(cacheSize)
	if err != nil {
		return err
	}
	engine, err := newEngine(ctx, log, predict.WithCache(cache), predict.WithMetrics(metrics))
	if err != nil {
		return err
	}

	stats := common.NewStats()
	stats.StartReporter()
	start := time.Now()
	preds, err := engine.Sweep(ctx, predict.SweepRequest{
		Tx:          tx,
		Time:        at,
		SSN:         ssn,
		Bands:       list,
		Area:        area,
		UpperDecile: decile,
		Workers:     workers,
	}, stats)
	stats.StopReporter()
	if err != nil {
		return err
	}
	rows := predict.SweepRows(preds)
	snap := stats.Snapshot()
	log.Info(ctx, "sweep finished",
		common.Int("receivers", int(snap.Points)),
		common.Int("rows", len(rows)),
		common.Int("no_mode", int(snap.NoMode)),
		common.Int("low_confidence", int(snap.LowConfidence)),
		common.String("elapsed", time.Since(start).Round(time.Millisecond).String()),
	)

	if parquetOut != "" {
		out := parquetOut
		if out == "auto" {
			out = filepath.Join(cfg.ExportDir(), export.FileName("sweep", strings.ReplaceAll(args[0], ",", "_"), at))
		}
		if err := export.WriteFile(out, rows); err != nil {
			return err
		}
		log.Info(ctx, "parquet written", common.String("file", out), common.Int("rows", len(rows)))
	}

	if toClickHouse {
		if err := insertRows(cmd, log, rows); err != nil {
			return err
		}
	}
	return nil
}

func insertRows(cmd *cobra.Command, log common.Logger, rows []predict.Row) error {
	ctx := cmd.Context()
	conn, err := store.Dial(ctx, cfg.ClickHouseAddr(), cfg.ClickHouseDatabase, cfg.ClickHouseUser, cfg.ClickHousePassword)
	if err != nil {
		return err
	}
	defer conn.Close()

	w := store.NewWriter(conn, cfg.ClickHouseDatabase, chTable, 0)
	if err := w.EnsureTable(ctx); err != nil {
		return fmt.Errorf("create %s: %w", w.Table(), err)
	}
	if truncate {
		if err := w.Truncate(ctx); err != nil {
			log.Warn(ctx, "truncate failed", common.String("table", w.Table()), common.Err(err))
		}
	}
	if err := w.Write(ctx, rows); err != nil {
		return err
	}
	if err := w.Flush(ctx); err != nil {
		return err
	}
	log.Info(ctx, "rows inserted", common.String("table", w.Table()), common.Int("rows", int(w.Inserted())))
	return nil
}
