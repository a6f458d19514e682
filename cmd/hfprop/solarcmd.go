package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ClickHouse/ch-go"
	"github.com/spf13/cobra"

	"github.com/KI7MT/ki7mt-hfprop/internal/common"
	"github.com/KI7MT/ki7mt-hfprop/internal/solar"
)

const solarDatabase = "solar"

func newSolarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solar",
		Short: "Load and inspect the sunspot record used for predictions",
	}
	cmd.AddCommand(newSolarIngestCmd(), newSolarSSNCmd())
	return cmd
}

func newSolarIngestCmd() *cobra.Command {
	var (
		sourceDir     string
		table         string
		truncateTable bool
	)
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Load SIDC CSV or NOAA JSON solar indices into ClickHouse",
		Long: `ingest loads historical solar indices into solar.indices_raw, the
table the smoothed sunspot number is derived from. Supported formats:

  - SIDC CSV (sidc_YYYY.csv): SILSO daily sunspot numbers
  - SFI JSON (*flux*.txt, *ssn*.json): NOAA monthly indices

Without file arguments every file in --source-dir is considered.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := newLogger()

			files := args
			if len(files) == 0 {
				entries, err := os.ReadDir(sourceDir)
				if err != nil {
					return fmt.Errorf("cannot read source directory: %w", err)
				}
				for _, e := range entries {
					if !e.IsDir() {
						files = append(files, filepath.Join(sourceDir, e.Name()))
					}
				}
			}
			if len(files) == 0 {
				return fmt.Errorf("no files to process")
			}

			conn, err := ch.Dial(ctx, ch.Options{
				Address:     cfg.ClickHouseAddr(),
				Database:    solarDatabase,
				User:        cfg.ClickHouseUser,
				Password:    cfg.ClickHousePassword,
				Compression: ch.CompressionLZ4,
			})
			if err != nil {
				return fmt.Errorf("clickhouse connection failed: %w", err)
			}
			defer conn.Close()

			tableFQN := fmt.Sprintf("%s.%s", solarDatabase, table)
			if truncateTable {
				if err := conn.Do(ctx, ch.Query{Body: fmt.Sprintf("TRUNCATE TABLE %s", tableFQN)}); err != nil {
					log.Warn(ctx, "truncate failed", common.String("table", tableFQN), common.Err(err))
				}
			}

			batch := solar.NewIndexBatch()
			total := 0
			for _, file := range files {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				n, err := ingestFile(file, batch)
				if err != nil {
					log.Warn(ctx, "skipping file", common.String("file", filepath.Base(file)), common.Err(err))
					continue
				}
				log.Info(ctx, "parsed", common.String("file", filepath.Base(file)), common.Int("records", n))
				total += n
			}
			if err := batch.Flush(ctx, conn, tableFQN); err != nil {
				return err
			}
			log.Info(ctx, "solar indices inserted", common.String("table", tableFQN), common.Int("records", total))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&sourceDir, "source-dir", filepath.Join(cfg.DataDir, "solar"), "solar data source directory")
	f.StringVar(&table, "table", "indices_raw", "table within the solar database")
	f.BoolVar(&truncateTable, "truncate", false, "truncate the table before insert")
	return cmd
}

func ingestFile(file string, batch *solar.IndexBatch) (int, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(64)
	format := solar.DetectFormat(file, head)
	if format == solar.FormatUnknown {
		return 0, fmt.Errorf("unknown format")
	}
	rows, err := solar.Parse(format, br)
	if err != nil {
		return 0, err
	}
	batch.Add(rows, filepath.Base(file))
	return len(rows), nil
}

func newSolarSSNCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ssn",
		Short: "Print the smoothed sunspot number for --time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseTime()
			if err != nil {
				return err
			}
			ssnFlag = -1
			r, err := resolveSSN(cmd.Context(), newLogger(), at)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  R12 %.1f\n", at.Format("2006-01"), r)
			return nil
		},
	}
	cmd.Flags().StringVar(&timeFlag, "time", "", "UTC time, RFC 3339 (default: now)")
	return cmd
}
