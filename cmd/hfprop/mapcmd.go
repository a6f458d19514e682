package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KI7MT/ki7mt-hfprop/internal/ccir"
	"github.com/KI7MT/ki7mt-hfprop/internal/common"
	"github.com/KI7MT/ki7mt-hfprop/internal/geomag"
	"github.com/KI7MT/ki7mt-hfprop/internal/solar"
)

func newMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Inspect and package CCIR coefficient maps",
	}
	cmd.AddCommand(newMapPackCmd(), newMapEvalCmd())
	return cmd
}

func newMapPackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pack OUT",
		Short: "Write the selected map to OUT; the extension picks the compression",
		Long: `pack writes the map selected by --map (the built-in reference map by
default) to OUT. Files ending in .zst are zstd-compressed, .gz gzip
compressed, anything else raw msgpack.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := newLogger()

			maps, err := loadMap(ctx)
			if err != nil {
				return err
			}
			out := args[0]
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			if err := ccir.WriteFile(out, maps); err != nil {
				return err
			}
			info, err := os.Stat(out)
			if err != nil {
				return err
			}
			log.Info(ctx, "map written",
				common.String("name", maps.Name()),
				common.String("file", out),
				common.Int("bytes", int(info.Size())),
			)
			return nil
		},
	}
}

func newMapEvalCmd() *cobra.Command {
	var ssn float64
	cmd := &cobra.Command{
		Use:   "eval POINT",
		Short: "Evaluate every mapped parameter at a point and time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pt, err := parseStation(args[0])
			if err != nil {
				return err
			}
			at, err := parseTime()
			if err != nil {
				return err
			}
			maps, err := loadMap(ctx)
			if err != nil {
				return err
			}
			field, err := geomag.New(geomag.DefaultHeight).At(pt, at)
			if err != nil {
				return err
			}

			q := ccir.Query{
				Point: pt,
				Dip:   field.Dip,
				Month: int(at.Month()),
				SSN:   ssn,
				UTC:   solar.UTCFraction(at),
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Map %s at %s, %s, SSN %.0f, dip %.1f° (%s)\n\n",
				maps.Name(), pt, at.Format("2006-01-02 15:04Z"), ssn, field.Dip*180/math.Pi, field.Model)

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PARAM\tVALUE")
			for _, kind := range maps.Kinds() {
				v, err := maps.Evaluate(kind, q)
				if err != nil {
					return fmt.Errorf("%s: %w", kind, err)
				}
				fmt.Fprintf(tw, "%s\t%.3f\n", kind, v)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Float64Var(&ssn, "ssn", 100, "sunspot number")
	cmd.Flags().StringVar(&timeFlag, "time", "", "UTC time, RFC 3339 (default: now)")
	return cmd
}
