package main

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KI7MT/ki7mt-hfprop/internal/bands"
	"github.com/KI7MT/ki7mt-hfprop/internal/predict"
	"github.com/KI7MT/ki7mt-hfprop/internal/raytrace"
)

func newPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict TX RX",
		Short: "Predict one circuit across the HF bands",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := newLogger()

			tx, err := parseStation(args[0])
			if err != nil {
				return err
			}
			rx, err := parseStation(args[1])
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
			engine, err := newEngine(ctx, log)
			if err != nil {
				return err
			}

			pred, err := engine.Predict(ctx, predict.Request{
				Tx: tx, Rx: rx, Time: at, SSN: ssn, Bands: list, UpperDecile: decile,
			})
			if err != nil {
				return err
			}
			return printPrediction(cmd.OutOrStdout(), pred)
		},
	}
	addCircuitFlags(cmd)
	return cmd
}

func printPrediction(out io.Writer, p *predict.Prediction) error {
	fmt.Fprintf(out, "Path:     %s\n", p.Path)
	fmt.Fprintf(out, "Time:     %s  SSN %.0f\n", p.Time.Format("2006-01-02 15:04Z"), p.SSN)
	if p.MUF > 0 {
		fmt.Fprintf(out, "Circuit:  MUF %.2f  FOT %.2f  HPF %.2f MHz via %s\n", p.MUF, p.FOT, p.HPF, p.Mode)
	} else {
		fmt.Fprintf(out, "Circuit:  no feasible mode\n")
	}
	if p.LowConfidence {
		fmt.Fprintf(out, "Note:     some figures did not converge and are low confidence\n")
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BAND\tMHz\tSTATUS\tMODE\tMUF\tFOT\tELEV\tSKIP km")
	for _, br := range p.Bands {
		sol := br.Solution
		status := sol.Status.String()
		if sol.Reason != raytrace.ReasonNone {
			status += "/" + sol.Reason.String()
		}
		skip := "-"
		if !math.IsInf(sol.SkipDistance, 0) && sol.Best() != nil {
			skip = fmt.Sprintf("%.0f", sol.SkipDistance)
		}
		elev := "-"
		if sol.Best() != nil {
			elev = fmt.Sprintf("%.1f", sol.Elevation*180/math.Pi)
		}
		fmt.Fprintf(tw, "%s\t%.3f\t%s\t%s\t%.2f\t%.2f\t%s\t%s\n",
			br.Band.Name, sol.Frequency, status, sol.ModeName(), sol.MUF, sol.FOT, elev, skip)
	}
	return tw.Flush()
}
