package predict

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KI7MT/ki7mt-hfprop/internal/bands"
	"github.com/KI7MT/ki7mt-hfprop/internal/common"
	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
	"github.com/KI7MT/ki7mt-hfprop/internal/path"
	"github.com/KI7MT/ki7mt-hfprop/internal/raytrace"
)

// =============================================================================
// Area sweep
// =============================================================================

// Area is a latitude/longitude box in degrees, bounds inclusive.
type Area struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
	Step           float64
}

// WorldArea covers the globe at step degrees.
func WorldArea(step float64) Area {
	return Area{LatMin: -90, LatMax: 90, LonMin: -180, LonMax: 180 - step, Step: step}
}

func (a Area) validate() error {
	switch {
	case !(a.Step > 0) || math.IsInf(a.Step, 0):
		return iono.NewDomainError("predict.Sweep", "step", a.Step, "grid step must be positive")
	case a.LatMin < -90 || a.LatMax > 90 || a.LatMin > a.LatMax:
		return fmt.Errorf("predict.Sweep: bad latitude range [%g, %g]", a.LatMin, a.LatMax)
	case a.LonMin > a.LonMax || a.LonMax-a.LonMin > 360:
		return fmt.Errorf("predict.Sweep: bad longitude range [%g, %g]", a.LonMin, a.LonMax)
	}
	return nil
}

// Points returns the grid in row-major order, south to north then west to
// east.
func (a Area) Points() []iono.GeographicPoint {
	nLat := int(math.Floor((a.LatMax-a.LatMin)/a.Step+1e-9)) + 1
	nLon := int(math.Floor((a.LonMax-a.LonMin)/a.Step+1e-9)) + 1
	out := make([]iono.GeographicPoint, 0, nLat*nLon)
	for i := 0; i < nLat; i++ {
		lat := a.LatMin + float64(i)*a.Step
		for j := 0; j < nLon; j++ {
			out = append(out, iono.PointFromDegrees(lat, a.LonMin+float64(j)*a.Step))
		}
	}
	return out
}

// SweepRequest predicts from one transmitter to every receiver of an area.
type SweepRequest struct {
	Tx          iono.GeographicPoint
	Time        time.Time
	SSN         float64
	Bands       []bands.Band
	Area        Area
	UpperDecile float64
	Workers     int // Default: runtime.NumCPU()
}

// Sweep runs the area prediction in parallel. Receivers coincident with or
// antipodal to the transmitter have no defined path and are skipped; any
// other failure aborts the sweep. The
// result is in grid order regardless of completion order. stats may be nil.
func (e *Engine) Sweep(ctx context.Context, req SweepRequest, stats *common.Stats) ([]*Prediction, error) {
	if err := iono.CheckSSN("predict.Sweep", req.SSN); err != nil {
		return nil, err
	}
	if err := req.Area.validate(); err != nil {
		return nil, err
	}
	list := req.Bands
	if len(list) == 0 {
		list = bands.HF()
	}
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	points := req.Area.Points()
	if stats != nil {
		stats.SetTotal(uint64(len(points)))
	}
	results := make([]*Prediction, len(points))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rx := range points {
		if gctx.Err() != nil {
			break
		}
		i, rx := i, rx
		g.Go(func() error {
			start := time.Now()
			pred, err := e.Predict(gctx, Request{
				Tx:          req.Tx,
				Rx:          rx,
				Time:        req.Time,
				SSN:         req.SSN,
				Bands:       list,
				UpperDecile: req.UpperDecile,
			})
			if path.IsDegenerate(err) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("receiver %s: %w", rx, err)
			}
			results[i] = pred
			if stats != nil {
				stats.AddPoint(time.Since(start))
				for _, b := range pred.Bands {
					stats.AddPrediction(b.Solution.Status != raytrace.StatusOK, b.Solution.LowConfidence)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := results[:0]
	for _, p := range results {
		if p != nil {
			out = append(out, p)
		}
	}
	e.log.Info(ctx, "sweep complete",
		common.Int("points", len(points)),
		common.Int("predicted", len(out)),
		common.Int("workers", workers),
	)
	return out, nil
}
