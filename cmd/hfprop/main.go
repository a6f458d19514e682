// hfprop - HF ionospheric propagation predictions
//
// Predicts the maximum usable frequency, operating frequencies and
// propagation mode of HF circuits from a CCIR coefficient map, and sweeps
// receiver grids for area coverage into Parquet or ClickHouse.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KI7MT/ki7mt-hfprop/internal/ccir"
	"github.com/KI7MT/ki7mt-hfprop/internal/common"
	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
	"github.com/KI7MT/ki7mt-hfprop/internal/path"
	"github.com/KI7MT/ki7mt-hfprop/internal/predict"
	"github.com/KI7MT/ki7mt-hfprop/internal/profile"
	"github.com/KI7MT/ki7mt-hfprop/internal/solar"
)

// Version can be overridden at build time via -ldflags
var Version = "0.1.0"

var (
	cfg = common.DefaultConfig()

	mapFile   string
	ssnFlag   float64
	timeFlag  string
	maxHops   int
	excludeEs bool
	approx    bool
	decile    float64
	bandList  string
)

var rootCmd = &cobra.Command{
	Use:   "hfprop",
	Short: "HF ionospheric propagation predictions",
	Long: `hfprop predicts HF sky-wave propagation between two stations: the
maximum usable frequency, the optimum working frequency and the
propagation mode for each amateur band.

Stations are given as "lat,lon" in degrees or as Maidenhead locators.
The sunspot number is taken from --ssn or, when omitted, from the
smoothed record in ClickHouse.

Examples:
  hfprop predict FN20 JO22 --ssn 120
  hfprop sweep FN20 --step 5 --time 2024-03-20T15:00:00Z --parquet
  hfprop map pack /var/lib/ki7mt-hfprop/maps/reference.ccir.msgpack.zst`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&mapFile, "map", cfg.MapFile, "coefficient map file (default: built-in reference map)")
	pf.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	pf.StringVar(&cfg.ClickHouseHost, "ch-host", cfg.ClickHouseHost, "ClickHouse host")
	pf.IntVar(&cfg.ClickHousePort, "ch-port", cfg.ClickHousePort, "ClickHouse native port")
	pf.StringVar(&cfg.ClickHouseDatabase, "ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text, json)")
	pf.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "rotating log file (default: stderr)")

	rootCmd.AddCommand(newPredictCmd(), newSweepCmd(), newMapCmd(), newSolarCmd())
}

// addCircuitFlags registers the flags shared by predict and sweep.
func addCircuitFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&ssnFlag, "ssn", -1, "smoothed sunspot number (default: from ClickHouse)")
	f.StringVar(&timeFlag, "time", "", "UTC time, RFC 3339 (default: now)")
	f.IntVar(&maxHops, "max-hops", predict.DefaultMaxHops, "maximum hop count")
	f.BoolVar(&excludeEs, "no-es", false, "exclude sporadic-E modes")
	f.BoolVar(&approx, "approx", false, "use the approximate virtual-height integration")
	f.Float64Var(&decile, "upper-decile", 0.15, "fractional MUF spread for the HPF")
	f.StringVar(&bandList, "bands", "hf", "comma-separated bands, e.g. 20m,40m")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// Shared setup
// =============================================================================

func newLogger() common.Logger {
	return common.NewLoggerFromConfig(cfg)
}

func loadMap(ctx context.Context) (*ccir.Map, error) {
	cfg.MapFile = mapFile
	return ccir.NewStore().Load(ctx, cfg.MapSource())
}

func newEngine(ctx context.Context, log common.Logger, opts ...predict.Option) (*predict.Engine, error) {
	maps, err := loadMap(ctx)
	if err != nil {
		return nil, err
	}
	ecfg := predict.DefaultConfig()
	ecfg.MaxHops = maxHops
	ecfg.Solver.ExcludeEs = excludeEs
	if approx {
		ecfg.Solver.Method = profile.Approximate
	}
	log.Info(ctx, "coefficient map loaded", common.String("name", maps.Name()))
	return predict.NewEngine(maps, ecfg, append(opts, predict.WithLogger(log))...)
}

func parseTime() (time.Time, error) {
	if timeFlag == "" {
		return time.Now().UTC().Truncate(time.Minute), nil
	}
	t, err := time.Parse(time.RFC3339, timeFlag)
	if err != nil {
		return time.Time{}, fmt.Errorf("--time: %w", err)
	}
	return t.UTC(), nil
}

// resolveSSN returns --ssn, or the smoothed sunspot number for t from the
// ClickHouse solar index table.
func resolveSSN(ctx context.Context, log common.Logger, t time.Time) (float64, error) {
	if ssnFlag >= 0 {
		if err := iono.CheckSSN("--ssn", ssnFlag); err != nil {
			return 0, err
		}
		return ssnFlag, nil
	}
	conn, err := solar.Open(ctx, cfg.ClickHouseAddr(), solarDatabase, cfg.ClickHouseUser, cfg.ClickHousePassword)
	if err != nil {
		return 0, fmt.Errorf("no --ssn given and the solar index is unavailable: %w", err)
	}
	defer conn.Close()

	r, used, err := solar.NewIndexStore(conn, "").SmoothedSSN(ctx, t)
	if err != nil {
		return 0, err
	}
	log.Info(ctx, "smoothed sunspot number",
		common.Float("ssn", r),
		common.String("month", used.Format("2006-01")),
	)
	return r, nil
}

func parseStation(s string) (iono.GeographicPoint, error) {
	pt, err := path.ParsePoint(s)
	if err != nil {
		return iono.GeographicPoint{}, fmt.Errorf("station %q: %w", s, err)
	}
	return pt, nil
}
