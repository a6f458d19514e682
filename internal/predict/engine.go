// Package predict turns a circuit (transmitter, receiver, time, sunspot
// number) into per-band propagation predictions, and sweeps a receiver grid
// for area coverage. It wires the collaborators of the physics core: sun
// position, geomagnetic field, path geometry and the coefficient map.
package predict

import (
	"context"
	"fmt"
	"time"

	"github.com/KI7MT/ki7mt-hfprop/internal/bands"
	"github.com/KI7MT/ki7mt-hfprop/internal/ccir"
	"github.com/KI7MT/ki7mt-hfprop/internal/common"
	"github.com/KI7MT/ki7mt-hfprop/internal/geomag"
	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
	"github.com/KI7MT/ki7mt-hfprop/internal/layers"
	"github.com/KI7MT/ki7mt-hfprop/internal/path"
	"github.com/KI7MT/ki7mt-hfprop/internal/profile"
	"github.com/KI7MT/ki7mt-hfprop/internal/raytrace"
	"github.com/KI7MT/ki7mt-hfprop/internal/solar"
)

// =============================================================================
// Configuration
// =============================================================================

// DefaultMaxHops bounds the hop count searched per path.
const DefaultMaxHops = 4

// Config tunes the engine.
type Config struct {
	MaxHops     int
	FieldHeight float64 // Geomagnetic evaluation height, km
	Layers      layers.Config
	Solver      raytrace.Config
}

// DefaultConfig returns the conventional settings.
func DefaultConfig() Config {
	return Config{
		MaxHops:     DefaultMaxHops,
		FieldHeight: geomag.DefaultHeight,
		Layers:      layers.DefaultConfig(),
		Solver:      raytrace.DefaultConfig(),
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache shares a profile cache between predictions.
func WithCache(c *ProfileCache) Option { return func(e *Engine) { e.cache = c } }

// WithMetrics records prediction metrics.
func WithMetrics(m *Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithLogger sets the engine logger.
func WithLogger(l common.Logger) Option { return func(e *Engine) { e.log = l } }

// WithField replaces the geomagnetic field model.
func WithField(m geomag.Model) Option { return func(e *Engine) { e.field = m } }

// Engine produces predictions. It holds configuration and shared immutable
// state only and is safe for concurrent use.
type Engine struct {
	cfg      Config
	maps     *ccir.Map
	resolver *layers.Resolver
	solver   *raytrace.Solver
	field    geomag.Model
	cache    *ProfileCache
	scope    cacheScope
	metrics  *Metrics
	log      common.Logger
}

// NewEngine creates an engine over an explicit coefficient map.
func NewEngine(maps *ccir.Map, cfg Config, opts ...Option) (*Engine, error) {
	if maps == nil {
		return nil, fmt.Errorf("predict: no coefficient map")
	}
	if cfg.MaxHops < 1 {
		cfg.MaxHops = DefaultMaxHops
	}
	if cfg.FieldHeight <= 0 {
		cfg.FieldHeight = geomag.DefaultHeight
	}
	e := &Engine{
		cfg:      cfg,
		maps:     maps,
		resolver: layers.NewResolver(cfg.Layers),
		solver:   raytrace.NewSolver(cfg.Solver),
		field:    geomag.New(cfg.FieldHeight),
		log:      common.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.scope = newCacheScope(maps, e.resolver.Config(), e.field)
	return e, nil
}

// Map returns the engine's coefficient map.
func (e *Engine) Map() *ccir.Map { return e.maps }

// =============================================================================
// Point-to-point prediction
// =============================================================================

// Request is one circuit prediction.
type Request struct {
	Tx, Rx      iono.GeographicPoint
	Time        time.Time
	SSN         float64      // Smoothed sunspot number
	Bands       []bands.Band // Default: every HF band
	UpperDecile float64      // Fractional MUF spread for HPF
}

// BandResult is the solution at one band's operating frequency.
type BandResult struct {
	Band     bands.Band
	Solution *raytrace.Solution
}

// Prediction is the outcome for one circuit.
type Prediction struct {
	Path     *path.Path
	Time     time.Time
	SSN      float64
	Controls []raytrace.ControlProfile

	// Circuit figures from the highest-MUF mode; zero when no mode exists.
	MUF, FOT, HPF float64
	Mode          string
	Modes         []raytrace.Mode // Every feasible mode evaluated at the MUF

	Bands         []BandResult
	LowConfidence bool
}

// Predict computes the per-band prediction for one circuit.
func (e *Engine) Predict(ctx context.Context, req Request) (*Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	if err := iono.CheckSSN("predict.Predict", req.SSN); err != nil {
		return nil, err
	}
	p, err := path.New(req.Tx, req.Rx)
	if err != nil {
		return nil, err
	}

	controls, err := e.Controls(p, req.Time, req.SSN)
	if err != nil {
		return nil, err
	}
	a, err := e.solver.Analyze(controls, p.Distance, e.cfg.MaxHops)
	if err != nil {
		return nil, err
	}

	pred := &Prediction{Path: p, Time: req.Time, SSN: req.SSN, Controls: controls}
	if muf := a.MaxMUF(); muf > 0 {
		sol, err := a.At(muf, req.UpperDecile)
		if err != nil {
			return nil, err
		}
		pred.MUF, pred.FOT, pred.HPF = sol.MUF, sol.FOT, sol.HPF
		pred.Mode = sol.ModeName()
		pred.Modes = sol.Modes
		pred.LowConfidence = sol.LowConfidence
	}

	list := req.Bands
	if len(list) == 0 {
		list = bands.HF()
	}
	pred.Bands = make([]BandResult, 0, len(list))
	for _, b := range list {
		sol, err := a.At(b.DialMHz, req.UpperDecile)
		if err != nil {
			return nil, fmt.Errorf("band %s: %w", b.Name, err)
		}
		pred.Bands = append(pred.Bands, BandResult{Band: b, Solution: sol})
		pred.LowConfidence = pred.LowConfidence || sol.LowConfidence
		e.metrics.observeSolution(sol)
	}

	e.metrics.observePoint(time.Since(start))
	e.log.Debug(ctx, "prediction",
		common.String("path", p.String()),
		common.Float("muf", pred.MUF),
		common.String("mode", pred.Mode),
	)
	return pred, nil
}

// Controls resolves the control points of a path at t: sun position,
// geomagnetic state, layer parameters and the density profile.
func (e *Engine) Controls(p *path.Path, t time.Time, ssn float64) ([]raytrace.ControlProfile, error) {
	sun := solar.At(t)
	cond := layers.Conditions{
		Month: int(t.UTC().Month()),
		SSN:   ssn,
		UTC:   solar.UTCFraction(t),
	}

	cps := p.ControlPoints()
	out := make([]raytrace.ControlProfile, len(cps))
	for i, cp := range cps {
		cp.SolarZenith = sun.Zenith(cp.Point)
		cp.LocalTime = solar.LocalTime(t, cp.Point.Lon)

		resolved, prof, err := e.profileAt(cp, t, cond)
		if err != nil {
			return nil, fmt.Errorf("control point %s: %w", cp.Point, err)
		}
		out[i] = raytrace.ControlProfile{Fraction: cp.PathFraction, Point: resolved, Profile: prof}
	}
	return out, nil
}

func (e *Engine) profileAt(cp iono.ControlPoint, t time.Time, cond layers.Conditions) (iono.ControlPoint, *profile.Profile, error) {
	key := newProfileKey(e.scope, cp.Point, t, cond.SSN)
	if e.cache != nil {
		if entry, ok := e.cache.get(key); ok {
			e.metrics.observeCache(true)
			return entry.apply(cp), entry.profile, nil
		}
		e.metrics.observeCache(false)
	}

	fd, err := e.field.At(cp.Point, t)
	if err != nil {
		return cp, nil, err
	}
	cp = fd.Apply(cp)

	ls, err := e.resolver.Resolve(cp, e.maps, cond)
	if err != nil {
		return cp, nil, err
	}
	cp = cp.WithLayers(ls)
	prof, err := profile.Build(ls)
	if err != nil {
		return cp, nil, err
	}
	e.cache.add(key, profileEntry{field: fd, layers: ls, profile: prof})
	return cp, prof, nil
}
