// Package raytrace determines the propagation modes a path supports: for
// each hop count and reflecting layer it finds the maximum usable frequency
// from the control-point profiles and the curved-earth hop geometry, then
// classifies an operating frequency against those modes and computes skip
// distances.
//
// The Solver holds configuration only. All per-path working state lives in
// the Analysis returned by Analyze, so independent paths can be solved
// concurrently.
package raytrace

import (
	"math"
	"sort"
	"sync"

	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
	"github.com/KI7MT/ki7mt-hfprop/internal/numeric"
	"github.com/KI7MT/ki7mt-hfprop/internal/profile"
)

// =============================================================================
// Configuration
// =============================================================================

// Config tunes the solver.
type Config struct {
	MinElevation float64        // Lowest usable take-off angle, radians
	FOTFraction  float64        // FOT = FOTFraction * MUF
	Method       profile.Method // Virtual-height integration method
	ScanSamples  int            // Coarse samples per reflecting band
	ExcludeEs    bool           // Ignore sporadic E mirrors

	Freq  numeric.Solver // Searches over frequency, MHz
	Range numeric.Solver // Searches over hop range, km
}

// DefaultConfig returns the conventional settings.
func DefaultConfig() Config {
	return Config{
		MinElevation: 3 * math.Pi / 180,
		FOTFraction:  iono.FOTFraction,
		Method:       profile.Precise,
		ScanSamples:  32,
		Freq:         numeric.Solver{Tol: 1e-4, MaxIter: 60},
		Range:        numeric.Solver{Tol: 0.5, MaxIter: 60},
	}
}

// Solver finds propagation modes. It is safe for concurrent use.
type Solver struct {
	cfg Config
}

// NewSolver creates a solver; zero fields in cfg take their defaults.
func NewSolver(cfg Config) *Solver {
	def := DefaultConfig()
	if cfg.MinElevation <= 0 {
		cfg.MinElevation = def.MinElevation
	}
	if cfg.FOTFraction <= 0 {
		cfg.FOTFraction = def.FOTFraction
	}
	if cfg.ScanSamples < 4 {
		cfg.ScanSamples = def.ScanSamples
	}
	return &Solver{cfg: cfg}
}

// Config returns the effective configuration.
func (s *Solver) Config() Config { return s.cfg }

// ControlProfile is a control point along the path with its profile.
type ControlProfile struct {
	Fraction float64 // 0 = transmitter, 1 = receiver
	Point    iono.ControlPoint
	Profile  *profile.Profile
}

// Request is one solve.
type Request struct {
	Path           []ControlProfile
	GroundDistance float64 // km
	MaxHops        int
	Frequency      float64 // MHz
	UpperDecile    float64 // Fractional upper-decile spread of the MUF; 0 when unknown
}

// Solve analyses the path and classifies the request frequency.
func (s *Solver) Solve(req Request) (*Solution, error) {
	if err := iono.CheckFrequency("raytrace.Solve", req.Frequency); err != nil {
		return nil, err
	}
	a, err := s.Analyze(req.Path, req.GroundDistance, req.MaxHops)
	if err != nil {
		return nil, err
	}
	return a.At(req.Frequency, req.UpperDecile)
}

// =============================================================================
// Analysis
// =============================================================================

// Analysis holds the frequency-independent part of a solve: the feasible
// modes of a path and their MUFs. At classifies any number of operating
// frequencies against it.
type Analysis struct {
	cfg      Config
	distance float64
	path     []ControlProfile
	mirrors  [][]*mirror
	modes    []modeEval
	lowConf  bool

	mu    sync.Mutex
	peaks map[mirrorKey]peakResult
}

type mirrorKey struct {
	control int
	kind    iono.LayerKind
}

type hopEval struct {
	control int
	mirror  *mirror
	res     hopResult
}

type modeEval struct {
	hops    int
	kind    iono.LayerKind
	detail  []hopEval
	muf     float64
	floor   float64 // Highest hop floor
	limit   int     // Index of the hop with the lowest MUF
	lowConf bool
}

type peakResult struct {
	dStar     float64 // Hop range of the highest MUF, km
	muf       float64
	converged bool
}

// Analyze computes every feasible (hop count, layer) mode of the path.
func (s *Solver) Analyze(path []ControlProfile, groundDistance float64, maxHops int) (*Analysis, error) {
	const op = "raytrace.Solve"
	switch {
	case len(path) == 0:
		return nil, iono.NewDomainError(op, "path", 0, "no control profiles")
	case !numeric.Finite(groundDistance) || groundDistance <= 0:
		return nil, iono.NewDomainError(op, "ground_distance", groundDistance, "distance must be positive")
	case groundDistance > math.Pi*iono.EarthRadiusKm:
		return nil, iono.NewDomainError(op, "ground_distance", groundDistance, "distance exceeds half the earth's circumference")
	case maxHops < 1:
		return nil, iono.NewDomainError(op, "max_hops", float64(maxHops), "at least one hop required")
	}
	for i, cp := range path {
		if cp.Profile == nil {
			return nil, iono.NewDomainError(op, "profile", float64(i), "control profile has no density profile")
		}
		if !numeric.Finite(cp.Fraction) || cp.Fraction < 0 || cp.Fraction > 1 {
			return nil, iono.NewDomainError(op, "fraction", cp.Fraction, "path fraction outside [0, 1]")
		}
	}

	cfg := s.cfg
	a := &Analysis{
		cfg:      cfg,
		distance: groundDistance,
		path:     path,
		mirrors:  make([][]*mirror, len(path)),
		peaks:    make(map[mirrorKey]peakResult),
	}
	for i, cp := range path {
		var es iono.LayerInfo
		if !cfg.ExcludeEs {
			es = cp.Point.Layers.Es()
		}
		a.mirrors[i] = profileMirrors(cp.Profile, es, cfg)
		for _, m := range a.mirrors[i] {
			if m.dropped {
				a.lowConf = true
			}
		}
	}

	for n := 1; n <= maxHops; n++ {
		theta := HalfHopAngle(groundDistance / float64(n))
		for _, kind := range iono.AllLayerKinds {
			if me, ok := a.evalMode(n, kind, theta); ok {
				a.modes = append(a.modes, me)
			}
		}
	}
	return a, nil
}

// evalMode evaluates every hop of an n-hop mode on one layer.
func (a *Analysis) evalMode(n int, kind iono.LayerKind, theta float64) (modeEval, bool) {
	me := modeEval{hops: n, kind: kind, muf: math.Inf(1)}
	cache := make(map[int]hopResult)
	for i := 0; i < n; i++ {
		c := a.controlFor((float64(i) + 0.5) / float64(n))
		m := a.mirror(c, kind)
		if m == nil {
			return modeEval{}, false
		}
		res, seen := cache[c]
		if !seen {
			res = m.hopMUF(theta, a.cfg.MinElevation, a.cfg.Freq)
			cache[c] = res
		}
		if !res.ok {
			return modeEval{}, false
		}
		if !res.converged || m.dropped {
			me.lowConf = true
		}
		me.detail = append(me.detail, hopEval{control: c, mirror: m, res: res})
		me.floor = math.Max(me.floor, res.floor)
		if res.muf < me.muf {
			me.muf, me.limit = res.muf, i
		}
	}
	return me, numeric.Finite(me.muf)
}

// controlFor returns the control profile closest to a path fraction.
func (a *Analysis) controlFor(fraction float64) int {
	best, bestD := 0, math.Inf(1)
	for i, cp := range a.path {
		if d := math.Abs(cp.Fraction - fraction); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func (a *Analysis) mirror(control int, kind iono.LayerKind) *mirror {
	for _, m := range a.mirrors[control] {
		if m.kind == kind {
			return m
		}
	}
	return nil
}

// Feasible reports whether any mode spans the distance.
func (a *Analysis) Feasible() bool { return len(a.modes) > 0 }

// MaxMUF returns the highest mode MUF, or 0 when no mode exists.
func (a *Analysis) MaxMUF() float64 {
	var best float64
	for _, me := range a.modes {
		best = math.Max(best, me.muf)
	}
	return best
}

// =============================================================================
// Classification
// =============================================================================

// At classifies an operating frequency f against the analysed modes.
func (a *Analysis) At(f, upperDecile float64) (*Solution, error) {
	const op = "raytrace.Solve"
	if err := iono.CheckFrequency(op, f); err != nil {
		return nil, err
	}
	if !numeric.Finite(upperDecile) || upperDecile < 0 {
		return nil, iono.NewDomainError(op, "upper_decile", upperDecile, "spread must be finite and non-negative")
	}

	sol := &Solution{Frequency: f, LowConfidence: a.lowConf}
	if len(a.modes) == 0 {
		sol.Status, sol.Reason = StatusNoMode, ReasonUnreachable
		return sol, nil
	}

	modes := make([]Mode, 0, len(a.modes))
	for _, me := range a.modes {
		modes = append(modes, a.mode(me, f, upperDecile))
	}
	sort.SliceStable(modes, func(i, j int) bool {
		if modes[i].Hops != modes[j].Hops {
			return modes[i].Hops < modes[j].Hops
		}
		return modes[i].Layer < modes[j].Layer
	})
	sol.Modes = modes

	// Lowest hop count carrying f; highest MUF within it.
	sel := -1
	for i, m := range modes {
		if !m.Carries(f) {
			continue
		}
		if sel < 0 || m.Hops < modes[sel].Hops || (m.Hops == modes[sel].Hops && m.MUF > modes[sel].MUF) {
			sel = i
		}
	}

	if sel >= 0 {
		sol.Status = StatusOK
		sol.Mode = &sol.Modes[sel]
	} else {
		closest, skipZone, screened := 0, false, false
		for i, m := range modes {
			if m.MUF > modes[closest].MUF {
				closest = i
			}
			if f <= m.PeakMUF && m.Reachable() && m.SkipDistance > a.distance {
				skipZone = true
			}
			if f <= m.MUF {
				screened = true
			}
		}
		sol.Closest = &sol.Modes[closest]
		switch {
		case skipZone:
			sol.Status, sol.Reason = StatusNoMode, ReasonSkipZone
		case screened:
			sol.Status, sol.Reason = StatusNoMode, ReasonScreened
		default:
			sol.Status = StatusAboveMUF
		}
	}

	best := sol.Best()
	sol.MUF, sol.FOT, sol.HPF = best.MUF, best.FOT, best.HPF
	sol.SkipDistance = best.SkipDistance
	sol.Elevation = best.Elevation
	sol.LowConfidence = sol.LowConfidence || best.LowConfidence
	return sol, nil
}

// mode expands a modeEval into its public form at operating frequency f.
func (a *Analysis) mode(me modeEval, f, upperDecile float64) Mode {
	m := Mode{
		Hops:          me.hops,
		Layer:         me.kind,
		MUF:           me.muf,
		MinFrequency:  me.floor,
		FOT:           a.cfg.FOTFraction * me.muf,
		HPF:           me.muf * (1 + upperDecile),
		Elevation:     me.detail[me.limit].res.elevation,
		PeakMUF:       math.Inf(1),
		LowConfidence: me.lowConf,
		HopDetail:     make([]Hop, len(me.detail)),
	}

	var maxSkip float64
	for i, h := range me.detail {
		pk := a.peak(h.control, h.mirror)
		skip, conv := a.hopSkip(h.mirror, pk, f)
		if !pk.converged || !conv {
			m.LowConfidence = true
		}
		m.PeakMUF = math.Min(m.PeakMUF, pk.muf)
		maxSkip = math.Max(maxSkip, skip)
		m.HopDetail[i] = Hop{
			Control:       h.control,
			Layer:         me.kind,
			MUF:           h.res.muf,
			Elevation:     h.res.elevation,
			VirtualHeight: h.res.hv,
			Skip:          skip,
		}
	}
	m.SkipDistance = float64(me.hops) * maxSkip
	return m
}

// hopMUFAt is the hop MUF of a mirror as a function of hop range in km.
func (a *Analysis) hopMUFAt(m *mirror, d float64) float64 {
	r := m.hopMUF(HalfHopAngle(d), a.cfg.MinElevation, a.cfg.Freq)
	if !r.ok {
		return 0
	}
	return r.muf
}

// peak finds the hop range at which a mirror's MUF is highest.
func (a *Analysis) peak(control int, m *mirror) peakResult {
	key := mirrorKey{control: control, kind: m.kind}
	a.mu.Lock()
	pk, ok := a.peaks[key]
	a.mu.Unlock()
	if ok {
		return pk
	}

	dMax := HopRange(m.maxHalfHop(a.cfg.MinElevation))
	res := a.cfg.Range.Maximize(func(d float64) float64 { return a.hopMUFAt(m, d) }, 0, dMax)
	pk = peakResult{dStar: res.X, muf: res.F, converged: res.Converged}

	a.mu.Lock()
	a.peaks[key] = pk
	a.mu.Unlock()
	return pk
}

// hopSkip returns the shortest hop range supporting f, 0 when f returns at
// vertical incidence, and +Inf when no range supports it. A frequency at or
// below the band is returned by a lower layer and never reaches the mirror.
func (a *Analysis) hopSkip(m *mirror, pk peakResult, f float64) (float64, bool) {
	if f <= m.lo {
		return math.Inf(1), true
	}
	if f <= m.hi {
		return 0, true
	}
	if f > pk.muf {
		return math.Inf(1), true
	}
	res, err := a.cfg.Range.Root(func(d float64) float64 { return a.hopMUFAt(m, d) - f }, 0, pk.dStar)
	if err != nil {
		return pk.dStar, false
	}
	return res.Hi, res.Converged
}
