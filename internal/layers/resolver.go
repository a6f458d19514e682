// Package layers resolves the per-layer ionospheric parameters (critical
// frequency, peak height, semi-thickness, shape) at a control point from the
// coefficient maps and the externally supplied solar and geomagnetic state.
package layers

import (
	"math"

	"github.com/KI7MT/ki7mt-hfprop/internal/ccir"
	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
)

// =============================================================================
// Empirical Constants
// =============================================================================

const (
	// E layer
	HmE = 110.0 // km
	YmE = 20.0  // km

	// Sporadic E
	HmEs = 110.0 // km
	YmEs = 5.0   // km

	// F1 peak height: clamp(165 + 0.6428*zenithDeg, 140, 220)
	hmF1Base  = 165.0
	hmF1Slope = 0.6428
	HmF1Min   = 140.0
	HmF1Max   = 220.0
	ymF1Ratio = 0.6

	// F2 peak height limits and semi-thickness.
	HmF2Min    = 200.0
	HmF2Max    = 450.0
	YmF2Min    = 60.0
	YmF2Max    = 140.0
	ymF2Ratio  = 0.3
	f2BaseGapE = 10.0 // F2 base stays this far above hmE

	// foF1/foF2 ratio ceiling.
	maxF1Ratio = 0.85
)

// Config holds the tunable thresholds of the resolver.
type Config struct {
	MaxSolarZenith float64 // Radians; the solar foE term vanishes beyond it
	F1MinExcess    float64 // foF1 must exceed this multiple of foE
	EsMinFo        float64 // MHz; weaker Es is reported absent
	ShapeExponent  float64 // Quasi-parabolic exponent for every layer
}

// DefaultConfig returns the conventional thresholds.
func DefaultConfig() Config {
	return Config{
		MaxSolarZenith: math.Pi / 2,
		F1MinExcess:    1.1,
		EsMinFo:        0.5,
		ShapeExponent:  1,
	}
}

// Conditions are the per-request epoch and activity inputs.
type Conditions struct {
	Month int     // 1..12
	SSN   float64 // Smoothed sunspot number, 0..200
	UTC   float64 // Fraction of a day
}

// Resolver computes LayerSets. It holds configuration only and is safe for
// concurrent use.
type Resolver struct {
	cfg Config
}

// NewResolver creates a resolver; zero fields in cfg take their defaults.
func NewResolver(cfg Config) *Resolver {
	def := DefaultConfig()
	if cfg.MaxSolarZenith <= 0 {
		cfg.MaxSolarZenith = def.MaxSolarZenith
	}
	if cfg.F1MinExcess <= 0 {
		cfg.F1MinExcess = def.F1MinExcess
	}
	if cfg.EsMinFo <= 0 {
		cfg.EsMinFo = def.EsMinFo
	}
	if cfg.ShapeExponent <= 0 {
		cfg.ShapeExponent = def.ShapeExponent
	}
	return &Resolver{cfg: cfg}
}

// Config returns the effective configuration.
func (r *Resolver) Config() Config { return r.cfg }

// Resolve computes the E, F1, F2 and Es parameters at cp.
func (r *Resolver) Resolve(cp iono.ControlPoint, maps *ccir.Map, c Conditions) (iono.LayerSet, error) {
	const op = "layers.Resolve"

	if err := iono.CheckSSN(op, c.SSN); err != nil {
		return iono.LayerSet{}, err
	}
	if err := iono.CheckMonth(op, c.Month); err != nil {
		return iono.LayerSet{}, err
	}
	if err := iono.CheckUTC(op, c.UTC); err != nil {
		return iono.LayerSet{}, err
	}
	if err := cp.Validate(op); err != nil {
		return iono.LayerSet{}, err
	}
	if maps == nil {
		return iono.LayerSet{}, iono.NewDomainError(op, "maps", 0, "no coefficient map")
	}

	q := ccir.Query{Point: cp.Point, Dip: cp.MagDip, Month: c.Month, SSN: c.SSN, UTC: c.UTC}
	foF2, err := maps.Evaluate(ccir.FoF2, q)
	if err != nil {
		return iono.LayerSet{}, err
	}
	m3000, err := maps.Evaluate(ccir.M3000F2, q)
	if err != nil {
		return iono.LayerSet{}, err
	}
	foF2 = math.Max(foF2, 0)

	p := r.cfg.ShapeExponent
	chi := cp.SolarZenith

	e := iono.LayerInfo{Fo: FoE(chi, c.SSN, r.cfg.MaxSolarZenith), Hm: HmE, Ym: YmE, P: p}

	var f2 iono.LayerInfo
	if foF2 > 0 {
		hm := HmF2(m3000, foF2, e.Fo, c.SSN)
		f2 = iono.LayerInfo{Fo: foF2, Hm: hm, Ym: YmF2(hm), P: p}
	}

	var f1 iono.LayerInfo
	if fo := FoF1(chi, c.SSN, foF2); f2.Present() && fo >= r.cfg.F1MinExcess*e.Fo && fo > 0 {
		hm := math.Min(HmF1(chi), f2.Hm-f2BaseGapE)
		if hm > HmE {
			f1 = iono.LayerInfo{Fo: fo, Hm: hm, Ym: ymF1Ratio * (hm - HmE), P: p}
		}
	}

	var es iono.LayerInfo
	if fo := FoEs(c.Month, cp.MagLat, cp.Point.Lat, cp.GyroFreq); fo >= r.cfg.EsMinFo {
		es = iono.LayerInfo{Fo: fo, Hm: HmEs, Ym: YmEs, P: p}
	}

	return iono.NewLayerSet(e, f1, f2, es), nil
}

// =============================================================================
// Layer Formulas
// =============================================================================

// FoE returns the E-layer critical frequency in MHz for solar zenith chi
// (radians) and sunspot number ssn. The solar term vanishes beyond maxZenith;
// the residual night ionization keeps foE above zero.
func FoE(chi, ssn, maxZenith float64) float64 {
	var day float64
	if chi < maxZenith {
		if c := math.Cos(chi); c > 0 {
			day = 0.9 * math.Pow((180+1.44*ssn)*c, 0.25)
		}
	}
	night := FoENight(ssn)
	return math.Pow(math.Pow(day, 4)+math.Pow(night, 4), 0.25)
}

// FoENight is the residual night-time E-layer critical frequency.
func FoENight(ssn float64) float64 {
	a := 1 + 0.021*ssn
	return math.Pow(0.004*a*a, 0.25)
}

// FoF1 returns the F1 critical frequency for a given foF2, or 0 when the sun
// is below the horizon. The caller applies the foE threshold.
func FoF1(chi, ssn, foF2 float64) float64 {
	if chi >= math.Pi/2 || foF2 <= 0 {
		return 0
	}
	ratio := math.Min(maxF1Ratio, (0.55+0.001*ssn)*math.Pow(math.Cos(chi), 0.25))
	return ratio * foF2
}

// HmF1 returns the F1 peak height for solar zenith chi.
func HmF1(chi float64) float64 {
	h := hmF1Base + hmF1Slope*chi*180/math.Pi
	return math.Max(HmF1Min, math.Min(HmF1Max, h))
}

// HmF2 returns the F2 peak height from M(3000)F2 with the Bradley-Dudeney
// correction for the underlying ionization.
func HmF2(m3000, foF2, foE, ssn float64) float64 {
	x := 1.7
	if foE > 0 {
		x = math.Max(foF2/foE, 1.7)
	}
	dM := 0.18/(x-1.4) + 0.096*(ssn-25)/150
	h := 1490/(m3000+dM) - 176
	if math.IsNaN(h) || m3000+dM <= 0 {
		return HmF2Max
	}
	return math.Max(HmF2Min, math.Min(HmF2Max, h))
}

// YmF2 returns the F2 semi-thickness for peak height hm, keeping the F2 base
// clear of the E peak.
func YmF2(hm float64) float64 {
	ym := math.Max(YmF2Min, math.Min(YmF2Max, ymF2Ratio*hm))
	return math.Min(ym, hm-HmE-f2BaseGapE)
}
