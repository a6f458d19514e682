// Package profile builds the electron-density-versus-height profile of one
// control point from its layer parameters, and answers true and virtual
// reflection-height queries against it.
//
// Each present E, F1 and F2 layer contributes a quasi-parabolic segment
//
//	N(h) = Nm * (1 - ((h - hm)/ym)^2)^p    for |h - hm| <= ym
//
// and the profile density is the pointwise maximum of the segments. The
// builder resolves the overlaps once and stores the result as bottom-up
// pieces, each dominated by a single layer, so the profile is single-valued
// in height. Sporadic E is not part of the continuous profile; the raytracer
// treats it as a thin mirror.
package profile

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
	"github.com/KI7MT/ki7mt-hfprop/internal/numeric"
)

// ErrPenetrates is returned when a frequency exceeds the profile's maximum
// critical frequency: the wave is not reflected.
var ErrPenetrates = &iono.DomainError{
	Op:     "profile",
	Field:  "freq",
	Reason: "frequency exceeds the maximum critical frequency; wave penetrates the ionosphere",
}

// crossingSamples is the sampling density used to bracket segment crossings.
const crossingSamples = 64

// =============================================================================
// Segment
// =============================================================================

// Segment is the quasi-parabolic density model of one layer.
type Segment struct {
	Kind  iono.LayerKind
	Layer iono.LayerInfo
}

// Density returns the segment density at h, zero outside [hm-ym, hm+ym].
func (s Segment) Density(h float64) float64 {
	l := s.Layer
	z := (h - l.Hm) / l.Ym
	if z <= -1 || z >= 1 {
		return 0
	}
	return l.PeakDensity() * math.Pow(1-z*z, l.P)
}

// HeightOf returns the height on the ascending branch where the segment
// density equals n (0 < n <= Nm).
func (s Segment) HeightOf(n float64) float64 {
	l := s.Layer
	r := n / l.PeakDensity()
	if r >= 1 {
		return l.Hm
	}
	return l.Hm - l.Ym*math.Sqrt(1-math.Pow(r, 1/l.P))
}

// =============================================================================
// Piece
// =============================================================================

// Piece is a height interval in which one layer dominates the profile.
type Piece struct {
	Segment
	Lo, Hi float64 // km
}

// peakHeight is the highest point of the piece's ascending part.
func (p Piece) peakHeight() float64 {
	return math.Min(p.Layer.Hm, p.Hi)
}

// AscendingMax returns the largest density the piece reaches while rising.
func (p Piece) AscendingMax() float64 {
	if p.Lo >= p.Layer.Hm {
		return p.Density(p.Lo)
	}
	return p.Density(p.peakHeight())
}

// =============================================================================
// Profile
// =============================================================================

// Profile is an immutable electron-density profile.
type Profile struct {
	segments []Segment
	pieces   []Piece
	merged   []iono.LayerKind
	maxDens  float64
}

// Build assembles the profile for the E, F1 and F2 layers of ls.
func Build(ls iono.LayerSet) (*Profile, error) {
	const op = "profile.Build"

	var segs []Segment
	for _, k := range []iono.LayerKind{iono.LayerE, iono.LayerF1, iono.LayerF2} {
		l := ls.Get(k)
		if l.Fo < 0 || math.IsNaN(l.Fo) {
			return nil, iono.NewDomainError(op, "fo"+k.String(), l.Fo, "critical frequency must be non-negative")
		}
		if !l.Present() {
			continue
		}
		switch {
		case !numeric.Finite(l.Fo):
			return nil, iono.NewDomainError(op, "fo"+k.String(), l.Fo, "critical frequency not finite")
		case !numeric.Finite(l.Ym) || l.Ym <= 0:
			return nil, iono.NewDomainError(op, "ym"+k.String(), l.Ym, "semi-thickness must be positive")
		case !numeric.Finite(l.Hm) || l.Hm-l.Ym < 0:
			return nil, iono.NewDomainError(op, "hm"+k.String(), l.Hm, "layer base below ground")
		case !numeric.Finite(l.P) || l.P <= 0:
			return nil, iono.NewDomainError(op, "p"+k.String(), l.P, "shape exponent must be positive")
		}
		segs = append(segs, Segment{Kind: k, Layer: l})
	}
	if len(segs) == 0 {
		return nil, iono.NewDomainError(op, "layers", 0, "no E, F1 or F2 layer present")
	}

	p := &Profile{segments: segs}
	p.pieces = compose(segs)

	seen := make(map[iono.LayerKind]bool, len(segs))
	for _, pc := range p.pieces {
		seen[pc.Kind] = true
		if d := pc.AscendingMax(); d > p.maxDens {
			p.maxDens = d
		}
	}
	for _, s := range segs {
		if !seen[s.Kind] {
			p.merged = append(p.merged, s.Kind)
		}
	}
	return p, nil
}

// compose splits the height axis at segment edges and crossings and labels
// every interval with its dominant segment.
func compose(segs []Segment) []Piece {
	var cuts []float64
	for _, s := range segs {
		cuts = append(cuts, s.Layer.Bottom(), s.Layer.Top())
	}
	for i := range segs {
		for j := i + 1; j < len(segs); j++ {
			cuts = append(cuts, crossings(segs[i], segs[j])...)
		}
	}
	sort.Float64s(cuts)

	var pieces []Piece
	for i := 0; i+1 < len(cuts); i++ {
		lo, hi := cuts[i], cuts[i+1]
		if hi-lo < 1e-9 {
			continue
		}
		mid := 0.5 * (lo + hi)
		best, bestN := -1, 0.0
		for k, s := range segs {
			if n := s.Density(mid); n > bestN {
				best, bestN = k, n
			}
		}
		if best < 0 {
			continue // Free space between layers.
		}
		if n := len(pieces); n > 0 && pieces[n-1].Kind == segs[best].Kind && pieces[n-1].Hi == lo {
			pieces[n-1].Hi = hi
			continue
		}
		pieces = append(pieces, Piece{Segment: segs[best], Lo: lo, Hi: hi})
	}
	return pieces
}

// crossings returns the heights inside the overlap of a and b where their
// densities are equal.
func crossings(a, b Segment) []float64 {
	lo := math.Max(a.Layer.Bottom(), b.Layer.Bottom())
	hi := math.Min(a.Layer.Top(), b.Layer.Top())
	if hi <= lo {
		return nil
	}
	diff := func(h float64) float64 { return a.Density(h) - b.Density(h) }

	var out []float64
	s := numeric.Solver{Tol: 1e-7, MaxIter: 80}
	step := (hi - lo) / crossingSamples
	prevH, prevD := lo, diff(lo)
	for i := 1; i <= crossingSamples; i++ {
		h := lo + float64(i)*step
		d := diff(h)
		if prevD != 0 && d != 0 && math.Signbit(prevD) != math.Signbit(d) {
			if res, err := s.Root(diff, prevH, h); err == nil {
				out = append(out, res.X)
			}
		}
		prevH, prevD = h, d
	}
	return out
}

// Segments returns the layer segments the profile was built from.
func (p *Profile) Segments() []Segment {
	return append([]Segment(nil), p.segments...)
}

// Pieces returns the bottom-up dominated pieces.
func (p *Profile) Pieces() []Piece {
	return append([]Piece(nil), p.pieces...)
}

// Merged returns the layers completely dominated by a neighbour.
func (p *Profile) Merged() []iono.LayerKind {
	return append([]iono.LayerKind(nil), p.merged...)
}

// Layers returns the parameters of the layers that shape the profile.
// Merged layers and sporadic E are absent. Building a profile from the
// result reproduces this one.
func (p *Profile) Layers() iono.LayerSet {
	var ls iono.LayerSet
	for _, s := range p.segments {
		if p.isMerged(s.Kind) {
			continue
		}
		ls = ls.With(s.Kind, s.Layer)
	}
	return ls
}

// Layer returns the segment parameters for k, or absent.
func (p *Profile) Layer(k iono.LayerKind) iono.LayerInfo {
	for _, s := range p.segments {
		if s.Kind == k && !p.isMerged(k) {
			return s.Layer
		}
	}
	return iono.LayerInfo{}
}

func (p *Profile) isMerged(k iono.LayerKind) bool {
	for _, m := range p.merged {
		if m == k {
			return true
		}
	}
	return false
}

// Density returns the electron density at h in electrons per cubic metre.
func (p *Profile) Density(h float64) float64 {
	for _, pc := range p.pieces {
		if h >= pc.Lo && h <= pc.Hi {
			return pc.Density(h)
		}
	}
	return 0
}

// PlasmaFrequency returns the plasma frequency at h in MHz.
func (p *Profile) PlasmaFrequency(h float64) float64 {
	return iono.FoFromDensity(p.Density(h))
}

// MaxCriticalFrequency returns the highest plasma frequency of the profile.
func (p *Profile) MaxCriticalFrequency() float64 {
	return iono.FoFromDensity(p.maxDens)
}

// Bottom returns the lowest height with non-zero density.
func (p *Profile) Bottom() float64 {
	if len(p.pieces) == 0 {
		return 0
	}
	return p.pieces[0].Lo
}

// TrueHeight returns the real reflection height of a vertically incident
// wave of frequency f (MHz).
func (p *Profile) TrueHeight(f float64) (float64, error) {
	if err := iono.CheckFrequency("profile.TrueHeight", f); err != nil {
		return 0, err
	}
	_, h, ok := p.reflection(f)
	if !ok {
		return 0, penetrates(f)
	}
	return h, nil
}

// reflection locates the piece and height where f reflects.
func (p *Profile) reflection(f float64) (int, float64, bool) {
	nf := iono.DensityPerMHz2 * f * f
	for i, pc := range p.pieces {
		if pc.AscendingMax() < nf {
			continue
		}
		h := pc.HeightOf(nf)
		if h < pc.Lo {
			h = pc.Lo
		}
		return i, h, true
	}
	return -1, 0, false
}

func penetrates(f float64) error {
	return fmt.Errorf("%w (f=%g MHz)", ErrPenetrates, f)
}

// IsPenetrates reports whether err signals a penetrating frequency.
func IsPenetrates(err error) bool {
	return errors.Is(err, ErrPenetrates)
}

// =============================================================================
// Reflectors
// =============================================================================

// Reflector is a vertical-frequency band reflected by one layer: every
// fv in (FLo, FHi] returns from a piece dominated by Kind.
type Reflector struct {
	Kind     iono.LayerKind
	FLo, FHi float64 // MHz
}

// Reflectors lists the bands bottom-up. Bands are contiguous and cover
// (0, MaxCriticalFrequency].
func (p *Profile) Reflectors() []Reflector {
	var out []Reflector
	var below float64
	for _, pc := range p.pieces {
		top := pc.AscendingMax()
		if top <= below {
			continue
		}
		lo, hi := iono.FoFromDensity(below), iono.FoFromDensity(top)
		if n := len(out); n > 0 && out[n-1].Kind == pc.Kind {
			out[n-1].FHi = hi
		} else {
			out = append(out, Reflector{Kind: pc.Kind, FLo: lo, FHi: hi})
		}
		below = top
	}
	return out
}
