package raytrace

import (
	"math"

	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
	"github.com/KI7MT/ki7mt-hfprop/internal/numeric"
	"github.com/KI7MT/ki7mt-hfprop/internal/profile"
)

// mirror is one layer's reflecting band at one control point with its
// virtual-height curve sampled once per solve. Hop geometry at any range is
// then evaluated against the samples and refined with exact calls.
type mirror struct {
	kind    iono.LayerKind
	lo, hi  float64   // Vertical frequency band, MHz
	fv, hv  []float64 // Samples; hv is NaN where the integral failed
	hvMax   float64
	virtual func(fv float64) (float64, bool)
	dropped bool // A sample was non-finite
}

func newMirror(kind iono.LayerKind, lo, hi float64, samples int, virtual func(float64) (float64, bool)) *mirror {
	m := &mirror{
		kind:    kind,
		lo:      lo,
		hi:      hi,
		fv:      make([]float64, samples),
		hv:      make([]float64, samples),
		virtual: virtual,
	}
	for i := range m.fv {
		fv := lo + (hi-lo)*(float64(i)+0.5)/float64(samples)
		h, ok := virtual(fv)
		if !ok {
			h = math.NaN()
			m.dropped = true
		} else if h > m.hvMax {
			m.hvMax = h
		}
		m.fv[i], m.hv[i] = fv, h
	}
	return m
}

// profileMirrors builds one mirror per reflecting band of the profile, plus
// sporadic E as a thin mirror at its peak height when es is present.
func profileMirrors(p *profile.Profile, es iono.LayerInfo, cfg Config) []*mirror {
	var out []*mirror
	for _, r := range p.Reflectors() {
		virtual := func(fv float64) (float64, bool) {
			h, err := p.VirtualHeight(fv, cfg.Method)
			if err != nil || !numeric.Finite(h) {
				return 0, false
			}
			return h, true
		}
		out = append(out, newMirror(r.Kind, r.FLo, r.FHi, cfg.ScanSamples, virtual))
	}
	if es.Present() {
		hm := es.Hm
		out = append(out, newMirror(iono.LayerEs, 0, es.Fo, 2, func(float64) (float64, bool) { return hm, true }))
	}
	return out
}

// hopResult is the best oblique frequency one mirror supports at one range.
type hopResult struct {
	ok        bool
	muf       float64 // MHz
	floor     float64 // Lowest oblique frequency the band carries, MHz
	fv        float64 // Vertical frequency at the MUF
	hv        float64 // Virtual height at the MUF, km
	elevation float64 // Take-off angle at the MUF, radians
	converged bool
}

// objective evaluates the oblique frequency at fv, or -Inf when the ray is
// below the elevation limit or the virtual height is unavailable.
func (m *mirror) objective(fv, theta, minElev float64) (f, hv, elev float64) {
	hv, ok := m.virtual(fv)
	if !ok {
		return math.Inf(-1), math.NaN(), math.NaN()
	}
	f, elev = Oblique(fv, theta, hv)
	if elev < minElev || !numeric.Finite(f) {
		return math.Inf(-1), hv, elev
	}
	return f, hv, elev
}

// hopMUF finds max fv·sec φ over the band at half-hop angle theta, subject
// to the elevation limit. The coarse scan picks a bracket; golden-section
// search refines the interior maximum and bisection locates the elevation
// boundary when the limit binds. The scan also yields the lowest carried
// oblique frequency: below it the ray returns from the layer underneath.
func (m *mirror) hopMUF(theta, minElev float64, s numeric.Solver) hopResult {
	n := len(m.fv)
	best, bestF := -1, math.Inf(-1)
	floor := math.Inf(1)
	valid := make([]bool, n)
	for i := range m.fv {
		if math.IsNaN(m.hv[i]) {
			continue
		}
		f, elev := Oblique(m.fv[i], theta, m.hv[i])
		if elev < minElev || !numeric.Finite(f) {
			continue
		}
		valid[i] = true
		floor = math.Min(floor, f)
		if f > bestF {
			best, bestF = i, f
		}
	}
	if best < 0 {
		return hopResult{}
	}

	lo, hi := m.lo, m.hi
	if best > 0 {
		lo = m.fv[best-1]
	}
	if best < n-1 {
		hi = m.fv[best+1]
	}
	// Keep the search off the band edges, where the group path diverges.
	edge := 1e-6 * (m.hi - m.lo)
	lo, hi = math.Max(lo, m.lo+edge), math.Min(hi, m.hi-edge)

	if m.lo <= 0 {
		floor = 0
	} else if f, _, _ := m.objective(m.lo+edge, theta, minElev); numeric.Finite(f) {
		floor = math.Min(floor, f)
	}

	converged := true
	var boundary float64
	haveBoundary := false
	if best > 0 && !valid[best-1] && !math.IsNaN(m.hv[best-1]) {
		excess := func(fv float64) float64 {
			h, ok := m.virtual(fv)
			if !ok {
				return math.NaN()
			}
			return Elevation(theta, h) - minElev
		}
		if r, err := s.Root(excess, m.fv[best-1], m.fv[best]); err == nil {
			boundary, haveBoundary = r.Hi, true
			lo = r.Hi
			converged = converged && r.Converged
		}
	}

	obj := func(fv float64) float64 {
		f, _, _ := m.objective(fv, theta, minElev)
		return f
	}
	res := s.Maximize(obj, lo, hi)
	converged = converged && res.Converged

	out := hopResult{ok: true, floor: floor, converged: converged}
	pick := func(fv float64) {
		f, hv, elev := m.objective(fv, theta, minElev)
		if numeric.Finite(f) && f > out.muf {
			out.muf, out.fv, out.hv, out.elevation = f, fv, hv, elev
		}
	}
	pick(res.X)
	if haveBoundary {
		pick(boundary)
	}
	pick(m.fv[best])
	if out.muf <= 0 {
		return hopResult{}
	}
	return out
}

// maxHalfHop returns the largest theta any sample of the band can support.
func (m *mirror) maxHalfHop(minElev float64) float64 {
	return MaxHalfHopAngle(m.hvMax, minElev)
}
