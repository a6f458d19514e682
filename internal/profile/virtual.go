package profile

import (
	"fmt"
	"math"

	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
	"github.com/KI7MT/ki7mt-hfprop/internal/numeric"
)

// Method selects how VirtualHeight evaluates the group-path integral.
type Method uint8

const (
	// Approximate treats every piece as a parabolic slab and integrates it
	// in closed form. Exact for p = 1.
	Approximate Method = iota
	// Precise integrates the true quasi-parabolic profile by Gauss-Legendre
	// quadrature, removing the reflection singularity by substitution.
	Precise
)

func (m Method) String() string {
	switch m {
	case Approximate:
		return "approximate"
	case Precise:
		return "precise"
	default:
		return fmt.Sprintf("Method(%d)", uint8(m))
	}
}

// QuadratureOrder is the Gauss-Legendre order used per integration interval.
const QuadratureOrder = 40

var gauss = numeric.NewGaussLegendre(QuadratureOrder)

// VirtualHeight returns the virtual (group) reflection height of a
// vertically incident wave of frequency f (MHz).
func (p *Profile) VirtualHeight(f float64, m Method) (float64, error) {
	_, hv, err := p.GroupPath(f, m)
	return hv, err
}

// GroupPath returns both the true and the virtual reflection height of f.
func (p *Profile) GroupPath(f float64, m Method) (trueHeight, virtualHeight float64, err error) {
	const op = "profile.VirtualHeight"
	if err := iono.CheckFrequency(op, f); err != nil {
		return 0, 0, err
	}
	idx, hr, ok := p.reflection(f)
	if !ok {
		return 0, 0, penetrates(f)
	}

	var hv float64
	switch m {
	case Approximate:
		hv = p.approximate(f, idx)
	case Precise:
		hv = p.precise(f, idx, hr)
	default:
		return 0, 0, iono.NewDomainError(op, "method", float64(m), "unknown integration method")
	}

	if !numeric.Finite(hv) {
		return 0, 0, fmt.Errorf("%s: f=%g MHz: group path not finite (reflection at a layer peak)", op, f)
	}
	if m == Approximate {
		// The parabolic reflection point can sit below the exact one when p != 1.
		hv = math.Max(hv, hr)
	}
	return hr, hv, nil
}

// =============================================================================
// Closed Form
// =============================================================================

// approximate sums the parabolic group thickness of every piece below the
// reflecting one, the free space between them, and the partial group path
// inside the reflecting piece.
func (p *Profile) approximate(f float64, idx int) float64 {
	hv := p.pieces[0].Lo
	for i := 0; i <= idx; i++ {
		pc := p.pieces[i]
		if i > 0 {
			hv += pc.Lo - p.pieces[i-1].Hi
		}
		l := pc.Layer
		b := (l.Fo / f) * (l.Fo / f)
		za := (pc.Lo - l.Hm) / l.Ym
		zb := (pc.Hi - l.Hm) / l.Ym

		if i == idx {
			zr := math.Sqrt(math.Max(b-1, 0) / b)
			hv += l.Ym * slabPath(b, za, math.Min(-zr, zb))
			continue
		}

		if za < 0 && zb > 0 {
			hv += l.Ym * (slabPath(b, za, 0) + slabPath(b, 0, zb))
		} else {
			hv += l.Ym * slabPath(b, za, zb)
		}
	}
	return hv
}

// slabPath integrates 1/sqrt(1 - b(1 - z²)) over [za, zb] in normalised
// height. [za, zb] must not straddle z = 0 when b > 1.
func slabPath(b, za, zb float64) float64 {
	if zb <= za {
		return 0
	}
	return slabAntiderivative(b, zb) - slabAntiderivative(b, za)
}

func slabAntiderivative(b, z float64) float64 {
	if b == 0 {
		return z
	}
	c := 1 - b
	sb := math.Sqrt(b)
	switch {
	case c > 0:
		return math.Asinh(z*math.Sqrt(b/c)) / sb
	case c < 0:
		zr := math.Sqrt(-c / b)
		u := math.Abs(z) / zr
		if u < 1 {
			u = 1
		}
		return math.Copysign(math.Acosh(u), z) / sb
	default:
		// f equals the layer peak frequency: logarithmic divergence at z = 0.
		if z == 0 {
			return math.Inf(1)
		}
		if z < 0 {
			return -math.Log(-z) / sb
		}
		return math.Log(z) / sb
	}
}

// =============================================================================
// Quadrature
// =============================================================================

// precise integrates dh/sqrt(1 - N(h)/Nf) piece by piece.
func (p *Profile) precise(f float64, idx int, hr float64) float64 {
	nf := iono.DensityPerMHz2 * f * f
	hv := p.pieces[0].Lo
	for i := 0; i <= idx; i++ {
		pc := p.pieces[i]
		if i > 0 {
			hv += pc.Lo - p.pieces[i-1].Hi
		}
		g := func(h float64) float64 {
			x := 1 - pc.Density(h)/nf
			if x <= 0 {
				return math.Inf(1)
			}
			return 1 / math.Sqrt(x)
		}

		if i == idx {
			hv += reflectingPath(pc, nf, hr)
			continue
		}
		if pc.Lo < pc.Layer.Hm && pc.Layer.Hm < pc.Hi {
			hv += gauss.Integrate(g, pc.Lo, pc.Layer.Hm) + gauss.Integrate(g, pc.Layer.Hm, pc.Hi)
		} else {
			hv += gauss.Integrate(g, pc.Lo, pc.Hi)
		}
	}
	return hv
}

// reflectingPath integrates from the piece base up to the reflection height
// hr with h = hr - D t², which turns the inverse square-root singularity at
// hr into a bounded integrand.
func reflectingPath(pc Piece, nf, hr float64) float64 {
	d := hr - pc.Lo
	if d <= 0 {
		return 0
	}
	g := func(t float64) float64 {
		h := hr - d*t*t
		x := 1 - pc.Density(h)/nf
		if x <= 0 {
			// Rounding at t -> 0; the limit is finite and the node never sits there.
			x = math.SmallestNonzeroFloat64
		}
		return 2 * d * t / math.Sqrt(x)
	}
	return gauss.Integrate(g, 0, 1)
}
