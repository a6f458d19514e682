// Package numeric provides the bounded-iteration solvers shared by the
// raytracer: bracketed bisection for roots, golden-section search for
// maxima, and fixed-order Gauss-Legendre quadrature.
//
// Every search runs for at most MaxIter iterations. Exhausting the budget is
// not an error: the best bracketed estimate is returned with
// Converged == false so the caller can flag the result as low confidence.
package numeric

import (
	"errors"
	"math"
)

// ErrNoBracket is returned by Root when f(lo) and f(hi) have the same sign.
var ErrNoBracket = errors.New("numeric: root not bracketed")

// Default solver settings.
const (
	DefaultTol     = 1e-6
	DefaultMaxIter = 100
)

// Solver holds the tolerance and iteration budget. The zero value uses the
// defaults.
type Solver struct {
	Tol     float64 // Absolute tolerance on x
	MaxIter int     // Iteration budget
}

// Result is the outcome of a bounded search.
type Result struct {
	X          float64 // Best estimate
	F          float64 // Function value at X
	Lo, Hi     float64 // Final bracket
	Iterations int
	Converged  bool
}

func (s Solver) tol() float64 {
	if s.Tol > 0 {
		return s.Tol
	}
	return DefaultTol
}

func (s Solver) maxIter() int {
	if s.MaxIter > 0 {
		return s.MaxIter
	}
	return DefaultMaxIter
}

// Root finds x in [lo, hi] with f(x) = 0 by bisection. f(lo) and f(hi) must
// have opposite signs (or one of them be zero).
func (s Solver) Root(f func(float64) float64, lo, hi float64) (Result, error) {
	if lo > hi {
		lo, hi = hi, lo
	}
	flo, fhi := f(lo), f(hi)
	if !Finite(flo) || !Finite(fhi) {
		return Result{}, ErrNoBracket
	}
	if flo == 0 {
		return Result{X: lo, F: 0, Lo: lo, Hi: lo, Converged: true}, nil
	}
	if fhi == 0 {
		return Result{X: hi, F: 0, Lo: hi, Hi: hi, Converged: true}, nil
	}
	if math.Signbit(flo) == math.Signbit(fhi) {
		return Result{}, ErrNoBracket
	}

	tol := s.tol()
	res := Result{Lo: lo, Hi: hi}
	for res.Iterations = 0; res.Iterations < s.maxIter(); res.Iterations++ {
		mid := 0.5 * (lo + hi)
		fm := f(mid)
		if !Finite(fm) {
			// Treat a non-finite sample as the far side so the bracket still shrinks.
			fm = fhi
		}
		if fm == 0 {
			lo, hi = mid, mid
			break
		}
		if math.Signbit(fm) == math.Signbit(flo) {
			lo, flo = mid, fm
		} else {
			hi, fhi = mid, fm
		}
		if hi-lo <= tol {
			res.Iterations++
			break
		}
	}
	res.Lo, res.Hi = lo, hi
	res.X = 0.5 * (lo + hi)
	res.F = f(res.X)
	res.Converged = hi-lo <= tol
	return res, nil
}

// invPhi is 1/golden ratio.
var invPhi = (math.Sqrt(5) - 1) / 2

// Maximize finds the maximum of a unimodal f on [lo, hi] by golden-section
// search. Non-finite values are treated as -Inf.
func (s Solver) Maximize(f func(float64) float64, lo, hi float64) Result {
	if lo > hi {
		lo, hi = hi, lo
	}
	g := func(x float64) float64 {
		v := f(x)
		if !Finite(v) {
			return math.Inf(-1)
		}
		return v
	}

	tol := s.tol()
	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := g(c), g(d)

	res := Result{}
	for res.Iterations = 0; res.Iterations < s.maxIter() && b-a > tol; res.Iterations++ {
		if fc >= fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = g(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = g(d)
		}
	}

	res.Lo, res.Hi = a, b
	res.Converged = b-a <= tol
	if fc >= fd {
		res.X, res.F = c, fc
	} else {
		res.X, res.F = d, fd
	}
	// The interior points never sample the endpoints; evaluate them too.
	if v := g(lo); v > res.F {
		res.X, res.F = lo, v
	}
	if v := g(hi); v > res.F {
		res.X, res.F = hi, v
	}
	return res
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
