package ccir

import (
	"math"
	"sort"

	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
	"github.com/KI7MT/ki7mt-hfprop/internal/numeric"
)

// Query is the evaluation point of a map.
type Query struct {
	Point iono.GeographicPoint
	Dip   float64 // Magnetic dip, radians
	Month int     // 1..12
	SSN   float64 // Solar activity level, 0..200
	UTC   float64 // Universal time as a fraction of a day
}

// ModifiedDip returns the modified dip latitude atan2(I, sqrt(cos lat)) in
// radians. It is ±π/2 at the poles.
func ModifiedDip(dip, lat float64) float64 {
	c := math.Cos(lat)
	if c < 0 {
		c = 0
	}
	return math.Atan2(dip, math.Sqrt(c))
}

// Evaluate returns the value of kind at q.
func (m *Map) Evaluate(kind ParamKind, q Query) (float64, error) {
	const op = "ccir.Evaluate"

	if err := iono.CheckSSN(op, q.SSN); err != nil {
		return 0, err
	}
	if err := iono.CheckMonth(op, q.Month); err != nil {
		return 0, err
	}
	if err := iono.CheckUTC(op, q.UTC); err != nil {
		return 0, err
	}
	if math.IsNaN(q.Point.Lat) || math.Abs(q.Point.Lat) > math.Pi/2+1e-9 {
		return 0, iono.NewDomainError(op, "lat", q.Point.Lat, "latitude outside [-90, 90] degrees")
	}
	if math.IsNaN(q.Point.Lon) || math.IsInf(q.Point.Lon, 0) {
		return 0, iono.NewDomainError(op, "lon", q.Point.Lon, "longitude not finite")
	}
	if math.IsNaN(q.Dip) || math.Abs(q.Dip) > math.Pi/2+1e-9 {
		return 0, iono.NewDomainError(op, "dip", q.Dip, "dip outside [-90, 90] degrees")
	}

	c := m.params[kind]
	if c == nil {
		return 0, iono.NewDomainError(op, "kind", float64(kind), kind.String()+" not present in map "+m.name)
	}

	g := spatialBasis(c.Shape, ModifiedDip(q.Dip, q.Point.Lat), q.Point.Lat, q.Point.Lon)
	tb := timeBasis(c.Harmonics, 2*math.Pi*q.UTC-math.Pi)

	r := effectiveLevel(c, q.SSN)
	idx, w := levelWeights(c, r)
	var v float64
	for i, li := range idx {
		if w[i] == 0 {
			continue
		}
		v += w[i] * c.evaluateLevel(q.Month, li, g, tb)
	}
	if !numeric.Finite(v) {
		return 0, iono.NewDomainError(op, "value", v, "map evaluation not finite")
	}
	return v, nil
}

func (c *Coefficients) evaluateLevel(month, level int, g, tb []float64) float64 {
	nt := len(tb)
	base := c.At(month, level, 0, 0)
	var v float64
	for k, gk := range g {
		if gk == 0 {
			continue
		}
		row := c.Values[base+k*nt : base+(k+1)*nt]
		var u float64
		for j, t := range tb {
			u += row[j] * t
		}
		v += u * gk
	}
	return v
}

// spatialBasis fills G_k. For each order m the latitude functions run
// n = 0..shape[m]-1; orders m >= 1 emit the cos mλ term then the sin mλ term.
func spatialBasis(shape []int, modip, lat, lon float64) []float64 {
	g := make([]float64, spatialCount(shape))
	s := math.Sin(modip)
	cl := math.Cos(lat)
	if cl < 0 {
		cl = 0
	}

	k := 0
	for m, count := range shape {
		cm := math.Pow(cl, float64(m))
		cosm, sinm := math.Cos(float64(m)*lon), math.Sin(float64(m)*lon)
		sn := 1.0
		for n := 0; n < count; n++ {
			if m == 0 {
				g[k] = sn
				k++
			} else {
				g[k] = sn * cm * cosm
				g[k+1] = sn * cm * sinm
				k += 2
			}
			sn *= s
		}
	}
	return g
}

// timeBasis returns 1, cos T, sin T, cos 2T, sin 2T, ...
func timeBasis(harmonics int, t float64) []float64 {
	tb := make([]float64, 2*harmonics+1)
	tb[0] = 1
	for h := 1; h <= harmonics; h++ {
		tb[2*h-1] = math.Cos(float64(h) * t)
		tb[2*h] = math.Sin(float64(h) * t)
	}
	return tb
}

// effectiveLevel clamps ssn to the saturation ceiling and the map's range.
func effectiveLevel(c *Coefficients, ssn float64) float64 {
	r := ssn
	if c.Saturation > 0 && r > c.Saturation {
		r = c.Saturation
	}
	lo, hi := c.Levels[0], c.Levels[len(c.Levels)-1]
	return math.Max(lo, math.Min(hi, r))
}

// levelWeights returns the level indices and blending weights for r.
func levelWeights(c *Coefficients, r float64) ([]int, []float64) {
	lv := c.Levels
	i := sort.Search(len(lv), func(i int) bool { return lv[i] > r })

	if c.Interp == Quadratic && len(lv) >= 3 {
		// Three consecutive levels around r.
		j := i - 1
		if j < 0 {
			j = 0
		}
		if j > len(lv)-3 {
			j = len(lv) - 3
		}
		x0, x1, x2 := lv[j], lv[j+1], lv[j+2]
		w0 := (r - x1) * (r - x2) / ((x0 - x1) * (x0 - x2))
		w1 := (r - x0) * (r - x2) / ((x1 - x0) * (x1 - x2))
		w2 := (r - x0) * (r - x1) / ((x2 - x0) * (x2 - x1))
		return []int{j, j + 1, j + 2}, []float64{w0, w1, w2}
	}

	lo := i - 1
	if lo < 0 {
		lo = 0
	}
	if lo > len(lv)-2 {
		lo = len(lv) - 2
	}
	t := (r - lv[lo]) / (lv[lo+1] - lv[lo])
	return []int{lo, lo + 1}, []float64{1 - t, t}
}
