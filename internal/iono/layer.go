package iono

import "math"

// LayerKind identifies one of the four ionospheric layers the engine models.
// The set is closed; MatchKind is the exhaustive dispatch over it.
type LayerKind uint8

const (
	LayerE  LayerKind = iota // Normal E layer
	LayerF1                  // F1 layer, daytime only
	LayerF2                  // F2 layer
	LayerEs                  // Sporadic E
)

// NumLayerKinds is the number of layer kinds.
const NumLayerKinds = 4

// AllLayerKinds lists the kinds bottom-up.
var AllLayerKinds = [NumLayerKinds]LayerKind{LayerE, LayerF1, LayerF2, LayerEs}

// MatchKind calls the handler for k. Every call site supplies all four
// handlers, so adding a layer kind is a compile error everywhere it matters.
func MatchKind[T any](k LayerKind, e, f1, f2, es func() T) T {
	switch k {
	case LayerE:
		return e()
	case LayerF1:
		return f1()
	case LayerF2:
		return f2()
	case LayerEs:
		return es()
	}
	panic("iono: invalid layer kind")
}

func (k LayerKind) String() string {
	switch k {
	case LayerE:
		return "E"
	case LayerF1:
		return "F1"
	case LayerF2:
		return "F2"
	case LayerEs:
		return "Es"
	default:
		return "invalid"
	}
}

// Valid reports whether k is one of the four kinds.
func (k LayerKind) Valid() bool { return k < NumLayerKinds }

// =============================================================================
// Layer Parameters
// =============================================================================

// LayerInfo holds the parameters of one layer at one control point.
// Fo == 0 means the layer is absent; consumers must skip it rather than
// treat it as a zero frequency.
type LayerInfo struct {
	Fo float64 // Critical frequency, MHz
	Hm float64 // Peak height, km
	Ym float64 // Semi-thickness, km
	P  float64 // Quasi-parabolic shape exponent
}

// Present reports whether the layer exists.
func (l LayerInfo) Present() bool { return l.Fo > 0 }

// PeakDensity returns Nm in electrons per cubic metre.
func (l LayerInfo) PeakDensity() float64 { return DensityPerMHz2 * l.Fo * l.Fo }

// Bottom returns hm - ym.
func (l LayerInfo) Bottom() float64 { return l.Hm - l.Ym }

// Top returns hm + ym.
func (l LayerInfo) Top() float64 { return l.Hm + l.Ym }

// FoFromDensity inverts PeakDensity.
func FoFromDensity(n float64) float64 {
	if n <= 0 {
		return 0
	}
	return math.Sqrt(n / DensityPerMHz2)
}

// LayerSet carries one LayerInfo per kind.
type LayerSet struct {
	layers [NumLayerKinds]LayerInfo
}

// NewLayerSet builds a set from the four layers.
func NewLayerSet(e, f1, f2, es LayerInfo) LayerSet {
	return LayerSet{layers: [NumLayerKinds]LayerInfo{e, f1, f2, es}}
}

// Get returns the parameters for k.
func (s LayerSet) Get(k LayerKind) LayerInfo {
	if !k.Valid() {
		return LayerInfo{}
	}
	return s.layers[k]
}

// With returns a copy of the set with k replaced.
func (s LayerSet) With(k LayerKind, l LayerInfo) LayerSet {
	if k.Valid() {
		s.layers[k] = l
	}
	return s
}

// Each calls fn for every kind bottom-up, present or not.
func (s LayerSet) Each(fn func(LayerKind, LayerInfo)) {
	for _, k := range AllLayerKinds {
		fn(k, s.layers[k])
	}
}

// E, F1, F2 and Es are shorthands for Get.
func (s LayerSet) E() LayerInfo  { return s.layers[LayerE] }
func (s LayerSet) F1() LayerInfo { return s.layers[LayerF1] }
func (s LayerSet) F2() LayerInfo { return s.layers[LayerF2] }
func (s LayerSet) Es() LayerInfo { return s.layers[LayerEs] }
