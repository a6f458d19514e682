// Package ccir provides the empirical worldwide ionospheric coefficient maps
// (foF2 and M(3000)F2) in the CCIR numerical-map form, their evaluation at a
// point, time and solar-activity level, and their on-disk encoding.
//
// A Map is immutable after construction and safe for concurrent use.
package ccir

import (
	"fmt"
	"sort"
)

// ParamKind identifies a mapped ionospheric parameter.
type ParamKind uint8

const (
	FoF2    ParamKind = iota // F2 critical frequency, MHz
	M3000F2                  // F2 propagation factor M(3000)F2
)

func (k ParamKind) String() string {
	switch k {
	case FoF2:
		return "foF2"
	case M3000F2:
		return "M3000F2"
	default:
		return fmt.Sprintf("ParamKind(%d)", uint8(k))
	}
}

// ParseParamKind maps a name back to its kind.
func ParseParamKind(s string) (ParamKind, error) {
	switch s {
	case "foF2", "fof2", "FOF2":
		return FoF2, nil
	case "M3000F2", "m3000f2", "M3000", "m3000":
		return M3000F2, nil
	}
	return 0, fmt.Errorf("unknown map parameter %q", s)
}

// Interpolation selects how a parameter blends between activity levels.
type Interpolation uint8

const (
	Linear    Interpolation = iota // Two bracketing levels
	Quadratic                      // Three-point Lagrange when three levels exist
)

// Conventional shapes and limits of the CCIR maps.
var (
	FoF2Shape    = []int{12, 12, 9, 5, 2, 1, 1, 1, 1}
	M3000F2Shape = []int{7, 8, 6, 3, 2, 1, 1}
)

const (
	// DefaultHarmonics is the number of diurnal Fourier harmonics.
	DefaultHarmonics = 6

	// FoF2Saturation and M3000F2Saturation are the activity ceilings beyond
	// which the maps are no longer extrapolated.
	FoF2Saturation    = 160.0
	M3000F2Saturation = 150.0
)

// Coefficients is one parameter's coefficient grid.
//
// Values is laid out [month][level][spatial][time] and flattened; use At to
// index it.
type Coefficients struct {
	Kind       ParamKind     `msgpack:"kind"`
	Shape      []int         `msgpack:"shape"`      // Latitude functions per longitude order m
	Harmonics  int           `msgpack:"harmonics"`  // Diurnal harmonics
	Levels     []float64     `msgpack:"levels"`     // Activity levels, ascending
	Saturation float64       `msgpack:"saturation"` // Activity ceiling
	Interp     Interpolation `msgpack:"interp"`
	Values     []float64     `msgpack:"values"`
}

// SpatialFunctions returns the number of spatial basis functions.
func (c *Coefficients) SpatialFunctions() int {
	return spatialCount(c.Shape)
}

// TimeFunctions returns the number of diurnal basis functions.
func (c *Coefficients) TimeFunctions() int {
	return 2*c.Harmonics + 1
}

// At returns the flat index of one coefficient. month is 1-based.
func (c *Coefficients) At(month, level, spatial, time int) int {
	ns, nt := c.SpatialFunctions(), c.TimeFunctions()
	return (((month-1)*len(c.Levels)+level)*ns+spatial)*nt + time
}

// NewCoefficients allocates an all-zero grid.
func NewCoefficients(kind ParamKind, shape []int, harmonics int, levels []float64, saturation float64, interp Interpolation) *Coefficients {
	c := &Coefficients{
		Kind:       kind,
		Shape:      append([]int(nil), shape...),
		Harmonics:  harmonics,
		Levels:     append([]float64(nil), levels...),
		Saturation: saturation,
		Interp:     interp,
	}
	c.Values = make([]float64, 12*len(levels)*c.SpatialFunctions()*c.TimeFunctions())
	return c
}

func (c *Coefficients) validate() error {
	if len(c.Shape) == 0 || c.Shape[0] < 1 {
		return fmt.Errorf("%s: empty shape", c.Kind)
	}
	for m, n := range c.Shape {
		if n < 0 {
			return fmt.Errorf("%s: negative count for order %d", c.Kind, m)
		}
	}
	if c.Harmonics < 0 {
		return fmt.Errorf("%s: negative harmonics", c.Kind)
	}
	if len(c.Levels) < 2 {
		return fmt.Errorf("%s: need at least 2 activity levels, have %d", c.Kind, len(c.Levels))
	}
	if !sort.Float64sAreSorted(c.Levels) {
		return fmt.Errorf("%s: activity levels not ascending", c.Kind)
	}
	for i := 1; i < len(c.Levels); i++ {
		if c.Levels[i] == c.Levels[i-1] {
			return fmt.Errorf("%s: duplicate activity level %g", c.Kind, c.Levels[i])
		}
	}
	want := 12 * len(c.Levels) * c.SpatialFunctions() * c.TimeFunctions()
	if len(c.Values) != want {
		return fmt.Errorf("%s: have %d coefficients, want %d", c.Kind, len(c.Values), want)
	}
	return nil
}

func spatialCount(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := shape[0]
	for _, c := range shape[1:] {
		n += 2 * c
	}
	return n
}

// =============================================================================
// Map
// =============================================================================

// Map is a loaded, immutable set of coefficient grids.
type Map struct {
	name   string
	params map[ParamKind]*Coefficients
}

// NewMap validates the grids and assembles them into a Map. The grids are
// owned by the Map afterwards and must not be modified.
func NewMap(name string, grids ...*Coefficients) (*Map, error) {
	m := &Map{name: name, params: make(map[ParamKind]*Coefficients, len(grids))}
	for _, g := range grids {
		if g == nil {
			continue
		}
		if err := g.validate(); err != nil {
			return nil, fmt.Errorf("map %q: %w", name, err)
		}
		if _, dup := m.params[g.Kind]; dup {
			return nil, fmt.Errorf("map %q: duplicate parameter %s", name, g.Kind)
		}
		m.params[g.Kind] = g
	}
	if len(m.params) == 0 {
		return nil, fmt.Errorf("map %q: no parameters", name)
	}
	return m, nil
}

// Name returns the map's label.
func (m *Map) Name() string { return m.name }

// Has reports whether the map carries kind.
func (m *Map) Has(kind ParamKind) bool {
	_, ok := m.params[kind]
	return ok
}

// Kinds returns the mapped parameters in ascending order.
func (m *Map) Kinds() []ParamKind {
	out := make([]ParamKind, 0, len(m.params))
	for k := range m.params {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Coefficients returns the grid for kind, or nil.
func (m *Map) Coefficients(kind ParamKind) *Coefficients {
	return m.params[kind]
}
