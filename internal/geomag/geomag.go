// Package geomag resolves the geomagnetic state of a control point: dip
// (inclination), geomagnetic latitude and electron gyrofrequency.
//
// The World Magnetic Model is evaluated through westphae/geomag. Outside the
// model's epoch, or when it fails, a centred dipole is used instead.
package geomag

import (
	"fmt"
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"

	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
)

// GyroPerNanoTesla converts total field intensity to electron gyrofrequency:
// fH = eB/(2πm) = 2.8e-5 MHz per nT.
const GyroPerNanoTesla = 2.8e-5

// DefaultHeight is the height at which the field is evaluated, km.
const DefaultHeight = 300.0

// Centred dipole, IGRF-13 epoch 2020.
const (
	dipolePoleLat = 80.65 // degrees
	dipolePoleLon = -72.68
	dipoleB0      = 29400.0 // Equatorial surface field, nT
)

// Field is the geomagnetic state at a point.
type Field struct {
	Dip    float64 // Inclination, radians, positive downward
	MagLat float64 // Geomagnetic latitude, radians
	Total  float64 // Total intensity at the evaluation height, nT
	Gyro   float64 // Electron gyrofrequency, MHz
	Model  string  // "wmm" or "dipole"
}

// Model evaluates the field.
type Model interface {
	At(pt iono.GeographicPoint, t time.Time) (Field, error)
}

// New returns the WMM model with dipole fallback evaluated at height km.
func New(height float64) Model {
	if height <= 0 {
		height = DefaultHeight
	}
	return fallback{primary: WMM{Height: height}, secondary: Dipole{Height: height}}
}

type fallback struct {
	primary, secondary Model
}

func (f fallback) At(pt iono.GeographicPoint, t time.Time) (Field, error) {
	if fd, err := f.primary.At(pt, t); err == nil {
		return fd, nil
	}
	return f.secondary.At(pt, t)
}

// =============================================================================
// World Magnetic Model
// =============================================================================

// WMM evaluates the World Magnetic Model at Height km.
type WMM struct {
	Height float64
}

func (m WMM) At(pt iono.GeographicPoint, t time.Time) (Field, error) {
	loc := egm96.NewLocationGeodetic(pt.LatDeg(), pt.LonDeg(), m.Height*1000)
	mag, err := wmm.CalculateWMMMagneticField(loc, t)
	if err != nil {
		return Field{}, fmt.Errorf("wmm at %s: %w", pt, err)
	}
	dip := mag.I() * math.Pi / 180
	total := mag.F()
	if math.IsNaN(dip) || math.IsNaN(total) || total <= 0 {
		return Field{}, fmt.Errorf("wmm at %s: invalid field (I=%g, F=%g)", pt, mag.I(), total)
	}
	return fromDip(dip, total, "wmm"), nil
}

// =============================================================================
// Centred dipole
// =============================================================================

// Dipole is a centred geomagnetic dipole evaluated at Height km.
type Dipole struct {
	Height float64
}

func (m Dipole) At(pt iono.GeographicPoint, _ time.Time) (Field, error) {
	magLat := GeomagneticLatitude(pt)
	scale := iono.EarthRadiusKm / (iono.EarthRadiusKm + m.Height)
	total := dipoleB0 * math.Sqrt(1+3*math.Pow(math.Sin(magLat), 2)) * scale * scale * scale
	dip := math.Atan(2 * math.Tan(magLat))
	return Field{
		Dip:    dip,
		MagLat: magLat,
		Total:  total,
		Gyro:   total * GyroPerNanoTesla,
		Model:  "dipole",
	}, nil
}

// GeomagneticLatitude returns the centred-dipole latitude of pt.
func GeomagneticLatitude(pt iono.GeographicPoint) float64 {
	pole := iono.PointFromDegrees(dipolePoleLat, dipolePoleLon)
	s := math.Sin(pt.Lat)*math.Sin(pole.Lat) + math.Cos(pt.Lat)*math.Cos(pole.Lat)*math.Cos(pt.Lon-pole.Lon)
	return math.Asin(math.Max(-1, math.Min(1, s)))
}

// fromDip derives the dipole-equivalent magnetic latitude from the dip,
// tan I = 2 tan λm.
func fromDip(dip, total float64, model string) Field {
	return Field{
		Dip:    dip,
		MagLat: math.Atan(math.Tan(dip) / 2),
		Total:  total,
		Gyro:   total * GyroPerNanoTesla,
		Model:  model,
	}
}

// Apply copies the field into a control point.
func (f Field) Apply(cp iono.ControlPoint) iono.ControlPoint {
	cp.MagDip = f.Dip
	cp.MagLat = f.MagLat
	cp.GyroFreq = f.Gyro
	return cp
}
