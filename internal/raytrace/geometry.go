package raytrace

import (
	"math"

	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
)

// Curved-earth hop geometry. A hop of ground range d has half-hop central
// angle theta = d/2R. With a mirror at virtual height h' the take-off
// (elevation) angle Δ satisfies
//
//	tan Δ = (cos theta - R/(R + h')) / sin theta
//
// and the angle of incidence at the mirror is φ = π/2 - theta - Δ. By the
// secant law a vertical frequency fv reflects the oblique frequency
// fv·sec φ.

// HalfHopAngle returns theta for a hop ground range in km.
func HalfHopAngle(hopRange float64) float64 {
	return hopRange / (2 * iono.EarthRadiusKm)
}

// HopRange is the inverse of HalfHopAngle.
func HopRange(theta float64) float64 {
	return 2 * iono.EarthRadiusKm * theta
}

// Elevation returns the take-off angle in radians.
func Elevation(theta, hv float64) float64 {
	const r = iono.EarthRadiusKm
	return math.Atan2(math.Cos(theta)-r/(r+hv), math.Sin(theta))
}

// Incidence returns the angle of incidence at the mirror.
func Incidence(theta, elevation float64) float64 {
	return math.Pi/2 - theta - elevation
}

// Oblique returns the oblique frequency reflected by a mirror at hv for
// vertical frequency fv, together with the take-off angle.
func Oblique(fv, theta, hv float64) (f, elevation float64) {
	elevation = Elevation(theta, hv)
	return fv / math.Cos(Incidence(theta, elevation)), elevation
}

// MaxHalfHopAngle returns the largest theta a mirror at hv supports with a
// take-off angle of at least minElevation.
func MaxHalfHopAngle(hv, minElevation float64) float64 {
	const r = iono.EarthRadiusKm
	c := r * math.Cos(minElevation) / (r + hv)
	if c >= 1 {
		return 0
	}
	return math.Acos(c) - minElevation
}
