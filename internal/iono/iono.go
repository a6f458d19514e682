// Package iono provides the shared data model for the ionospheric
// propagation engine: geographic and control points, the closed set of
// ionospheric layer kinds, and per-layer parameters.
//
// All types here are plain values. A ControlPoint is copied, never mutated,
// once its LayerSet has been populated.
package iono

import (
	"fmt"
	"math"
)

// =============================================================================
// Physical Constants
// =============================================================================

const (
	// DensityPerMHz2 converts a plasma frequency squared (MHz^2) into an
	// electron density (electrons per cubic metre): N = 1.24e10 * f^2.
	DensityPerMHz2 = 1.24e10

	// EarthRadiusKm is the effective earth radius used by path geometry.
	EarthRadiusKm = 6370.0

	// FOTFraction is the conventional optimum working frequency ratio.
	FOTFraction = 0.85

	// MaxSSN is the upper bound of the accepted solar-activity range.
	MaxSSN = 200.0
)

// =============================================================================
// Geographic Point
// =============================================================================

// GeographicPoint is a position on the earth in radians.
type GeographicPoint struct {
	Lat float64 // Latitude, radians, north positive
	Lon float64 // Longitude, radians, east positive
}

// PointFromDegrees builds a GeographicPoint from degrees.
func PointFromDegrees(latDeg, lonDeg float64) GeographicPoint {
	return GeographicPoint{Lat: latDeg * math.Pi / 180, Lon: lonDeg * math.Pi / 180}
}

// LatDeg returns the latitude in degrees.
func (p GeographicPoint) LatDeg() float64 { return p.Lat * 180 / math.Pi }

// LonDeg returns the longitude in degrees.
func (p GeographicPoint) LonDeg() float64 { return p.Lon * 180 / math.Pi }

func (p GeographicPoint) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", p.LatDeg(), p.LonDeg())
}

// =============================================================================
// Control Point
// =============================================================================

// ControlPoint is a location along a path at which layer parameters are
// evaluated, together with the solar and geomagnetic state resolved for it
// by external collaborators.
type ControlPoint struct {
	Point        GeographicPoint
	PathFraction float64 // Position along the path, 0 = transmitter, 1 = receiver
	LocalTime    float64 // Local mean time as a fraction of a day
	SolarZenith  float64 // Solar zenith angle, radians
	MagDip       float64 // Magnetic dip (inclination), radians
	MagLat       float64 // Geomagnetic latitude, radians
	GyroFreq     float64 // Electron gyrofrequency, MHz

	Layers LayerSet // Populated by the layer resolver
}

// WithLayers returns a copy of the control point carrying ls.
func (cp ControlPoint) WithLayers(ls LayerSet) ControlPoint {
	cp.Layers = ls
	return cp
}

// Validate checks the externally resolved fields.
func (cp ControlPoint) Validate(op string) error {
	switch {
	case !finite(cp.Point.Lat) || math.Abs(cp.Point.Lat) > math.Pi/2+1e-9:
		return NewDomainError(op, "lat", cp.Point.Lat, "latitude outside [-90, 90] degrees")
	case !finite(cp.Point.Lon):
		return NewDomainError(op, "lon", cp.Point.Lon, "longitude not finite")
	case !finite(cp.SolarZenith) || cp.SolarZenith < 0 || cp.SolarZenith > math.Pi:
		return NewDomainError(op, "solar_zenith", cp.SolarZenith, "zenith angle outside [0, 180] degrees")
	case !finite(cp.MagDip) || math.Abs(cp.MagDip) > math.Pi/2+1e-9:
		return NewDomainError(op, "mag_dip", cp.MagDip, "dip outside [-90, 90] degrees")
	case !finite(cp.GyroFreq) || cp.GyroFreq < 0:
		return NewDomainError(op, "gyro_freq", cp.GyroFreq, "gyrofrequency must be non-negative")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
