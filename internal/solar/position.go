package solar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
	msolar "github.com/soniakeys/meeus/v3/solar"

	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
)

// Position is the sun's apparent place at an instant.
type Position struct {
	RA          float64 // Right ascension, radians
	Declination float64 // radians
	Sidereal    float64 // Apparent sidereal time at Greenwich, radians
}

// At computes the apparent solar position. UT stands in for dynamical time.
func At(t time.Time) Position {
	jd := julian.TimeToJD(t.UTC())
	ra, dec := msolar.ApparentEquatorial(jd)
	return Position{
		RA:          ra.Rad(),
		Declination: dec.Rad(),
		Sidereal:    sidereal.Apparent(jd).Rad(),
	}
}

// HourAngle returns the local hour angle of the sun at east longitude lon,
// normalised to (-π, π].
func (p Position) HourAngle(lon float64) float64 {
	h := math.Mod(p.Sidereal+lon-p.RA, 2*math.Pi)
	switch {
	case h > math.Pi:
		h -= 2 * math.Pi
	case h <= -math.Pi:
		h += 2 * math.Pi
	}
	return h
}

// Zenith returns the solar zenith angle at pt, radians in [0, π].
func (p Position) Zenith(pt iono.GeographicPoint) float64 {
	c := math.Sin(pt.Lat)*math.Sin(p.Declination) +
		math.Cos(pt.Lat)*math.Cos(p.Declination)*math.Cos(p.HourAngle(pt.Lon))
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

// Subsolar returns the point with the sun in the zenith.
func (p Position) Subsolar() iono.GeographicPoint {
	lon := math.Mod(p.RA-p.Sidereal, 2*math.Pi)
	if lon > math.Pi {
		lon -= 2 * math.Pi
	} else if lon <= -math.Pi {
		lon += 2 * math.Pi
	}
	return iono.GeographicPoint{Lat: p.Declination, Lon: lon}
}

// Zenith is a convenience for At(t).Zenith(pt).
func Zenith(t time.Time, pt iono.GeographicPoint) float64 {
	return At(t).Zenith(pt)
}

// LocalTime returns local mean time at east longitude lon as a fraction of
// a day in [0, 1).
func LocalTime(t time.Time, lon float64) float64 {
	return math.Mod(UTCFraction(t)+lon/(2*math.Pi)+2, 1)
}

// UTCFraction returns the time of day of t in UTC as a fraction of a day.
func UTCFraction(t time.Time) float64 {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return t.Sub(midnight).Seconds() / 86400
}
