// Package path provides great-circle geometry between a transmitter and a
// receiver: distance, bearing and the placement of ionospheric control
// points along the path.
package path

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
)

// ShortPathLimit is the ground distance below which a single midpoint
// control point is used, km.
const ShortPathLimit = 2000.0

// EndOffset is the distance of the end control points from each terminal on
// long paths, km.
const EndOffset = 1000.0

// Path is the short great-circle path between two terminals.
type Path struct {
	Tx, Rx   iono.GeographicPoint
	Distance float64 // Ground distance, km
	Azimuth  float64 // Initial bearing from Tx, degrees clockwise from north

	a, b s2.Point
}

// New computes the short great-circle path between tx and rx.
func New(tx, rx iono.GeographicPoint) (*Path, error) {
	for _, p := range []struct {
		name string
		pt   iono.GeographicPoint
	}{{"tx", tx}, {"rx", rx}} {
		if math.Abs(p.pt.Lat) > math.Pi/2 || math.IsNaN(p.pt.Lat) || math.IsNaN(p.pt.Lon) {
			return nil, iono.NewDomainError("path.New", p.name, p.pt.LatDeg(), "latitude outside [-90, 90]")
		}
	}
	la, lb := latLng(tx), latLng(rx)
	d := la.Distance(lb).Radians() * iono.EarthRadiusKm
	if d <= 0 {
		return nil, iono.NewDomainError("path.New", degenerateField, d, "terminals coincide")
	}
	if math.Pi*iono.EarthRadiusKm-d < 1e-6 {
		return nil, iono.NewDomainError("path.New", degenerateField, d, "antipodal terminals have no unique short path")
	}
	return &Path{
		Tx:       tx,
		Rx:       rx,
		Distance: d,
		Azimuth:  bearing(la, lb),
		a:        s2.PointFromLatLng(la),
		b:        s2.PointFromLatLng(lb),
	}, nil
}

const degenerateField = "distance"

// IsDegenerate reports whether err rejects a coincident or antipodal pair of
// terminals, which have no unique great-circle path.
func IsDegenerate(err error) bool {
	var de *iono.DomainError
	return errors.As(err, &de) && de.Op == "path.New" && de.Field == degenerateField
}

// PointAt returns the point at fraction f of the path (0 = Tx, 1 = Rx).
func (p *Path) PointAt(f float64) iono.GeographicPoint {
	return fromLatLng(s2.LatLngFromPoint(s2.Interpolate(f, p.a, p.b)))
}

// PointAtDistance returns the point d km from Tx along the path.
func (p *Path) PointAtDistance(d float64) iono.GeographicPoint {
	ax := s1.Angle(d / iono.EarthRadiusKm)
	return fromLatLng(s2.LatLngFromPoint(s2.InterpolateAtDistance(ax, p.a, p.b)))
}

// ControlFractions returns the path fractions of the control points: the
// midpoint for short paths, and additionally EndOffset km from each terminal
// for paths of ShortPathLimit km and beyond.
func (p *Path) ControlFractions() []float64 {
	if p.Distance < ShortPathLimit {
		return []float64{0.5}
	}
	off := EndOffset / p.Distance
	return []float64{off, 0.5, 1 - off}
}

// ControlPoints returns the control point locations with their fractions.
func (p *Path) ControlPoints() []iono.ControlPoint {
	fr := p.ControlFractions()
	out := make([]iono.ControlPoint, len(fr))
	for i, f := range fr {
		out[i] = iono.ControlPoint{Point: p.PointAt(f), PathFraction: f}
	}
	return out
}

func (p *Path) String() string {
	return fmt.Sprintf("%s -> %s (%.0f km, %.0f°)", p.Tx, p.Rx, p.Distance, p.Azimuth)
}

func latLng(p iono.GeographicPoint) s2.LatLng {
	return s2.LatLng{Lat: s1.Angle(p.Lat), Lng: s1.Angle(p.Lon)}.Normalized()
}

func fromLatLng(ll s2.LatLng) iono.GeographicPoint {
	return iono.GeographicPoint{Lat: ll.Lat.Radians(), Lon: ll.Lng.Radians()}
}

func bearing(a, b s2.LatLng) float64 {
	lat1, lat2 := a.Lat.Radians(), b.Lat.Radians()
	dLon := b.Lng.Radians() - a.Lng.Radians()
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return math.Mod(math.Atan2(y, x)*180/math.Pi+360, 360)
}

// =============================================================================
// Maidenhead locators
// =============================================================================

// ParseLocator converts a 4- or 6-character Maidenhead locator (e.g. "FN20"
// or "CN87ts") to the centre of its square.
func ParseLocator(loc string) (iono.GeographicPoint, error) {
	s := strings.ToUpper(strings.TrimSpace(loc))
	if len(s) != 4 && len(s) != 6 {
		return iono.GeographicPoint{}, fmt.Errorf("locator %q: want 4 or 6 characters", loc)
	}
	if s[0] < 'A' || s[0] > 'R' || s[1] < 'A' || s[1] > 'R' ||
		s[2] < '0' || s[2] > '9' || s[3] < '0' || s[3] > '9' {
		return iono.GeographicPoint{}, fmt.Errorf("locator %q: invalid field or square", loc)
	}
	lon := float64(s[0]-'A')*20 - 180 + float64(s[2]-'0')*2
	lat := float64(s[1]-'A')*10 - 90 + float64(s[3]-'0')
	if len(s) == 6 {
		if s[4] < 'A' || s[4] > 'X' || s[5] < 'A' || s[5] > 'X' {
			return iono.GeographicPoint{}, fmt.Errorf("locator %q: invalid subsquare", loc)
		}
		lon += float64(s[4]-'A')*(2.0/24) + 1.0/24
		lat += float64(s[5]-'A')*(1.0/24) + 0.5/24
	} else {
		lon++
		lat += 0.5
	}
	return iono.PointFromDegrees(lat, lon), nil
}

// ParsePoint accepts either a Maidenhead locator or "lat,lon" in degrees.
func ParsePoint(s string) (iono.GeographicPoint, error) {
	if lat, lon, ok := strings.Cut(s, ","); ok {
		var la, lo float64
		if _, err := fmt.Sscanf(strings.TrimSpace(lat)+" "+strings.TrimSpace(lon), "%g %g", &la, &lo); err != nil {
			return iono.GeographicPoint{}, fmt.Errorf("point %q: %w", s, err)
		}
		if math.Abs(la) > 90 || math.Abs(lo) > 180 {
			return iono.GeographicPoint{}, fmt.Errorf("point %q: coordinates out of range", s)
		}
		return iono.PointFromDegrees(la, lo), nil
	}
	return ParseLocator(s)
}
