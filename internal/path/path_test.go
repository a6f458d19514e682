package path

import (
	"math"
	"testing"

	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestNew(t *testing.T) {
	tests := []struct {
		name              string
		tx, rx            iono.GeographicPoint
		distance, azimuth float64
	}{
		{"FN20 to JO22", iono.PointFromDegrees(40.5, -75), iono.PointFromDegrees(52.5, 5), 5941.6392, 48.2749},
		{"one degree north", iono.PointFromDegrees(40, -75), iono.PointFromDegrees(41, -75), 111.1775, 0},
		{"ten degrees east", iono.PointFromDegrees(0, 0), iono.PointFromDegrees(0, 10), 1111.7747, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.tx, tt.rx)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if !near(p.Distance, tt.distance, 1e-3) {
				t.Errorf("distance = %.4f, want %.4f", p.Distance, tt.distance)
			}
			if !near(p.Azimuth, tt.azimuth, 1e-3) {
				t.Errorf("azimuth = %.4f, want %.4f", p.Azimuth, tt.azimuth)
			}
		})
	}
}

func TestNewErrors(t *testing.T) {
	pt := iono.PointFromDegrees(10, 10)
	if _, err := New(pt, pt); !IsDegenerate(err) {
		t.Errorf("coincident terminals: err = %v", err)
	}
	if _, err := New(iono.PointFromDegrees(0, 0), iono.PointFromDegrees(0, 180)); !IsDegenerate(err) {
		t.Errorf("antipodal terminals: err = %v", err)
	}
	if _, err := New(iono.GeographicPoint{Lat: 2}, pt); !iono.IsDomainError(err) || IsDegenerate(err) {
		t.Errorf("bad latitude: err = %v", err)
	}
	if IsDegenerate(iono.NewDomainError("ccir.Evaluate", "distance", 0, "other")) || IsDegenerate(nil) {
		t.Error("IsDegenerate matched a foreign error")
	}
}

func TestControlPoints(t *testing.T) {
	short, err := New(iono.PointFromDegrees(0, 0), iono.PointFromDegrees(0, 10))
	if err != nil {
		t.Fatal(err)
	}
	cps := short.ControlPoints()
	if len(cps) != 1 || cps[0].PathFraction != 0.5 {
		t.Fatalf("short path control points = %+v", cps)
	}
	if !near(cps[0].Point.LonDeg(), 5, 1e-9) || !near(cps[0].Point.LatDeg(), 0, 1e-9) {
		t.Errorf("midpoint = %s, want (0, 5)", cps[0].Point)
	}

	long, err := New(iono.PointFromDegrees(0, 0), iono.PointFromDegrees(0, 30))
	if err != nil {
		t.Fatal(err)
	}
	fr := long.ControlFractions()
	if len(fr) != 3 {
		t.Fatalf("long path fractions = %v", fr)
	}
	if !near(fr[0]*long.Distance, EndOffset, 1e-9) || !near((1-fr[2])*long.Distance, EndOffset, 1e-9) {
		t.Errorf("end control points not %g km from the terminals: %v", EndOffset, fr)
	}

	want := EndOffset / iono.EarthRadiusKm * 180 / math.Pi
	if got := long.PointAtDistance(EndOffset); !near(got.LonDeg(), want, 1e-9) {
		t.Errorf("PointAtDistance lon = %.6f, want %.6f", got.LonDeg(), want)
	}
	if got := long.PointAt(fr[0]); !near(got.LonDeg(), want, 1e-9) {
		t.Errorf("PointAt(end fraction) lon = %.6f, want %.6f", got.LonDeg(), want)
	}
}

func TestParseLocator(t *testing.T) {
	tests := []struct {
		in       string
		lat, lon float64
	}{
		{"FN20", 40.5, -75},
		{"JO22", 52.5, 5},
		{"cn87ts", 47.770833, -122.375},
		{"AA00", -89.5, -179},
		{"RR99xx", 89.979167, 179.958333},
	}
	for _, tt := range tests {
		p, err := ParseLocator(tt.in)
		if err != nil {
			t.Errorf("ParseLocator(%q): %v", tt.in, err)
			continue
		}
		if !near(p.LatDeg(), tt.lat, 1e-6) || !near(p.LonDeg(), tt.lon, 1e-6) {
			t.Errorf("ParseLocator(%q) = %s, want (%g, %g)", tt.in, p, tt.lat, tt.lon)
		}
	}

	for _, bad := range []string{"", "FN2", "SN20", "FNA0", "FN20zz", "FN20t"} {
		if _, err := ParseLocator(bad); err == nil {
			t.Errorf("ParseLocator(%q) accepted", bad)
		}
	}
}

func TestParsePoint(t *testing.T) {
	p, err := ParsePoint("40.0, -75.5")
	if err != nil {
		t.Fatalf("ParsePoint: %v", err)
	}
	if !near(p.LatDeg(), 40, 1e-12) || !near(p.LonDeg(), -75.5, 1e-12) {
		t.Errorf("ParsePoint = %s", p)
	}
	if _, err := ParsePoint("95,0"); err == nil {
		t.Error("ParsePoint accepted latitude 95")
	}
	if _, err := ParsePoint("FN20"); err != nil {
		t.Errorf("ParsePoint(locator): %v", err)
	}
}
