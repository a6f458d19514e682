package geomag

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
)

const deg = math.Pi / 180

func TestDipole(t *testing.T) {
	m := Dipole{Height: 0}

	pole, _ := m.At(iono.PointFromDegrees(dipolePoleLat, dipolePoleLon), time.Time{})
	if math.Abs(pole.MagLat-90*deg) > 1e-6 || math.Abs(pole.Dip-90*deg) > 1e-6 {
		t.Errorf("at the dipole pole: maglat %.4f°, dip %.4f°", pole.MagLat/deg, pole.Dip/deg)
	}
	if math.Abs(pole.Total-2*dipoleB0) > 1e-6 {
		t.Errorf("polar field = %g nT, want %g", pole.Total, 2*dipoleB0)
	}

	// The geomagnetic equator crosses the pole's antimeridian plane 90° away.
	eq, _ := m.At(iono.PointFromDegrees(dipolePoleLat-90, dipolePoleLon), time.Time{})
	if math.Abs(eq.MagLat) > 1e-9 || math.Abs(eq.Dip) > 1e-9 {
		t.Errorf("at the geomagnetic equator: maglat %g, dip %g", eq.MagLat, eq.Dip)
	}
	if math.Abs(eq.Gyro-dipoleB0*GyroPerNanoTesla) > 1e-9 {
		t.Errorf("equatorial gyro = %g MHz", eq.Gyro)
	}

	high, _ := Dipole{Height: 300}.At(iono.PointFromDegrees(dipolePoleLat-90, dipolePoleLon), time.Time{})
	if !(high.Total < eq.Total) {
		t.Error("field does not weaken with height")
	}
}

func TestDipLatitudeRelation(t *testing.T) {
	for _, latDeg := range []float64{-60, -20, 0, 35, 70} {
		f := fromDip(math.Atan(2*math.Tan(latDeg*deg)), 50000, "test")
		if math.Abs(f.MagLat/deg-latDeg) > 1e-9 {
			t.Errorf("maglat round trip %g -> %g", latDeg, f.MagLat/deg)
		}
		if math.Abs(f.Gyro-1.4) > 1e-12 {
			t.Errorf("gyro = %g, want 1.4", f.Gyro)
		}
	}
}

func TestMidLatitudeField(t *testing.T) {
	f, err := New(300).At(iono.PointFromDegrees(40, -75), time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if d := f.Dip / deg; d < 62 || d > 72 {
		t.Errorf("%s dip = %.2f°, want about 67°", f.Model, d)
	}
	if f.Gyro < 0.9 || f.Gyro > 1.6 {
		t.Errorf("%s gyro = %.3f MHz", f.Model, f.Gyro)
	}

	cp := f.Apply(iono.ControlPoint{Point: iono.PointFromDegrees(40, -75)})
	if cp.MagDip != f.Dip || cp.MagLat != f.MagLat || cp.GyroFreq != f.Gyro {
		t.Errorf("Apply = %+v", cp)
	}
}

type failing struct{}

func (failing) At(iono.GeographicPoint, time.Time) (Field, error) {
	return Field{}, errors.New("outside model epoch")
}

func TestFallback(t *testing.T) {
	m := fallback{primary: failing{}, secondary: Dipole{Height: DefaultHeight}}
	f, err := m.At(iono.PointFromDegrees(10, 20), time.Now())
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if f.Model != "dipole" {
		t.Errorf("model = %q, want dipole", f.Model)
	}
}
