package layers

import "math"

// Median fxEs (MHz) by |geomagnetic latitude| in 10 degree steps, 0..90.
var (
	esSummer  = [10]float64{5.5, 4.5, 4.0, 4.5, 5.0, 5.0, 4.0, 3.0, 3.0, 3.0}
	esEquinox = [10]float64{5.0, 3.5, 3.0, 3.0, 3.2, 3.2, 3.0, 2.8, 2.8, 2.8}
	esWinter  = [10]float64{4.5, 3.0, 2.5, 2.2, 2.2, 2.2, 2.5, 2.8, 2.8, 2.8}
)

// FxEs returns the expected sporadic-E top frequency for a month, geomagnetic
// latitude and geographic latitude (radians). The season follows the
// geographic hemisphere and blends by cos(2π(month-6)/12).
func FxEs(month int, magLat, lat float64) float64 {
	c := math.Cos(2 * math.Pi * float64(month-6) / 12)
	if lat < 0 {
		c = -c
	}
	eq := bandValue(&esEquinox, magLat)
	if c >= 0 {
		return eq + c*(bandValue(&esSummer, magLat)-eq)
	}
	return eq - c*(bandValue(&esWinter, magLat)-eq)
}

// FoEs applies the gyrofrequency correction foEs = fxEs - fH/2.
func FoEs(month int, magLat, lat, gyro float64) float64 {
	return math.Max(0, FxEs(month, magLat, lat)-gyro/2)
}

func bandValue(tab *[10]float64, magLat float64) float64 {
	x := math.Min(math.Abs(magLat)*180/math.Pi, 90) / 10
	i := int(x)
	if i > 8 {
		i = 8
	}
	t := x - float64(i)
	return tab[i]*(1-t) + tab[i+1]*t
}
