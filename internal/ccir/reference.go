package ccir

import "math"

// ReferenceName labels the built-in map.
const ReferenceName = "reference"

// Reference climatology at the two activity levels (R = 0 and R = 100).
//
//	foF2    = s(month)*(a + b*cos(lat)*cos(T + lon - 30°)) + c*sin²(modip)
//	M3000F2 = m0 + d*cos(lat)*cos(T + lon)
//
// with the seasonal factor s(month) = 1 + 0.1*cos(2π(month-1)/12). Local
// noon is T + lon = 0, so the foF2 peak falls near 14 LT.
var (
	refFoF2A   = [2]float64{4.0, 6.0}
	refFoF2B   = [2]float64{2.5, 4.0}
	refFoF2C   = [2]float64{1.0, 1.5}
	refM3000   = [2]float64{3.2, 2.9}
	refLevels  = []float64{0, 100}
	refM3000D  = 0.15
	refFoF2Lag = 30 * math.Pi / 180
)

// ReferenceMap builds the built-in reference climatology: a sparse
// coefficient set in the full CCIR shape, so the engine runs without data
// files and regression fixtures stay stable.
func ReferenceMap() *Map {
	fo := NewCoefficients(FoF2, FoF2Shape, DefaultHarmonics, refLevels, FoF2Saturation, Linear)
	m3 := NewCoefficients(M3000F2, M3000F2Shape, DefaultHarmonics, refLevels, M3000F2Saturation, Linear)

	// Index of the first m = 1 spatial function (cos λ term); sin λ follows.
	foCos, m3Cos := FoF2Shape[0], M3000F2Shape[0]
	cosLag, sinLag := math.Cos(refFoF2Lag), math.Sin(refFoF2Lag)

	for month := 1; month <= 12; month++ {
		s := 1 + 0.1*math.Cos(2*math.Pi*float64(month-1)/12)
		for l := range refLevels {
			a, b, c := s*refFoF2A[l], s*refFoF2B[l], refFoF2C[l]

			fo.Values[fo.At(month, l, 0, 0)] = a
			fo.Values[fo.At(month, l, 2, 0)] = c
			// cos(T+λ-lag) = cosλ(cos lag cosT + sin lag sinT) + sinλ(sin lag cosT - cos lag sinT)
			fo.Values[fo.At(month, l, foCos, 1)] = b * cosLag
			fo.Values[fo.At(month, l, foCos, 2)] = b * sinLag
			fo.Values[fo.At(month, l, foCos+1, 1)] = b * sinLag
			fo.Values[fo.At(month, l, foCos+1, 2)] = -b * cosLag

			m3.Values[m3.At(month, l, 0, 0)] = refM3000[l]
			// cos(T+λ) = cosλ cosT - sinλ sinT
			m3.Values[m3.At(month, l, m3Cos, 1)] = refM3000D
			m3.Values[m3.At(month, l, m3Cos+1, 2)] = -refM3000D
		}
	}

	m, err := NewMap(ReferenceName, fo, m3)
	if err != nil {
		panic("ccir: reference map invalid: " + err.Error())
	}
	return m
}
