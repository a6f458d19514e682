// Package solar provides the solar inputs of a prediction: sun position
// (zenith angle and local time at a control point) and the smoothed sunspot
// number R12 derived from the solar.indices_raw ClickHouse table.
package solar

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Index is one row of solar.indices_raw.
type Index struct {
	Date         time.Time `ch:"date"`
	ObservedFlux float32   `ch:"observed_flux"` // Solar Flux Index (10.7cm)
	AdjustedFlux float32   `ch:"adjusted_flux"` // Adjusted F10.7
	SSN          float32   `ch:"ssn"`           // Daily sunspot number
	KpIndex      float32   `ch:"kp_index"`      // Planetary K-index
	ApIndex      float32   `ch:"ap_index"`      // Planetary A-index
}

// SchemaVersion is the current solar schema version.
const SchemaVersion = 1

// Monthly is a monthly mean sunspot number.
type Monthly struct {
	Month time.Time // First day of the month, UTC
	SSN   float64
}

// MonthStart truncates t to the first instant of its UTC month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthlyMeans averages daily indices into monthly means, sorted by month.
// Rows without a sunspot number (negative) are skipped.
func MonthlyMeans(rows []Index) []Monthly {
	type acc struct {
		sum float64
		n   int
	}
	byMonth := make(map[time.Time]*acc)
	for _, r := range rows {
		if r.SSN < 0 {
			continue
		}
		m := MonthStart(r.Date)
		a := byMonth[m]
		if a == nil {
			a = &acc{}
			byMonth[m] = a
		}
		a.sum += float64(r.SSN)
		a.n++
	}
	out := make([]Monthly, 0, len(byMonth))
	for m, a := range byMonth {
		out = append(out, Monthly{Month: m, SSN: a.sum / float64(a.n)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// Smoothed returns the 13-month running mean R12 centred on month: half
// weight on the months six before and six after, full weight on the eleven
// between. Every one of the thirteen monthly means must be present.
func Smoothed(monthly []Monthly, month time.Time) (float64, error) {
	month = MonthStart(month)
	idx := make(map[time.Time]float64, len(monthly))
	for _, m := range monthly {
		idx[MonthStart(m.Month)] = m.SSN
	}

	var sum float64
	for k := -6; k <= 6; k++ {
		m := month.AddDate(0, k, 0)
		v, ok := idx[m]
		if !ok {
			return 0, fmt.Errorf("smoothed ssn for %s: missing monthly mean for %s",
				month.Format("2006-01"), m.Format("2006-01"))
		}
		w := 1.0
		if k == -6 || k == 6 {
			w = 0.5
		}
		sum += w * v
	}
	return sum / 12, nil
}

// SmoothedOrLatest returns R12 for month, or the latest available R12 when
// the centred window is not complete yet (the trailing six months of any
// record). The month actually used is returned alongside.
func SmoothedOrLatest(monthly []Monthly, month time.Time) (float64, time.Time, error) {
	month = MonthStart(month)
	if r, err := Smoothed(monthly, month); err == nil {
		return r, month, nil
	}
	for m := month.AddDate(0, -1, 0); len(monthly) > 0 && !m.Before(monthly[0].Month); m = m.AddDate(0, -1, 0) {
		if r, err := Smoothed(monthly, m); err == nil {
			return r, m, nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("smoothed ssn for %s: no complete 13-month window", month.Format("2006-01"))
}

// ClampSSN limits a sunspot number to the range the coefficient maps accept.
func ClampSSN(r float64) float64 {
	return math.Max(0, math.Min(r, 200))
}
