// Package bands provides the amateur HF band plan used to drive per-band
// propagation predictions and to label results.
//
// Lookup is a binary search over a sorted allocation table; the package holds
// no mutable state and is safe for concurrent use.
package bands

import (
	"fmt"
	"sort"
	"strings"
)

// Band IDs, matching the ADIF numbering stored in the 'band' column.
const (
	BandUnknown int32 = 0
	BandMF      int32 = 4 // 300 kHz - 3 MHz
	BandHF      int32 = 5 // 3 - 30 MHz
	BandVHF     int32 = 6 // 30 - 300 MHz

	Band160m int32 = 102
	Band80m  int32 = 103
	Band60m  int32 = 104
	Band40m  int32 = 105
	Band30m  int32 = 106
	Band20m  int32 = 107
	Band17m  int32 = 108
	Band15m  int32 = 109
	Band12m  int32 = 110
	Band10m  int32 = 111
	Band6m   int32 = 200
)

// Band is one amateur allocation.
type Band struct {
	ID         int32
	Name       string
	MinFreqMHz float64
	MaxFreqMHz float64
	// DialMHz is the representative operating frequency used for predictions.
	DialMHz float64
}

// Contains reports whether f (MHz) falls inside the allocation.
func (b Band) Contains(f float64) bool {
	return f >= b.MinFreqMHz && f <= b.MaxFreqMHz
}

func (b Band) String() string {
	return fmt.Sprintf("%s (%.3f MHz)", b.Name, b.DialMHz)
}

// Sorted by MinFreqMHz.
var amateurBands = []Band{
	{ID: Band160m, Name: "160m", MinFreqMHz: 1.800, MaxFreqMHz: 2.000, DialMHz: 1.840},
	{ID: Band80m, Name: "80m", MinFreqMHz: 3.500, MaxFreqMHz: 4.000, DialMHz: 3.573},
	{ID: Band60m, Name: "60m", MinFreqMHz: 5.300, MaxFreqMHz: 5.405, DialMHz: 5.357},
	{ID: Band40m, Name: "40m", MinFreqMHz: 7.000, MaxFreqMHz: 7.300, DialMHz: 7.074},
	{ID: Band30m, Name: "30m", MinFreqMHz: 10.100, MaxFreqMHz: 10.150, DialMHz: 10.136},
	{ID: Band20m, Name: "20m", MinFreqMHz: 14.000, MaxFreqMHz: 14.350, DialMHz: 14.074},
	{ID: Band17m, Name: "17m", MinFreqMHz: 18.068, MaxFreqMHz: 18.168, DialMHz: 18.100},
	{ID: Band15m, Name: "15m", MinFreqMHz: 21.000, MaxFreqMHz: 21.450, DialMHz: 21.074},
	{ID: Band12m, Name: "12m", MinFreqMHz: 24.890, MaxFreqMHz: 24.990, DialMHz: 24.915},
	{ID: Band10m, Name: "10m", MinFreqMHz: 28.000, MaxFreqMHz: 29.700, DialMHz: 28.074},
	{ID: Band6m, Name: "6m", MinFreqMHz: 50.000, MaxFreqMHz: 54.000, DialMHz: 50.313},
}

// Lookup returns the band ID and name for a frequency in MHz. Frequencies
// outside every amateur allocation fall back to the broad ITU class.
func Lookup(freq float64) (id int32, name string) {
	if b, ok := Find(freq); ok {
		return b.ID, b.Name
	}
	return classify(freq)
}

// Find returns the amateur allocation containing freq.
func Find(freq float64) (Band, bool) {
	i := sort.Search(len(amateurBands), func(i int) bool {
		return amateurBands[i].MaxFreqMHz >= freq
	})
	if i < len(amateurBands) && amateurBands[i].Contains(freq) {
		return amateurBands[i], true
	}
	return Band{}, false
}

func classify(freq float64) (int32, string) {
	switch {
	case freq <= 0:
		return BandUnknown, "Unknown"
	case freq < 3.0:
		return BandMF, "MF"
	case freq < 30.0:
		return BandHF, "HF"
	case freq < 300.0:
		return BandVHF, "VHF"
	default:
		return BandUnknown, "Unknown"
	}
}

// ByName returns the allocation with the given name, e.g. "20m".
func ByName(name string) (Band, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, b := range amateurBands {
		if b.Name == name {
			return b, true
		}
	}
	return Band{}, false
}

// ByID returns the allocation with the given ID.
func ByID(id int32) (Band, bool) {
	for _, b := range amateurBands {
		if b.ID == id {
			return b, true
		}
	}
	return Band{}, false
}

// HF returns the 160m through 10m allocations. The returned slice is a copy.
func HF() []Band {
	out := make([]Band, 0, len(amateurBands))
	for _, b := range amateurBands {
		if b.MaxFreqMHz <= 30 {
			out = append(out, b)
		}
	}
	return out
}

// All returns every allocation, including 6m. The returned slice is a copy.
func All() []Band {
	out := make([]Band, len(amateurBands))
	copy(out, amateurBands)
	return out
}

// Parse resolves a comma-separated list of band names. An empty list or
// "hf" selects HF().
func Parse(list string) ([]Band, error) {
	list = strings.TrimSpace(list)
	if list == "" || strings.EqualFold(list, "hf") {
		return HF(), nil
	}
	var out []Band
	for _, name := range strings.Split(list, ",") {
		b, ok := ByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown band %q", strings.TrimSpace(name))
		}
		out = append(out, b)
	}
	return out, nil
}
