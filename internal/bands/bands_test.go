package bands

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		freq float64
		id   int32
		name string
	}{
		{1.838, Band160m, "160m"},
		{3.5, Band80m, "80m"},
		{7.074, Band40m, "40m"},
		{10.1387, Band30m, "30m"},
		{14.0956, Band20m, "20m"},
		{18.168, Band17m, "17m"},
		{28.1246, Band10m, "10m"},
		{50.313, Band6m, "6m"},
		{0.5, BandMF, "MF"},
		{9.0, BandHF, "HF"},
		{144.0, BandVHF, "VHF"},
		{0, BandUnknown, "Unknown"},
	}
	for _, tt := range tests {
		id, name := Lookup(tt.freq)
		if id != tt.id || name != tt.name {
			t.Errorf("Lookup(%g) = %d %q, want %d %q", tt.freq, id, name, tt.id, tt.name)
		}
	}
}

func TestHF(t *testing.T) {
	hf := HF()
	if len(hf) != 10 {
		t.Fatalf("HF() returned %d bands, want 10", len(hf))
	}
	for i, b := range hf {
		if !b.Contains(b.DialMHz) {
			t.Errorf("%s dial %.3f outside allocation", b.Name, b.DialMHz)
		}
		if i > 0 && b.MinFreqMHz <= hf[i-1].MaxFreqMHz {
			t.Errorf("%s overlaps or is out of order", b.Name)
		}
	}

	hf[0].Name = "changed"
	if HF()[0].Name != "160m" {
		t.Error("HF() exposes the internal table")
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("20m, 40M,10m")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []int32{Band20m, Band40m, Band10m}
	if len(got) != len(want) {
		t.Fatalf("Parse returned %d bands", len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("band %d = %s, want id %d", i, got[i].Name, want[i])
		}
	}

	if all, err := Parse(""); err != nil || len(all) != len(HF()) {
		t.Errorf("Parse(\"\") = %d bands, %v", len(all), err)
	}
	if _, err := Parse("20m,11m"); err == nil {
		t.Error("Parse accepted an unknown band")
	}
	if b, ok := ByID(Band15m); !ok || b.Name != "15m" {
		t.Errorf("ByID(15m) = %v, %v", b, ok)
	}
}
