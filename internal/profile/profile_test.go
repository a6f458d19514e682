package profile

import (
	"errors"
	"math"
	"testing"

	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
)

func layer(fo, hm, ym float64) iono.LayerInfo {
	return iono.LayerInfo{Fo: fo, Hm: hm, Ym: ym, P: 1}
}

// Fixed profiles used across the tests.
var fixtures = map[string]iono.LayerSet{
	"F2 only":       iono.NewLayerSet(iono.LayerInfo{}, iono.LayerInfo{}, layer(10, 300, 100), iono.LayerInfo{}),
	"E and F2 gap":  iono.NewLayerSet(layer(3, 110, 20), iono.LayerInfo{}, layer(8, 280, 80), iono.LayerInfo{}),
	"E F1 F2":       iono.NewLayerSet(layer(3, 110, 20), layer(5, 200, 54), layer(9, 300, 90), iono.LayerInfo{}),
	"F1 inside F2":  iono.NewLayerSet(layer(3, 110, 20), layer(4, 230, 40), layer(9, 250, 100), iono.LayerInfo{}),
	"Es is ignored": iono.NewLayerSet(layer(3, 110, 20), iono.LayerInfo{}, layer(8, 280, 80), layer(6, 110, 5)),
}

func mustBuild(t *testing.T, ls iono.LayerSet) *Profile {
	t.Helper()
	p, err := Build(ls)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return p
}

func TestBuildPieces(t *testing.T) {
	type span struct {
		kind   iono.LayerKind
		lo, hi float64
	}
	tests := []struct {
		name   string
		want   []span
		merged []iono.LayerKind
	}{
		{"F2 only", []span{{iono.LayerF2, 200, 400}}, nil},
		{"E and F2 gap", []span{{iono.LayerE, 90, 130}, {iono.LayerF2, 200, 360}}, nil},
		{"E F1 F2", []span{{iono.LayerE, 90, 130}, {iono.LayerF1, 146, 222.3565}, {iono.LayerF2, 222.3565, 390}}, nil},
		{"F1 inside F2", []span{{iono.LayerE, 90, 130}, {iono.LayerF2, 150, 350}}, []iono.LayerKind{iono.LayerF1}},
		{"Es is ignored", []span{{iono.LayerE, 90, 130}, {iono.LayerF2, 200, 360}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustBuild(t, fixtures[tt.name])
			got := p.Pieces()
			if len(got) != len(tt.want) {
				t.Fatalf("got %d pieces, want %d: %+v", len(got), len(tt.want), got)
			}
			for i, w := range tt.want {
				if got[i].Kind != w.kind || math.Abs(got[i].Lo-w.lo) > 1e-3 || math.Abs(got[i].Hi-w.hi) > 1e-3 {
					t.Errorf("piece %d = %s [%.4f, %.4f], want %s [%.4f, %.4f]",
						i, got[i].Kind, got[i].Lo, got[i].Hi, w.kind, w.lo, w.hi)
				}
			}
			merged := p.Merged()
			if len(merged) != len(tt.merged) {
				t.Fatalf("merged = %v, want %v", merged, tt.merged)
			}
			for i := range merged {
				if merged[i] != tt.merged[i] {
					t.Errorf("merged = %v, want %v", merged, tt.merged)
				}
			}
		})
	}
}

func TestProfileContinuous(t *testing.T) {
	for name, ls := range fixtures {
		p := mustBuild(t, ls)
		for _, pc := range p.Pieces() {
			for _, h := range []float64{pc.Lo, pc.Hi} {
				below, above := p.Density(h-1e-6), p.Density(h+1e-6)
				if math.Abs(below-above) > 1e-3*pc.Layer.PeakDensity() {
					t.Errorf("%s: density jumps at %.4f km: %g -> %g", name, h, below, above)
				}
			}
		}
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		ls   iono.LayerSet
	}{
		{"no layers", iono.LayerSet{}},
		{"only Es", iono.NewLayerSet(iono.LayerInfo{}, iono.LayerInfo{}, iono.LayerInfo{}, layer(5, 110, 5))},
		{"zero thickness", iono.NewLayerSet(layer(3, 110, 0), iono.LayerInfo{}, iono.LayerInfo{}, iono.LayerInfo{})},
		{"base below ground", iono.NewLayerSet(layer(3, 50, 60), iono.LayerInfo{}, iono.LayerInfo{}, iono.LayerInfo{})},
		{"negative fo", iono.NewLayerSet(layer(-1, 110, 20), iono.LayerInfo{}, iono.LayerInfo{}, iono.LayerInfo{})},
		{"zero exponent", iono.NewLayerSet(iono.LayerInfo{Fo: 3, Hm: 110, Ym: 20}, iono.LayerInfo{}, iono.LayerInfo{}, iono.LayerInfo{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.ls); !iono.IsDomainError(err) {
				t.Fatalf("err = %v, want domain error", err)
			}
		})
	}
}

func TestLayersRoundTrip(t *testing.T) {
	for name, ls := range fixtures {
		t.Run(name, func(t *testing.T) {
			p := mustBuild(t, ls)
			q := mustBuild(t, p.Layers())
			if d := math.Abs(p.MaxCriticalFrequency() - q.MaxCriticalFrequency()); d > 0.01 {
				t.Errorf("max fo differs by %g MHz", d)
			}
			for _, k := range []iono.LayerKind{iono.LayerE, iono.LayerF1, iono.LayerF2} {
				if d := math.Abs(p.Layer(k).Fo - q.Layer(k).Fo); d > 0.01 {
					t.Errorf("fo%s differs by %g MHz", k, d)
				}
			}
			if len(p.Pieces()) != len(q.Pieces()) {
				t.Errorf("rebuilt profile has %d pieces, want %d", len(q.Pieces()), len(p.Pieces()))
			}
			if q.Layers().Es().Present() {
				t.Error("sporadic E leaked into the profile layers")
			}
		})
	}
}

func TestDensityAndPlasmaFrequency(t *testing.T) {
	p := mustBuild(t, fixtures["E F1 F2"])
	tests := []struct {
		h, want float64
	}{
		{110, 3},
		{300, 9},
		{50, 0},
		{500, 0},
		{140, 0}, // between the E top and the F1 base
	}
	for _, tt := range tests {
		if got := p.PlasmaFrequency(tt.h); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("PlasmaFrequency(%g) = %g, want %g", tt.h, got, tt.want)
		}
	}
	if got := p.MaxCriticalFrequency(); math.Abs(got-9) > 1e-9 {
		t.Errorf("MaxCriticalFrequency = %g, want 9", got)
	}
	if got := p.Bottom(); got != 90 {
		t.Errorf("Bottom = %g, want 90", got)
	}
}

func TestTrueHeight(t *testing.T) {
	tests := []struct {
		profile string
		f, want float64
	}{
		{"F2 only", 8, 240},
		{"F2 only", 2, 202.0204},
		{"E and F2 gap", 2.8, 102.8198},
		{"E and F2 gap", 4, 210.7180},
		{"E F1 F2", 3.15, 158.0639},
		{"E F1 F2", 7.2, 246},
		{"F1 inside F2", 6.3, 178.5857},
	}
	for _, tt := range tests {
		p := mustBuild(t, fixtures[tt.profile])
		got, err := p.TrueHeight(tt.f)
		if err != nil {
			t.Fatalf("%s TrueHeight(%g): %v", tt.profile, tt.f, err)
		}
		if math.Abs(got-tt.want) > 1e-3 {
			t.Errorf("%s TrueHeight(%g) = %.4f, want %.4f", tt.profile, tt.f, got, tt.want)
		}
	}
}

func TestTrueHeightErrors(t *testing.T) {
	p := mustBuild(t, fixtures["E F1 F2"])

	_, err := p.TrueHeight(9.5)
	if !errors.Is(err, ErrPenetrates) || !IsPenetrates(err) {
		t.Fatalf("err = %v, want ErrPenetrates", err)
	}
	if !iono.IsDomainError(err) {
		t.Errorf("ErrPenetrates is not a domain error")
	}

	for _, f := range []float64{0, -3, math.NaN()} {
		if _, err := p.TrueHeight(f); !iono.IsDomainError(err) || IsPenetrates(err) {
			t.Errorf("TrueHeight(%g): err = %v, want frequency domain error", f, err)
		}
	}
}

func TestBreitTuve(t *testing.T) {
	p := mustBuild(t, fixtures["F2 only"])
	for _, x := range []float64{0.2, 0.5, 0.8, 0.9, 0.95} {
		f := 10 * x
		want := 200 + 50*x*math.Log((1+x)/(1-x))
		got, err := p.VirtualHeight(f, Approximate)
		if err != nil {
			t.Fatalf("VirtualHeight(%g): %v", f, err)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("VirtualHeight(%g) = %.6f, want %.6f", f, got, want)
		}
	}
}

func TestVirtualHeightPinned(t *testing.T) {
	tests := []struct {
		profile string
		f, want float64
	}{
		{"F2 only", 9, 332.4998},
		{"E and F2 gap", 4, 233.8632},
		{"E F1 F2", 3.15, 209.2080},
		{"E F1 F2", 8.1, 344.6670},
		{"F1 inside F2", 4.5, 185.7484},
	}
	for _, tt := range tests {
		p := mustBuild(t, fixtures[tt.profile])
		for _, m := range []Method{Approximate, Precise} {
			got, err := p.VirtualHeight(tt.f, m)
			if err != nil {
				t.Fatalf("%s %s VirtualHeight(%g): %v", tt.profile, m, tt.f, err)
			}
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("%s %s VirtualHeight(%g) = %.4f, want %.4f", tt.profile, m, tt.f, got, tt.want)
			}
		}
	}
}

func TestMethodsAgree(t *testing.T) {
	for name, ls := range fixtures {
		p := mustBuild(t, ls)
		fmax := p.MaxCriticalFrequency()
		for _, frac := range []float64{0.1, 0.25, 0.4, 0.55, 0.7, 0.8, 0.9} {
			f := frac * fmax
			a, err := p.VirtualHeight(f, Approximate)
			if err != nil {
				t.Fatalf("%s approximate(%g): %v", name, f, err)
			}
			b, err := p.VirtualHeight(f, Precise)
			if err != nil {
				t.Fatalf("%s precise(%g): %v", name, f, err)
			}
			if math.Abs(a-b) > 2 {
				t.Errorf("%s f=%.3f: approximate %.3f vs precise %.3f", name, f, a, b)
			}
		}
	}
}

func TestVirtualAboveTrue(t *testing.T) {
	shaped := iono.NewLayerSet(
		iono.LayerInfo{Fo: 3, Hm: 110, Ym: 20, P: 2}, iono.LayerInfo{},
		iono.LayerInfo{Fo: 9, Hm: 300, Ym: 100, P: 2}, iono.LayerInfo{})

	sets := map[string]iono.LayerSet{"p=2": shaped}
	for k, v := range fixtures {
		sets[k] = v
	}
	for name, ls := range sets {
		p := mustBuild(t, ls)
		fmax := p.MaxCriticalFrequency()
		for f := 0.05 * fmax; f < 0.98*fmax; f += 0.05 * fmax {
			for _, m := range []Method{Approximate, Precise} {
				ht, hv, err := p.GroupPath(f, m)
				if err != nil {
					// Exactly at a lower layer's peak the group path diverges.
					continue
				}
				if hv < ht {
					t.Errorf("%s %s f=%.3f: virtual %.3f below true %.3f", name, m, f, hv, ht)
				}
				if m == Precise && hv <= ht {
					t.Errorf("%s precise f=%.3f: virtual %.3f not above true %.3f", name, f, hv, ht)
				}
			}
		}
	}
}

func TestVirtualHeightSingular(t *testing.T) {
	p := mustBuild(t, fixtures["F2 only"])
	if _, err := p.VirtualHeight(10, Approximate); err == nil {
		t.Error("expected error at the layer peak frequency")
	}
	if _, err := p.VirtualHeight(10.5, Precise); !IsPenetrates(err) {
		t.Errorf("err = %v, want ErrPenetrates", err)
	}
	if _, err := p.VirtualHeight(5, Method(9)); !iono.IsDomainError(err) {
		t.Errorf("unknown method: err = %v, want domain error", err)
	}
}

func TestReflectors(t *testing.T) {
	p := mustBuild(t, fixtures["E F1 F2"])
	want := []Reflector{
		{iono.LayerE, 0, 3},
		{iono.LayerF1, 3, 5},
		{iono.LayerF2, 5, 9},
	}
	got := p.Reflectors()
	if len(got) != len(want) {
		t.Fatalf("got %d reflectors, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Kind != want[i].Kind || math.Abs(got[i].FLo-want[i].FLo) > 1e-9 || math.Abs(got[i].FHi-want[i].FHi) > 1e-9 {
			t.Errorf("reflector %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
