package raytrace

import (
	"fmt"
	"math"

	"github.com/KI7MT/ki7mt-hfprop/internal/iono"
)

// Status classifies a solution.
type Status uint8

const (
	StatusOK       Status = iota // A mode supports the frequency
	StatusAboveMUF               // No mode supports the frequency and no skip zone applies
	StatusNoMode                 // No usable propagation
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusAboveMUF:
		return "above_muf"
	case StatusNoMode:
		return "no_mode"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Reason qualifies StatusNoMode.
type Reason uint8

const (
	ReasonNone        Reason = iota
	ReasonUnreachable        // No hop count can geometrically span the distance
	ReasonSkipZone           // The receiver is inside some feasible mode's skip zone
	ReasonScreened           // Below every mode's MUF but returned by a lower layer short of the receiver
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonUnreachable:
		return "unreachable"
	case ReasonSkipZone:
		return "skip_zone"
	case ReasonScreened:
		return "screened"
	default:
		return fmt.Sprintf("Reason(%d)", uint8(r))
	}
}

// Hop is the per-hop detail of a mode.
type Hop struct {
	Control       int            // Index of the control profile used
	Layer         iono.LayerKind // Reflecting layer
	MUF           float64        // MHz
	Elevation     float64        // Take-off angle at the MUF, radians
	VirtualHeight float64        // km
	Skip          float64        // Hop skip range at the operating frequency, km; +Inf when unreachable
}

// Mode is one (hop count, layer) propagation mode over the path.
type Mode struct {
	Hops          int
	Layer         iono.LayerKind
	MUF           float64 // Minimum hop MUF, MHz
	MinFrequency  float64 // Lowest frequency every hop carries, MHz; 0 for the lowest layer
	FOT           float64 // MHz
	HPF           float64 // MHz
	Elevation     float64 // Take-off angle of the limiting hop at the MUF, radians
	SkipDistance  float64 // km at the operating frequency; +Inf when no hop range supports it
	PeakMUF       float64 // Highest MUF the mode reaches at any distance, MHz
	LowConfidence bool
	HopDetail     []Hop
}

// Name returns the conventional mode label, e.g. "1F2" or "2E".
func (m Mode) Name() string {
	return fmt.Sprintf("%d%s", m.Hops, m.Layer)
}

// ElevationDeg returns the take-off angle in degrees.
func (m Mode) ElevationDeg() float64 { return m.Elevation * 180 / math.Pi }

// Carries reports whether the mode propagates f.
func (m Mode) Carries(f float64) bool { return f > m.MinFrequency && f <= m.MUF }

// Reachable reports whether some hop range supports the operating frequency.
func (m Mode) Reachable() bool { return !math.IsInf(m.SkipDistance, 1) }

// Solution is the solver outcome for one path and frequency.
type Solution struct {
	Status    Status
	Reason    Reason
	Frequency float64 // Operating frequency, MHz

	Mode    *Mode  // Selected mode when Status == StatusOK
	Closest *Mode  // Highest-MUF feasible mode otherwise
	Modes   []Mode // Every feasible mode, by hop count then layer

	MUF, FOT, HPF float64 // Of Mode, or of Closest when no mode is selected
	SkipDistance  float64 // km, of Mode or Closest
	Elevation     float64 // radians, of Mode or Closest
	LowConfidence bool
}

// Best returns the selected mode, or the closest one.
func (s *Solution) Best() *Mode {
	if s.Mode != nil {
		return s.Mode
	}
	return s.Closest
}

// ModeName returns the best mode's name, or "" when none exists.
func (s *Solution) ModeName() string {
	if m := s.Best(); m != nil {
		return m.Name()
	}
	return ""
}
