// Package playback drives strain over time for the animated view: a pure
// per-frame update, a session holding transport state and the cached
// curve, and a tick loop that publishes frames.
package playback

import (
	"time"

	"github.com/talgya/yieldpoint/internal/tensile"
)

// SimulationState is the mutable transport state. The model itself has no
// notion of time; only this record changes between frames.
type SimulationState struct {
	CurrentStrain float64 `json:"current_strain"`
	IsPlaying     bool    `json:"is_playing"`
	PlaybackSpeed float64 `json:"playback_speed"` // 1.0 = FullRun per test
}

// Pacing controls how fast strain advances.
type Pacing struct {
	FullRun         time.Duration `yaml:"full_run" json:"full_run"`                 // zero to fracture at 1x, ignoring slowdowns
	PlateauSlowdown float64       `yaml:"plateau_slowdown" json:"plateau_slowdown"` // rate multiplier inside the Lüders plateau
}

// DefaultPacing runs a full test in about ten seconds and lingers on the
// plateau at a quarter speed.
func DefaultPacing() Pacing {
	return Pacing{
		FullRun:         10 * time.Second,
		PlateauSlowdown: 0.25,
	}
}

// Advance returns the state dt later. It is pure: the phase used to pick
// the rate is classified from s.CurrentStrain on every call. Reaching
// fracture clamps strain to the fracture threshold and stops playback.
func Advance(m *tensile.Model, s SimulationState, dt time.Duration, p Pacing) SimulationState {
	if !s.IsPlaying || dt <= 0 || p.FullRun <= 0 || s.PlaybackSpeed <= 0 {
		return s
	}

	fracture := m.Thresholds().Fracture
	rate := fracture / p.FullRun.Seconds()
	if m.ClassifyPhase(s.CurrentStrain) == tensile.LudersPlateau {
		rate *= p.PlateauSlowdown
	}

	next := s.CurrentStrain + rate*s.PlaybackSpeed*dt.Seconds()
	if next >= fracture {
		s.CurrentStrain = fracture
		s.IsPlaying = false
		return s
	}
	s.CurrentStrain = next
	return s
}

// Frame is what a renderer draws for one tick.
type Frame struct {
	Tick     uint64          `json:"tick"`
	Session  string          `json:"session"`
	State    SimulationState `json:"state"`
	Reading  tensile.State   `json:"reading"`
	Progress float64         `json:"progress"` // percent of fracture strain
}

// Marker is a labelled position on the progress slider.
type Marker struct {
	Label   string  `json:"label"`
	Strain  float64 `json:"strain"`
	Percent float64 `json:"percent"`
}
