package playback

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/yieldpoint/internal/tensile"
)

// ErrInvalidSpeed is returned by SetSpeed for negative or non-finite speeds.
var ErrInvalidSpeed = errors.New("playback: speed must be a finite number >= 0")

// Options configures a Session.
type Options struct {
	Resolution int
	Overshoot  float64
	Speed      float64
	Pacing     Pacing
}

// DefaultOptions matches the stock animation.
func DefaultOptions() Options {
	return Options{
		Resolution: tensile.DefaultResolution,
		Overshoot:  tensile.DefaultOvershoot,
		Speed:      1,
		Pacing:     DefaultPacing(),
	}
}

// Session owns the transport state and the curve for one viewer. All
// methods are safe for concurrent use. The curve is regenerated only when
// the resolution changes; readers may keep a curve they obtained earlier.
type Session struct {
	id     string
	model  *tensile.Model
	pacing Pacing

	mu         sync.RWMutex
	resolution int
	overshoot  float64
	curve      tensile.Curve
	state      SimulationState
	tick       uint64
}

// NewSession generates the curve and returns a paused session at zero strain.
func NewSession(m *tensile.Model, opts Options) (*Session, error) {
	curve, err := m.GenerateCurve(opts.Resolution, opts.Overshoot)
	if err != nil {
		return nil, fmt.Errorf("generate curve: %w", err)
	}
	if math.IsNaN(opts.Speed) || math.IsInf(opts.Speed, 0) || opts.Speed < 0 {
		return nil, ErrInvalidSpeed
	}
	return &Session{
		id:         uuid.New().String(),
		model:      m,
		pacing:     opts.Pacing,
		resolution: opts.Resolution,
		overshoot:  opts.Overshoot,
		curve:      curve,
		state:      SimulationState{PlaybackSpeed: opts.Speed},
	}, nil
}

// ID identifies the session in frames and exports.
func (s *Session) ID() string { return s.id }

// Model returns the tensile model.
func (s *Session) Model() *tensile.Model { return s.model }

// Curve returns the cached curve.
func (s *Session) Curve() tensile.Curve {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.curve
}

// Resolution returns the number of curve steps.
func (s *Session) Resolution() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolution
}

// Overshoot returns how far past fracture the curve extends.
func (s *Session) Overshoot() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overshoot
}

// SetResolution regenerates the curve if n differs from the current
// resolution. It reports whether a new curve was generated.
func (s *Session) SetResolution(n int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n == s.resolution {
		return false, nil
	}
	curve, err := s.model.GenerateCurve(n, s.overshoot)
	if err != nil {
		return false, err
	}
	s.curve = curve
	s.resolution = n
	return true, nil
}

// State returns the transport state.
func (s *Session) State() SimulationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Play starts or resumes playback.
func (s *Session) Play() {
	s.mu.Lock()
	s.state.IsPlaying = true
	s.mu.Unlock()
}

// Pause stops playback at the current strain.
func (s *Session) Pause() {
	s.mu.Lock()
	s.state.IsPlaying = false
	s.mu.Unlock()
}

// Toggle flips between playing and paused and returns the new value.
func (s *Session) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsPlaying = !s.state.IsPlaying
	return s.state.IsPlaying
}

// Reset pauses and rewinds to zero strain.
func (s *Session) Reset() {
	s.mu.Lock()
	s.state.IsPlaying = false
	s.state.CurrentStrain = 0
	s.mu.Unlock()
}

// Seek jumps to percent (0–100) of the fracture strain. Out-of-range
// values are clamped. Playback state is left unchanged.
func (s *Session) Seek(percent float64) {
	if math.IsNaN(percent) {
		percent = 0
	}
	percent = math.Max(0, math.Min(100, percent))

	s.mu.Lock()
	s.state.CurrentStrain = percent / 100 * s.model.Thresholds().Fracture
	s.mu.Unlock()
}

// SetSpeed changes the playback speed multiplier. Zero freezes playback
// without pausing it.
func (s *Session) SetSpeed(speed float64) error {
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed < 0 {
		return ErrInvalidSpeed
	}
	s.mu.Lock()
	s.state.PlaybackSpeed = speed
	s.mu.Unlock()
	return nil
}

// Step advances the session by dt and returns the resulting frame.
func (s *Session) Step(dt time.Duration) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	s.state = Advance(s.model, s.state, dt, s.pacing)
	return s.frameLocked()
}

// Snapshot returns the current frame without advancing.
func (s *Session) Snapshot() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameLocked()
}

func (s *Session) frameLocked() Frame {
	fracture := s.model.Thresholds().Fracture
	return Frame{
		Tick:     s.tick,
		Session:  s.id,
		State:    s.state,
		Reading:  s.model.Query(s.curve, s.state.CurrentStrain),
		Progress: s.state.CurrentStrain / fracture * 100,
	}
}

// Markers returns the slider marks for the yield point, the end of the
// plateau and the onset of necking.
func (s *Session) Markers() []Marker {
	th := s.model.Thresholds()
	mark := func(label string, strain float64) Marker {
		return Marker{Label: label, Strain: strain, Percent: strain / th.Fracture * 100}
	}
	return []Marker{
		mark("Upper Yield Point", th.UpperYield),
		mark("End of Plateau", th.PlateauEnd),
		mark("Start of Necking (UTS)", th.NeckingStart),
	}
}
