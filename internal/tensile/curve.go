package tensile

import (
	"fmt"
	"math"
	"sort"
)

// DefaultOvershoot is how far past fracture a curve extends so the drop to
// zero stress is visible.
const DefaultOvershoot = 0.01

// DefaultResolution is the number of steps used when none is configured.
const DefaultResolution = 400

// DataPoint is one sample of the curve.
type DataPoint struct {
	Strain float64          `json:"strain"`
	Stress float64          `json:"stress"` // MPa
	Phase  DeformationPhase `json:"phase"`
}

// Curve is a strictly strain-increasing sequence of samples. It is never
// modified after generation and may be shared between goroutines.
type Curve []DataPoint

// GenerateCurve samples the default model over [0, fracture+DefaultOvershoot].
func GenerateCurve(resolution int) (Curve, error) {
	return Default.GenerateCurve(resolution, DefaultOvershoot)
}

// GenerateCurve samples the model at resolution+1 evenly spaced strains
// from 0 to fracture+overshoot inclusive. The same arguments always yield
// the same curve.
func (m *Model) GenerateCurve(resolution int, overshoot float64) (Curve, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("%w: resolution must be positive, got %d", ErrInvalidArgument, resolution)
	}
	if math.IsNaN(overshoot) || math.IsInf(overshoot, 0) || overshoot < 0 {
		return nil, fmt.Errorf("%w: overshoot must be a non-negative finite number, got %g", ErrInvalidArgument, overshoot)
	}

	maxStrain := m.thresholds.Fracture + overshoot
	n := float64(resolution)

	curve := make(Curve, resolution+1)
	for i := range curve {
		// Index-based so the endpoint is exact and no step error accumulates.
		strain := maxStrain * float64(i) / n
		curve[i] = DataPoint{
			Strain: strain,
			Stress: m.StressAt(strain),
			Phase:  m.ClassifyPhase(strain),
		}
	}
	return curve, nil
}

// MaxStrain returns the strain of the last sample, or 0 for an empty curve.
func (c Curve) MaxStrain() float64 {
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1].Strain
}

// PeakStress returns the sample with the highest stress.
func (c Curve) PeakStress() (DataPoint, bool) {
	if len(c) == 0 {
		return DataPoint{}, false
	}
	peak := c[0]
	for _, p := range c[1:] {
		if p.Stress > peak.Stress {
			peak = p
		}
	}
	return peak, true
}

// Upto returns the prefix of samples with strain <= strain. The result
// shares the curve's backing array.
func (c Curve) Upto(strain float64) Curve {
	i := sort.Search(len(c), func(i int) bool { return c[i].Strain > strain })
	return c[:i:i]
}

// Strains returns the x values.
func (c Curve) Strains() []float64 {
	out := make([]float64, len(c))
	for i, p := range c {
		out[i] = p.Strain
	}
	return out
}

// Stresses returns the y values.
func (c Curve) Stresses() []float64 {
	out := make([]float64, len(c))
	for i, p := range c {
		out[i] = p.Stress
	}
	return out
}

// PhaseSpans groups consecutive samples by phase, in order. Renderers use
// it to shade phase regions.
func (c Curve) PhaseSpans() []PhaseSpan {
	var spans []PhaseSpan
	for i, p := range c {
		if len(spans) > 0 && spans[len(spans)-1].Phase == p.Phase {
			spans[len(spans)-1].To = p.Strain
			spans[len(spans)-1].Last = i
			continue
		}
		spans = append(spans, PhaseSpan{Phase: p.Phase, From: p.Strain, To: p.Strain, First: i, Last: i})
	}
	return spans
}

// PhaseSpan is a run of samples sharing one phase.
type PhaseSpan struct {
	Phase DeformationPhase `json:"phase"`
	From  float64          `json:"from"`
	To    float64          `json:"to"`
	First int              `json:"first"`
	Last  int              `json:"last"`
}
