package tensile

import "sort"

// State is the resolved reading for one strain value during playback.
type State struct {
	Strain float64          `json:"strain"` // clamped to [0, fracture]
	Stress float64          `json:"stress"` // MPa, quantized to the curve
	Phase  DeformationPhase `json:"phase"`  // exact at Strain
}

// QueryState resolves strain against curve using the default model.
func QueryState(curve Curve, strain float64) State {
	return Default.Query(curve, strain)
}

// Query clamps strain into [0, fracture] and reads stress from the first
// sample at or above it (the last sample if none is). Phase is classified
// from the clamped strain itself rather than taken from the sample, so phase
// changes land exactly on their thresholds while stress follows the plotted
// curve.
func (m *Model) Query(curve Curve, strain float64) State {
	clamped := sanitize(strain)
	if clamped > m.thresholds.Fracture {
		clamped = m.thresholds.Fracture
	}

	var stress float64
	switch i := sort.Search(len(curve), func(i int) bool { return curve[i].Strain >= clamped }); {
	case len(curve) == 0:
		stress = m.StressAt(clamped)
	case i < len(curve):
		stress = curve[i].Stress
	default:
		stress = curve[len(curve)-1].Stress
	}

	return State{
		Strain: clamped,
		Stress: stress,
		Phase:  m.ClassifyPhase(clamped),
	}
}
