// Package tensile maps strain to stress and deformation phase for a ductile
// specimen under uniaxial tension, and samples that mapping into a curve.
//
// Everything here is a pure function of strain. A Model is immutable after
// construction and safe for concurrent use.
package tensile

import (
	"math"

	"github.com/talgya/yieldpoint/internal/material"
)

// Lüders plateau serration terms.
const (
	serrationFreqA = 2500.0
	serrationFreqB = 9000.0
	serrationAmp   = 1.5
)

// PhaseThresholds are the strain boundaries between phases.
// They are strictly increasing in declaration order.
type PhaseThresholds struct {
	ElasticLimit    float64 `json:"elastic_limit"`
	UpperYield      float64 `json:"upper_yield"`
	LowerYieldStart float64 `json:"lower_yield_start"`
	PlateauEnd      float64 `json:"plateau_end"`
	NeckingStart    float64 `json:"necking_start"`
	Fracture        float64 `json:"fracture"`
}

// Validate asserts the ordering invariant. Strict ordering also rules out
// the zero denominators of the interpolated segments.
func (t PhaseThresholds) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"elastic_limit", t.ElasticLimit},
		{"upper_yield", t.UpperYield},
		{"lower_yield_start", t.LowerYieldStart},
		{"plateau_end", t.PlateauEnd},
		{"necking_start", t.NeckingStart},
		{"fracture", t.Fracture},
	}

	prev := 0.0
	for i, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &ConfigurationError{Field: f.name, Value: f.value, Bound: prev, Reason: "is not finite"}
		}
		if f.value <= prev {
			reason := "must be greater than the previous threshold"
			if i == 0 {
				reason = "must be positive"
			}
			return &ConfigurationError{Field: f.name, Value: f.value, Bound: prev, Reason: reason}
		}
		prev = f.value
	}
	return nil
}

// Model holds one material and its derived thresholds.
type Model struct {
	props      material.Properties
	thresholds PhaseThresholds
}

// NewModel derives thresholds from p and checks them. Any failure is a
// *ConfigurationError wrapping ErrConfiguration.
func NewModel(p material.Properties) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	t := PhaseThresholds{
		ElasticLimit:    p.UpperYieldStress / p.YoungsModulus,
		UpperYield:      p.UpperYieldStrain,
		LowerYieldStart: p.LowerYieldStartStrain,
		PlateauEnd:      p.PlateauEndStrain,
		NeckingStart:    p.NeckingStartStrain,
		Fracture:        p.FractureStrain,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Model{props: p, thresholds: t}, nil
}

// MustNewModel is NewModel for constants known at compile time.
func MustNewModel(p material.Properties) *Model {
	m, err := NewModel(p)
	if err != nil {
		panic(err)
	}
	return m
}

// Default is the mild steel model.
var Default = MustNewModel(material.MildSteel())

// DeriveThresholds returns the thresholds of the default model.
func DeriveThresholds() PhaseThresholds {
	return Default.thresholds
}

// Thresholds returns the model's strain boundaries.
func (m *Model) Thresholds() PhaseThresholds {
	return m.thresholds
}

// Material returns the constants the model was built from.
func (m *Model) Material() material.Properties {
	return m.props
}

// ClassifyPhase returns the phase at strain. Every boundary is inclusive on
// its upper side except fracture: strain equal to the fracture threshold is
// already Fracture.
func (m *Model) ClassifyPhase(strain float64) DeformationPhase {
	s := sanitize(strain)
	t := m.thresholds
	switch {
	case s <= t.ElasticLimit:
		return Elastic
	case s <= t.UpperYield:
		return UpperYield
	case s <= t.LowerYieldStart:
		return YieldDrop
	case s <= t.PlateauEnd:
		return LudersPlateau
	case s <= t.NeckingStart:
		return StrainHardening
	case s < t.Fracture:
		return Necking
	default:
		return Fracture
	}
}

// StressAt returns the engineering stress in MPa at strain.
func (m *Model) StressAt(strain float64) float64 {
	s := sanitize(strain)
	t := m.thresholds
	p := m.props

	switch m.ClassifyPhase(s) {
	case Elastic:
		return s * p.YoungsModulus
	case UpperYield:
		return p.UpperYieldStress
	case YieldDrop:
		u := (s - t.UpperYield) / (t.LowerYieldStart - t.UpperYield)
		return p.UpperYieldStress - (p.UpperYieldStress-p.LowerYieldStress)*u
	case LudersPlateau:
		return p.LowerYieldStress + math.Sin(s*serrationFreqA)*serrationAmp + math.Cos(s*serrationFreqB)*serrationAmp
	case StrainHardening:
		u := (s - t.PlateauEnd) / (t.NeckingStart - t.PlateauEnd)
		return p.LowerYieldStress + (p.UltimateTensileStrength-p.LowerYieldStress)*math.Pow(u, 0.5)
	case Necking:
		u := (s - t.NeckingStart) / (t.Fracture - t.NeckingStart)
		return p.UltimateTensileStrength - (p.UltimateTensileStrength-p.FractureStress)*(u*u)
	default:
		return 0
	}
}

// ClassifyPhase classifies strain with the default model.
func ClassifyPhase(strain float64) DeformationPhase {
	return Default.ClassifyPhase(strain)
}

// StressAt evaluates the default model.
func StressAt(strain float64) float64 {
	return Default.StressAt(strain)
}

// sanitize clamps negative and NaN strain to zero. +Inf passes through and
// lands in Fracture.
func sanitize(strain float64) float64 {
	if math.IsNaN(strain) || strain < 0 {
		return 0
	}
	return strain
}
