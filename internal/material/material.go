package material

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidProperties is returned by Validate for unusable constants.
var ErrInvalidProperties = errors.New("material: invalid properties")

// Properties holds the material constants and tuned strain boundaries
// a tensile model is derived from.
type Properties struct {
	Name string `json:"name" yaml:"name"`

	YoungsModulus           float64 `json:"youngs_modulus" yaml:"youngs_modulus"`                       // MPa
	UpperYieldStress        float64 `json:"upper_yield_stress" yaml:"upper_yield_stress"`               // MPa
	LowerYieldStress        float64 `json:"lower_yield_stress" yaml:"lower_yield_stress"`               // MPa
	UltimateTensileStrength float64 `json:"ultimate_tensile_strength" yaml:"ultimate_tensile_strength"` // MPa
	FractureStress          float64 `json:"fracture_stress" yaml:"fracture_stress"`                     // MPa

	UpperYieldStrain      float64 `json:"upper_yield_strain" yaml:"upper_yield_strain"`
	LowerYieldStartStrain float64 `json:"lower_yield_start_strain" yaml:"lower_yield_start_strain"`
	PlateauEndStrain      float64 `json:"plateau_end_strain" yaml:"plateau_end_strain"`
	NeckingStartStrain    float64 `json:"necking_start_strain" yaml:"necking_start_strain"`
	FractureStrain        float64 `json:"fracture_strain" yaml:"fracture_strain"`
}

// MildSteel returns the default specimen.
func MildSteel() Properties {
	return Properties{
		Name:                    "Mild Steel",
		YoungsModulus:           YoungsModulus,
		UpperYieldStress:        UpperYieldStress,
		LowerYieldStress:        LowerYieldStress,
		UltimateTensileStrength: UltimateTensileStrength,
		FractureStress:          FractureStress,
		UpperYieldStrain:        UpperYieldStrain,
		LowerYieldStartStrain:   LowerYieldStartStrain,
		PlateauEndStrain:        PlateauEndStrain,
		NeckingStartStrain:      NeckingStartStrain,
		FractureStrain:          FractureStrain,
	}
}

// Validate checks that every constant is finite and the stresses and
// modulus are positive. Strain ordering is checked when thresholds are derived.
func (p Properties) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"youngs_modulus", p.YoungsModulus},
		{"upper_yield_stress", p.UpperYieldStress},
		{"lower_yield_stress", p.LowerYieldStress},
		{"ultimate_tensile_strength", p.UltimateTensileStrength},
		{"fracture_stress", p.FractureStress},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) || c.value <= 0 {
			return fmt.Errorf("%w: %s must be a positive finite number, got %g", ErrInvalidProperties, c.name, c.value)
		}
	}

	strains := []float64{
		p.UpperYieldStrain, p.LowerYieldStartStrain, p.PlateauEndStrain,
		p.NeckingStartStrain, p.FractureStrain,
	}
	for _, s := range strains {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("%w: strain boundary %g is not finite", ErrInvalidProperties, s)
		}
	}
	return nil
}
