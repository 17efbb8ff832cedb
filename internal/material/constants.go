// Package material provides the constants of the simulated specimen.
// Every stress value is engineering stress in MPa; every strain is dimensionless.
package material

// Mild steel stress constants.
const (
	// YoungsModulus is the slope of the elastic line (Hooke's law).
	YoungsModulus = 200000.0

	// UpperYieldStress is the peak reached when dislocations break free of
	// their Cottrell atmospheres.
	UpperYieldStress = 320.0

	// LowerYieldStress is the level the Lüders plateau oscillates around.
	LowerYieldStress = 280.0

	// UltimateTensileStrength is the maximum engineering stress, reached at
	// the onset of necking.
	UltimateTensileStrength = 420.0

	// FractureStress is the engineering stress just before separation.
	FractureStress = 300.0
)

// Tuned strain boundaries. These shape the curve; they are not measured.
const (
	// UpperYieldStrain ends the short upper-yield spike.
	UpperYieldStrain = 0.0018

	// LowerYieldStartStrain is where the yield drop finishes.
	LowerYieldStartStrain = 0.0022

	// PlateauEndStrain ends Lüders band propagation.
	PlateauEndStrain = 0.07

	// NeckingStartStrain is the strain at UTS.
	NeckingStartStrain = 0.12

	// FractureStrain is the point of failure.
	FractureStrain = 0.15
)
