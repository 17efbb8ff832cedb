package tensile

import (
	"fmt"
	"strings"
)

// DeformationPhase labels the state of the specimen at a given strain.
// Values are ordered: a larger strain never maps to a smaller phase.
type DeformationPhase uint8

const (
	Elastic DeformationPhase = iota
	UpperYield
	YieldDrop
	LudersPlateau
	StrainHardening
	Necking
	Fracture
)

// PhaseCount is the number of deformation phases.
const PhaseCount = 7

var phaseKeys = [PhaseCount]string{
	Elastic:         "ELASTIC",
	UpperYield:      "UPPER_YIELD",
	YieldDrop:       "YIELD_DROP",
	LudersPlateau:   "LUDERS_PLATEAU",
	StrainHardening: "STRAIN_HARDENING",
	Necking:         "NECKING",
	Fracture:        "FRACTURE",
}

var phaseNames = [PhaseCount]string{
	Elastic:         "Elastic Region",
	UpperYield:      "Upper Yield Point",
	YieldDrop:       "Yield Drop",
	LudersPlateau:   "Lüders Plateau",
	StrainHardening: "Strain Hardening",
	Necking:         "Necking",
	Fracture:        "Fracture",
}

// AllPhases returns every phase in strain order.
func AllPhases() []DeformationPhase {
	out := make([]DeformationPhase, PhaseCount)
	for i := range out {
		out[i] = DeformationPhase(i)
	}
	return out
}

// Valid reports whether p is one of the defined phases.
func (p DeformationPhase) Valid() bool {
	return int(p) < PhaseCount
}

// String returns the display name, e.g. "Lüders Plateau".
func (p DeformationPhase) String() string {
	if !p.Valid() {
		return fmt.Sprintf("DeformationPhase(%d)", p)
	}
	return phaseNames[p]
}

// Key returns the stable identifier, e.g. "LUDERS_PLATEAU".
func (p DeformationPhase) Key() string {
	if !p.Valid() {
		return fmt.Sprintf("PHASE_%d", p)
	}
	return phaseKeys[p]
}

// ParsePhase accepts either a key ("NECKING") or a display name ("Necking"),
// case-insensitively.
func ParsePhase(s string) (DeformationPhase, error) {
	s = strings.TrimSpace(s)
	for i := 0; i < PhaseCount; i++ {
		if strings.EqualFold(s, phaseKeys[i]) || strings.EqualFold(s, phaseNames[i]) {
			return DeformationPhase(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown phase %q", ErrInvalidArgument, s)
}

// MarshalText encodes the phase as its key.
func (p DeformationPhase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: phase %d out of range", ErrInvalidArgument, p)
	}
	return []byte(phaseKeys[p]), nil
}

// UnmarshalText decodes a key or display name.
func (p *DeformationPhase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
