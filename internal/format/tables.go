package format

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/talgya/yieldpoint/internal/tensile"
)

// CurveTable lists every nth sample of curve. The last sample is always
// included so the fracture tail shows up.
func CurveTable(m Mode, curve tensile.Curve, every int) *Table {
	if every < 1 {
		every = 1
	}
	t := NewTable(m)
	t.Header("#", "Strain", "Stress (MPa)", "Phase")
	for i, p := range curve {
		if i%every != 0 && i != len(curve)-1 {
			continue
		}
		t.Row(i, Strain(p.Strain), Stress(p.Stress), p.Phase.String())
	}
	t.Align(AlignRight, 1, 2, 3)
	return t
}

// PhaseTable lists each phase with the strain interval it covers.
func PhaseTable(mode Mode, model *tensile.Model) *Table {
	th := model.Thresholds()
	bounds := []float64{0, th.ElasticLimit, th.UpperYield, th.LowerYieldStart, th.PlateauEnd, th.NeckingStart, th.Fracture}

	t := NewTable(mode)
	t.Header("Key", "Phase", "From", "To")
	for i, p := range tensile.AllPhases() {
		to := "∞"
		if i+1 < len(bounds) {
			to = Strain(bounds[i+1])
		}
		t.Row(p.Key(), p.String(), Strain(bounds[i]), to)
	}
	t.Align(AlignRight, 3, 4)
	return t
}

// StateTable renders playback readings, one per row.
func StateTable(m Mode, states ...tensile.State) *Table {
	t := NewTable(m)
	t.Header("Strain", "Stress (MPa)", "Phase")
	for _, s := range states {
		t.Row(Strain(s.Strain), Stress(s.Stress), s.Phase.String())
	}
	return t
}

// Strain formats a strain value to five decimals.
func Strain(v float64) string {
	return fmt.Sprintf("%.5f", v)
}

// Stress formats a stress value in MPa to one decimal.
func Stress(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// Bytes formats a byte count for humans ("12 kB").
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Count formats an integer with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}
