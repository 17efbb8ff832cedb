package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/talgya/yieldpoint/internal/tensile"
)

// WriteCSV writes one row per sample with a header row. Phases are written
// by key so the file round-trips through tensile.ParsePhase.
func WriteCSV(w io.Writer, curve tensile.Curve) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range curve {
		record := []string{
			fmt.Sprintf("%.8f", p.Strain),
			fmt.Sprintf("%.8f", p.Stress),
			p.Phase.Key(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
