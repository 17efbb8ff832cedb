package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/talgya/yieldpoint/internal/tensile"
)

// Sheet names in the workbook.
const (
	CurveSheet    = "Curve"
	MaterialSheet = "Material"
)

// WriteXLSX writes a workbook with the sampled curve on one sheet and the
// material constants and thresholds on another.
func WriteXLSX(w io.Writer, m *tensile.Model, curve tensile.Curve) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", CurveSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(CurveSheet)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}
	if err := sw.SetRow("A1", []interface{}{header[0], header[1], header[2]}); err != nil {
		return err
	}
	for i, p := range curve {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, []interface{}{p.Strain, p.Stress, p.Phase.Key()}); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush curve sheet: %w", err)
	}

	if err := writeMaterialSheet(f, m); err != nil {
		return err
	}
	return f.Write(w)
}

func writeMaterialSheet(f *excelize.File, m *tensile.Model) error {
	if _, err := f.NewSheet(MaterialSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	p := m.Material()
	th := m.Thresholds()
	rows := [][]interface{}{
		{"name", p.Name},
		{"youngs_modulus_mpa", p.YoungsModulus},
		{"upper_yield_stress_mpa", p.UpperYieldStress},
		{"lower_yield_stress_mpa", p.LowerYieldStress},
		{"ultimate_tensile_strength_mpa", p.UltimateTensileStrength},
		{"fracture_stress_mpa", p.FractureStress},
		{"elastic_limit", th.ElasticLimit},
		{"upper_yield", th.UpperYield},
		{"lower_yield_start", th.LowerYieldStart},
		{"plateau_end", th.PlateauEnd},
		{"necking_start", th.NeckingStart},
		{"fracture", th.Fracture},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(MaterialSheet, cell, &row); err != nil {
			return fmt.Errorf("write material row: %w", err)
		}
	}
	return nil
}
