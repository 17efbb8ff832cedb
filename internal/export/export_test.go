package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/talgya/yieldpoint/internal/tensile"
)

func smallCurve(t *testing.T) tensile.Curve {
	t.Helper()
	c, err := tensile.GenerateCurve(10)
	require.NoError(t, err)
	return c
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"csv":    CSV,
		".CSV":   CSV,
		"xlsx":   XLSX,
		" Excel": XLSX,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, ".csv", CSV.Extension())
	assert.Contains(t, CSV.ContentType(), "text/csv")
	assert.Contains(t, XLSX.ContentType(), "spreadsheetml")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, smallCurve(t)))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 12)

	assert.Equal(t, []string{"strain", "stress_mpa", "phase"}, rows[0])
	assert.Equal(t, []string{"0.00000000", "0.00000000", "ELASTIC"}, rows[1])
	assert.Equal(t, []string{"0.16000000", "0.00000000", "FRACTURE"}, rows[11])

	for _, r := range rows[1:] {
		_, err := tensile.ParsePhase(r[2])
		assert.NoError(t, err)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, XLSX, tensile.Default, smallCurve(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{CurveSheet, MaterialSheet}, f.GetSheetList())

	rows, err := f.GetRows(CurveSheet)
	require.NoError(t, err)
	require.Len(t, rows, 12)
	assert.Equal(t, []string{"strain", "stress_mpa", "phase"}, rows[0])
	assert.Equal(t, "ELASTIC", rows[1][2])
	assert.Equal(t, "FRACTURE", rows[11][2])

	mat, err := f.GetRows(MaterialSheet)
	require.NoError(t, err)
	require.Len(t, mat, 12)
	assert.Equal(t, []string{"name", "Mild Steel"}, mat[0])
	assert.Equal(t, "fracture", mat[11][0])
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Format("pdf"), tensile.Default, smallCurve(t))
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.Zero(t, buf.Len())
}

func TestStoreSaveRun(t *testing.T) {
	s, err := OpenStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	curve := smallCurve(t)
	run, err := s.SaveRun(context.Background(), tensile.Default, 10, tensile.DefaultOvershoot, curve)
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.Equal(t, 11, run.Points)
	assert.Equal(t, "Mild Steel", run.Material)

	var phases []string
	require.NoError(t, s.conn.Select(&phases, "SELECT phase FROM points WHERE run_id = ? ORDER BY idx", run.ID))
	require.Len(t, phases, len(curve))
	for i, p := range curve {
		assert.Equal(t, p.Phase.Key(), phases[i])
	}

	var resolution int
	require.NoError(t, s.conn.Get(&resolution, "SELECT resolution FROM runs WHERE id = ?", run.ID))
	assert.Equal(t, 10, resolution)

	second, err := s.SaveRun(context.Background(), tensile.Default, 10, tensile.DefaultOvershoot, curve)
	require.NoError(t, err)
	assert.NotEqual(t, run.ID, second.ID)

	var runs int
	require.NoError(t, s.conn.Get(&runs, "SELECT COUNT(*) FROM runs"))
	assert.Equal(t, 2, runs)
}
