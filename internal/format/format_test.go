package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/yieldpoint/internal/tensile"
)

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ASCII, "table": ASCII, "MD": Markdown, "csv": CSV} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("html")
	assert.Error(t, err)
}

func TestASCIITable(t *testing.T) {
	tb := NewTable(ASCII)
	tb.Header("Strain", "Phase")
	tb.Row("0.00100", "Elastic Region")
	out := tb.String()

	assert.Contains(t, out, "STRAIN")
	assert.Contains(t, out, "Elastic Region")
	assert.Contains(t, out, "───")
	assert.Equal(t, 1, tb.Len())
}

func TestMarkdownTable(t *testing.T) {
	tb := NewTable(Markdown)
	tb.Header("Key", "Phase")
	tb.Row("NECKING", "Necking")
	out := tb.String()

	assert.Contains(t, out, "| Key")
	assert.Contains(t, out, "---")
	assert.Contains(t, out, "| NECKING")
}

func TestCurveTableKeepsLastSample(t *testing.T) {
	c, err := tensile.GenerateCurve(10)
	require.NoError(t, err)

	tb := CurveTable(CSV, c, 3)
	assert.Equal(t, 5, tb.Len()) // 0, 3, 6, 9, 10

	lines := strings.Split(strings.TrimSpace(tb.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "10,0.16000,0.0,Fracture", lines[5])
}

func TestPhaseTable(t *testing.T) {
	out := PhaseTable(CSV, tensile.Default).String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 8)

	assert.Equal(t, "ELASTIC,Elastic Region,0.00000,0.00160", lines[1])
	assert.Equal(t, "FRACTURE,Fracture,0.15000,∞", lines[7])
}

func TestStateTable(t *testing.T) {
	out := StateTable(CSV, tensile.State{Strain: 0.001, Stress: 200, Phase: tensile.Elastic}).String()
	assert.Contains(t, out, "0.00100,200.0,Elastic Region")
}

func TestHumanHelpers(t *testing.T) {
	assert.Equal(t, "1.5 kB", Bytes(1500))
	assert.Equal(t, "0 B", Bytes(-4))
	assert.Equal(t, "12,345", Count(12345))
}
