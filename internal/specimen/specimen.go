// Package specimen computes the geometry of the animated dog-bone specimen:
// how far it has stretched, how deep the neck is, and which Lüders bands
// have formed at a given strain.
package specimen

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/yieldpoint/internal/tensile"
)

// Geometry holds drawing parameters in renderer units (pixels).
type Geometry struct {
	BaseWidth     float64 `yaml:"base_width" json:"base_width"`         // gauge length at zero strain
	StretchFactor float64 `yaml:"stretch_factor" json:"stretch_factor"` // units of elongation per unit strain
	MaxPinch      float64 `yaml:"max_pinch" json:"max_pinch"`           // neck depth at fracture
	Slices        int     `yaml:"slices" json:"slices"`                 // Lüders band slots along the gauge
	FreshWindow   float64 `yaml:"fresh_window" json:"fresh_window"`     // plateau progress for which a new band glows
	Seed          int64   `yaml:"seed" json:"seed"`
}

// DefaultGeometry matches the stock renderer.
func DefaultGeometry() Geometry {
	return Geometry{
		BaseWidth:     220,
		StretchFactor: 300,
		MaxPinch:      20,
		Slices:        50,
		FreshWindow:   0.05,
		Seed:          42,
	}
}

// persistedProgress marks every band active once the plateau is over.
const persistedProgress = 2.0

// slot is the fixed, per-seed character of one band position.
type slot struct {
	threshold float64 // plateau progress at which the band appears, [0,1)
	widthVar  float64 // width multiplier, [0.8,1.2)
}

// Layout is the band arrangement for one seed. Build it once and reuse it
// for every frame so bands do not jump around between frames.
type Layout struct {
	geom  Geometry
	slots []slot
}

// NewLayout samples band thresholds and widths from two simplex noise
// fields keyed by the geometry seed.
func NewLayout(g Geometry) *Layout {
	if g.Slices < 0 {
		g.Slices = 0
	}
	thresholdNoise := opensimplex.NewNormalized(g.Seed)
	widthNoise := opensimplex.NewNormalized(g.Seed + 1)

	slots := make([]slot, g.Slices)
	for i := range slots {
		// Sample far apart so adjacent slices are not correlated.
		x := float64(i) * 7.31
		slots[i] = slot{
			threshold: halfOpen(thresholdNoise.Eval2(x, 0.5)),
			widthVar:  0.8 + halfOpen(widthNoise.Eval2(x, 1.5))*0.4,
		}
	}
	return &Layout{geom: g, slots: slots}
}

// Geometry returns the parameters the layout was built with.
func (l *Layout) Geometry() Geometry {
	return l.geom
}

// Band is one Lüders band slot in the current frame.
type Band struct {
	Index  int     `json:"index"`
	XStart float64 `json:"x_start"` // left edge, specimen centred on 0
	Width  float64 `json:"width"`
	Active bool    `json:"active"` // yielded
	Fresh  bool    `json:"fresh"`  // just formed; drawn with a glow
}

// View is everything a renderer needs to draw the specimen for one frame.
type View struct {
	Strain          float64                  `json:"strain"`
	Phase           tensile.DeformationPhase `json:"phase"`
	Width           float64                  `json:"width"`
	Elongation      float64                  `json:"elongation"`
	NeckPinch       float64                  `json:"neck_pinch"`
	Fractured       bool                     `json:"fractured"`
	PlateauProgress float64                  `json:"plateau_progress"`
	Bands           []Band                   `json:"bands"`
}

// At builds the view for strain using the model's thresholds. The phase is
// classified by the model so the geometry always agrees with the reported
// phase.
func (l *Layout) At(m *tensile.Model, strain float64) View {
	if math.IsNaN(strain) || strain < 0 {
		strain = 0
	}
	th := m.Thresholds()
	phase := m.ClassifyPhase(strain)

	elongation := strain * l.geom.StretchFactor
	width := l.geom.BaseWidth + elongation

	v := View{
		Strain:     strain,
		Phase:      phase,
		Width:      width,
		Elongation: elongation,
		Fractured:  phase == tensile.Fracture,
	}

	switch phase {
	case tensile.Necking:
		progress := (strain - th.NeckingStart) / (th.Fracture - th.NeckingStart)
		v.NeckPinch = math.Min(1, progress) * l.geom.MaxPinch
	case tensile.Fracture:
		v.NeckPinch = l.geom.MaxPinch
	}

	switch phase {
	case tensile.LudersPlateau:
		v.PlateauProgress = math.Max(0, math.Min(1, (strain-th.LowerYieldStart)/(th.PlateauEnd-th.LowerYieldStart)))
	case tensile.StrainHardening, tensile.Necking, tensile.Fracture:
		v.PlateauProgress = persistedProgress
	}

	if len(l.slots) == 0 {
		return v
	}
	pitch := width / float64(len(l.slots))
	v.Bands = make([]Band, len(l.slots))
	for i, s := range l.slots {
		active := v.PlateauProgress > s.threshold
		v.Bands[i] = Band{
			Index:  i,
			XStart: -width/2 + float64(i)*pitch,
			Width:  pitch * s.widthVar,
			Active: active,
			Fresh:  active && phase == tensile.LudersPlateau && v.PlateauProgress-s.threshold < l.geom.FreshWindow,
		}
	}
	return v
}

// YieldedFraction returns the share of band slots that are active.
func (v View) YieldedFraction() float64 {
	if len(v.Bands) == 0 {
		return 0
	}
	n := 0
	for _, b := range v.Bands {
		if b.Active {
			n++
		}
	}
	return float64(n) / float64(len(v.Bands))
}

// halfOpen maps noise output into [0,1).
func halfOpen(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x >= 1:
		return math.Nextafter(1, 0)
	default:
		return x
	}
}
