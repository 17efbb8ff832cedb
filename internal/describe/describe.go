// Package describe holds the explanatory text and display colours shown
// alongside each deformation phase.
package describe

import "github.com/talgya/yieldpoint/internal/tensile"

// Fails to compile when a phase is added or removed, so For below gets
// revisited along with it.
func _() {
	var x [1]struct{}
	_ = x[tensile.PhaseCount-7]
}

// Content is the panel text for one phase.
type Content struct {
	Phase       tensile.DeformationPhase `json:"phase"`
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Color       string                   `json:"color"`  // border/highlight colour
	Accent      string                   `json:"accent"` // curve colour for the live cursor
}

// For returns the content for phase. Unknown phases return an empty
// Content with ok=false.
func For(phase tensile.DeformationPhase) (c Content, ok bool) {
	switch phase {
	case tensile.Elastic:
		c = Content{
			Title:       "Elastic Deformation",
			Description: "The material deforms reversibly. Stress is proportional to strain (Hooke's Law). Dislocations are pinned by interstitial carbon and nitrogen atoms (Cottrell atmospheres).",
			Color:       "#00f3ff",
			Accent:      "#00f3ff",
		}
	case tensile.UpperYield:
		c = Content{
			Title:       "Upper Yield Point",
			Description: "The stress required to break dislocations free from their Cottrell atmospheres. This represents a high energy barrier for the onset of plastic flow.",
			Color:       "#facc15",
			Accent:      "#00f3ff",
		}
	case tensile.YieldDrop:
		c = Content{
			Title:       "Yield Drop",
			Description: "Once unpinned, dislocations can move at a lower stress level. The rapid multiplication of mobile dislocations causes a sudden drop in the stress required to continue deformation.",
			Color:       "#f97316",
			Accent:      "#00f3ff",
		}
	case tensile.LudersPlateau:
		c = Content{
			Title:       "Lüders Band Propagation",
			Description: "Deformation is heterogeneous. Localized bands of plastic deformation (Lüders bands) nucleate at stress concentrations and propagate along the gauge length. Stress remains roughly constant.",
			Color:       "#ff00ff",
			Accent:      "#00f3ff",
		}
	case tensile.StrainHardening:
		c = Content{
			Title:       "Strain Hardening",
			Description: "The entire gauge length has yielded. Deformation becomes uniform again. Dislocation density increases, causing them to tangle and impede each other's motion (work hardening). Stress rises to UTS.",
			Color:       "#00ff9d",
			Accent:      "#00f3ff",
		}
	case tensile.Necking:
		c = Content{
			Title:       "Necking",
			Description: "Instability sets in at the Ultimate Tensile Strength (UTS). Deformation localizes in a small region, reducing the cross-sectional area significantly. Engineering stress drops despite true stress increasing.",
			Color:       "#ef4444",
			Accent:      "#ff0000",
		}
	case tensile.Fracture:
		c = Content{
			Title:       "Fracture",
			Description: "The material separates into two pieces. In ductile materials like mild steel, this often involves void nucleation, coalescence, and a cup-and-cone fracture surface.",
			Color:       "#646464",
			Accent:      "#ff3333",
		}
	default:
		return Content{}, false
	}
	c.Phase = phase
	return c, true
}

// All returns the content of every phase in strain order.
func All() []Content {
	out := make([]Content, 0, tensile.PhaseCount)
	for _, p := range tensile.AllPhases() {
		c, _ := For(p)
		out = append(out, c)
	}
	return out
}
