package reconstruct

import (
	"fmt"

	"github.com/recolude/cloudmesh/normals"
)

// Params holds every numeric constant the strategies use. DefaultParams
// documents the values conversions run with unless a tuning file says
// otherwise.
type Params struct {
	// Normals is the estimator used when a cloud lacks normals.
	Normals normals.Params

	// ImplicitNormals is the tighter estimator the implicit path always
	// re-runs, whatever normals the cloud arrived with.
	ImplicitNormals normals.Params

	// Depth is the implicit solver's grid depth: 2^Depth cells span the
	// longest side of the scaled bounds.
	Depth int

	// Scale grows the cloud's bounding volume before the implicit solve.
	Scale float64

	// LinearFit refines implicit surface crossings instead of taking grid
	// midpoints.
	LinearFit bool

	// RadiusMultipliers scale the mean point spacing into ball-pivot radii.
	RadiusMultipliers []float64

	// AlphaMultiplier scales the mean point spacing into alpha.
	AlphaMultiplier float64
}

func DefaultParams() Params {
	return Params{
		Normals:           normals.DefaultParams(),
		ImplicitNormals:   normals.Params{Radius: 0.05, MaxNeighbors: 50, OrientNeighbors: 30},
		Depth:             8,
		Scale:             1.1,
		LinearFit:         true,
		RadiusMultipliers: []float64{1, 2, 4},
		AlphaMultiplier:   2,
	}
}

// Validate rejects parameter sets no strategy can run with.
func (p Params) Validate() error {
	if p.Depth <= 0 {
		return fmt.Errorf("depth must be positive, got %d", p.Depth)
	}
	if p.Scale < 1 {
		return fmt.Errorf("scale must be at least 1, got %v", p.Scale)
	}
	if len(p.RadiusMultipliers) == 0 {
		return fmt.Errorf("at least one ball radius multiplier is required")
	}
	for _, m := range p.RadiusMultipliers {
		if m <= 0 {
			return fmt.Errorf("ball radius multipliers must be positive, got %v", m)
		}
	}
	if p.AlphaMultiplier <= 0 {
		return fmt.Errorf("alpha multiplier must be positive, got %v", p.AlphaMultiplier)
	}
	for name, np := range map[string]normals.Params{"normals": p.Normals, "implicit normals": p.ImplicitNormals} {
		if np.Radius <= 0 || np.MaxNeighbors <= 0 || np.OrientNeighbors <= 0 {
			return fmt.Errorf("%s: radius and neighbour counts must be positive", name)
		}
	}
	return nil
}
