package pointcloud

import (
	"fmt"
	"math"
	"os"

	"github.com/EliCDavis/vector/vector3"
	"github.com/recolude/cloudmesh/geometry"
)

// SHC0 is the normalization constant of the real 0th order spherical
// harmonic basis function.
const SHC0 = 0.28209479177387814

// SHFields are the vertex properties Gaussian splat exporters use for the DC
// spherical harmonic term of each channel.
var SHFields = []string{"f_dc_0", "f_dc_1", "f_dc_2"}

// SHToRGB converts DC coefficients to linear RGB clipped to [0, 1].
func SHToRGB(sh vector3.Float64) vector3.Float64 {
	return vector3.New(
		clamp01(0.5+SHC0*sh.X()),
		clamp01(0.5+SHC0*sh.Y()),
		clamp01(0.5+SHC0*sh.Z()),
	)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// ReadSHCoefficients returns the per point DC coefficients stored in a PLY
// file's vertex element.
func ReadSHCoefficients(path string) ([]vector3.Float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fields, err := ReadVertexProperties(f, SHFields...)
	if err != nil {
		return nil, err
	}
	out := make([]vector3.Float64, len(fields[0]))
	for i := range out {
		out[i] = vector3.New(fields[0][i], fields[1][i], fields[2][i])
	}
	return out, nil
}

// NormalizeColors makes sure the cloud carries RGB colors when its source
// file can provide them. A cloud that already has colors is returned as is.
// Otherwise the spherical harmonic DC terms of the source file are converted.
// When those are missing the cloud comes back without colors and the returned
// error explains why; callers are expected to treat that as a degraded state,
// not a failure.
func NormalizeColors(cloud *geometry.PointCloud, sourcePath string) (*geometry.PointCloud, error) {
	if cloud.HasColors() {
		return cloud, nil
	}
	sh, err := ReadSHCoefficients(sourcePath)
	if err != nil {
		return cloud, err
	}
	if len(sh) != cloud.Len() {
		return cloud, fmt.Errorf("found %d SH samples for %d points", len(sh), cloud.Len())
	}
	colors := make([]vector3.Float64, len(sh))
	for i, c := range sh {
		colors[i] = SHToRGB(c)
	}
	return cloud.WithColors(colors), nil
}
