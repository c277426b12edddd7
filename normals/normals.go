// Package normals estimates and orients per point surface normals.
package normals

import (
	"github.com/EliCDavis/vector/vector3"
	"github.com/recolude/cloudmesh/geometry"
	"github.com/recolude/cloudmesh/spatial"
	"gonum.org/v1/gonum/mat"
)

// Params controls the neighbourhood used to fit each tangent plane and the
// neighbourhood used to propagate a consistent orientation.
type Params struct {
	// Radius bounds the fitting neighbourhood.
	Radius float64
	// MaxNeighbors caps the fitting neighbourhood.
	MaxNeighbors int
	// OrientNeighbors is k for the k-nearest graph orientation walks.
	OrientNeighbors int
}

// DefaultParams is the neighbourhood used whenever a cloud simply lacks
// normals.
func DefaultParams() Params {
	return Params{Radius: 0.1, MaxNeighbors: 30, OrientNeighbors: 15}
}

// minFitNeighbors is the smallest neighbourhood a plane can be fitted to.
const minFitNeighbors = 3

var up = vector3.New(0., 0., 1.)

// Ensure returns the cloud unchanged when it already has normals and an
// estimated copy otherwise.
func Ensure(cloud *geometry.PointCloud, p Params) *geometry.PointCloud {
	if cloud.HasNormals() {
		return cloud
	}
	return Estimate(cloud, p)
}

// Estimate discards any normals the cloud carries, fits a tangent plane to the
// hybrid radius/k neighbourhood of every point and orients the result. When
// the radius holds fewer than three points the plane is fitted to the
// MaxNeighbors nearest points instead. The input cloud is not modified.
func Estimate(cloud *geometry.PointCloud, p Params) *geometry.PointCloud {
	ix := spatial.New(cloud.Points)
	out := make([]vector3.Float64, cloud.Len())
	for i, pt := range cloud.Points {
		hood := ix.Hybrid(pt, p.Radius, p.MaxNeighbors)
		if len(hood) < minFitNeighbors {
			hood = ix.KNearest(pt, p.MaxNeighbors)
		}
		out[i] = fitNormal(cloud.Points, hood)
	}
	Orient(ix, cloud.Points, out, p.OrientNeighbors)
	return cloud.WithNormals(out)
}

// fitNormal returns the direction of least variance of the neighbourhood.
// Neighbourhoods too small to define a plane get +Z.
func fitNormal(points []vector3.Float64, hood []spatial.Neighbor) vector3.Float64 {
	if len(hood) < minFitNeighbors {
		return up
	}

	var cx, cy, cz float64
	for _, n := range hood {
		p := points[n.Index]
		cx += p.X()
		cy += p.Y()
		cz += p.Z()
	}
	k := float64(len(hood))
	cx, cy, cz = cx/k, cy/k, cz/k

	var xx, xy, xz, yy, yz, zz float64
	for _, n := range hood {
		p := points[n.Index]
		dx, dy, dz := p.X()-cx, p.Y()-cy, p.Z()-cz
		xx += dx * dx
		xy += dx * dy
		xz += dx * dz
		yy += dy * dy
		yz += dy * dz
		zz += dz * dz
	}
	cov := mat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return up
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Eigenvalues come back in ascending order.
	n := vector3.New(vecs.At(0, 0), vecs.At(1, 0), vecs.At(2, 0))
	if n.Length() == 0 {
		return up
	}
	return n.Normalized()
}
