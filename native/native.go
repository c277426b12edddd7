// Package native is the in-process geometry library behind the meshing
// pipeline: surface reconstruction primitives, quadric decimation and mesh
// writers. It knows nothing about pipeline policy; callers decide parameters.
package native

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/EliCDavis/vector/vector3"
	"github.com/recolude/cloudmesh/geometry"
	"github.com/recolude/cloudmesh/spatial"
	"github.com/unixpickle/model3d/model3d"
)

var (
	// ErrNoNormals is returned by primitives that need oriented points.
	ErrNoNormals = errors.New("point cloud has no normals")

	// ErrDegenerate is returned when the input has no volume to work in.
	ErrDegenerate = errors.New("degenerate input")
)

// Backend implements the reconstruction, decimation and writing capabilities
// the pipeline delegates to. The zero value is ready to use.
type Backend struct{}

func New() *Backend { return &Backend{} }

// PivotBall triangulates the cloud with balls of the given radii, smallest
// first. The result reuses the cloud's points as its vertices, in order, so
// vertex i is point i. Balls rest on the side the normals face; if no radius
// yields a single triangle that way, both sides are tried so unreliable normal
// fields still produce a surface.
func (b *Backend) PivotBall(cloud *geometry.PointCloud, radii []float64) (*geometry.Mesh, error) {
	if !cloud.HasNormals() {
		return nil, ErrNoNormals
	}

	sorted := append([]float64(nil), radii...)
	sort.Float64s(sorted)

	eb := newEmptyBalls(cloud.Points, cloud.Normals)
	for _, r := range sorted {
		eb.collect(r, normalSide)
	}
	if len(eb.tris) == 0 {
		for _, r := range sorted {
			eb.collect(r, eitherSide)
		}
	}

	return &geometry.Mesh{
		Vertices:  append([]vector3.Float64(nil), cloud.Points...),
		Triangles: eb.tris,
		Normals:   append([]vector3.Float64(nil), cloud.Normals...),
	}, nil
}

// AlphaShape extracts the boundary faces of the alpha complex: every triangle
// that an empty ball of radius alpha can touch from either side. Only points
// used by a face become vertices, so vertex order does not follow the cloud.
func (b *Backend) AlphaShape(cloud *geometry.PointCloud, alpha float64) (*geometry.Mesh, error) {
	if alpha <= 0 {
		return nil, fmt.Errorf("%w: alpha %v", ErrDegenerate, alpha)
	}
	eb := newEmptyBalls(cloud.Points, nil)
	eb.collect(alpha, eitherSide)

	mesh := &geometry.Mesh{
		Vertices:  cloud.Points,
		Triangles: eb.tris,
	}
	return mesh.Compact(mesh.Referenced()), nil
}

// SolveImplicit extracts the zero set of an indicator built from the oriented
// samples: a location is inside when it lies behind the tangent plane of its
// nearest sample. The indicator is sampled on a grid of 2^depth cells along
// the longest side of the cloud's bounds scaled by scale. With linearFit the
// crossing on every grid edge is refined by bisection instead of taken at the
// midpoint. The second result holds, per vertex, the distance to the nearest
// sample, a proxy for how well the vertex is supported.
func (b *Backend) SolveImplicit(cloud *geometry.PointCloud, depth int, scale float64, linearFit bool) (*geometry.Mesh, []float64, error) {
	if !cloud.HasNormals() {
		return nil, nil, ErrNoNormals
	}
	bounds := cloud.Bounds().Scaled(scale)
	extent := bounds.MaxExtent()
	if extent <= 0 || depth <= 0 {
		return nil, nil, fmt.Errorf("%w: extent %v, depth %d", ErrDegenerate, extent, depth)
	}

	// Flat clouds still need a slab of volume to sample in.
	pad := extent / math.Pow(2, float64(depth))
	solid := &indicator{
		ix:      spatial.New(cloud.Points),
		points:  cloud.Points,
		normals: cloud.Normals,
		min:     model3d.XYZ(bounds.Min.X()-pad, bounds.Min.Y()-pad, bounds.Min.Z()-pad),
		max:     model3d.XYZ(bounds.Max.X()+pad, bounds.Max.Y()+pad, bounds.Max.Z()+pad),
	}

	iters := 0
	if linearFit {
		iters = 8
	}
	surface := model3d.MarchingCubesSearch(solid, pad, iters)

	mesh := fromModel3D(surface)
	densities := make([]float64, mesh.VertexCount())
	for i, v := range mesh.Vertices {
		_, densities[i] = solid.ix.Nearest(v)
	}
	return mesh, densities, nil
}

// indicator is the solid handed to marching cubes. It is only read once
// built, so concurrent Contains calls are safe.
type indicator struct {
	ix       *spatial.Index
	points   []vector3.Float64
	normals  []vector3.Float64
	min, max model3d.Coord3D
}

func (s *indicator) Min() model3d.Coord3D { return s.min }

func (s *indicator) Max() model3d.Coord3D { return s.max }

func (s *indicator) Contains(c model3d.Coord3D) bool {
	if c.X < s.min.X || c.Y < s.min.Y || c.Z < s.min.Z ||
		c.X > s.max.X || c.Y > s.max.Y || c.Z > s.max.Z {
		return false
	}
	q := vector3.New(c.X, c.Y, c.Z)
	i, _ := s.ix.Nearest(q)
	return s.normals[i].Dot(q.Sub(s.points[i])) < 0
}

func fromModel3D(m *model3d.Mesh) *geometry.Mesh {
	out := &geometry.Mesh{}
	index := make(map[model3d.Coord3D]int)
	for _, t := range m.TriangleSlice() {
		var tri [3]int
		for k, c := range t {
			idx, ok := index[c]
			if !ok {
				idx = len(out.Vertices)
				index[c] = idx
				out.Vertices = append(out.Vertices, vector3.New(c.X, c.Y, c.Z))
			}
			tri[k] = idx
		}
		out.Triangles = append(out.Triangles, tri)
	}
	return out
}

func toModel3D(m *geometry.Mesh) *model3d.Mesh {
	out := model3d.NewMesh()
	coord := func(v vector3.Float64) model3d.Coord3D {
		return model3d.XYZ(v.X(), v.Y(), v.Z())
	}
	for i := range m.Triangles {
		a, b, c := m.Face(i)
		out.Add(&model3d.Triangle{coord(a), coord(b), coord(c)})
	}
	return out
}
