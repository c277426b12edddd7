package reconstruct_test

import (
	"io"
	"log"
	"testing"

	"github.com/EliCDavis/vector/vector3"
	"github.com/recolude/cloudmesh/geometry"
	"github.com/recolude/cloudmesh/native"
	"github.com/recolude/cloudmesh/reconstruct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	calls     []string
	depth     int
	scale     float64
	linearFit bool
	radii     []float64
	alpha     float64
	implicit  *geometry.Mesh
	cloud     *geometry.PointCloud
}

func (b *recordingBackend) SolveImplicit(cloud *geometry.PointCloud, depth int, scale float64, linearFit bool) (*geometry.Mesh, []float64, error) {
	b.calls = append(b.calls, "implicit")
	b.depth, b.scale, b.linearFit, b.cloud = depth, scale, linearFit, cloud
	return b.implicit, make([]float64, b.implicit.VertexCount()), nil
}

func (b *recordingBackend) PivotBall(cloud *geometry.PointCloud, radii []float64) (*geometry.Mesh, error) {
	b.calls = append(b.calls, "ball-pivot")
	b.radii, b.cloud = radii, cloud
	return &geometry.Mesh{Vertices: cloud.Points, Triangles: [][3]int{{0, 1, 2}}}, nil
}

func (b *recordingBackend) AlphaShape(cloud *geometry.PointCloud, alpha float64) (*geometry.Mesh, error) {
	b.calls = append(b.calls, "alpha")
	b.alpha, b.cloud = alpha, cloud
	// Reversed subset, so colors can only match through a spatial lookup.
	return &geometry.Mesh{
		Vertices:  []vector3.Float64{cloud.Points[3], cloud.Points[2], cloud.Points[1]},
		Triangles: [][3]int{{0, 1, 2}},
	}, nil
}

func tetrahedron() *geometry.PointCloud {
	return &geometry.PointCloud{
		Points: []vector3.Float64{
			vector3.New(0., 0., 0.),
			vector3.New(1., 0., 0.),
			vector3.New(0., 1., 0.),
			vector3.New(0., 0., 1.),
		},
		Colors: []vector3.Float64{
			vector3.New(0.1, 0., 0.),
			vector3.New(0.2, 0., 0.),
			vector3.New(0.3, 0., 0.),
			vector3.New(0.4, 0., 0.),
		},
	}
}

func quietDispatcher(b reconstruct.Backend, p reconstruct.Params) *reconstruct.Dispatcher {
	d := reconstruct.NewDispatcher(b, p)
	d.Logger = log.New(io.Discard, "", 0)
	return d
}

func TestParseMethod(t *testing.T) {
	for tag, want := range map[string]reconstruct.Method{
		"implicit":   reconstruct.MethodImplicit,
		"Poisson":    reconstruct.MethodImplicit,
		"ball-pivot": reconstruct.MethodBallPivot,
		"bpa":        reconstruct.MethodBallPivot,
		" alpha ":    reconstruct.MethodAlpha,
	} {
		got, err := reconstruct.ParseMethod(tag)
		require.NoError(t, err, tag)
		assert.Equal(t, want, got, tag)
	}

	_, err := reconstruct.ParseMethod("spline")
	assert.ErrorIs(t, err, reconstruct.ErrUnknownMethod)
}

func TestUnknownMethodNeverReachesBackend(t *testing.T) {
	backend := &recordingBackend{}
	_, err := quietDispatcher(backend, reconstruct.DefaultParams()).Reconstruct(tetrahedron(), "spline")
	assert.ErrorIs(t, err, reconstruct.ErrUnknownMethod)
	assert.Empty(t, backend.calls)
}

func TestImplicitUsesSolverSettingsAndCrops(t *testing.T) {
	backend := &recordingBackend{implicit: &geometry.Mesh{
		Vertices: []vector3.Float64{
			vector3.New(0., 0., 0.), vector3.New(1., 0., 0.), vector3.New(0., 1., 0.),
			vector3.New(0., 0., -5.),
		},
		Triangles: [][3]int{{0, 1, 2}, {0, 1, 3}},
	}}
	cloud := tetrahedron()
	cloud.Normals = make([]vector3.Float64, cloud.Len())
	for i := range cloud.Normals {
		cloud.Normals[i] = vector3.Zero[float64]()
	}

	mesh, err := quietDispatcher(backend, reconstruct.DefaultParams()).Reconstruct(cloud, "implicit")
	require.NoError(t, err)
	assert.Equal(t, 8, backend.depth)
	assert.Equal(t, 1.1, backend.scale)
	assert.True(t, backend.linearFit)

	// Degenerate normals were replaced before the solve.
	for _, n := range backend.cloud.Normals {
		assert.InDelta(t, 1., n.Length(), 1e-9)
	}

	assert.Equal(t, 1, mesh.TriangleCount())
	assert.Equal(t, 3, mesh.VertexCount())

	// Each surviving vertex sits on a colored sample.
	require.Len(t, mesh.Colors, 3)
	assert.InDelta(t, 0.1, mesh.Colors[0].X(), 1e-12)
	assert.InDelta(t, 0.2, mesh.Colors[1].X(), 1e-12)
	assert.InDelta(t, 0.3, mesh.Colors[2].X(), 1e-12)
}

func TestBallPivotRadiiAndColors(t *testing.T) {
	backend := &recordingBackend{}
	mesh, err := quietDispatcher(backend, reconstruct.DefaultParams()).Reconstruct(tetrahedron(), "ball-pivot")
	require.NoError(t, err)
	require.Len(t, backend.radii, 3)
	assert.InDelta(t, 1., backend.radii[0], 1e-9)
	assert.InDelta(t, 2., backend.radii[1], 1e-9)
	assert.InDelta(t, 4., backend.radii[2], 1e-9)
	assert.True(t, backend.cloud.HasNormals())
	assert.Equal(t, tetrahedron().Colors, mesh.Colors)
}

func TestAlphaColorsByNearestPoint(t *testing.T) {
	backend := &recordingBackend{}
	mesh, err := quietDispatcher(backend, reconstruct.DefaultParams()).Reconstruct(tetrahedron(), "alpha")
	require.NoError(t, err)
	assert.InDelta(t, 2., backend.alpha, 1e-9)
	require.Len(t, mesh.Colors, 3)
	assert.InDelta(t, 0.4, mesh.Colors[0].X(), 1e-12)
	assert.InDelta(t, 0.3, mesh.Colors[1].X(), 1e-12)
	assert.InDelta(t, 0.2, mesh.Colors[2].X(), 1e-12)
}

func TestEveryMethodTriangulatesTetrahedron(t *testing.T) {
	params := reconstruct.DefaultParams()
	params.Depth = 5
	d := quietDispatcher(native.New(), params)

	for _, m := range reconstruct.Methods {
		t.Run(string(m), func(t *testing.T) {
			mesh, err := d.Reconstruct(tetrahedron(), string(m))
			require.NoError(t, err)
			require.NoError(t, mesh.Validate())
			assert.GreaterOrEqual(t, mesh.TriangleCount(), 1)
			assert.Len(t, mesh.Colors, mesh.VertexCount())
			for _, tri := range mesh.Triangles {
				for _, idx := range tri {
					assert.Less(t, idx, mesh.VertexCount())
				}
			}
		})
	}
}

func TestDefaultParamsValidate(t *testing.T) {
	assert.NoError(t, reconstruct.DefaultParams().Validate())

	p := reconstruct.DefaultParams()
	p.RadiusMultipliers = nil
	assert.Error(t, p.Validate())

	p = reconstruct.DefaultParams()
	p.Scale = 0.5
	assert.Error(t, p.Validate())
}
