package normals

import (
	"math"
	"math/rand"
	"testing"

	"github.com/EliCDavis/vector/vector3"
	"github.com/recolude/cloudmesh/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jitteredPlane(n int, rng *rand.Rand) []vector3.Float64 {
	pts := make([]vector3.Float64, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x := (float64(i) + 0.3*rng.Float64()) / float64(n)
			y := (float64(j) + 0.3*rng.Float64()) / float64(n)
			pts = append(pts, vector3.New(x, y, 0))
		}
	}
	return pts
}

func fibonacciSphere(n int) []vector3.Float64 {
	pts := make([]vector3.Float64, n)
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := range pts {
		y := 1 - 2*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - y*y)
		theta := golden * float64(i)
		pts[i] = vector3.New(r*math.Cos(theta), y, r*math.Sin(theta))
	}
	return pts
}

func TestEstimatePlaneNormalsPointUp(t *testing.T) {
	cloud := &geometry.PointCloud{Points: jitteredPlane(20, rand.New(rand.NewSource(1)))}
	out := Estimate(cloud, DefaultParams())
	require.NoError(t, out.Validate())
	require.True(t, out.HasNormals())
	assert.False(t, cloud.HasNormals())
	for _, n := range out.Normals {
		assert.InDelta(t, 1., n.Length(), 1e-9)
		assert.Greater(t, n.Z(), 0.99)
	}
}

func TestEstimateSphereIsConsistent(t *testing.T) {
	cloud := &geometry.PointCloud{Points: fibonacciSphere(600)}
	out := Estimate(cloud, Params{Radius: 0.3, MaxNeighbors: 20, OrientNeighbors: 10})
	oriented := OrientOutward(out.Points, out.Normals)

	agree := 0
	for i, p := range out.Points {
		if oriented[i].Dot(p) > 0.8 {
			agree++
		}
	}
	assert.GreaterOrEqual(t, float64(agree)/float64(len(out.Points)), 0.98)
}

func TestEnsureKeepsExistingNormals(t *testing.T) {
	cloud := &geometry.PointCloud{
		Points:  []vector3.Float64{vector3.New(0., 0., 0.)},
		Normals: []vector3.Float64{vector3.New(0., 0., 0.)},
	}
	assert.Same(t, cloud, Ensure(cloud, DefaultParams()))
}

func TestEstimateForcesReestimation(t *testing.T) {
	pts := jitteredPlane(10, rand.New(rand.NewSource(3)))
	zeros := make([]vector3.Float64, len(pts))
	for i := range zeros {
		zeros[i] = vector3.Zero[float64]()
	}
	cloud := &geometry.PointCloud{Points: pts, Normals: zeros}
	out := Estimate(cloud, Params{Radius: 0.05, MaxNeighbors: 50, OrientNeighbors: 30})
	for _, n := range out.Normals {
		assert.InDelta(t, 1., n.Length(), 1e-9)
	}
}

func TestEstimateSparseFallsBackToNearest(t *testing.T) {
	cloud := &geometry.PointCloud{Points: []vector3.Float64{
		vector3.New(0., 0., 0.),
		vector3.New(1., 0., 0.),
		vector3.New(0., 1., 0.),
		vector3.New(0., 0., 1.),
	}}
	out := Estimate(cloud, DefaultParams())
	for _, n := range out.Normals {
		assert.InDelta(t, 1., n.Length(), 1e-9)
	}
}

func TestOrientOutwardFlipsInwardField(t *testing.T) {
	pts := fibonacciSphere(50)
	inward := make([]vector3.Float64, len(pts))
	for i, p := range pts {
		inward[i] = p.Scale(-1)
	}
	out := OrientOutward(pts, inward)
	for i, p := range pts {
		assert.InDelta(t, 1., out[i].Dot(p), 1e-9)
	}
	assert.InDelta(t, -1., inward[0].Dot(pts[0]), 1e-9, "input must not be mutated")
}
