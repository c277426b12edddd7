// Package reconstruct turns a point cloud into a raw triangle mesh with one of
// three surface reconstruction strategies.
package reconstruct

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/EliCDavis/vector/vector3"
	"github.com/recolude/cloudmesh/geometry"
	"github.com/recolude/cloudmesh/normals"
	"github.com/recolude/cloudmesh/spatial"
)

// ErrUnknownMethod is returned for method tags no strategy answers to.
var ErrUnknownMethod = errors.New("unknown reconstruction method")

type Method string

const (
	MethodImplicit  Method = "implicit"
	MethodBallPivot Method = "ball-pivot"
	MethodAlpha     Method = "alpha"
)

// Methods lists the canonical method tags.
var Methods = []Method{MethodImplicit, MethodBallPivot, MethodAlpha}

var aliases = map[string]Method{
	"implicit":   MethodImplicit,
	"poisson":    MethodImplicit,
	"ball-pivot": MethodBallPivot,
	"ball_pivot": MethodBallPivot,
	"bpa":        MethodBallPivot,
	"alpha":      MethodAlpha,
}

// ParseMethod resolves a method tag, case insensitively, to its canonical
// form.
func ParseMethod(tag string) (Method, error) {
	m, ok := aliases[strings.ToLower(strings.TrimSpace(tag))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, tag)
	}
	return m, nil
}

// Backend is the geometry library the strategies delegate to.
type Backend interface {
	// SolveImplicit fits an indicator to oriented points and extracts its
	// zero set. The second result is a per-vertex support estimate.
	SolveImplicit(cloud *geometry.PointCloud, depth int, scale float64, linearFit bool) (*geometry.Mesh, []float64, error)

	// PivotBall must return a mesh whose vertex i is point i of the cloud.
	PivotBall(cloud *geometry.PointCloud, radii []float64) (*geometry.Mesh, error)

	// AlphaShape may drop and reorder points.
	AlphaShape(cloud *geometry.PointCloud, alpha float64) (*geometry.Mesh, error)
}

// Strategy reconstructs a mesh from a cloud. A mesh with no triangles is a
// valid result; deciding whether that is fatal is up to the caller.
type Strategy interface {
	Reconstruct(cloud *geometry.PointCloud, p Params) (*geometry.Mesh, error)
}

// Implicit re-estimates normals, solves for an implicit surface and crops the
// result to the cloud's bounds. Colors carry over from each vertex's nearest
// input point.
type Implicit struct {
	Backend Backend
}

func (s Implicit) Reconstruct(cloud *geometry.PointCloud, p Params) (*geometry.Mesh, error) {
	oriented := normals.Estimate(cloud, p.ImplicitNormals)
	oriented = oriented.WithNormals(normals.OrientOutward(oriented.Points, oriented.Normals))

	mesh, _, err := s.Backend.SolveImplicit(oriented, p.Depth, p.Scale, p.LinearFit)
	if err != nil {
		return nil, fmt.Errorf("implicit solve: %w", err)
	}
	mesh = mesh.Crop(cloud.Bounds())
	if cloud.HasColors() {
		nearestColors(mesh, cloud, spatial.New(cloud.Points))
	}
	return mesh, nil
}

// BallPivot pivots balls sized from the mean point spacing. Colors carry over
// by index.
type BallPivot struct {
	Backend Backend
}

func (s BallPivot) Reconstruct(cloud *geometry.PointCloud, p Params) (*geometry.Mesh, error) {
	cloud = normals.Ensure(cloud, p.Normals)

	spacing := spatial.New(cloud.Points).MeanSpacing()
	radii := make([]float64, len(p.RadiusMultipliers))
	for i, m := range p.RadiusMultipliers {
		radii[i] = m * spacing
	}

	mesh, err := s.Backend.PivotBall(cloud, radii)
	if err != nil {
		return nil, fmt.Errorf("ball pivot: %w", err)
	}
	if cloud.HasColors() && mesh.VertexCount() == cloud.Len() {
		mesh.Colors = append([]vector3.Float64(nil), cloud.Colors...)
	}
	return mesh, nil
}

// Alpha extracts an alpha shape. Colors carry over from each vertex's
// nearest input point.
type Alpha struct {
	Backend Backend
}

func (s Alpha) Reconstruct(cloud *geometry.PointCloud, p Params) (*geometry.Mesh, error) {
	ix := spatial.New(cloud.Points)
	alpha := p.AlphaMultiplier * ix.MeanSpacing()

	mesh, err := s.Backend.AlphaShape(cloud, alpha)
	if err != nil {
		return nil, fmt.Errorf("alpha shape: %w", err)
	}
	if cloud.HasColors() {
		nearestColors(mesh, cloud, ix)
	}
	return mesh, nil
}

func nearestColors(mesh *geometry.Mesh, cloud *geometry.PointCloud, ix *spatial.Index) {
	mesh.Colors = make([]vector3.Float64, mesh.VertexCount())
	for i, v := range mesh.Vertices {
		nearest, _ := ix.Nearest(v)
		mesh.Colors[i] = cloud.Colors[nearest]
	}
}

// Dispatcher picks the strategy for a method tag and runs it with its
// parameters.
type Dispatcher struct {
	Backend Backend
	Params  Params
	Logger  *log.Logger
}

func NewDispatcher(backend Backend, p Params) *Dispatcher {
	return &Dispatcher{Backend: backend, Params: p}
}

// Strategy resolves a method tag. Unknown tags fail with ErrUnknownMethod.
func (d *Dispatcher) Strategy(tag string) (Strategy, Method, error) {
	m, err := ParseMethod(tag)
	if err != nil {
		return nil, "", err
	}
	switch m {
	case MethodImplicit:
		return Implicit{Backend: d.Backend}, m, nil
	case MethodBallPivot:
		return BallPivot{Backend: d.Backend}, m, nil
	default:
		return Alpha{Backend: d.Backend}, m, nil
	}
}

// Reconstruct resolves the method before touching the cloud, so a bad tag
// never reaches a solver.
func (d *Dispatcher) Reconstruct(cloud *geometry.PointCloud, tag string) (*geometry.Mesh, error) {
	strategy, m, err := d.Strategy(tag)
	if err != nil {
		return nil, err
	}
	d.logger().Printf("reconstructing %d points with %s", cloud.Len(), m)

	mesh, err := strategy.Reconstruct(cloud, d.Params)
	if err != nil {
		return nil, err
	}
	d.logger().Printf("%s produced %d vertices, %d triangles", m, mesh.VertexCount(), mesh.TriangleCount())
	return mesh, nil
}

func (d *Dispatcher) logger() *log.Logger {
	if d.Logger == nil {
		return log.Default()
	}
	return d.Logger
}
