// Package geometry holds the point cloud and triangle mesh containers shared by
// every stage of the meshing pipeline.
package geometry

import (
	"fmt"
	"math"

	"github.com/EliCDavis/vector/vector3"
)

// PointCloud is an ordered point sample with optional per-point normals and
// colors. Colors are linear RGB with channels in [0, 1].
type PointCloud struct {
	Points  []vector3.Float64
	Normals []vector3.Float64
	Colors  []vector3.Float64
}

func (pc *PointCloud) Len() int { return len(pc.Points) }

func (pc *PointCloud) HasNormals() bool { return len(pc.Normals) > 0 }

func (pc *PointCloud) HasColors() bool { return len(pc.Colors) > 0 }

// Validate reports whether every present parallel array covers every point.
func (pc *PointCloud) Validate() error {
	if pc.HasNormals() && len(pc.Normals) != len(pc.Points) {
		return fmt.Errorf("point cloud has %d normals for %d points", len(pc.Normals), len(pc.Points))
	}
	if pc.HasColors() && len(pc.Colors) != len(pc.Points) {
		return fmt.Errorf("point cloud has %d colors for %d points", len(pc.Colors), len(pc.Points))
	}
	return nil
}

// WithNormals returns a shallow copy of the cloud carrying the given normals.
// The receiver is left untouched.
func (pc *PointCloud) WithNormals(normals []vector3.Float64) *PointCloud {
	return &PointCloud{Points: pc.Points, Normals: normals, Colors: pc.Colors}
}

// WithColors returns a shallow copy of the cloud carrying the given colors.
func (pc *PointCloud) WithColors(colors []vector3.Float64) *PointCloud {
	return &PointCloud{Points: pc.Points, Normals: pc.Normals, Colors: colors}
}

func (pc *PointCloud) Bounds() Bounds {
	return BoundsOf(pc.Points)
}

// Bounds is an axis aligned bounding box.
type Bounds struct {
	Min vector3.Float64
	Max vector3.Float64
}

// BoundsOf computes the bounding box of the points. An empty slice yields a
// zero box.
func BoundsOf(points []vector3.Float64) Bounds {
	if len(points) == 0 {
		return Bounds{Min: vector3.Zero[float64](), Max: vector3.Zero[float64]()}
	}
	minX, minY, minZ := math.Inf(1), math.Inf(1), math.Inf(1)
	maxX, maxY, maxZ := math.Inf(-1), math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X())
		minY = math.Min(minY, p.Y())
		minZ = math.Min(minZ, p.Z())
		maxX = math.Max(maxX, p.X())
		maxY = math.Max(maxY, p.Y())
		maxZ = math.Max(maxZ, p.Z())
	}
	return Bounds{
		Min: vector3.New(minX, minY, minZ),
		Max: vector3.New(maxX, maxY, maxZ),
	}
}

func (b Bounds) Size() vector3.Float64 {
	return b.Max.Sub(b.Min)
}

func (b Bounds) Center() vector3.Float64 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// MaxExtent is the length of the longest side of the box.
func (b Bounds) MaxExtent() float64 {
	s := b.Size()
	return math.Max(s.X(), math.Max(s.Y(), s.Z()))
}

// Contains is inclusive on every face.
func (b Bounds) Contains(p vector3.Float64) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() &&
		p.Y() >= b.Min.Y() && p.Y() <= b.Max.Y() &&
		p.Z() >= b.Min.Z() && p.Z() <= b.Max.Z()
}

// Scaled grows or shrinks the box about its center.
func (b Bounds) Scaled(factor float64) Bounds {
	c := b.Center()
	half := b.Size().Scale(0.5 * factor)
	return Bounds{Min: c.Sub(half), Max: c.Add(half)}
}
