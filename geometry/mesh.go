package geometry

import (
	"fmt"

	"github.com/EliCDavis/vector/vector3"
)

// Mesh is an indexed triangle mesh. Colors and Normals are optional per-vertex
// arrays; when present they hold one entry per vertex.
type Mesh struct {
	Vertices  []vector3.Float64
	Triangles [][3]int
	Colors    []vector3.Float64
	Normals   []vector3.Float64
}

func (m *Mesh) VertexCount() int { return len(m.Vertices) }

func (m *Mesh) TriangleCount() int { return len(m.Triangles) }

func (m *Mesh) HasColors() bool { return len(m.Colors) > 0 }

func (m *Mesh) HasNormals() bool { return len(m.Normals) > 0 }

// Validate checks the index and parallel array invariants.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for i, tri := range m.Triangles {
		for _, idx := range tri {
			if idx < 0 || idx >= n {
				return fmt.Errorf("triangle %d references vertex %d, mesh has %d vertices", i, idx, n)
			}
		}
	}
	if m.HasColors() && len(m.Colors) != n {
		return fmt.Errorf("mesh has %d colors for %d vertices", len(m.Colors), n)
	}
	if m.HasNormals() && len(m.Normals) != n {
		return fmt.Errorf("mesh has %d normals for %d vertices", len(m.Normals), n)
	}
	return nil
}

// Clone deep copies the mesh.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{
		Vertices:  append([]vector3.Float64(nil), m.Vertices...),
		Triangles: append([][3]int(nil), m.Triangles...),
	}
	if m.HasColors() {
		out.Colors = append([]vector3.Float64(nil), m.Colors...)
	}
	if m.HasNormals() {
		out.Normals = append([]vector3.Float64(nil), m.Normals...)
	}
	return out
}

func (m *Mesh) Bounds() Bounds {
	return BoundsOf(m.Vertices)
}

// Translated returns a copy of the mesh moved by offset.
func (m *Mesh) Translated(offset vector3.Float64) *Mesh {
	out := m.Clone()
	for i, v := range out.Vertices {
		out.Vertices[i] = v.Add(offset)
	}
	return out
}

// Face returns the three corners of triangle i.
func (m *Mesh) Face(i int) (a, b, c vector3.Float64) {
	t := m.Triangles[i]
	return m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
}

// FaceNormal is the unnormalized normal of triangle i; its length is twice the
// triangle area.
func (m *Mesh) FaceNormal(i int) vector3.Float64 {
	a, b, c := m.Face(i)
	return b.Sub(a).Cross(c.Sub(a))
}

// Crop keeps the vertices inside bounds and the triangles whose three corners
// all survive.
func (m *Mesh) Crop(bounds Bounds) *Mesh {
	keep := make([]bool, len(m.Vertices))
	for i, v := range m.Vertices {
		keep[i] = bounds.Contains(v)
	}
	tris := make([][3]int, 0, len(m.Triangles))
	for _, t := range m.Triangles {
		if keep[t[0]] && keep[t[1]] && keep[t[2]] {
			tris = append(tris, t)
		}
	}
	return m.withTriangles(tris).Compact(keep)
}

func (m *Mesh) withTriangles(tris [][3]int) *Mesh {
	return &Mesh{Vertices: m.Vertices, Triangles: tris, Colors: m.Colors, Normals: m.Normals}
}

// Compact drops every vertex whose keep flag is false and remaps the
// triangles. Triangles must not reference dropped vertices.
func (m *Mesh) Compact(keep []bool) *Mesh {
	remap := make([]int, len(m.Vertices))
	out := &Mesh{Triangles: make([][3]int, len(m.Triangles))}
	for i, v := range m.Vertices {
		if !keep[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(out.Vertices)
		out.Vertices = append(out.Vertices, v)
		if m.HasColors() {
			out.Colors = append(out.Colors, m.Colors[i])
		}
		if m.HasNormals() {
			out.Normals = append(out.Normals, m.Normals[i])
		}
	}
	for i, t := range m.Triangles {
		out.Triangles[i] = [3]int{remap[t[0]], remap[t[1]], remap[t[2]]}
	}
	return out
}

// Referenced flags every vertex used by at least one triangle.
func (m *Mesh) Referenced() []bool {
	used := make([]bool, len(m.Vertices))
	for _, t := range m.Triangles {
		used[t[0]] = true
		used[t[1]] = true
		used[t[2]] = true
	}
	return used
}

// WithVertexNormals returns a copy with area weighted per-vertex normals.
// Vertices touched by no triangle (or only by zero area ones) get a zero
// normal.
func (m *Mesh) WithVertexNormals() *Mesh {
	out := m.Clone()
	acc := make([]vector3.Float64, len(m.Vertices))
	for i := range acc {
		acc[i] = vector3.Zero[float64]()
	}
	for i, t := range m.Triangles {
		n := m.FaceNormal(i)
		for _, idx := range t {
			acc[idx] = acc[idx].Add(n)
		}
	}
	for i, n := range acc {
		if n.Length() > 0 {
			acc[i] = n.Normalized()
		}
	}
	out.Normals = acc
	return out
}
