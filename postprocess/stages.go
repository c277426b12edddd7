package postprocess

import (
	"sort"

	"github.com/EliCDavis/vector/vector3"
	"github.com/recolude/cloudmesh/geometry"
)

// Cleanup merges vertices at identical positions, then drops repeated
// triangles, degenerate triangles and finally vertices no triangle uses.
// Each removal only feeds the ones after it, so a single pass reaches the
// fixed point.
func Cleanup(m *geometry.Mesh) *geometry.Mesh {
	out := mergeDuplicateVertices(m)
	out.Triangles = dropDuplicateTriangles(out.Triangles)
	out.Triangles = dropDegenerateTriangles(out, out.Triangles)
	return out.Compact(out.Referenced())
}

// mergeDuplicateVertices keeps the first of every group of vertices sharing a
// position, along with its color and normal.
func mergeDuplicateVertices(m *geometry.Mesh) *geometry.Mesh {
	first := make(map[vector3.Float64]int, m.VertexCount())
	remap := make([]int, m.VertexCount())
	out := &geometry.Mesh{}
	for i, v := range m.Vertices {
		if j, ok := first[v]; ok {
			remap[i] = j
			continue
		}
		j := len(out.Vertices)
		first[v] = j
		remap[i] = j
		out.Vertices = append(out.Vertices, v)
		if m.HasColors() {
			out.Colors = append(out.Colors, m.Colors[i])
		}
		if m.HasNormals() {
			out.Normals = append(out.Normals, m.Normals[i])
		}
	}
	out.Triangles = make([][3]int, len(m.Triangles))
	for i, t := range m.Triangles {
		out.Triangles[i] = [3]int{remap[t[0]], remap[t[1]], remap[t[2]]}
	}
	return out
}

// dropDuplicateTriangles treats triangles over the same three vertices as
// equal whatever their winding.
func dropDuplicateTriangles(tris [][3]int) [][3]int {
	seen := make(map[[3]int]bool, len(tris))
	out := make([][3]int, 0, len(tris))
	for _, t := range tris {
		key := t
		sort.Ints(key[:])
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func dropDegenerateTriangles(m *geometry.Mesh, tris [][3]int) [][3]int {
	out := make([][3]int, 0, len(tris))
	for _, t := range tris {
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			continue
		}
		a, b, c := m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
		if b.Sub(a).Cross(c.Sub(a)).Length() == 0 {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ValidateColors drops a color array that no longer covers every vertex, and
// likewise stale normals.
func ValidateColors(m *geometry.Mesh) (*geometry.Mesh, *Warning) {
	colorsOK := !m.HasColors() || len(m.Colors) == m.VertexCount()
	normalsOK := !m.HasNormals() || len(m.Normals) == m.VertexCount()
	if colorsOK && normalsOK {
		return m, nil
	}

	out := &geometry.Mesh{Vertices: m.Vertices, Triangles: m.Triangles, Colors: m.Colors, Normals: m.Normals}
	if !normalsOK {
		out.Normals = nil
	}
	if colorsOK {
		return out, nil
	}
	out.Colors = nil
	return out, &Warning{Stage: StageColors, Err: ErrColorMismatch}
}

// NormalizeOrigin moves the mesh so its bounding box minimum sits at the
// origin.
func NormalizeOrigin(m *geometry.Mesh) *geometry.Mesh {
	if m.VertexCount() == 0 {
		return m.Clone()
	}
	return m.Translated(m.Bounds().Min.Scale(-1))
}
