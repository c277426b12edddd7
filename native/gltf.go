package native

import (
	"math"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/recolude/cloudmesh/geometry"
)

// GLTFDocument builds a single-mesh glTF scene with positions, indices and,
// when the mesh has them, normals. withColors adds the mesh's colors as 8-bit
// RGBA COLOR_0.
func GLTFDocument(m *geometry.Mesh, withColors bool) *gltf.Document {
	doc := gltf.NewDocument()

	positions := make([][3]float32, m.VertexCount())
	for i, v := range m.Vertices {
		positions[i] = [3]float32{float32(v.X()), float32(v.Y()), float32(v.Z())}
	}
	attrs := map[string]int{
		gltf.POSITION: modeler.WritePosition(doc, positions),
	}

	if m.HasNormals() {
		normals := make([][3]float32, m.VertexCount())
		for i, n := range m.Normals {
			normals[i] = [3]float32{float32(n.X()), float32(n.Y()), float32(n.Z())}
		}
		attrs[gltf.NORMAL] = modeler.WriteNormal(doc, normals)
	}

	if withColors && m.HasColors() {
		colors := make([][4]uint8, m.VertexCount())
		for i, c := range m.Colors {
			colors[i] = [4]uint8{channel(c.X()), channel(c.Y()), channel(c.Z()), 255}
		}
		attrs[gltf.COLOR_0] = modeler.WriteColor(doc, colors)
	}

	indices := make([]uint32, 0, 3*m.TriangleCount())
	for _, t := range m.Triangles {
		indices = append(indices, uint32(t[0]), uint32(t[1]), uint32(t[2]))
	}

	doc.Meshes = []*gltf.Mesh{{
		Name: "mesh",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(modeler.WriteIndices(doc, indices)),
			Attributes: attrs,
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: "mesh", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = []int{0}
	return doc
}

// channel maps [0, 1] onto a byte, clamping out of range values.
func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
