package native

import (
	"fmt"
	"os"

	"github.com/EliCDavis/polyform/formats/obj"
	"github.com/EliCDavis/polyform/formats/ply"
	"github.com/EliCDavis/polyform/modeling"
	"github.com/qmuntal/gltf"
	"github.com/recolude/cloudmesh/geometry"
)

// WriteMesh writes the mesh to path. Supported formats are ply (binary, with
// normals and colors), obj (positions and normals), stl (triangles only) and
// glb (positions, normals and indices; no vertex colors).
func (b *Backend) WriteMesh(path string, m *geometry.Mesh, format string) error {
	switch format {
	case "ply":
		return writePLY(path, m)
	case "obj":
		return obj.Save(path, toPolyform(m))
	case "stl":
		return toModel3D(m).SaveGroupedSTL(path)
	case "glb":
		return writeGLB(path, m)
	default:
		return fmt.Errorf("unsupported mesh format %q", format)
	}
}

func toPolyform(m *geometry.Mesh) modeling.Mesh {
	indices := make([]int, 0, 3*m.TriangleCount())
	for _, t := range m.Triangles {
		indices = append(indices, t[0], t[1], t[2])
	}
	mesh := modeling.NewMesh(indices).
		SetFloat3Attribute(modeling.PositionAttribute, m.Vertices)
	if m.HasNormals() {
		mesh = mesh.SetFloat3Attribute(modeling.NormalAttribute, m.Normals)
	}
	if m.HasColors() {
		mesh = mesh.SetFloat3Attribute(modeling.ColorAttribute, m.Colors)
	}
	return mesh
}

func writePLY(path string, m *geometry.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ply.WriteBinary(f, toPolyform(m)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeGLB(path string, m *geometry.Mesh) error {
	return gltf.SaveBinary(GLTFDocument(m, false), path)
}
