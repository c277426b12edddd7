package export

import (
	"github.com/qmuntal/gltf"
	"github.com/recolude/cloudmesh/geometry"
	"github.com/recolude/cloudmesh/native"
)

// GLTFExporter writes binary glTF with positions, normals, indices and 8-bit
// RGBA vertex colors.
type GLTFExporter struct{}

func (GLTFExporter) ExportScene(path string, m *geometry.Mesh) error {
	return gltf.SaveBinary(native.GLTFDocument(m, true), path)
}
