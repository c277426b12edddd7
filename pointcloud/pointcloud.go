// Package pointcloud loads point samples from PLY files and normalizes their
// color representation.
package pointcloud

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/EliCDavis/polyform/formats/ply"
	"github.com/EliCDavis/polyform/modeling"
	"github.com/EliCDavis/vector/vector3"
	"github.com/recolude/cloudmesh/geometry"
)

// ErrEmpty is returned by Load when the file holds no points.
var ErrEmpty = errors.New("point cloud is empty")

// Load reads the vertices of a PLY file as a point cloud. Faces, when the file
// has any, are ignored. Normals and colors are kept only when every point
// carries them.
func Load(path string) (*geometry.PointCloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mesh, err := ply.ReadMesh(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	switch mesh.Topology() {
	case modeling.PointTopology, modeling.TriangleTopology:
	default:
		return nil, fmt.Errorf("unimplemented topology: %d", mesh.Topology())
	}

	view := mesh.View()
	cloud := &geometry.PointCloud{Points: view.Float3Data[modeling.PositionAttribute]}
	if cloud.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	if normals := view.Float3Data[modeling.NormalAttribute]; len(normals) == cloud.Len() {
		cloud.Normals = normals
	}
	if colors := view.Float3Data[modeling.ColorAttribute]; len(colors) == cloud.Len() {
		cloud.Colors = colors
	}
	return cloud, nil
}

// SaveRGB writes the cloud's positions and colors as a binary PLY point cloud.
func SaveRGB(out io.Writer, cloud *geometry.PointCloud) error {
	data := map[string][]vector3.Vector[float64]{
		modeling.PositionAttribute: cloud.Points,
	}
	if cloud.HasColors() {
		data[modeling.ColorAttribute] = cloud.Colors
	}
	if cloud.HasNormals() {
		data[modeling.NormalAttribute] = cloud.Normals
	}
	return ply.WriteBinary(out, modeling.NewPointCloud(data, nil, nil, nil))
}
