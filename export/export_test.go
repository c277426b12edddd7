package export

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/EliCDavis/vector/vector3"
	"github.com/qmuntal/gltf"
	"github.com/recolude/cloudmesh/geometry"
	"github.com/recolude/cloudmesh/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	formats []string
	fail    error
	sawNorm bool
}

func (w *fakeWriter) WriteMesh(path string, m *geometry.Mesh, format string) error {
	w.formats = append(w.formats, format)
	w.sawNorm = m.HasNormals()
	if w.fail != nil {
		return w.fail
	}
	return os.WriteFile(path, []byte(format), 0600)
}

type fakeScene struct{ calls int }

func (s *fakeScene) ExportScene(path string, m *geometry.Mesh) error {
	s.calls++
	return os.WriteFile(path, []byte("scene"), 0600)
}

func triangle() *geometry.Mesh {
	return &geometry.Mesh{
		Vertices: []vector3.Float64{
			vector3.New(0., 0., 0.), vector3.New(1., 0., 0.), vector3.New(0., 1., 0.),
		},
		Triangles: [][3]int{{0, 1, 2}},
		Colors: []vector3.Float64{
			vector3.New(1., 0., 0.), vector3.New(0., 1., 0.), vector3.New(0., 0., 1.),
		},
	}
}

func quiet(e *Exporter) *Exporter {
	e.Logger = log.New(io.Discard, "", 0)
	return e
}

func TestParseFormat(t *testing.T) {
	for _, tag := range []string{"obj", "GLB", ".stl", " ply "} {
		_, err := ParseFormat(tag)
		assert.NoError(t, err, tag)
	}
	_, err := ParseFormat("fbx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "out/scan.glb", OutputPath("out/scan.ply", GLB))
	assert.Equal(t, "scan.obj", OutputPath("scan", OBJ))
	assert.Equal(t, "a.b/scan.tar.stl", OutputPath("a.b/scan.tar.ply", STL))
}

func TestStaticFormatsUsePrimaryWriter(t *testing.T) {
	w := &fakeWriter{}
	scene := &fakeScene{}
	e := quiet(New(w, scene))
	dir := t.TempDir()
	for _, f := range []Format{OBJ, STL, PLY} {
		warn, err := e.Export(triangle(), filepath.Join(dir, "mesh."+string(f)), f)
		require.NoError(t, err)
		assert.NoError(t, warn)
	}
	assert.Equal(t, []string{"obj", "stl", "ply"}, w.formats)
	assert.True(t, w.sawNorm)
	assert.Zero(t, scene.calls)
}

func TestGLBUsesSceneExporter(t *testing.T) {
	w := &fakeWriter{}
	scene := &fakeScene{}
	path := filepath.Join(t.TempDir(), "mesh.glb")

	warn, err := quiet(New(w, scene)).Export(triangle(), path, GLB)
	require.NoError(t, err)
	assert.NoError(t, warn)
	assert.Equal(t, 1, scene.calls)
	assert.Empty(t, w.formats)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "scene", string(data))
}

func TestGLBFallsBackWithWarning(t *testing.T) {
	w := &fakeWriter{}
	path := filepath.Join(t.TempDir(), "mesh.glb")

	warn, err := quiet(New(w, nil)).Export(triangle(), path, GLB)
	require.NoError(t, err)
	assert.ErrorIs(t, warn, ErrNoSceneExporter)
	assert.Equal(t, []string{"glb"}, w.formats)
}

func TestWriterFailureIsExportError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mesh.obj")
	_, err := quiet(New(&fakeWriter{fail: errors.New("disk full")}, nil)).Export(triangle(), path, OBJ)
	assert.ErrorIs(t, err, ErrWrite)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary file must be cleaned up")
}

func TestMissingDirectoryIsExportError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "mesh.ply")
	_, err := quiet(New(&fakeWriter{}, nil)).Export(triangle(), path, PLY)
	assert.ErrorIs(t, err, ErrWrite)
}

func TestExportDoesNotMutateMesh(t *testing.T) {
	m := triangle()
	_, err := quiet(New(&fakeWriter{}, nil)).Export(m, filepath.Join(t.TempDir(), "m.obj"), OBJ)
	require.NoError(t, err)
	assert.False(t, m.HasNormals())
}

func TestGLTFExporterWritesColors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mesh.glb")
	warn, err := quiet(New(native.New(), GLTFExporter{})).Export(triangle(), path, GLB)
	require.NoError(t, err)
	assert.NoError(t, warn)

	doc, err := gltf.Open(path)
	require.NoError(t, err)
	require.Len(t, doc.Meshes, 1)
	prim := doc.Meshes[0].Primitives[0]
	assert.Contains(t, prim.Attributes, gltf.POSITION)
	assert.Contains(t, prim.Attributes, gltf.NORMAL)
	assert.Contains(t, prim.Attributes, gltf.COLOR_0)
	assert.Equal(t, 3, int(doc.Accessors[prim.Attributes[gltf.POSITION]].Count))
}
