// Package export serializes finished meshes to disk.
package export

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/recolude/cloudmesh/fsutil"
	"github.com/recolude/cloudmesh/geometry"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")

	// ErrWrite wraps every failure to produce the output file.
	ErrWrite = errors.New("writing mesh")

	// ErrNoSceneExporter is reported, as a warning, when GLB output falls
	// back to the primary writer.
	ErrNoSceneExporter = errors.New("no scene exporter configured, using primary writer for glb")
)

type Format string

const (
	OBJ Format = "obj"
	GLB Format = "glb"
	STL Format = "stl"
	PLY Format = "ply"
)

var Formats = []Format{OBJ, GLB, STL, PLY}

// ParseFormat resolves a format tag. A leading dot is ignored, so file
// extensions parse too.
func ParseFormat(tag string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), ".")))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, tag)
}

// OutputPath replaces the extension of name with the format's.
func OutputPath(name string, f Format) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + "." + string(f)
}

// Writer is the primary mesh writer. It must handle every Format.
type Writer interface {
	WriteMesh(path string, m *geometry.Mesh, format string) error
}

// SceneExporter writes GLB scenes, vertex colors included.
type SceneExporter interface {
	ExportScene(path string, m *geometry.Mesh) error
}

type Exporter struct {
	Writer Writer
	Scene  SceneExporter
	Logger *log.Logger
}

func New(w Writer, scene SceneExporter) *Exporter {
	return &Exporter{Writer: w, Scene: scene}
}

// Export computes vertex normals and writes the mesh to path through a
// temporary sibling. GLB goes through the scene exporter when there is one;
// without it the primary writer is used and ErrNoSceneExporter comes back as
// warning. Failures wrap ErrWrite.
func (e *Exporter) Export(m *geometry.Mesh, path string, f Format) (warning error, err error) {
	if _, err := ParseFormat(string(f)); err != nil {
		return nil, err
	}
	m = m.WithVertexNormals()

	write := func(tmp string) error {
		return e.Writer.WriteMesh(tmp, m, string(f))
	}
	if f == GLB {
		if e.Scene != nil {
			write = func(tmp string) error {
				return e.Scene.ExportScene(tmp, m)
			}
		} else {
			warning = ErrNoSceneExporter
			e.logger().Printf("warning: %v", warning)
		}
	}

	if err := fsutil.WritePathAtomic(path, write); err != nil {
		return warning, fmt.Errorf("%w %s: %v", ErrWrite, path, err)
	}
	e.logger().Printf("wrote %s (%d vertices, %d triangles)", path, m.VertexCount(), m.TriangleCount())
	return warning, nil
}

func (e *Exporter) logger() *log.Logger {
	if e.Logger == nil {
		return log.Default()
	}
	return e.Logger
}
