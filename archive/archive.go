// Package archive bundles a finished conversion into a RAP recording: the
// exported mesh file as an embedded binary plus a timeline of the stages
// that produced it.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/recolude/cloudmesh/fsutil"
	"github.com/recolude/cloudmesh/geometry"
	"github.com/recolude/rap/format"
	"github.com/recolude/rap/format/collection/event"
	"github.com/recolude/rap/format/collection/position"
	"github.com/recolude/rap/format/encoding"
	eventEnc "github.com/recolude/rap/format/encoding/event"
	posEnc "github.com/recolude/rap/format/encoding/position"
	rapio "github.com/recolude/rap/format/io"
	"github.com/recolude/rap/format/metadata"
)

// Stage is one step of a conversion, timed relative to the run's start.
type Stage struct {
	Name      string
	Offset    time.Duration
	Duration  time.Duration
	Vertices  int
	Triangles int
}

// Run describes a finished conversion.
type Run struct {
	ID         string
	InputPath  string
	OutputPath string
	Method     string
	Format     string
	Points     int
	Mesh       *geometry.Mesh
	Stages     []Stage
	Warnings   []string
}

// Recording assembles the recording for run. The mesh file at
// run.OutputPath is read and embedded.
func Recording(run Run) (format.Recording, error) {
	data, err := os.ReadFile(run.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("reading exported mesh: %w", err)
	}

	meshBinary := rapio.NewBinary(filepath.Base(run.OutputPath), data, metadata.NewBlock(map[string]metadata.Property{
		"format":    metadata.NewStringProperty(run.Format),
		"vertices":  metadata.NewIntProperty(run.Mesh.VertexCount()),
		"triangles": metadata.NewIntProperty(run.Mesh.TriangleCount()),
	}))

	stageCaptures := make([]event.Capture, 0, len(run.Stages)+len(run.Warnings))
	for _, s := range run.Stages {
		stageCaptures = append(stageCaptures, event.NewCapture(s.Offset.Seconds(), s.Name, metadata.NewBlock(map[string]metadata.Property{
			"Duration":  metadata.NewFloat32Property(float32(s.Duration.Seconds())),
			"Vertices":  metadata.NewIntProperty(s.Vertices),
			"Triangles": metadata.NewIntProperty(s.Triangles),
		})))
	}

	end := 0.
	if n := len(run.Stages); n > 0 {
		end = (run.Stages[n-1].Offset + run.Stages[n-1].Duration).Seconds()
	}
	for _, w := range run.Warnings {
		stageCaptures = append(stageCaptures, event.NewCapture(end, "Warning", metadata.NewBlock(map[string]metadata.Property{
			"Message": metadata.NewStringProperty(w),
		})))
	}

	bounds := run.Mesh.Bounds()
	boundsCaptures := []position.Capture{
		position.NewCapture(0, bounds.Min.X(), bounds.Min.Y(), bounds.Min.Z()),
		position.NewCapture(end, bounds.Max.X(), bounds.Max.Y(), bounds.Max.Z()),
	}

	return format.NewRecording(
		run.ID,
		filepath.Base(run.InputPath),
		[]format.CaptureCollection{
			event.NewCollection("Stages", stageCaptures),
			position.NewCollection("Bounds", boundsCaptures),
		},
		nil,
		metadata.NewBlock(map[string]metadata.Property{
			"Input":     metadata.NewStringProperty(run.InputPath),
			"Method":    metadata.NewStringProperty(run.Method),
			"Format":    metadata.NewStringProperty(run.Format),
			"Points":    metadata.NewIntProperty(run.Points),
			"Vertices":  metadata.NewIntProperty(run.Mesh.VertexCount()),
			"Triangles": metadata.NewIntProperty(run.Mesh.TriangleCount()),
		}),
		[]format.Binary{meshBinary},
		[]format.BinaryReference{},
	), nil
}

// Write stores the recording for run at path.
func Write(path string, run Run) error {
	rec, err := Recording(run)
	if err != nil {
		return err
	}
	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		rapWriter := rapio.NewWriter(
			[]encoding.Encoder{
				posEnc.NewEncoder(posEnc.Oct24),
				eventEnc.NewEncoder(),
			},
			true,
			w,
			rapio.BST16,
		)
		_, err := rapWriter.Write(rec)
		return err
	})
}
