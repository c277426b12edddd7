package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/EliCDavis/vector/vector3"
	"github.com/google/uuid"
	"github.com/recolude/cloudmesh/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun(t *testing.T) Run {
	dir := t.TempDir()
	out := filepath.Join(dir, "chair.ply")
	require.NoError(t, os.WriteFile(out, []byte("ply\nformat ascii 1.0\nend_header\n"), 0644))

	return Run{
		ID:         uuid.NewString(),
		InputPath:  filepath.Join(dir, "chair_scan.ply"),
		OutputPath: out,
		Method:     "ball-pivot",
		Format:     "ply",
		Points:     3,
		Mesh: &geometry.Mesh{
			Vertices: []vector3.Float64{
				vector3.New(0., 0., 0.), vector3.New(1., 0., 0.), vector3.New(0., 1., 2.),
			},
			Triangles: [][3]int{{0, 1, 2}},
		},
		Stages: []Stage{
			{Name: "load", Duration: 10 * time.Millisecond},
			{Name: "reconstruct", Offset: 10 * time.Millisecond, Duration: 50 * time.Millisecond, Vertices: 3, Triangles: 1},
		},
		Warnings: []string{"fill-holes: no hole filler configured"},
	}
}

func TestRecordingContents(t *testing.T) {
	run := testRun(t)
	rec, err := Recording(run)
	require.NoError(t, err)

	assert.Equal(t, run.ID, rec.ID())
	assert.Equal(t, "chair_scan.ply", rec.Name())
	require.Len(t, rec.CaptureCollections(), 2)
	assert.Equal(t, "Stages", rec.CaptureCollections()[0].Name())
	assert.Equal(t, "Bounds", rec.CaptureCollections()[1].Name())
	require.Len(t, rec.Binaries(), 1)
	assert.Equal(t, "chair.ply", rec.Binaries()[0].Name())
}

func TestRecordingNeedsExportedFile(t *testing.T) {
	run := testRun(t)
	run.OutputPath = filepath.Join(t.TempDir(), "missing.ply")
	_, err := Recording(run)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWrite(t *testing.T) {
	run := testRun(t)
	path := filepath.Join(t.TempDir(), "chair.rap")
	require.NoError(t, Write(path, run))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
