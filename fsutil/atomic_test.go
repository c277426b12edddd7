package fsutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomicReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mesh.ply")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	err := WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("new"))
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestWriteAtomicFailureLeavesOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mesh.ply")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	boom := errors.New("boom")
	err := WriteAtomic(path, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be cleaned up")
}

func TestWritePathAtomicKeepsExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mesh.stl")
	var seen string
	err := WritePathAtomic(path, func(tmp string) error {
		seen = tmp
		return os.WriteFile(tmp, []byte("solid"), 0600)
	})
	require.NoError(t, err)
	assert.Equal(t, ".stl", filepath.Ext(seen))
	assert.NotEqual(t, path, seen)
	assert.True(t, Exists(path))
	assert.False(t, Exists(seen))
}

func TestWriteAtomicMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "mesh.obj")
	err := WriteAtomic(path, func(w io.Writer) error { return nil })
	assert.Error(t, err)
}

func TestCopyAtomic(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.glb")
	dst := filepath.Join(dir, "b.glb")
	require.NoError(t, os.WriteFile(src, []byte("glTF"), 0644))
	require.NoError(t, CopyAtomic(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "glTF", string(data))
}
