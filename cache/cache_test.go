package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFor(t *testing.T) {
	k := KeyFor("/data/scans/chair.ply", "ball-pivot", "glb")
	assert.Equal(t, Key{Stem: "chair", Method: "ball-pivot", Format: "glb"}, k)
	assert.Equal(t, "chair_ball-pivot.glb", k.filename())
}

func TestStoreLookupRestore(t *testing.T) {
	dir := t.TempDir()
	c := New(filepath.Join(dir, "cache"))
	k := KeyFor("chair.ply", "alpha", "obj")

	_, ok := c.Lookup(k)
	assert.False(t, ok)

	src := filepath.Join(dir, "out.obj")
	require.NoError(t, os.WriteFile(src, []byte("v 0 0 0\n"), 0644))
	require.NoError(t, c.Store(k, src))

	p, ok := c.Lookup(k)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "cache", "chair_alpha.obj"), p)

	dst := filepath.Join(dir, "restored.obj")
	require.NoError(t, c.Restore(k, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "v 0 0 0\n", string(data))
}

func TestStoreOverwrites(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	k := KeyFor("chair.ply", "implicit", "stl")

	src := filepath.Join(dir, "src.stl")
	require.NoError(t, os.WriteFile(src, []byte("first"), 0644))
	require.NoError(t, c.Store(k, src))
	require.NoError(t, os.WriteFile(src, []byte("second"), 0644))
	require.NoError(t, c.Store(k, src))

	data, err := os.ReadFile(c.Path(k))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestRestoreMissing(t *testing.T) {
	c := New(t.TempDir())
	err := c.Restore(KeyFor("x.ply", "alpha", "ply"), filepath.Join(t.TempDir(), "x.ply"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
