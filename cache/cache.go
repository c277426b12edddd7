// Package cache keeps previously generated meshes on disk so repeated
// conversions of the same input can reuse them.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/recolude/cloudmesh/fsutil"
)

// Key identifies a cache entry.
type Key struct {
	Stem   string
	Method string
	Format string
}

// KeyFor derives the key of a conversion from its input path.
func KeyFor(inputPath, method, format string) Key {
	base := filepath.Base(inputPath)
	return Key{
		Stem:   strings.TrimSuffix(base, filepath.Ext(base)),
		Method: method,
		Format: format,
	}
}

func (k Key) filename() string {
	return fmt.Sprintf("%s_%s.%s", k.Stem, k.Method, k.Format)
}

// Cache is a directory of mesh files named <stem>_<method>.<format>. Entries
// are replaced atomically, so a reader never sees a partial file.
type Cache struct {
	Dir string
}

func New(dir string) *Cache {
	return &Cache{Dir: dir}
}

// Path returns where the entry for k lives, whether or not it exists.
func (c *Cache) Path(k Key) string {
	return filepath.Join(c.Dir, k.filename())
}

// Lookup returns the entry's path if it exists.
func (c *Cache) Lookup(k Key) (string, bool) {
	p := c.Path(k)
	return p, fsutil.Exists(p)
}

// Store copies the file at src into the cache under k, overwriting any
// previous entry.
func (c *Cache) Store(k Key, src string) error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	return fsutil.CopyAtomic(src, c.Path(k))
}

// Restore copies the entry for k to dst. It fails if there is no entry.
func (c *Cache) Restore(k Key, dst string) error {
	p, ok := c.Lookup(k)
	if !ok {
		return fmt.Errorf("no cache entry %s: %w", k.filename(), os.ErrNotExist)
	}
	return fsutil.CopyAtomic(p, dst)
}
