// Package fsutil writes files so that readers only ever observe a complete
// file: content goes to a temporary sibling first and is renamed into place.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteFunc streams a file's content.
type WriteFunc func(w io.Writer) error

// PathFunc produces a file's content at the given path. It is used with
// writers that insist on owning the file.
type PathFunc func(path string) error

// tempSibling creates an empty temporary file next to path. The temporary
// name keeps path's extension since some writers dispatch on it.
func tempSibling(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	pattern := "." + strings.TrimSuffix(base, ext) + "-*" + ext
	return os.CreateTemp(dir, pattern)
}

// WriteAtomic streams content into path through a temporary sibling.
func WriteAtomic(path string, write WriteFunc) error {
	tmp, err := tempSibling(path)
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	return commit(tmpName, path)
}

// WritePathAtomic hands a temporary sibling path to produce and renames it
// into place once produce succeeds.
func WritePathAtomic(path string, produce PathFunc) error {
	tmp, err := tempSibling(path)
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	tmp.Close()

	if err := produce(tmpName); err != nil {
		os.Remove(tmpName)
		return err
	}
	return commit(tmpName, path)
}

// CopyAtomic copies src to dst through a temporary sibling of dst.
func CopyAtomic(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return WriteAtomic(dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

func commit(tmpName, path string) error {
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming %s to %s: %w", tmpName, path, err)
	}
	return nil
}

// Exists reports whether a regular file exists at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
