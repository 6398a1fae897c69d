package store

import (
	"fmt"
	"os"
	"path/filepath"
)

const maxRotations = 99

// rotate renames an existing backup tree at root out of the way before a
// fresh backup is written to root, keeping up to maxRotations numbered
// generations (root_1 is the most recent prior backup, root_99 the
// oldest). The oldest generation is discarded once the count is
// exceeded, the way a bounded logrotate policy never grows unbounded.
func rotate(root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}

	oldest := fmt.Sprintf("%s_%d", root, maxRotations)
	if _, err := os.Stat(oldest); err == nil {
		if err := os.RemoveAll(oldest); err != nil {
			return fmt.Errorf("remove oldest rotation %s: %w", oldest, err)
		}
	}

	for n := maxRotations - 1; n >= 1; n-- {
		src := fmt.Sprintf("%s_%d", root, n)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		dst := fmt.Sprintf("%s_%d", root, n+1)
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("rotate %s to %s: %w", src, dst, err)
		}
	}

	dst := root + "_1"
	if err := os.Rename(root, dst); err != nil {
		return fmt.Errorf("rotate %s to %s: %w", root, dst, err)
	}
	return nil
}

// writeFileAtomic writes data to path by first writing a temp file in
// the same directory and renaming it into place, so a crash mid-write
// never leaves a truncated body file behind.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
