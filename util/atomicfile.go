package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it over path. A crash between the two steps leaves the previous file
// content untouched, the file is never observable in a partially written state.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("can't create directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("can't create temp file: %w", err)
	}

	tmpName := tmp.Name()

	defer func() {
		// best effort cleanup, the temp file is gone after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("can't write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("can't sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("can't close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("can't replace '%s': %w", path, err)
	}

	return nil
}
