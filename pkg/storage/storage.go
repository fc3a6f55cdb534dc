// All files related functions
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile stores data at path through a temp file in the same directory,
// so a half written screenshot never shows up under its final name.
func WriteFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("cannot create dir %s: %w", dir, err)
	}
	tmpFile, err := os.CreateTemp(dir, ".albumsign-*")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmpFile.Close()
			os.Remove(tmpFile.Name())
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		return err
	}
	if err = tmpFile.Sync(); err != nil {
		return err
	}
	if err = tmpFile.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpFile.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmpFile.Name(), path)
}
