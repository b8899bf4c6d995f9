package core

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/illarion/upm/internal/upmerr"
)

// ValidatePath checks that path is usable as a database location: non-empty,
// valid UTF-8 and ending in a file name.
func ValidatePath(path string) error {
	if path == "" {
		return upmerr.New(upmerr.IO, "validate path", ErrInvalidPath)
	}
	if !utf8.ValidString(path) {
		return upmerr.New(upmerr.IO, "validate path", fmt.Errorf("%w: %q", ErrPathNotUnicode, path))
	}
	switch filepath.Base(path) {
	case ".", "..", string(filepath.Separator):
		return upmerr.New(upmerr.IO, "validate path", fmt.Errorf("%w: %s", ErrInvalidPath, path))
	}
	return nil
}

// NameFromPath returns the database name for path: its final component.
func NameFromPath(path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	return filepath.Base(path), nil
}

// WriteFileAtomic writes data to path through a temporary sibling
// "<path>.tmp" and a rename, so a failed write never destroys the old file.
func WriteFileAtomic(path string, data []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	tmpPath := path + ".tmp"

	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return upmerr.New(upmerr.IO, "write "+path, fmt.Errorf("failed to remove stale temporary file: %w", err))
	}

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return upmerr.New(upmerr.IO, "write "+path, fmt.Errorf("failed to create temporary file: %w", err))
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return upmerr.New(upmerr.IO, "write "+path, fmt.Errorf("failed to write temporary file: %w", err))
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return upmerr.New(upmerr.IO, "write "+path, fmt.Errorf("failed to sync temporary file: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return upmerr.New(upmerr.IO, "write "+path, fmt.Errorf("failed to close temporary file: %w", err))
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return upmerr.New(upmerr.IO, "write "+path, fmt.Errorf("failed to replace database: %w", err))
	}
	return nil
}
