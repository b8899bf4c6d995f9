package security

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrPathEscapes = errors.New("path escapes directory")
	ErrEmptyPath   = errors.New("empty path not allowed")
	ErrNotUnicode  = errors.New("path is not valid UTF-8")
)

// Dir confines file operations to a single directory using os.Root.
// Every name passed to it must be a plain file name inside that directory.
type Dir struct {
	root *os.Root
	path string
}

// Entry is a file found by Dir.Match
type Entry struct {
	Name    string
	ModTime time.Time
}

// OpenDir opens the directory at path.
func OpenDir(path string) (*Dir, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory: %w", err)
	}

	return &Dir{root: root, path: absPath}, nil
}

// Close releases the directory handle.
func (d *Dir) Close() error {
	if d.root != nil {
		return d.root.Close()
	}
	return nil
}

// Path returns the absolute directory path
func (d *Dir) Path() string {
	return d.path
}

// ValidateName rejects anything that is not a single local file name:
// empty names, separators, "." and "..", and invalid UTF-8.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyPath
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: %q", ErrNotUnicode, name)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}
	return nil
}

// CopyFile copies src to a new file dst inside the directory. An existing
// dst is left untouched and the error wraps os.ErrExist.
func (d *Dir) CopyFile(src, dst string, perm os.FileMode) error {
	if err := ValidateName(src); err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}
	if err := ValidateName(dst); err != nil {
		return fmt.Errorf("invalid destination: %w", err)
	}

	in, err := d.root.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := d.root.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("failed to sync %s: %w", dst, err)
	}
	return out.Close()
}

// Match lists regular files whose names start with prefix and end with
// suffix, oldest modification time first.
func (d *Dir) Match(prefix, suffix string) ([]Entry, error) {
	f, err := d.root.Open(".")
	if err != nil {
		return nil, fmt.Errorf("failed to open directory: %w", err)
	}
	defer f.Close()

	dirEntries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if !de.Type().IsRegular() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		entries = append(entries, Entry{Name: name, ModTime: info.ModTime()})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ModTime.Equal(entries[j].ModTime) {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].ModTime.Before(entries[j].ModTime)
	})
	return entries, nil
}

// Remove deletes a file inside the directory.
func (d *Dir) Remove(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return d.root.Remove(name)
}

// Stat stats a file inside the directory.
func (d *Dir) Stat(name string) (os.FileInfo, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return d.root.Stat(name)
}
