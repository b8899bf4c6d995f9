package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/illarion/upm/internal/logging"
	"github.com/illarion/upm/internal/security"
	"github.com/illarion/upm/internal/upmerr"
)

const (
	MaxBackups      = 30               // Local backups kept per database
	Extension       = ".bak"           // Backup file suffix
	TimestampLayout = "20060102150405" // UTC, sorts lexically

	// Backups taken within the same second get a numeric suffix.
	maxCollisions = 100
)

var ErrInvalidFilename = errors.New("invalid filename")

// Uploader stores a file in the remote repository.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) error
}

// Name returns the backup file name for base at time now.
func Name(base string, now time.Time) (string, error) {
	if err := security.ValidateName(base); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFilename, err)
	}
	return base + "." + now.UTC().Format(TimestampLayout) + Extension, nil
}

// Filename returns the full backup path for the database at path.
func Filename(path string, now time.Time) (string, error) {
	base, err := baseName(path)
	if err != nil {
		return "", err
	}
	name, err := Name(base, now)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(path), name), nil
}

func baseName(path string) (string, error) {
	if path == "" || !utf8.ValidString(path) {
		return "", ErrInvalidFilename
	}
	base := filepath.Base(path)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return "", ErrInvalidFilename
	}
	return base, nil
}

// Local copies the file at path to its timestamped backup and prunes old
// backups down to keep. A missing file needs no backup and reports false.
// Pruning is best effort: its errors are logged, never returned.
func Local(ctx context.Context, path string, now time.Time, keep int, log logging.Logger) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, upmerr.New(upmerr.Backup, "backup "+path, err)
	}

	base, err := baseName(path)
	if err != nil {
		return false, upmerr.New(upmerr.Backup, "backup "+path, err)
	}
	name, err := Name(base, now)
	if err != nil {
		return false, upmerr.New(upmerr.Backup, "backup "+path, err)
	}

	dir, err := security.OpenDir(filepath.Dir(path))
	if err != nil {
		return false, upmerr.New(upmerr.Backup, "backup "+path, err)
	}
	defer dir.Close()

	name, err = copyBackup(dir, base, name)
	if err != nil {
		return false, upmerr.New(upmerr.Backup, "backup "+path, err)
	}
	log.Info(ctx, "local backup created", "dir", dir.Path(), "backup", name)

	deleted, err := prune(dir, base, keep)
	if err != nil {
		log.Warn(ctx, "failed to prune old backups", "error", err)
	} else if deleted > 0 {
		log.Debug(ctx, "pruned old backups", "deleted", deleted)
	}

	return true, nil
}

// copyBackup copies base to name, or to the first free "-N" variant of name
// when earlier backups already hold it. It returns the name used.
func copyBackup(dir *security.Dir, base, name string) (string, error) {
	stem := strings.TrimSuffix(name, Extension)
	candidate := name
	for i := 1; i <= maxCollisions; i++ {
		_, err := dir.Stat(candidate)
		switch {
		case errors.Is(err, os.ErrNotExist):
			err = dir.CopyFile(base, candidate, 0600)
			if !errors.Is(err, os.ErrExist) {
				return candidate, err
			}
		case err != nil:
			return "", err
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, Extension)
	}
	return "", fmt.Errorf("no free backup name for %s", name)
}

// Prune removes the oldest backups of the database at path until at most
// keep remain. It returns the number of files deleted.
func Prune(path string, keep int) (int, error) {
	base, err := baseName(path)
	if err != nil {
		return 0, err
	}

	dir, err := security.OpenDir(filepath.Dir(path))
	if err != nil {
		return 0, err
	}
	defer dir.Close()

	return prune(dir, base, keep)
}

func prune(dir *security.Dir, base string, keep int) (int, error) {
	entries, err := dir.Match(base+".", Extension)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for len(entries)-deleted > keep {
		if err := dir.Remove(entries[deleted].Name); err != nil {
			return deleted, fmt.Errorf("failed to remove %s: %w", entries[deleted].Name, err)
		}
		deleted++
	}
	return deleted, nil
}

// Remote uploads data as a timestamped backup of the remote database name.
// On failure the caller must leave the existing remote file alone.
func Remote(ctx context.Context, up Uploader, name string, data []byte, now time.Time) (string, error) {
	backupName, err := Name(name, now)
	if err != nil {
		return "", upmerr.New(upmerr.Backup, "remote backup", err)
	}
	if err := up.Upload(ctx, backupName, data); err != nil {
		return "", upmerr.New(upmerr.Backup, "remote backup "+backupName, err)
	}
	return backupName, nil
}
