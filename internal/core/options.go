package core

import (
	"time"

	"github.com/illarion/upm/internal/backup"
	"github.com/illarion/upm/internal/logging"
)

// Options carries the settings shared by save and sync.
type Options struct {
	// ParanoidBackups makes a backup before every local or remote overwrite.
	ParanoidBackups bool
	// MaxBackups caps local backups per database. Zero means backup.MaxBackups.
	MaxBackups int
	Logger     logging.Logger
	// Now is the clock used for backup names and sync status.
	Now func() time.Time
}

// DefaultOptions returns paranoid backups, the standard backup limit, a
// silent logger and the wall clock.
func DefaultOptions() Options {
	return Options{
		ParanoidBackups: true,
		MaxBackups:      backup.MaxBackups,
		Logger:          logging.Discard(),
		Now:             time.Now,
	}
}

// Log returns the configured logger or a silent one.
func (o Options) Log() logging.Logger {
	if o.Logger == nil {
		return logging.Discard()
	}
	return o.Logger
}

// Clock returns the current time from the configured clock.
func (o Options) Clock() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// BackupLimit returns MaxBackups or the default limit.
func (o Options) BackupLimit() int {
	if o.MaxBackups <= 0 {
		return backup.MaxBackups
	}
	return o.MaxBackups
}
