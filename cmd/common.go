package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/keyring"
	"github.com/illarion/upm/internal/remote"
	"github.com/illarion/upm/internal/storage"
	"github.com/illarion/upm/internal/syncer"
	"github.com/illarion/upm/internal/upmerr"
)

var (
	ErrNoDatabase     = errors.New("database does not exist")
	ErrDatabaseExists = errors.New("database already exists")
)

// Password sources
const (
	sourceEnv     = "environment"
	sourceKeyring = "keyring"
	sourcePrompt  = "prompt"
)

// session is an unlocked database together with its journal entry
type session struct {
	db      *core.Database
	journal *storage.Storage
	id      string
	source  string
}

func (s *session) Close() error {
	return s.journal.Close()
}

// openJournal opens the sync journal, creating it and its directory on
// first use.
func openJournal() (*storage.Storage, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.State), 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	j, err := storage.Open(cfg.State)
	if err != nil {
		return nil, err
	}
	initialized, err := j.IsInitialized()
	if err != nil {
		j.Close()
		return nil, err
	}
	if !initialized {
		if err := j.Initialize(); err != nil {
			j.Close()
			return nil, err
		}
		log.Debug(context.Background(), "sync journal created", "path", cfg.State)
	}
	return j, nil
}

// openSession unlocks the configured database. The caller must Close it.
func openSession(ctx context.Context) (*session, error) {
	if _, err := os.Stat(cfg.Database); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoDatabase, cfg.Database)
	}

	j, err := openJournal()
	if err != nil {
		return nil, err
	}
	id, err := j.GetOrCreateDatabaseID(cfg.Database)
	if err != nil {
		j.Close()
		return nil, err
	}

	s := &session{journal: j, id: id}
	_, s.source, err = GetPasswordWithRetry(ctx, "Master password: ", id, func(password string) error {
		db, err := core.Open(cfg.Database, password)
		if err != nil {
			return err
		}
		s.db = db
		return nil
	})
	if err != nil {
		j.Close()
		return nil, err
	}
	return s, nil
}

// GetPasswordWithRetry finds the master password in the environment, the
// keyring or a prompt, in that order. A stale keyring entry falls through
// to the prompt.
func GetPasswordWithRetry(ctx context.Context, prompt, databaseID string, verify func(string) error) (string, string, error) {
	if cfg.Password != "" {
		return cfg.Password, sourceEnv, verify(cfg.Password)
	}

	if cfg.UseKeyring && databaseID != "" {
		password, err := keyring.GetPassword(databaseID)
		switch {
		case err == nil:
			verr := verify(password)
			if verr == nil {
				log.Debug(ctx, "password loaded from keyring")
				return password, sourceKeyring, nil
			}
			if !errors.Is(verr, core.ErrBadPassword) {
				return "", "", verr
			}
			Warning("password in keyring is out of date")
		case !errors.Is(err, keyring.ErrNotFound):
			log.Debug(ctx, "keyring unavailable", "error", err)
		}
	}

	password, err := promptPassword(prompt, false)
	if err != nil {
		return "", "", err
	}
	return password, sourcePrompt, verify(password)
}

// GetNewPassword reads a new master password from the environment or a
// confirmed prompt.
func GetNewPassword(prompt string) (string, error) {
	if cfg.Password != "" {
		return cfg.Password, nil
	}
	return promptPassword(prompt, true)
}

// save writes the session database with the configured options
func (s *session) save(ctx context.Context) error {
	return s.db.Save(ctx, cfg.CoreOptions(log))
}

// HandleError prints err with a hint where one helps.
func HandleError(err error) {
	var (
		dup      *core.DuplicateAccountError
		version  *core.UnsupportedVersionError
		status   *remote.StatusError
		response *remote.ResponseError
	)

	switch {
	case errors.Is(err, ErrNoDatabase):
		Error("%s", err)
		Hint("Run 'upm init' or 'upm download' first")
	case errors.Is(err, ErrDatabaseExists), errors.Is(err, syncer.ErrLocalExists):
		Error("%s", err)
		Hint("Delete the database or choose another path with --database")
	case errors.Is(err, core.ErrBadPassword):
		Error("wrong password")
	case errors.Is(err, ErrPasswordMismatch):
		Error("passwords do not match")
	case errors.As(err, &dup):
		Error("account %q already exists", dup.Name)
	case errors.Is(err, core.ErrAccountNotFound):
		Error("%s", err)
		Hint("Use 'upm list' to see accounts")
	case errors.Is(err, syncer.ErrNoSyncURL), errors.Is(err, syncer.ErrNoSyncCredentials):
		Error("%s", err)
		Hint("Use 'upm remote set --url URL --credentials ACCOUNT'")
	case errors.As(err, &version):
		Error("%s; only version %d is supported", version, core.Version)
	case errors.Is(err, remote.ErrNotFound):
		Error("database not found in the repository")
	case errors.As(err, &status):
		Error("repository returned HTTP %d for %s", status.Code, status.Method)
	case errors.As(err, &response):
		Error("repository refused the request: %s", response.Body)
	case upmerr.Is(err, upmerr.Backup):
		Error("%s", err)
		Hint("Nothing was overwritten. Use --no-backups to skip backups")
	default:
		Error("%s", err)
	}
}

