package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/keyring"
	"github.com/illarion/upm/internal/storage"
	"github.com/illarion/upm/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize with the remote repository",
	Long: `Synchronize the database with its remote repository. The copy with the
higher revision wins and replaces the other. When the remote copy uses a
different master password it is prompted for once.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	engine := syncer.NewEngine(cfg.CoreOptions(log))
	result, err := syncWithRetry(ctx, func(options ...syncer.Option) (*syncer.Result, error) {
		return engine.Sync(ctx, s.db, options...)
	})

	entry := storage.SyncEntry{Time: time.Now()}
	if err != nil {
		entry.Error = err.Error()
		if jerr := s.journal.AppendSync(cfg.Database, entry); jerr != nil {
			log.Warn(ctx, "failed to record sync", "error", jerr)
		}
		return err
	}

	if result.Outcome == syncer.LocalReplaced {
		if err := s.reload(ctx, result.Password); err != nil {
			return err
		}
	}

	entry.Outcome = result.Outcome.String()
	entry.LocalRevision = result.LocalRevision
	entry.RemoteRevision = result.RemoteRevision
	entry.Revision = s.db.Revision()
	if err := s.journal.AppendSync(cfg.Database, entry); err != nil {
		log.Warn(ctx, "failed to record sync", "error", err)
	}

	switch result.Outcome {
	case syncer.NoChange:
		Success("Already in sync at revision %d", result.LocalRevision)
	case syncer.RemoteReplaced:
		if result.RemoteExisted {
			Success("Uploaded revision %d (remote was %d)", result.LocalRevision, result.RemoteRevision)
		} else {
			Success("Uploaded revision %d to a new repository copy", result.LocalRevision)
		}
	case syncer.LocalReplaced:
		Success("Downloaded revision %d (local was %d)", result.RemoteRevision, result.LocalRevision)
	}
	return nil
}

// syncWithRetry runs op and, if the remote copy rejects the local master
// password, asks for the remote one and tries exactly once more.
func syncWithRetry[T any](ctx context.Context, op func(...syncer.Option) (T, error)) (T, error) {
	result, err := op()
	if err == nil || !errors.Is(err, core.ErrBadPassword) {
		return result, err
	}

	log.Debug(ctx, "remote database uses another password")
	password, perr := promptPassword("Remote database password: ", false)
	if perr != nil {
		return result, perr
	}
	return op(syncer.WithRemotePassword(password))
}

// reload reopens the database after a sync replaced the local file. The
// file may now be encrypted under the remote password.
func (s *session) reload(ctx context.Context, password string) error {
	db, err := core.Open(cfg.Database, password)
	if err != nil {
		return fmt.Errorf("failed to reload database: %w", err)
	}
	db.MarkSynced(time.Now())

	if old, _ := s.db.Password(); old != password {
		Warning("the master password is now the one of the remote copy")
		if keyring.HasPassword(s.id) {
			if err := keyring.SavePassword(s.id, password); err != nil {
				log.Warn(ctx, "failed to update keyring", "error", err)
			}
		}
	}
	s.db = db
	return nil
}
