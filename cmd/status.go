package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/backup"
	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/git"
	"github.com/illarion/upm/internal/keyring"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and sync status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// runStatus shows the current state of the database
func runStatus(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	now := time.Now()
	last, err := s.journal.LastSuccess(cfg.Database)
	if err != nil {
		return err
	}
	// A sync from an earlier run still counts while nothing changed since.
	if last != nil && last.Revision == s.db.Revision() {
		s.db.MarkSynced(last.Time)
	}

	PrintKeyValue("Database", s.db.Path())
	PrintKeyValue("Revision", fmt.Sprint(s.db.Revision()))
	PrintKeyValue("Accounts", fmt.Sprint(s.db.Len()))

	if s.db.HasRemote() {
		PrintKeyValue("Remote", s.db.SyncURL())
		PrintKeyValue("Credentials", s.db.SyncCredentials())
		if s.db.IsSynced(now) {
			ago := now.Sub(s.db.LastSynced()).Round(time.Second)
			PrintKeyValue("Synced", successColor.Sprintf("yes (%s ago)", ago))
		} else {
			PrintKeyValue("Synced", warningColor.Sprint("no"))
		}
	} else {
		PrintKeyValue("Remote", Dim("(none)"))
	}

	if last != nil {
		PrintKeyValue("Last sync", fmt.Sprintf("%s (%s)", last.Time.Format(time.RFC3339), last.Outcome))
	} else {
		PrintKeyValue("Last sync", Dim("never"))
	}

	if modified, err := s.journal.GetModified(); err == nil {
		PrintKeyValue("Journal", fmt.Sprintf("%s (updated %s)", cfg.State, modified.Local().Format(time.DateTime)))
	} else {
		log.Debug(cmd.Context(), "journal has no modification time", "error", err)
	}

	stored := "no"
	if keyring.HasPassword(s.id) {
		stored = "yes"
	}
	PrintKeyValue("Keyring", stored)
	PrintKeyValue("Unlocked by", s.source)

	// Any backup name stands for the pattern.
	generated := []string{cfg.State}
	if name, err := backup.Filename(cfg.Database, now); err == nil {
		generated = append(generated, name)
	}
	if gs, err := git.Check(cfg.Database, generated); err == nil {
		fmt.Print(git.FormatStatus(gs))
	} else {
		log.Debug(cmd.Context(), "git check failed", "error", err)
	}

	if s.db.HasRemote() && !s.db.IsSynced(now) {
		fmt.Println()
		Hint("Changes may be unsynchronized; sync status lasts %s", core.SyncValidity)
	}
	return nil
}
