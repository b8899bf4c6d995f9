package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/syncer"
)

var downloadUser string

var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Fetch a database from a repository for the first time",
	Long: `Fetch the database named after the final component of --database from
the repository at url. An existing local database is never overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadUser, "user", "u", "", "repository username (prompted if empty)")
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := cfg.Database

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrDatabaseExists, path)
	}

	user := downloadUser
	if user == "" {
		var err error
		if user, err = promptLine("Repository username: "); err != nil {
			return err
		}
	}
	password, err := promptPassword("Repository password: ", false)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	engine := syncer.NewEngine(cfg.CoreOptions(log))
	if err := engine.Download(ctx, args[0], user, password, path); err != nil {
		return err
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()
	if _, err := j.GetOrCreateDatabaseID(path); err != nil {
		return err
	}

	Success("Downloaded %s", path)

	// Report the revision if the environment already holds the password.
	if cfg.Password != "" {
		if db, err := core.Open(path, cfg.Password); err == nil {
			fmt.Printf("Revision %d, %d accounts\n", db.Revision(), db.Len())
		}
	}
	return nil
}
