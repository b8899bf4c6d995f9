package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/keyring"
)

var initKeyring bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new empty database",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initKeyring, "keyring", false, "also store the master password in the OS keyring")
	rootCmd.AddCommand(initCmd)
}

// runInit creates an empty database at the configured path
func runInit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	path := cfg.Database

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrDatabaseExists, path)
	}

	db := core.New()
	if err := db.SetPath(path); err != nil {
		return err
	}

	password, err := GetNewPassword("New master password: ")
	if err != nil {
		return err
	}
	db.SetPassword(password)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	if err := db.Save(ctx, cfg.CoreOptions(log)); err != nil {
		return err
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()
	id, err := j.GetOrCreateDatabaseID(path)
	if err != nil {
		return err
	}

	if initKeyring {
		if err := keyring.SavePassword(id, password); err != nil {
			Warning("failed to save to keyring: %s", err)
		} else {
			fmt.Println("Password saved to keyring")
		}
	}

	Success("Initialized %s", path)
	return nil
}
