package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/keyring"
	"github.com/illarion/upm/internal/storage"
)

var keyringCmd = &cobra.Command{
	Use:   "keyring",
	Short: "Manage the master password in the OS keyring",
}

var keyringSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the master password to the OS keyring",
	Args:  cobra.NoArgs,
	RunE:  runKeyringSave,
}

var keyringDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the master password from the OS keyring",
	Args:  cobra.NoArgs,
	RunE:  runKeyringDelete,
}

var keyringStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the keyring holds the master password",
	Args:  cobra.NoArgs,
	RunE:  runKeyringStatus,
}

func init() {
	keyringCmd.AddCommand(keyringSaveCmd, keyringDeleteCmd, keyringStatusCmd)
	rootCmd.AddCommand(keyringCmd)
}

// runKeyringSave saves the password to the OS keyring
func runKeyringSave(_ *cobra.Command, _ []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	// Prompt for password
	password, err := promptPassword("Master password: ", false)
	if err != nil {
		return err
	}

	// Verify password is correct
	if _, err := core.Open(cfg.Database, password); err != nil {
		return err
	}

	// Get database ID (create if not exists)
	id, err := j.GetOrCreateDatabaseID(cfg.Database)
	if err != nil {
		return err
	}

	if err := keyring.SavePassword(id, password); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}

	fmt.Println("Password saved to keyring")
	return nil
}

// databaseID looks up the journal ID without registering the database
func databaseID() (string, error) {
	j, err := openJournal()
	if err != nil {
		return "", err
	}
	defer j.Close()
	return j.GetDatabaseID(cfg.Database)
}

// runKeyringDelete removes the password from the OS keyring
func runKeyringDelete(_ *cobra.Command, _ []string) error {
	id, err := databaseID()
	if errors.Is(err, storage.ErrDatabaseNotFound) {
		fmt.Println("No password stored in keyring")
		return nil
	}
	if err != nil {
		return err
	}

	if err := keyring.DeletePassword(id); err != nil {
		return fmt.Errorf("failed to remove from keyring: %w", err)
	}

	fmt.Println("Password removed from keyring")
	return nil
}

// runKeyringStatus checks if a password is stored in the keyring
func runKeyringStatus(_ *cobra.Command, _ []string) error {
	id, err := databaseID()
	if err != nil && !errors.Is(err, storage.ErrDatabaseNotFound) {
		return err
	}

	if id != "" && keyring.HasPassword(id) {
		fmt.Println("Password is stored in keyring")
	} else {
		fmt.Println("No password stored in keyring")
	}
	return nil
}
