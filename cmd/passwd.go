package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/keyring"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the master password",
	Args:  cobra.NoArgs,
	RunE:  runPasswd,
}

func init() {
	rootCmd.AddCommand(passwdCmd)
}

// runPasswd re-encrypts the database under a new master password
func runPasswd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	// The environment holds the current password, so the new one is always prompted.
	newPassword, err := promptPassword("New master password: ", true)
	if err != nil {
		return err
	}

	if err := s.db.ChangePassword(ctx, newPassword, cfg.CoreOptions(log)); err != nil {
		return err
	}

	// Update keyring if it holds the old password
	if keyring.HasPassword(s.id) {
		if err := keyring.SavePassword(s.id, newPassword); err == nil {
			fmt.Println("Keyring updated with new password")
		} else {
			Warning("failed to update keyring: %s", err)
		}
	}

	Success("Password changed successfully")
	if s.db.HasRemote() {
		Hint("Run 'upm sync' to update the repository; it will ask for the old password once")
	}
	return nil
}
