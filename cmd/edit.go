package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/core"
)

var (
	editName     string
	editUser     string
	editURL      string
	editNotes    string
	editPassword bool
)

var editCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Change an account",
	Long:  `Change the fields of an account. Only the given flags are changed.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

func init() {
	flags := editCmd.Flags()
	flags.StringVar(&editName, "name", "", "rename the account")
	flags.StringVarP(&editUser, "user", "u", "", "username")
	flags.StringVar(&editURL, "url", "", "URL")
	flags.StringVar(&editNotes, "notes", "", "free-form notes")
	flags.BoolVarP(&editPassword, "password", "p", false, "prompt for a new account password")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	oldName := args[0]
	a, ok := s.db.Account(oldName)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrAccountNotFound, oldName)
	}

	if flags.Changed("name") {
		a.Name = editName
	}
	if flags.Changed("user") {
		a.User = editUser
	}
	if flags.Changed("url") {
		a.URL = editURL
	}
	if flags.Changed("notes") {
		a.Notes = editNotes
	}
	if editPassword {
		a.Password, err = promptPassword("New password for "+a.Name+": ", true)
		if err != nil {
			return err
		}
	}

	if err := s.db.UpdateAccount(oldName, a); err != nil {
		return err
	}
	if err := s.save(ctx); err != nil {
		return err
	}

	if a.Name != oldName {
		if s.db.SyncCredentials() == oldName {
			Warning("%s is the sync credentials account; update it with 'upm remote set'", oldName)
		}
		Success("Renamed %s to %s", oldName, a.Name)
	} else {
		Success("Updated %s", a.Name)
	}
	return nil
}
