package cmd

import (
	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/core"
)

var addAccount core.Account

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an account",
	Long: `Add an account to the database. The account password is prompted for;
leave it empty for accounts without one.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addAccount.User, "user", "u", "", "username")
	addCmd.Flags().StringVar(&addAccount.URL, "url", "", "URL")
	addCmd.Flags().StringVar(&addAccount.Notes, "notes", "", "free-form notes")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	a := addAccount
	a.Name = args[0]
	if s.db.Contains(a.Name) {
		return &core.DuplicateAccountError{Name: a.Name}
	}

	a.Password, err = promptPassword("Password for "+a.Name+": ", true)
	if err != nil {
		return err
	}

	if err := s.db.AddAccount(a); err != nil {
		return err
	}
	if err := s.save(ctx); err != nil {
		return err
	}

	Success("Added %s", a.Name)
	return nil
}
