package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/report"
)

var showReveal bool

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one account",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showReveal, "reveal", false, "show the password")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	a, ok := s.db.Account(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrAccountNotFound, args[0])
	}

	password := a.Password
	if !showReveal && password != "" {
		password = report.Mask
	}

	PrintKeyValue("Account", a.Name)
	PrintKeyValue("Username", a.User)
	PrintKeyValue("Password", password)
	PrintKeyValue("URL", a.URL)
	PrintKeyValue("Notes", a.Notes)
	return nil
}
