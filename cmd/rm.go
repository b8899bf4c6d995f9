package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/core"
)

var rmCmd = &cobra.Command{
	Use:     "rm <name>...",
	Aliases: []string{"remove"},
	Short:   "Remove accounts",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
}

// runRm removes the named accounts and saves once
func runRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, name := range args {
		if !s.db.Contains(name) {
			return fmt.Errorf("%w: %s", core.ErrAccountNotFound, name)
		}
	}
	for _, name := range args {
		s.db.DeleteAccount(name)
		if s.db.SyncCredentials() == name {
			Warning("removed the sync credentials account %s", name)
		}
	}

	if err := s.save(ctx); err != nil {
		return err
	}

	for _, name := range args {
		fmt.Printf("Removed: %s\n", name)
	}
	return nil
}
