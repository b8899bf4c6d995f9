package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/backup"
)

var pruneKeep int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old local backups of the database",
	Long: `Delete the oldest local backups of the database until at most --keep
remain. Without --keep the max_backups setting applies. No password is needed.`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().IntVarP(&pruneKeep, "keep", "k", 0, "number of backups to keep (default max_backups)")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, _ []string) error {
	keep := cfg.MaxBackups
	if cmd.Flags().Changed("keep") {
		if pruneKeep < 0 {
			return fmt.Errorf("--keep must not be negative")
		}
		keep = pruneKeep
	}

	deleted, err := backup.Prune(cfg.Database, keep)
	if err != nil {
		return err
	}
	if deleted == 0 {
		fmt.Println("No backups to delete")
		return nil
	}
	Success("Deleted %d old backup(s)", deleted)
	return nil
}
