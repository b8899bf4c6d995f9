package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/report"
	"github.com/illarion/upm/internal/syncer"
)

var diffReveal bool

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare the local database with the remote copy",
	Args:  cobra.NoArgs,
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffReveal, "reveal", false, "compare passwords too")
	rootCmd.AddCommand(diffCmd)
}

// runDiff prints a line diff of local (-) and remote (+) accounts
func runDiff(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	engine := syncer.NewEngine(cfg.CoreOptions(log))
	remoteDB, err := syncWithRetry(ctx, func(options ...syncer.Option) (*core.Database, error) {
		return engine.Fetch(ctx, s.db, options...)
	})
	if err != nil {
		return err
	}
	if remoteDB == nil {
		fmt.Println("The repository has no copy of this database")
		return nil
	}

	fmt.Printf("local revision %d, remote revision %d\n", s.db.Revision(), remoteDB.Revision())

	result := report.Diff(s.db, remoteDB, diffReveal)
	if !result.Changed() {
		fmt.Println("No differences")
		return nil
	}
	for _, line := range result {
		PrintDiffLine(line.Op.String(), line.Text)
	}
	return nil
}
