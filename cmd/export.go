package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/report"
)

var exportReveal bool

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print a text report of all accounts",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportReveal, "reveal", false, "include passwords")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	return report.Export(os.Stdout, s.db, time.Now(), exportReveal)
}
