package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/illarion/upm/internal/storage"
)

var (
	historyLimit int
	historyAll   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync attempts",
	Long: `Show recent sync attempts from the sync journal. No password is needed.

With --all, list every database the journal knows with its last sync.`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of entries to show (0 for all)")
	historyCmd.Flags().BoolVarP(&historyAll, "all", "a", false, "list every known database")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(_ *cobra.Command, _ []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	if historyAll {
		return listDatabases(j)
	}

	entries, err := j.History(cfg.Database, historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No sync history")
		return nil
	}

	for _, e := range entries {
		when := e.Time.Local().Format(time.DateTime)
		if !e.Succeeded() {
			fmt.Printf("%s  %s\n", when, errorColor.Sprintf("failed: %s", e.Error))
			continue
		}
		fmt.Printf("%s  %-16s local %d, remote %d -> %d\n", when, e.Outcome, e.LocalRevision, e.RemoteRevision, e.Revision)
	}
	return nil
}

func listDatabases(j *storage.Storage) error {
	records, err := j.Databases()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No databases")
		return nil
	}

	for _, rec := range records {
		last := Dim("never synced")
		entry, err := j.LastSuccess(rec.Path)
		if err != nil {
			return err
		}
		if entry != nil {
			last = "synced " + entry.Time.Local().Format(time.DateTime)
		}
		fmt.Printf("%s  %s\n", Bold("%s", rec.Path), last)
		fmt.Printf("  id %s, added %s\n", rec.ID, rec.Created.Local().Format(time.DateTime))
	}
	return nil
}
