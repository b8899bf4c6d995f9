package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Compact the sync journal to reclaim unused space",
	Args:  cobra.NoArgs,
	RunE:  runCompact,
}

func init() {
	rootCmd.AddCommand(compactCmd)
}

// runCompact compacts the sync journal
func runCompact(_ *cobra.Command, _ []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	// Get file size before
	info, err := os.Stat(cfg.State)
	if err != nil {
		return err
	}
	sizeBefore := info.Size()

	if err := j.Compact(); err != nil {
		return err
	}

	// Get file size after
	info, err = os.Stat(cfg.State)
	if err != nil {
		return err
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
	return nil
}

func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
