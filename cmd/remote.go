package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	remoteURL         string
	remoteCredentials string
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Manage the sync repository",
}

var remoteSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the repository URL and credentials account",
	Long: `Set the repository URL and the name of the account whose username and
password authenticate against it. An empty URL disables sync.`,
	Args: cobra.NoArgs,
	RunE: runRemoteSet,
}

var remoteShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the sync repository settings",
	Args:  cobra.NoArgs,
	RunE:  runRemoteShow,
}

func init() {
	remoteSetCmd.Flags().StringVar(&remoteURL, "url", "", "repository base URL")
	remoteSetCmd.Flags().StringVar(&remoteCredentials, "credentials", "", "name of the account holding repository credentials")
	remoteSetCmd.MarkFlagRequired("url")

	remoteCmd.AddCommand(remoteSetCmd, remoteShowCmd)
	rootCmd.AddCommand(remoteCmd)
}

func runRemoteSet(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if remoteURL != "" {
		u, err := url.Parse(remoteURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid repository URL %q", remoteURL)
		}
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if remoteCredentials != "" && !s.db.Contains(remoteCredentials) {
		Warning("account %s does not exist yet", remoteCredentials)
	}

	s.db.SetSyncConfig(remoteURL, remoteCredentials)
	if err := s.save(ctx); err != nil {
		return err
	}

	if remoteURL == "" {
		Success("Sync disabled")
	} else {
		Success("Repository set to %s", remoteURL)
	}
	return nil
}

func runRemoteShow(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	if !s.db.HasRemote() {
		fmt.Println("No repository configured")
		return nil
	}
	PrintKeyValue("URL", s.db.SyncURL())
	PrintKeyValue("Credentials", s.db.SyncCredentials())
	return nil
}
