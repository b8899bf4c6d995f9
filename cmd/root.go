// Package cmd provides the CLI commands for upm.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/illarion/upm/internal/config"
	"github.com/illarion/upm/internal/logging"
)

var (
	cfgFile   string
	noBackups bool

	v   = viper.New()
	cfg *config.Config
	log logging.Logger = logging.Discard()
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "upm",
	Short: "Universal Password Manager command-line client",
	Long: `upm manages an encrypted UPM password database and keeps it in sync
with a remote HTTP repository.

Get started:
  upm init                    Create a new database
  upm add mail --user alice   Add an account
  upm list                    List accounts
  upm remote set --url URL --credentials ACCOUNT
  upm sync                    Synchronize with the repository`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command and reports any error on stderr.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		HandleError(err)
	}
	return err
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ~/.upm/config.yaml)")
	flags.StringP("database", "d", "", "database file (default ~/.upm/primary)")
	flags.String("state", "", "sync journal file (default ~/.upm/state.db)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&noBackups, "no-backups", false, "do not back up files before overwriting them")

	v.BindPFlag(config.KeyDatabase, flags.Lookup("database"))
	v.BindPFlag(config.KeyState, flags.Lookup("state"))
	v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	if noBackups {
		cfg.ParanoidBackups = false
	}

	log, err = cfg.Logger()
	if err != nil {
		return err
	}
	log.Debug(cmd.Context(), "configuration loaded", "database", cfg.Database, "state", cfg.State)
	return nil
}
