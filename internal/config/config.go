// Package config loads upm settings from defaults, an optional YAML file,
// a .env file, UPM_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/illarion/upm/internal/backup"
	"github.com/illarion/upm/internal/core"
	"github.com/illarion/upm/internal/logging"
)

const (
	EnvPrefix = "UPM"
	EnvFile   = ".env"

	defaultDirName   = ".upm"
	defaultDatabase  = "primary"
	defaultState     = "state.db"
	defaultLogLevel  = "warn"
	defaultLogFormat = "text"
)

// Keys
const (
	KeyDatabase        = "database"
	KeyState           = "state"
	KeyParanoidBackups = "paranoid_backups"
	KeyMaxBackups      = "max_backups"
	KeyUseKeyring      = "use_keyring"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyPassword        = "password"
)

var ErrInvalidMaxBackups = errors.New("max_backups must be positive")

type Config struct {
	Database        string `mapstructure:"database"`
	State           string `mapstructure:"state"`
	ParanoidBackups bool   `mapstructure:"paranoid_backups"`
	MaxBackups      int    `mapstructure:"max_backups"`
	UseKeyring      bool   `mapstructure:"use_keyring"`
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`

	// Password comes from UPM_PASSWORD. It is never read from the config file.
	Password string `mapstructure:"-"`
}

// Dir returns the default configuration directory, ~/.upm
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, defaultDirName), nil
}

// SetDefaults registers every key with its default value. Keys must be
// known to viper for AutomaticEnv to resolve them.
func SetDefaults(v *viper.Viper, dir string) {
	v.SetDefault(KeyDatabase, filepath.Join(dir, defaultDatabase))
	v.SetDefault(KeyState, filepath.Join(dir, defaultState))
	v.SetDefault(KeyParanoidBackups, true)
	v.SetDefault(KeyMaxBackups, backup.MaxBackups)
	v.SetDefault(KeyUseKeyring, true)
	v.SetDefault(KeyLogLevel, defaultLogLevel)
	v.SetDefault(KeyLogFormat, defaultLogFormat)
	v.SetDefault(KeyPassword, "")
}

// LoadEnvFile loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration into v and returns it. An explicit
// configFile must exist; the default ~/.upm/config.yaml is optional.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	SetDefaults(v, dir)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := LoadEnvFile(EnvFile); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Password = v.GetString(KeyPassword)
	cfg.Database = expandHome(cfg.Database)
	cfg.State = expandHome(cfg.State)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and formats
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("%s cannot be empty", KeyDatabase)
	}
	if c.State == "" {
		return fmt.Errorf("%s cannot be empty", KeyState)
	}
	if c.MaxBackups <= 0 {
		return ErrInvalidMaxBackups
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// Logger builds the stderr logger described by the config
func (c *Config) Logger() (logging.Logger, error) {
	log, err := logging.New(c.LogLevel, c.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}
	return log, nil
}

// CoreOptions returns the options for save and sync operations
func (c *Config) CoreOptions(log logging.Logger) core.Options {
	opts := core.DefaultOptions()
	opts.ParanoidBackups = c.ParanoidBackups
	opts.MaxBackups = c.MaxBackups
	opts.Logger = log
	return opts
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
