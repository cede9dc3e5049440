package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// TransmissionConfig holds the download queue server settings.
type TransmissionConfig struct {
	URL       string `mapstructure:"url"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	SSLVerify bool   `mapstructure:"ssl_verify"`
}

// NyaaConfig holds the remote search index settings.
type NyaaConfig struct {
	URL string `mapstructure:"url"`
}

// SeriesConfig holds the settings of one tracked series.
type SeriesConfig struct {
	Name            string `mapstructure:"name"`
	Directory       string `mapstructure:"directory"`
	RemoteDirectory string `mapstructure:"remote_directory"`
	Pattern         string `mapstructure:"pattern"`
	NumberWidth     string `mapstructure:"number_width"`
	MaxAhead        *int   `mapstructure:"max_ahead"`
}

// Config holds all application configuration.
type Config struct {
	// Run behavior
	DryRun   bool   // mark pending entries queued without contacting the server
	SkipScan bool   // bypass the local directory scan
	Schedule string // cron expression; empty means run one pass and exit

	// Server (daemon mode)
	ServerPort string

	// Paths
	HistoryFile string // $CONFIG_DIR/seriarr.db

	// Collaborators
	Transmission TransmissionConfig
	Nyaa         NyaaConfig

	// Tracked series
	Series []SeriesConfig

	// Logging
	LogLevel string
}

// Load reads configuration from $CONFIG_DIR/config.yaml (or ./config.yaml)
// plus environment variable overrides.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("server_port", "8080")
	viper.SetDefault("dry_run", false)
	viper.SetDefault("skip_scan", false)
	viper.SetDefault("schedule", "")
	viper.SetDefault("transmission.ssl_verify", true)

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "seriarr")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{
		DryRun:   viper.GetBool("dry_run"),
		SkipScan: viper.GetBool("skip_scan"),
		Schedule: viper.GetString("schedule"),

		ServerPort: viper.GetString("server_port"),

		HistoryFile: filepath.Join(configDir, "seriarr.db"),

		Transmission: TransmissionConfig{
			URL:       viper.GetString("transmission.url"),
			Username:  viper.GetString("transmission.username"),
			Password:  viper.GetString("transmission.password"),
			SSLVerify: viper.GetBool("transmission.ssl_verify"),
		},
		Nyaa: NyaaConfig{
			URL: viper.GetString("nyaa.url"),
		},

		LogLevel: viper.GetString("log_level"),
	}

	if path := viper.GetString("history_file"); path != "" {
		config.HistoryFile = path
	}

	if err := viper.UnmarshalKey("series", &config.Series); err != nil {
		return nil, fmt.Errorf("failed to parse series configuration: %w", err)
	}

	// Validate required fields
	if config.Transmission.URL == "" {
		return nil, fmt.Errorf("transmission.url is required")
	}
	if config.Nyaa.URL == "" {
		return nil, fmt.Errorf("nyaa.url is required")
	}
	if len(config.Series) == 0 {
		return nil, fmt.Errorf("at least one series must be configured")
	}

	return config, nil
}
