package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Set defaults
	config := GetDefaults()

	// Configure viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/docshield/")
	viper.AddConfigPath("$HOME/.docshield/")

	// Environment variable overrides
	viper.SetEnvPrefix("DOCSHIELD")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Use specific config file if provided
	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	// Read configuration
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Masking.DefaultMode != "full" && config.Masking.DefaultMode != "partial" {
		return fmt.Errorf("invalid default masking mode: %s (must be full or partial)", config.Masking.DefaultMode)
	}

	if config.Masking.PreserveChars < 0 {
		return fmt.Errorf("invalid preserve_chars: %d (must be >= 0)", config.Masking.PreserveChars)
	}

	if utf8.RuneCountInString(config.Masking.MaskChar) != 1 {
		return fmt.Errorf("invalid mask_char: %q (must be a single character)", config.Masking.MaskChar)
	}

	if config.Crypto.MinPasswordLength < 1 {
		return fmt.Errorf("invalid min_password_length: %d (must be >= 1)", config.Crypto.MinPasswordLength)
	}

	if config.Files.MaxFileSizeMB <= 0 {
		return fmt.Errorf("invalid max_file_size_mb: %d (must be > 0)", config.Files.MaxFileSizeMB)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	return nil
}

// Watch starts watching the configuration file for changes
func Watch(config *Config, callback func(*Config)) error {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig := GetDefaults()
		if err := viper.Unmarshal(newConfig); err != nil {
			// Log error but don't crash
			return
		}

		if err := validateConfig(newConfig); err != nil {
			// Log error but don't crash
			return
		}

		callback(newConfig)
	})

	return nil
}
