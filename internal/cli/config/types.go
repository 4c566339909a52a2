// Package config provides configuration management for the relsplit CLI.
//
// This package layers the shared release configuration from internal/config
// with CLI-specific fields and loads it with koanf from defaults, the
// config file, RELSPLIT_* environment variables and command-line flags.
package config

import (
	sharedcfg "github.com/leapstack-labs/relsplit/internal/config"
)

// ReleaseConfig is an alias for the shared run-level configuration.
type ReleaseConfig = sharedcfg.ReleaseConfig

// LoggingConfig is an alias for the shared logging configuration.
type LoggingConfig = sharedcfg.LoggingConfig

// JournalConfig is an alias for the shared journal configuration.
type JournalConfig = sharedcfg.JournalConfig

// Config holds all CLI configuration options.
type Config struct {
	Release      ReleaseConfig `koanf:"release_config"`
	Logging      LoggingConfig `koanf:"logging"`
	Journal      JournalConfig `koanf:"journal"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`

	// ProjectRoot anchors relative paths from the config file.
	ProjectRoot string `koanf:"-"`
	// ConfigFile is the config file that was loaded, if any.
	ConfigFile string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultOutput = "auto" // Text, coloured when stdout is a terminal
	EnvPrefix     = "RELSPLIT_"
)
