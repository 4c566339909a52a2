package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/leapstack-labs/relsplit/internal/charset"
	sharedcfg "github.com/leapstack-labs/relsplit/internal/config"
)

var outputFormats = []string{"auto", "text", "markdown", "json"}

// Validate checks the configuration needed by the split command. Each
// problem is reported as a *sharedcfg.ConfigError naming the offending key.
func (c *Config) Validate() error {
	if len(c.Release.Inputs()) == 0 {
		return sharedcfg.MissingKey("release_config.input_release_path")
	}
	if strings.TrimSpace(c.Release.OutputBasePath) == "" {
		return sharedcfg.MissingKey("release_config.output_base_path")
	}
	if _, err := charset.Lookup(c.Release.Options.Encoding); err != nil {
		return sharedcfg.InvalidKey("release_config.options.encoding", err, "unsupported encoding %q", c.Release.Options.Encoding)
	}
	for key, mode := range map[string]string{
		"release_config.options.file_mode": c.Release.Options.FileMode,
		"release_config.options.dir_mode":  c.Release.Options.DirMode,
	} {
		if _, err := sharedcfg.ParseMode(mode); err != nil {
			return sharedcfg.InvalidKey(key, err, "expected octal permission bits")
		}
	}
	return c.ValidateOutput()
}

// ValidateOutput checks settings every command relies on.
func (c *Config) ValidateOutput() error {
	if c.OutputFormat != "" && !slices.Contains(outputFormats, c.OutputFormat) {
		return sharedcfg.InvalidKey("output", nil, "must be one of %s, got %q", strings.Join(outputFormats, ", "), c.OutputFormat)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return sharedcfg.InvalidKey("logging.level", err, "invalid log level")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return sharedcfg.InvalidKey("logging.format", nil, "must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// ParseLevel converts a level name to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q", s)
	}
	return lvl, nil
}
