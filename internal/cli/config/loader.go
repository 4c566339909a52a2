package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	sharedcfg "github.com/leapstack-labs/relsplit/internal/config"
	"github.com/leapstack-labs/relsplit/internal/state"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store the loaded config in context.
type configKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flagKeys maps flag names to config keys. Flags not listed map to their
// snake_case name at the top level.
var flagKeys = map[string]string{
	"input":      "release_config.input_release_path",
	"output-dir": "release_config.output_base_path",
	"dag-dir":    "release_config.dag_output_path",
	"rules":      "release_config.options.rules_path",
	"encoding":   "release_config.options.encoding",
	"env-file":   "release_config.options.env_file",
	"dry-run":    "release_config.options.dry_run",
	"journal":    "journal.path",
	"no-journal": "journal.disabled",
	"log-level":  "logging.level",
	"log-file":   "logging.file",
	"log-format": "logging.format",
}

// pathKeys are resolved against the project root when relative.
var pathKeys = []string{
	"release_config.input_release_path",
	"release_config.output_base_path",
	"release_config.dag_output_path",
	"release_config.options.rules_path",
	"release_config.options.env_file",
	"journal.path",
	"logging.file",
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// flagKey returns the config key a flag is stored under.
func flagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	return strings.ReplaceAll(name, "-", "_")
}

// envKey maps RELSPLIT_RELEASE_CONFIG__OUTPUT_BASE_PATH to
// release_config.output_base_path. A double underscore separates levels.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
//
// Relative paths from the config file are anchored at the directory holding
// the file; relative paths given as flags are anchored at the working
// directory.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"release_config.options.encoding": sharedcfg.DefaultEncoding,
		"logging.level":                   sharedcfg.DefaultLogLevel,
		"logging.format":                  sharedcfg.DefaultLogFormat,
		"journal.path":                    "",
		"verbose":                         false,
		"output":                          DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	projectRoot := cwd
	if cfgFile == "" {
		if root := sharedcfg.FindProjectRoot(cwd, maxUpwardSearchLevels); root != "" {
			projectRoot = root
			cfgFile = sharedcfg.FindConfigFile(root)
		}
	}
	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("error resolving config file %s: %w", cfgFile, err)
		}
		cfgFile = abs
		projectRoot = filepath.Dir(abs)
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Load environment variables (RELSPLIT_ prefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority)
	flagPaths := map[string]string{}
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key := flagKey(f.Name)
			val := posflag.FlagVal(flags, f)
			if s, ok := val.(string); ok && isPathKey(key) {
				flagPaths[key] = resolvePathRelativeTo(s, cwd)
			}
			return key, val
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot
	cfg.ConfigFile = cfgFile

	// 6. Resolve relative paths
	for _, key := range pathKeys {
		p := pathField(&cfg, key)
		if v, ok := flagPaths[key]; ok {
			*p = v
			continue
		}
		*p = resolvePathRelativeTo(*p, projectRoot)
	}
	for i, p := range cfg.Release.InputReleasePaths {
		cfg.Release.InputReleasePaths[i] = resolvePathRelativeTo(p, projectRoot)
	}

	sharedcfg.ApplyDefaults(&cfg.Release)
	sharedcfg.ApplyLoggingDefaults(&cfg.Logging)

	if err := cfg.ValidateOutput(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isPathKey(key string) bool {
	for _, k := range pathKeys {
		if k == key {
			return true
		}
	}
	return false
}

// pathField returns a pointer to the string field behind a path key.
func pathField(cfg *Config, key string) *string {
	switch key {
	case "release_config.input_release_path":
		return &cfg.Release.InputReleasePath
	case "release_config.output_base_path":
		return &cfg.Release.OutputBasePath
	case "release_config.dag_output_path":
		return &cfg.Release.DagOutputPath
	case "release_config.options.rules_path":
		return &cfg.Release.Options.RulesPath
	case "release_config.options.env_file":
		return &cfg.Release.Options.EnvFile
	case "journal.path":
		return &cfg.Journal.Path
	case "logging.file":
		return &cfg.Logging.File
	}
	panic("unknown path key " + key)
}

// JournalPath returns the journal location: the configured path, or the
// default location under the project root. It is empty when the journal is
// disabled.
func (c *Config) JournalPath() string {
	if c.Journal.Disabled {
		return ""
	}
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return filepath.Join(c.ProjectRoot, state.DefaultJournalPath)
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() interface{} {
	return configKey{}
}

// GetConfig retrieves the config from the command context, or nil.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return nil
}
