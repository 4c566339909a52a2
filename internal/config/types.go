// Package config provides shared configuration types for relsplit.
// This package is decoupled from CLI concerns: it holds the run-level
// release configuration, the rule document loader and ${var} expansion.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/relsplit/pkg/core"
)

// ReleaseConfig holds the run-level configuration of one split run.
type ReleaseConfig struct {
	// InputReleasePath is the release file (or a directory of release files).
	InputReleasePath string `koanf:"input_release_path"`
	// InputReleasePaths lists additional inputs processed in the same run.
	InputReleasePaths []string `koanf:"input_release_paths"`
	// OutputBasePath is exposed to path templates as {base}.
	OutputBasePath string `koanf:"output_base_path"`
	// DagOutputPath is the secondary output root, exposed as {dag_folder}.
	DagOutputPath string `koanf:"dag_output_path"`
	// ObjectTypeMap is the flat fallback keyword map for patterns without one.
	ObjectTypeMap map[string]string `koanf:"object_type_map"`
	Options       Options           `koanf:"options"`
}

// Options holds run option flags.
type Options struct {
	Encoding    string   `koanf:"encoding"`
	RulesPath   string   `koanf:"rules_path"`
	DangerWords []string `koanf:"danger_words"`
	DryRun      bool     `koanf:"dry_run"`
	EnvFile     string   `koanf:"env_file"`
	// FileMode and DirMode are octal permission bits for written files and
	// created directories, e.g. "0640". Empty keeps the writer defaults.
	FileMode string `koanf:"file_mode"`
	DirMode  string `koanf:"dir_mode"`
}

// ParseMode parses an octal permission string such as "0644" or "0o750".
// An empty string yields 0.
func ParseMode(s string) (os.FileMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0o"), 8, 32)
	if err != nil || v > 0o777 {
		return 0, fmt.Errorf("invalid permission bits %q", s)
	}
	return os.FileMode(v), nil
}

// Inputs returns all configured inputs in order, without duplicates.
func (c *ReleaseConfig) Inputs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range append([]string{c.InputReleasePath}, c.InputReleasePaths...) {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// FallbackObjectTypes returns the flat object_type_map as an ordered map.
func (c *ReleaseConfig) FallbackObjectTypes() core.ObjectTypeMap {
	return core.ObjectTypeMapFrom(c.ObjectTypeMap)
}

// RunValues returns the static run-level parameters offered to path and
// header templates.
func (c *ReleaseConfig) RunValues() map[string]string {
	return map[string]string{
		ParamBase:      c.OutputBasePath,
		ParamDagFolder: c.DagOutputPath,
	}
}

// SubstitutionContext returns the lookup tree for ${...} references in rule
// documents. Keys are reachable both at the top level (${output_base_path})
// and under release_config (${release_config.output_base_path}).
func (c *ReleaseConfig) SubstitutionContext() map[string]any {
	otm := make(map[string]any, len(c.ObjectTypeMap))
	keys := make([]string, 0, len(c.ObjectTypeMap))
	for k := range c.ObjectTypeMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		otm[k] = c.ObjectTypeMap[k]
	}

	rc := map[string]any{
		"input_release_path": c.InputReleasePath,
		"output_base_path":   c.OutputBasePath,
		"dag_output_path":    c.DagOutputPath,
		"object_type_map":    otm,
		"options": map[string]any{
			"encoding":   c.Options.Encoding,
			"rules_path": c.Options.RulesPath,
			"env_file":   c.Options.EnvFile,
		},
	}

	ctx := make(map[string]any, len(rc)+1)
	for k, v := range rc {
		ctx[k] = v
	}
	ctx["release_config"] = rc
	return ctx
}

// LoggingConfig configures the slog logger built once per invocation.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `koanf:"level"`
	// File, when set, receives the log instead of stderr.
	File string `koanf:"file"`
	// Format is text or json.
	Format string `koanf:"format"`
	// ShowTime controls the time attribute.
	ShowTime bool `koanf:"show_time"`
}

// JournalConfig configures the sqlite diagnostics journal.
type JournalConfig struct {
	// Path of the journal database. Empty means .relsplit/journal.db under
	// the project root.
	Path string `koanf:"path"`
	// Disabled turns run recording off.
	Disabled bool `koanf:"disabled"`
}
