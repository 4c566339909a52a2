package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = DefaultConfigFile

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "relsplit.yml"

// FindConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func FindConfigFile(dir string) string {
	yamlPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}

	ymlPath := filepath.Join(dir, ConfigFileNameAlt)
	if _, err := os.Stat(ymlPath); err == nil {
		return ymlPath
	}

	return ""
}

// FindProjectRoot walks up from the given directory to find a directory
// containing relsplit.yaml or relsplit.yml, looking at no more than
// maxLevels directories (0 means no limit).
// Returns empty string if not found.
func FindProjectRoot(startDir string, maxLevels int) string {
	dir := startDir
	for i := 0; maxLevels <= 0 || i < maxLevels; i++ {
		if FindConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
	return ""
}

// ReadEnvFile reads KEY=VALUE pairs from a dotenv file without touching the
// process environment. An empty path yields an empty map.
func ReadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, InvalidKey("release_config.options.env_file", err, "cannot read %s", path)
	}
	return env, nil
}

// NewExpander builds the ${...} expander for a release configuration.
func NewExpander(rc *ReleaseConfig) (*Expander, error) {
	env, err := ReadEnvFile(rc.Options.EnvFile)
	if err != nil {
		return nil, err
	}
	return &Expander{Context: rc.SubstitutionContext(), Env: env}, nil
}
