package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileNameAlt), []byte("release_config: {}\n"), 0o600))
	deep := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	tests := []struct {
		name      string
		start     string
		maxLevels int
		want      string
	}{
		{"in root", root, 1, root},
		{"unbounded", deep, 0, root},
		{"within bound", deep, 4, root},
		{"bound too small", deep, 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindProjectRoot(tt.start, tt.maxLevels))
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    os.FileMode
		wantErr bool
	}{
		{"", 0, false},
		{"0644", 0o644, false},
		{"0o750", 0o750, false},
		{" 600 ", 0o600, false},
		{"0888", 0, true},
		{"01777", 0, true},
		{"rw-r--r--", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
