package hostconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesKnownPrefixes(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.MatchesGBKPrefix("ls"))
	assert.True(t, cfg.MatchesGBKPrefix("mkdir"))
	assert.False(t, cfg.MatchesGBKPrefix("cargo"))
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default().GBKCommandPrefixes, cfg.GBKCommandPrefixes)
}

func TestLoad_OverridesPrefixes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostconfig.yml")
	require.NoError(t, os.WriteFile(path, []byte("gbk_command_prefixes: [dir]\nuse_pty: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"dir"}, cfg.GBKCommandPrefixes)
	assert.True(t, cfg.UsePTY)
	assert.False(t, cfg.MatchesGBKPrefix("ls"))
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostconfig.yml")
	require.NoError(t, os.WriteFile(path, []byte("gbk_command_prefixes: {"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
