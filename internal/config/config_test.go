package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, StorageMemory, cfg.Storage.Kind)
	assert.Equal(t, "{author}{year}{title:1}", cfg.CiteKey.Pattern)
	assert.Equal(t, 30e9, float64(cfg.LockTimeout()))
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage.Kind)
}

func TestLoad_OverridesOnlyFieldsPresentInFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[storage]
kind = "file"
path = "data"

[citekey]
pattern = "{author}{year}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StorageFile, cfg.Storage.Kind)
	assert.Equal(t, "data", cfg.Storage.Path)
	assert.Equal(t, "{author}{year}", cfg.CiteKey.Pattern)
	// Fields absent from the file should still carry Default()'s values.
	assert.Equal(t, 3, cfg.CiteKey.MinLength, "MinLength should preserve its default")
	assert.Equal(t, 30, cfg.LockTimeoutSeconds, "LockTimeoutSeconds should preserve its default")
}

func TestLockTimeout_ZeroFallsBackToDefault(t *testing.T) {
	cfg := Config{LockTimeoutSeconds: 0}
	assert.Equal(t, 30e9, float64(cfg.LockTimeout()))
}

func TestLockTimeout_UsesConfiguredValue(t *testing.T) {
	cfg := Config{LockTimeoutSeconds: 5}
	assert.Equal(t, 5e9, float64(cfg.LockTimeout()))
}

func TestResolvePath_RelativeJoinsConfigDir(t *testing.T) {
	got := ResolvePath("/home/user/.bibmgr/config.toml", "data.db")
	assert.Equal(t, "/home/user/.bibmgr/data.db", got)
}

func TestResolvePath_AbsolutePassesThrough(t *testing.T) {
	got := ResolvePath("/home/user/.bibmgr/config.toml", "/var/data/data.db")
	assert.Equal(t, "/var/data/data.db", got)
}

func TestCiteKeyConfig_ToCiteKeyConfig(t *testing.T) {
	c := Default().CiteKey
	got, err := c.ToCiteKeyConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, got.MinLength)
	assert.Equal(t, 40, got.MaxLength)
}

func TestCiteKeyConfig_ToCiteKeyConfig_RejectsMalformedPattern(t *testing.T) {
	c := CiteKeyConfig{Pattern: "{unterminated"}
	_, err := c.ToCiteKeyConfig()
	assert.Error(t, err, "expected an error for a malformed citekey pattern")
}

func TestLoggingFromConfig_AppliesLevel(t *testing.T) {
	// Smoke test: LoggingFromConfig should not panic and should route
	// through to the logging package's Init.
	LoggingFromConfig(LoggingConfig{Level: "debug"})
}
