package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "test123", c.Password)
	assert.Equal(t, ":8501", c.ListenAddr)
	assert.Equal(t, "normalized", c.Schema)
	assert.Equal(t, 25, c.TopN)
	assert.Equal(t, 50, c.MaxUploadMB)
	assert.Equal(t, 240, c.SessionTTLMin)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoad_FileThenEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("schema: provider\ntop_n: 10\npassword: s3cret\n"), 0o600))
	t.Setenv("HCPDASH_TOP_N", "5")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "provider", c.Schema)
	assert.Equal(t, "s3cret", c.Password)
	assert.Equal(t, 5, c.TopN, "env wins over file")
}

func TestLoad_RejectsUnknownSchema(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("schema: wide\n"), 0o600))
	_, err := Load(p)
	assert.ErrorContains(t, err, "unknown schema")
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, c.Set("schema", "Provider"))
	require.NoError(t, c.Set("log_pretty", "true"))
	require.NoError(t, Save(c, p))

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "provider", again.Schema)
	assert.True(t, again.LogPretty)
}

func TestSet_Validation(t *testing.T) {
	var c Global
	assert.Error(t, c.Set("password", ""))
	assert.Error(t, c.Set("top_n", "-1"))
	assert.Error(t, c.Set("dev_mode", "maybe"))
	assert.ErrorContains(t, c.Set("api_key", "x"), "unknown key")
	require.NoError(t, c.Set("session_ttl_min", "15"))
	assert.Equal(t, 15, c.SessionTTLMin)
}
