package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()

	assert.Empty(t, c.RedisURL, "no Redis means access control stays off")
	assert.Equal(t, 5*time.Minute, c.CacheTTL())
	assert.True(t, c.AuditEnabled())
	assert.Equal(t, 50, c.GetContextWindow())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graphgate.yaml")
	content := `
redis_url: redis://cache.internal:6380/2
cache_ttl_seconds: 60
audit_log: false
context_window: 80
base_template: sap_ontology_base
reserved_names:
  - staging
  - scratch
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis://cache.internal:6380/2", c.RedisURL)
	assert.Equal(t, time.Minute, c.CacheTTL())
	assert.False(t, c.AuditEnabled())
	assert.Equal(t, 80, c.GetContextWindow())
	assert.Equal(t, "sap_ontology_base", c.BaseTemplate)
	assert.Equal(t, []string{"staging", "scratch"}, c.ReservedNames)
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "graphgate.yaml"),
		[]byte("cache_ttl_seconds: 120\n"), 0o644))

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, c.CacheTTL())
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	_, err = Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graphgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis_url: [broken\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
