package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreiashu/tsomap"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("", filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tsomap.yaml", `
data_dir: /srv/tsomap
addr: "127.0.0.1:9090"
neighbor_highlight: false
log_format: json
`)
	t.Setenv("TSOMAP_ADDR", ":7070")

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/tsomap", cfg.DataDir)
	assert.Equal(t, ":7070", cfg.Addr)
	assert.False(t, cfg.NeighborHighlight)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "ISO2", cfg.ISOProperty)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, "test.env", "TSOMAP_ISO_PROPERTY=ISO_A2\nTSOMAP_NEIGHBOR_HIGHLIGHT=false\n")
	t.Setenv("TSOMAP_ISO_PROPERTY", "")
	t.Setenv("TSOMAP_NEIGHBOR_HIGHLIGHT", "")
	// godotenv leaves variables that already exist alone, even when empty.
	os.Unsetenv("TSOMAP_ISO_PROPERTY")
	os.Unsetenv("TSOMAP_NEIGHBOR_HIGHLIGHT")

	cfg, err := Load("", env)
	require.NoError(t, err)
	assert.Equal(t, "ISO_A2", cfg.ISOProperty)
	assert.False(t, cfg.NeighborHighlight)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"bad addr", `addr: "not an address"`},
		{"bad log level", `log_level: chatty`},
		{"empty data dir", `data_dir: ""`},
		{"malformed yaml", `addr: [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "bad.yaml", tt.body)
			_, err := Load(path, filepath.Join(dir, "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestLoadBadBoolEnv(t *testing.T) {
	t.Setenv("TSOMAP_NEIGHBOR_HIGHLIGHT", "sometimes")
	_, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "TSOMAP_NEIGHBOR_HIGHLIGHT")
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadCompressCacheEnv(t *testing.T) {
	t.Setenv("TSOMAP_COMPRESS_CACHE", "true")
	t.Setenv("TSOMAP_CACHE_DIR", "/var/cache/tsomap")
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.True(t, cfg.CompressCache)
	assert.Equal(t, "/var/cache/tsomap", cfg.CacheDir)
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.CacheDir = "/tmp/cache"
	cfg.CompressCache = true
	cfg.NeighborHighlight = false

	var got tsomap.Config
	for _, opt := range cfg.Options() {
		opt(&got)
	}
	assert.Equal(t, tsomap.Config{
		DataDir:           "./tsomap-data",
		CacheDir:          "/tmp/cache",
		CompressCache:     true,
		BoundaryFile:      tsomap.DefaultBoundaryFile,
		ConnectionsFile:   tsomap.DefaultConnectionsFile,
		RegistryFile:      tsomap.DefaultRegistryFile,
		ISOProperty:       "ISO2",
		NeighborHighlight: false,
	}, got)
}
