// Package config resolves service settings from defaults, an optional YAML
// file, .env files and TSOMAP_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/andreiashu/tsomap"
)

// Config holds everything the CLI and HTTP server need.
type Config struct {
	DataDir           string `yaml:"data_dir" validate:"required"`
	CacheDir          string `yaml:"cache_dir"`
	CompressCache     bool   `yaml:"compress_cache"`
	BoundaryFile      string `yaml:"boundary_file" validate:"required"`
	ConnectionsFile   string `yaml:"connections_file" validate:"required"`
	RegistryFile      string `yaml:"registry_file" validate:"required"`
	ISOProperty       string `yaml:"iso_property" validate:"required"`
	NeighborHighlight bool   `yaml:"neighbor_highlight"`
	Addr              string `yaml:"addr" validate:"required,hostname_port"`
	LogLevel          string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat         string `yaml:"log_format" validate:"omitempty,oneof=text json"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DataDir:           "./tsomap-data",
		BoundaryFile:      tsomap.DefaultBoundaryFile,
		ConnectionsFile:   tsomap.DefaultConnectionsFile,
		RegistryFile:      tsomap.DefaultRegistryFile,
		ISOProperty:       "ISO2",
		NeighborHighlight: true,
		Addr:              ":8080",
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Load builds the configuration. path may be empty. envFiles default to
// ".env"; missing env files are ignored. Values already present in the
// process environment win over .env entries.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"TSOMAP_DATA_DIR":         &c.DataDir,
		"TSOMAP_CACHE_DIR":        &c.CacheDir,
		"TSOMAP_BOUNDARY_FILE":    &c.BoundaryFile,
		"TSOMAP_CONNECTIONS_FILE": &c.ConnectionsFile,
		"TSOMAP_REGISTRY_FILE":    &c.RegistryFile,
		"TSOMAP_ISO_PROPERTY":     &c.ISOProperty,
		"TSOMAP_ADDR":             &c.Addr,
		"LOG_LEVEL":               &c.LogLevel,
		"LOG_FORMAT":              &c.LogFormat,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	bools := map[string]*bool{
		"TSOMAP_NEIGHBOR_HIGHLIGHT": &c.NeighborHighlight,
		"TSOMAP_COMPRESS_CACHE":     &c.CompressCache,
	}
	for key, dst := range bools {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = on
	}
	return nil
}

// Options converts the settings into library options.
func (c Config) Options() []tsomap.Option {
	return []tsomap.Option{
		tsomap.WithDataDir(c.DataDir),
		tsomap.WithCacheDir(c.CacheDir),
		tsomap.WithCompressedCache(c.CompressCache),
		tsomap.WithBoundaryFile(c.BoundaryFile),
		tsomap.WithConnectionsFile(c.ConnectionsFile),
		tsomap.WithRegistryFile(c.RegistryFile),
		tsomap.WithISOProperty(c.ISOProperty),
		tsomap.WithNeighborHighlight(c.NeighborHighlight),
	}
}
