package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/andreiashu/tsomap"
	"github.com/andreiashu/tsomap/internal/config"
	"github.com/andreiashu/tsomap/internal/logger"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	dataDir    string
	cacheDir   string
	output     string // text, json or yaml
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:   "tsomap",
		Short: "Explore electrical interconnections between European TSOs",
		Long: `Explore electrical interconnections between European transmission
system operators.

Reference data is read from a data directory holding the country outlines
(countries.geojson), the connectivity export (boundaries.json) and the TSO
registry (tso_data_cleaned.json).

Examples:
  tsomap neighbors DE
  tsomap annotate FR --geojson > fr.geojson
  tsomap select --country Germany -o json
  tsomap locate 51.0 10.0
  tsomap serve --addr :8080`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&f.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&f.dataDir, "data-dir", "", "Directory with the reference files (overrides config)")
	root.PersistentFlags().StringVar(&f.cacheDir, "cache-dir", "", "Snapshot cache directory (overrides config)")
	root.PersistentFlags().StringVarP(&f.output, "output", "o", "text", "Output format: text, json or yaml")

	root.AddCommand(
		newNeighborsCmd(f),
		newAnnotateCmd(f),
		newSelectCmd(f),
		newLocateCmd(f),
		newServeCmd(f),
	)
	return root
}

// settings resolves the configuration file, env and flag overrides.
func (f *rootFlags) settings() (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	if f.dataDir != "" {
		cfg.DataDir = f.dataDir
	}
	if f.cacheDir != "" {
		cfg.CacheDir = f.cacheDir
	}
	return cfg, nil
}

// load reads the reference data with the process logger.
func (f *rootFlags) load() (*tsomap.TsoMap, config.Config, *slog.Logger, error) {
	cfg, err := f.settings()
	if err != nil {
		return nil, cfg, nil, err
	}
	l := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	m, err := tsomap.NewTsoMap(append(cfg.Options(), tsomap.WithLogger(l))...)
	if err != nil {
		return nil, cfg, l, err
	}
	return m, cfg, l, nil
}

// emit writes v in the structured output format. It reports false when the
// caller should print text instead.
func (f *rootFlags) emit(w io.Writer, v any) (bool, error) {
	switch f.output {
	case "", "text":
		return false, nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return true, enc.Encode(v)
	}
	return true, fmt.Errorf("unknown output format %q", f.output)
}
