// Command update-cache regenerates the tsomap snapshot from the raw
// reference files and validates it.
//
// Usage:
//
//	go run ./cmd/update-cache -data-dir ./tsomap-data -cache-dir ./tsomap-cache
//
// Settings not given as flags come from the config file and TSOMAP_*
// environment variables; the snapshot goes to ./tsomap-cache when neither
// sets a cache directory. Pass -snappy to write a compressed snapshot, or
// compress the plain one afterwards:
//
//	bzip2 -f tsomap-cache/tsomap.dmp
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/andreiashu/tsomap"
	"github.com/andreiashu/tsomap/internal/config"
	"github.com/andreiashu/tsomap/internal/logger"
)

const defaultCacheDir = "./tsomap-cache"

var (
	configPath = flag.String("config", "", "YAML config file")
	dataDir    = flag.String("data-dir", "", "directory with the reference files")
	cacheDir   = flag.String("cache-dir", "", "snapshot output directory (default "+defaultCacheDir+")")
	compress   = flag.Bool("snappy", false, "write the snapshot snappy compressed")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg = applyFlags(cfg, *dataDir, *cacheDir, *compress)
	l := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	opts := append(cfg.Options(), tsomap.WithLogger(l))

	fmt.Printf("Regenerating tsomap snapshot from %s...\n", cfg.DataDir)
	if err := tsomap.RegenerateCache(opts...); err != nil {
		return err
	}

	sum, err := tsomap.ValidateCache(opts...)
	if err != nil {
		return fmt.Errorf("validating snapshot: %w", err)
	}
	fmt.Printf("Snapshot written to %s: %d boundaries, %d connections, %d registry entries, %d countries checked.\n",
		cfg.CacheDir, sum.Boundaries, sum.Connections, sum.Registry, len(sum.Checked))
	if !cfg.CompressCache {
		fmt.Printf("Run 'bzip2 -f %s/tsomap.dmp' or pass -snappy to compress the snapshot.\n", cfg.CacheDir)
	}
	return nil
}

// applyFlags layers explicitly set flags over the loaded config.
func applyFlags(cfg config.Config, dataDir, cacheDir string, compress bool) config.Config {
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if cacheDir != "" {
		cfg.CacheDir = cacheDir
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = defaultCacheDir
	}
	if compress {
		cfg.CompressCache = true
	}
	return cfg
}
