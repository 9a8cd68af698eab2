// Package tsomap resolves the electrical interconnections of European
// transmission system operators and turns them into map annotations.
//
// All reference data is loaded once into memory; a *TsoMap is read-only
// afterwards and safe for concurrent use.
package tsomap

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

var (
	// ErrUnknownSelection is wrapped by every *SelectionError.
	ErrUnknownSelection = errors.New("unknown selection")
	// ErrEmptyRegistry is returned when a selector has no rows to choose from.
	ErrEmptyRegistry = errors.New("empty TSO registry")
	// ErrDuplicateISO is returned when a table lists a country code twice.
	ErrDuplicateISO = errors.New("duplicate ISO code")
)

// Default file names inside the data directory.
const (
	DefaultBoundaryFile    = "countries.geojson"
	DefaultConnectionsFile = "boundaries.json"
	DefaultRegistryFile    = "tso_data_cleaned.json"
)

// Config contains configuration options for TsoMap initialization.
type Config struct {
	DataDir           string // Directory holding the reference files (default: "./tsomap-data")
	CacheDir          string // Snapshot directory; empty disables the cache
	CompressCache     bool   // Write snapshots snappy compressed
	BoundaryFile      string // Relative to DataDir unless absolute
	ConnectionsFile   string
	RegistryFile      string
	ISOProperty       string // GeoJSON property holding the country code
	NeighborHighlight bool   // Paint neighbors of the selection red
	Logger            *slog.Logger
}

// Option is a functional option for configuring TsoMap.
type Option func(*Config)

// WithDataDir sets the directory for the reference files.
func WithDataDir(dir string) Option {
	return func(c *Config) {
		c.DataDir = dir
	}
}

// WithCacheDir enables the snapshot cache in dir.
func WithCacheDir(dir string) Option {
	return func(c *Config) {
		c.CacheDir = dir
	}
}

// WithCompressedCache writes snapshots snappy compressed.
func WithCompressedCache(on bool) Option {
	return func(c *Config) {
		c.CompressCache = on
	}
}

// WithBoundaryFile overrides the country outline file.
func WithBoundaryFile(path string) Option {
	return func(c *Config) {
		c.BoundaryFile = path
	}
}

// WithConnectionsFile overrides the connectivity file.
func WithConnectionsFile(path string) Option {
	return func(c *Config) {
		c.ConnectionsFile = path
	}
}

// WithRegistryFile overrides the TSO registry file.
func WithRegistryFile(path string) Option {
	return func(c *Config) {
		c.RegistryFile = path
	}
}

// WithISOProperty sets the GeoJSON property that carries the country code.
func WithISOProperty(key string) Option {
	return func(c *Config) {
		c.ISOProperty = key
	}
}

// WithNeighborHighlight toggles the red neighbor fill in map views.
func WithNeighborHighlight(on bool) Option {
	return func(c *Config) {
		c.NeighborHighlight = on
	}
}

// WithLogger sets the logger used during loading.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func defaultConfig() *Config {
	return &Config{
		DataDir:           "./tsomap-data",
		BoundaryFile:      DefaultBoundaryFile,
		ConnectionsFile:   DefaultConnectionsFile,
		RegistryFile:      DefaultRegistryFile,
		ISOProperty:       "ISO2",
		NeighborHighlight: true,
	}
}

// path resolves a reference file name against DataDir.
func (c *Config) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// LoadReport summarizes what loading had to fix or drop.
type LoadReport struct {
	FromCache        bool
	RepairedFeatures int
	SkippedRecords   []SkippedRecord
	Duration         time.Duration
}

// TsoMap holds the boundary table, connection records, neighbor index and
// TSO registry.
type TsoMap struct {
	Boundaries  *Boundaries
	Connections []ConnectionRecord
	Neighbors   NeighborIndex
	Registry    *Registry
	Report      LoadReport

	config *Config
}

// NewTsoMap loads the reference data into memory.
//
// Example:
//
//	m, err := tsomap.NewTsoMap(tsomap.WithDataDir("/srv/tsomap"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, a := range m.AnnotationsFor("DE") {
//	    fmt.Println(a.Kind)
//	}
func NewTsoMap(opts ...Option) (*TsoMap, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger
	start := time.Now()

	var (
		snap *snapshot
		err  error
	)
	fromCache := false
	if cfg.CacheDir != "" {
		snap, err = loadSnapshot(cfg.CacheDir)
		if err == nil {
			err = snap.checkSources(cfg)
		}
		if err == nil {
			fromCache = true
		} else {
			snap = nil
			logger.Debug("snapshot not used", "dir", cfg.CacheDir, "error", err)
		}
	}
	if snap == nil {
		snap, err = loadDataSets(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.CacheDir != "" {
			if storeErr := snap.store(cfg.CacheDir, cfg.CompressCache); storeErr != nil {
				logger.Warn("failed to store snapshot", "dir", cfg.CacheDir, "error", storeErr)
			}
		}
	}

	m, err := snap.tsoMap(cfg)
	if err != nil {
		return nil, err
	}
	m.Report.FromCache = fromCache
	m.Report.Duration = time.Since(start)

	for _, s := range m.Report.SkippedRecords {
		logger.Warn("connection record skipped", "index", s.Index, "from", s.Record.FromISO, "to", s.Record.ToISO, "reason", s.Reason)
	}
	logger.Info("reference data loaded",
		"boundaries", m.Boundaries.Len(),
		"connections", len(m.Connections),
		"registry", m.Registry.Len(),
		"repaired", m.Report.RepairedFeatures,
		"skipped", len(m.Report.SkippedRecords),
		"from_cache", fromCache,
		"duration_ms", m.Report.Duration.Milliseconds(),
	)
	return m, nil
}

// loadDataSets parses the three reference files.
func loadDataSets(cfg *Config) (*snapshot, error) {
	features, repaired, err := loadBoundaries(cfg.path(cfg.BoundaryFile), BoundaryOptions{
		ISOProperty: cfg.ISOProperty,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("loading boundaries: %w", err)
	}
	records, skipped, err := loadConnections(cfg.path(cfg.ConnectionsFile))
	if err != nil {
		return nil, fmt.Errorf("loading connections: %w", err)
	}
	reg, err := loadRegistry(cfg.path(cfg.RegistryFile))
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}
	return &snapshot{
		Version:     snapshotVersion,
		Sources:     sourcesOf(cfg),
		Features:    features,
		Repaired:    repaired,
		Connections: records,
		Skipped:     skipped,
		Registry:    reg.Entries(),
	}, nil
}

// Lookup returns the sorted neighbor codes of iso.
func (m *TsoMap) Lookup(iso string) []string {
	return m.Neighbors.Lookup(iso)
}

// AnnotationsFor returns the drawable annotations for every connection
// touching iso.
func (m *TsoMap) AnnotationsFor(iso string) []Annotation {
	return AnnotationsFor(iso, m.Boundaries, m.Connections)
}

// NeighborDetails returns the registry entries of iso's neighbors. Neighbors
// missing from the registry are left out.
func (m *TsoMap) NeighborDetails(iso string) []TsoEntry {
	var out []TsoEntry
	for _, code := range m.Neighbors.Lookup(iso) {
		if e, ok := m.Registry.ByISO(code); ok {
			out = append(out, e)
		}
	}
	return out
}

// NewSelector returns a selector over this map's registry.
func (m *TsoMap) NewSelector() (*Selector, error) {
	return NewSelector(m.Registry)
}

// CountryAt returns the country containing the coordinate.
func (m *TsoMap) CountryAt(lat, lon float64) (string, bool) {
	return m.Boundaries.CountryAt(lat, lon)
}
