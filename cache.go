package tsomap

import (
	"bytes"
	"compress/bzip2"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
)

// snapshotFile is the gob dump written to the cache directory. Compressed
// copies take precedence when present: snapshotFile + ".bz2" (made with the
// bzip2 tool) first, then snapshotFile + ".sz" (snappy block, written by
// store when compression is on).
const snapshotFile = "tsomap.dmp"

const (
	bzip2Ext  = ".bz2"
	snappyExt = ".sz"
)

// snapshotVersion changes whenever the snapshot layout does.
const snapshotVersion = 2

// snapshotSources records the load settings a snapshot was built with.
type snapshotSources struct {
	BoundaryFile    string // Absolute paths
	ConnectionsFile string
	RegistryFile    string
	ISOProperty     string
}

func sourcesOf(cfg *Config) snapshotSources {
	return snapshotSources{
		BoundaryFile:    absPath(cfg.path(cfg.BoundaryFile)),
		ConnectionsFile: absPath(cfg.path(cfg.ConnectionsFile)),
		RegistryFile:    absPath(cfg.path(cfg.RegistryFile)),
		ISOProperty:     cfg.ISOProperty,
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// snapshot is the repaired, validated form of the three reference files.
type snapshot struct {
	Version     int
	Sources     snapshotSources
	Features    []BoundaryFeature
	Repaired    int
	Connections []ConnectionRecord
	Skipped     []SkippedRecord
	Registry    []TsoEntry
}

// tsoMap indexes the snapshot tables.
func (s *snapshot) tsoMap(cfg *Config) (*TsoMap, error) {
	if len(s.Features) == 0 {
		return nil, errors.New("no boundary features loaded")
	}
	b, err := NewBoundaries(s.Features)
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(s.Registry)
	if err != nil {
		return nil, err
	}
	return &TsoMap{
		Boundaries:  b,
		Connections: s.Connections,
		Neighbors:   BuildIndex(s.Connections),
		Registry:    reg,
		Report: LoadReport{
			RepairedFeatures: s.Repaired,
			SkippedRecords:   s.Skipped,
		},
		config: cfg,
	}, nil
}

// checkSources fails when the snapshot was built from other files or
// another ISO property than cfg asks for.
func (s *snapshot) checkSources(cfg *Config) error {
	want := sourcesOf(cfg)
	if s.Sources != want {
		return fmt.Errorf("snapshot built from %+v, want %+v", s.Sources, want)
	}
	return nil
}

// store writes the snapshot to dir, snappy compressed if compress is set.
// Other variants of the snapshot are removed so they cannot shadow it.
func (s *snapshot) store(dir string, compress bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	b := new(bytes.Buffer)
	if err := gob.NewEncoder(b).Encode(s); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	base := filepath.Join(dir, snapshotFile)
	name, data, stale := base, b.Bytes(), []string{base + bzip2Ext, base + snappyExt}
	if compress {
		name, data, stale = base+snappyExt, snappy.Encode(nil, b.Bytes()), []string{base + bzip2Ext, base}
	}
	for _, f := range stale {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing stale snapshot: %w", err)
		}
	}
	if err := os.WriteFile(name, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

func openOptionallyCompressedFile(file string) (io.Reader, func() error, error) {
	if fh, err := os.Open(file + bzip2Ext); err == nil {
		return bzip2.NewReader(fh), fh.Close, nil
	}
	if compressed, err := os.ReadFile(file + snappyExt); err == nil {
		data, err := snappy.Decode(nil, compressed)
		if err != nil {
			return nil, nil, fmt.Errorf("decompressing %s: %w", file+snappyExt, err)
		}
		return bytes.NewReader(data), func() error { return nil }, nil
	}
	fh, err := os.Open(file)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", file, err)
	}
	return fh, fh.Close, nil
}

func loadSnapshot(dir string) (*snapshot, error) {
	fh, cleanup, err := openOptionallyCompressedFile(filepath.Join(dir, snapshotFile))
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var s snapshot
	if err := gob.NewDecoder(fh).Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", s.Version, snapshotVersion)
	}
	return &s, nil
}

// RegenerateCache reparses the raw reference files and rewrites the
// snapshot in the configured cache directory. WithCacheDir is required.
//
// With WithCompressedCache the snapshot is written snappy compressed.
// Otherwise it may be compressed afterwards:
//
//	bzip2 -f tsomap-cache/tsomap.dmp
func RegenerateCache(opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.CacheDir == "" {
		return errors.New("no cache directory configured")
	}

	snap, err := loadDataSets(cfg)
	if err != nil {
		return fmt.Errorf("failed to load data sets: %w", err)
	}
	if err := snap.store(cfg.CacheDir, cfg.CompressCache); err != nil {
		return fmt.Errorf("failed to store cache: %w", err)
	}
	return nil
}

// ValidationSummary is what ValidateCache checked.
type ValidationSummary struct {
	Boundaries  int
	Connections int
	Registry    int
	Checked     []string // Registry codes whose annotations were verified
}

// ValidateCache loads the configured data and checks integrity: the tables
// are non-empty, the neighbor relation is symmetric, and every registry
// country yields four annotations per connection touching it.
func ValidateCache(opts ...Option) (ValidationSummary, error) {
	var sum ValidationSummary
	m, err := NewTsoMap(opts...)
	if err != nil {
		return sum, fmt.Errorf("failed to load data: %w", err)
	}
	sum.Boundaries = m.Boundaries.Len()
	sum.Connections = len(m.Connections)
	sum.Registry = m.Registry.Len()

	if sum.Connections == 0 {
		return sum, errors.New("no connection records loaded")
	}
	if sum.Registry == 0 {
		return sum, ErrEmptyRegistry
	}

	for a, set := range m.Neighbors {
		for b := range set {
			if !m.Neighbors.Contains(b, a) {
				return sum, fmt.Errorf("neighbor relation not symmetric: %s -> %s", a, b)
			}
		}
	}

	for _, e := range m.Registry.Entries() {
		relevant := 0
		for _, r := range m.Connections {
			if r.Touches(e.ISOCode) {
				relevant++
			}
		}
		if got := len(m.AnnotationsFor(e.ISOCode)); got != 4*relevant {
			return sum, fmt.Errorf("annotations(%s) = %d, want %d", e.ISOCode, got, 4*relevant)
		}
		sum.Checked = append(sum.Checked, e.ISOCode)
	}
	return sum, nil
}
