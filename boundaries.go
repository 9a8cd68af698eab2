package tsomap

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// FallbackCenter is returned for any country code that has no boundary
// feature. It sits roughly over central Europe.
var FallbackCenter = LatLon{Lat: 48, Lon: 16}

// LatLon is a WGS84 coordinate in degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func latLonFromPoint(p orb.Point) LatLon {
	return LatLon{Lat: p.Lat(), Lon: p.Lon()}
}

func (ll LatLon) point() orb.Point {
	return orb.Point{ll.Lon, ll.Lat}
}

// BoundaryFeature is one country outline. Geometry is always a valid
// MultiPolygon once loaded; Repaired records whether the source needed fixing.
type BoundaryFeature struct {
	ISOCode  string
	Geometry orb.MultiPolygon
	Repaired bool
}

// Boundaries is the immutable country outline table keyed by ISO code.
// Safe for concurrent use.
type Boundaries struct {
	features []BoundaryFeature
	byISO    map[string]int

	mu        sync.Mutex
	centroids map[string]LatLon

	s2Once  sync.Once
	s2Polys [][]s2Shape // parallel to features
}

// s2Shape is one polygon on the sphere: an outer loop and its holes.
type s2Shape struct {
	bound orb.Bound
	outer *s2.Loop
	holes []*s2.Loop
}

// NewBoundaries indexes features by ISO code. Codes must be unique.
func NewBoundaries(features []BoundaryFeature) (*Boundaries, error) {
	b := &Boundaries{
		features:  features,
		byISO:     make(map[string]int, len(features)),
		centroids: make(map[string]LatLon, len(features)),
	}
	for i, f := range features {
		if _, dup := b.byISO[f.ISOCode]; dup {
			return nil, fmt.Errorf("%w: boundary %q", ErrDuplicateISO, f.ISOCode)
		}
		b.byISO[f.ISOCode] = i
	}
	return b, nil
}

// Features returns the outlines in source order.
func (b *Boundaries) Features() []BoundaryFeature { return b.features }

// Len returns the number of outlines.
func (b *Boundaries) Len() int { return len(b.features) }

// Feature returns the outline for iso.
func (b *Boundaries) Feature(iso string) (BoundaryFeature, bool) {
	i, ok := b.byISO[iso]
	if !ok {
		return BoundaryFeature{}, false
	}
	return b.features[i], true
}

// ISOCodes returns all known codes sorted ascending.
func (b *Boundaries) ISOCodes() []string {
	codes := make([]string, 0, len(b.byISO))
	for code := range b.byISO {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// CentroidOf returns the planar area centroid of the country outline, or
// FallbackCenter if iso has no feature. It never fails. Results are memoized.
func (b *Boundaries) CentroidOf(iso string) LatLon {
	if b == nil {
		return FallbackCenter
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.centroids[iso]; ok {
		return c
	}
	c := FallbackCenter
	if i, ok := b.byISO[iso]; ok {
		if p, area := planar.CentroidArea(b.features[i].Geometry); area > 0 {
			c = latLonFromPoint(p)
		}
	}
	b.centroids[iso] = c
	return c
}

// CountryAt returns the ISO code of the country containing the point, using
// spherical containment on the repaired outlines.
func (b *Boundaries) CountryAt(lat, lon float64) (string, bool) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return "", false
	}
	b.s2Once.Do(b.buildS2Index)

	pt := orb.Point{lon, lat}
	q := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	for i, shapes := range b.s2Polys {
		for _, sh := range shapes {
			if !sh.bound.Contains(pt) || !sh.outer.ContainsPoint(q) {
				continue
			}
			inHole := false
			for _, h := range sh.holes {
				if h.ContainsPoint(q) {
					inHole = true
					break
				}
			}
			if !inHole {
				return b.features[i].ISOCode, true
			}
		}
	}
	return "", false
}

func (b *Boundaries) buildS2Index() {
	b.s2Polys = make([][]s2Shape, len(b.features))
	for i, f := range b.features {
		for _, poly := range f.Geometry {
			if len(poly) == 0 {
				continue
			}
			sh := s2Shape{bound: poly.Bound(), outer: s2LoopFromRing(poly[0])}
			for _, hole := range poly[1:] {
				sh.holes = append(sh.holes, s2LoopFromRing(hole))
			}
			b.s2Polys[i] = append(b.s2Polys[i], sh)
		}
	}
}

// s2LoopFromRing converts a closed planar ring to an s2 loop. Normalize picks
// the smaller of the two regions the loop bounds, which is the country side
// for any outline smaller than a hemisphere.
func s2LoopFromRing(r orb.Ring) *s2.Loop {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	pts := make([]s2.Point, 0, n)
	for _, p := range r[:n] {
		pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat(), p.Lon())))
	}
	l := s2.LoopFromPoints(pts)
	l.Normalize()
	return l
}

// BoundaryOptions controls how the boundary file is interpreted.
type BoundaryOptions struct {
	ISOProperty string // Feature property holding the country code (default "ISO2")
	Logger      *slog.Logger
}

// loadBoundaries parses a GeoJSON FeatureCollection of country outlines and
// repairs invalid geometry in place.
func loadBoundaries(path string, opts BoundaryOptions) ([]BoundaryFeature, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading boundary file: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing boundary file %s: %w", path, err)
	}
	return boundariesFromCollection(fc, opts)
}

func boundariesFromCollection(fc *geojson.FeatureCollection, opts BoundaryOptions) ([]BoundaryFeature, int, error) {
	key := opts.ISOProperty
	if key == "" {
		key = "ISO2"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	features := make([]BoundaryFeature, 0, len(fc.Features))
	repaired := 0
	for i, f := range fc.Features {
		iso := toUpper(f.Properties.MustString(key, ""))
		if iso == "" {
			logger.Warn("boundary feature without country code", "index", i, "property", key)
			continue
		}

		var mp orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			mp = g
		default:
			logger.Warn("boundary feature with unsupported geometry", "iso", iso, "type", fmt.Sprintf("%T", f.Geometry))
			continue
		}

		fixed, changed := repairMultiPolygon(mp)
		if changed {
			repaired++
			logger.Debug("boundary geometry repaired", "iso", iso)
		}
		if len(fixed) == 0 {
			logger.Warn("boundary feature has no usable polygon", "iso", iso)
			continue
		}
		features = append(features, BoundaryFeature{ISOCode: iso, Geometry: fixed, Repaired: changed})
	}
	return features, repaired, nil
}
