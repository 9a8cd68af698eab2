package tsomap

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentroidOf(t *testing.T) {
	b := testBoundaries(t)

	tests := []struct {
		iso  string
		want LatLon
	}{
		{"DE", LatLon{Lat: 52, Lon: 10}},
		{"FR", LatLon{Lat: 46, Lon: 2}},
		{"XK", LatLon{Lat: 48, Lon: 16}},
		{"", LatLon{Lat: 48, Lon: 16}},
	}
	for _, tt := range tests {
		t.Run(tt.iso, func(t *testing.T) {
			assert.Equal(t, tt.want, b.CentroidOf(tt.iso))
			// Memoized results stay identical.
			assert.Equal(t, tt.want, b.CentroidOf(tt.iso))
		})
	}

	var nilTable *Boundaries
	assert.Equal(t, FallbackCenter, nilTable.CentroidOf("DE"))
}

func TestCentroidOfMultiPolygonIsAreaWeighted(t *testing.T) {
	mp := append(square(0, 0, 2, 2), square(10, 0, 12, 2)...)
	b, err := NewBoundaries([]BoundaryFeature{{ISOCode: "BE", Geometry: mp}})
	require.NoError(t, err)

	got := b.CentroidOf("BE")
	assert.InDelta(t, 1, got.Lat, 1e-12)
	assert.InDelta(t, 6, got.Lon, 1e-12)
}

func TestCentroidOfZeroAreaFallsBack(t *testing.T) {
	flat := orb.MultiPolygon{{orb.Ring{{0, 0}, {1, 0}, {2, 0}, {0, 0}}}}
	b, err := NewBoundaries([]BoundaryFeature{{ISOCode: "ZZ", Geometry: flat}})
	require.NoError(t, err)
	assert.Equal(t, FallbackCenter, b.CentroidOf("ZZ"))
}

func TestNewBoundariesRejectsDuplicates(t *testing.T) {
	_, err := NewBoundaries([]BoundaryFeature{
		{ISOCode: "DE", Geometry: square(0, 0, 1, 1)},
		{ISOCode: "DE", Geometry: square(2, 2, 3, 3)},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateISO))
}

func TestBoundariesAccessors(t *testing.T) {
	b := testBoundaries(t)
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []string{"DE", "FR"}, b.ISOCodes())

	f, ok := b.Feature("FR")
	require.True(t, ok)
	assert.Equal(t, "FR", f.ISOCode)

	_, ok = b.Feature("XK")
	assert.False(t, ok)
}

func TestCountryAtRejectsNonFinite(t *testing.T) {
	b := testBoundaries(t)
	_, ok := b.CountryAt(math.NaN(), 10)
	assert.False(t, ok)

	iso, ok := b.CountryAt(52, 10)
	require.True(t, ok)
	assert.Equal(t, "DE", iso)
}

func TestBoundariesFromCollection(t *testing.T) {
	fc := geojson.NewFeatureCollection()

	de := geojson.NewFeature(orb.Polygon(square(8, 50, 12, 54)[0]))
	de.Properties["ISO_A2"] = "de"
	fc.Append(de)

	point := geojson.NewFeature(orb.Point{1, 1})
	point.Properties["ISO_A2"] = "VA"
	fc.Append(point)

	unnamed := geojson.NewFeature(square(0, 0, 1, 1))
	fc.Append(unnamed)

	bowTie := geojson.NewFeature(orb.Polygon{orb.Ring{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0}}})
	bowTie.Properties["ISO_A2"] = "CH"
	fc.Append(bowTie)

	features, repaired, err := boundariesFromCollection(fc, BoundaryOptions{ISOProperty: "ISO_A2", Logger: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	require.Len(t, features, 2)

	assert.Equal(t, "DE", features[0].ISOCode)
	assert.False(t, features[0].Repaired)
	assert.Len(t, features[0].Geometry, 1)

	assert.Equal(t, "CH", features[1].ISOCode)
	assert.True(t, features[1].Repaired)
	assert.Len(t, features[1].Geometry, 2)
}

func TestLoadBoundariesErrors(t *testing.T) {
	_, _, err := loadBoundaries("testdata/does-not-exist.geojson", BoundaryOptions{})
	assert.Error(t, err)

	_, _, err = loadBoundaries("testdata/tso_data_cleaned.json", BoundaryOptions{})
	assert.Error(t, err, "a JSON list is not a FeatureCollection")
}
