package tsomap

import (
	"encoding/json"
	"testing"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyleFor(t *testing.T) {
	m, err := loadTestMap()
	require.NoError(t, err)

	tests := []struct {
		selected, iso string
		fill          string
		opacity       float64
	}{
		{"DE", "DE", ColorSelected, 0.7},
		{"DE", "PL", ColorNeighbor, 0.7},
		{"DE", "BE", ColorNeighbor, 0.7},
		{"FR", "PL", ColorOther, 0.4},
		{"ZZ", "DE", ColorOther, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.selected+"/"+tt.iso, func(t *testing.T) {
			got := m.StyleFor(tt.selected, tt.iso)
			assert.Equal(t, FeatureStyle{FillColor: tt.fill, Color: "black", Weight: 1, FillOpacity: tt.opacity}, got)
		})
	}

	plain, err := loadTestMap(WithNeighborHighlight(false))
	require.NoError(t, err)
	assert.Equal(t, ColorOther, plain.StyleFor("DE", "PL").FillColor)
	assert.Equal(t, ColorSelected, plain.StyleFor("DE", "DE").FillColor)
}

func TestView(t *testing.T) {
	m, err := loadTestMap()
	require.NoError(t, err)

	v := m.View("PL")
	assert.Equal(t, "PL", v.Selected)
	assert.Equal(t, DefaultZoom, v.Zoom)
	assert.Equal(t, []string{"DE"}, v.Neighbors)
	assert.Equal(t, []string{"DE - Germany (Amprion GmbH)"}, v.Details)
	assert.Len(t, v.Annotations, 4)

	unknown := m.View("ZZ")
	assert.Equal(t, FallbackCenter, unknown.Center)
	assert.NotNil(t, unknown.Neighbors)
	assert.NotNil(t, unknown.Details)
	assert.Empty(t, unknown.Annotations)

	data, err := json.Marshal(unknown)
	require.NoError(t, err)
	assert.JSONEq(t, `{"selected":"ZZ","center":{"lat":48,"lon":16},"zoom":6,"neighbors":[],"details":[]}`, string(data))
}

func TestChoroplethFeatureCollection(t *testing.T) {
	m, err := loadTestMap()
	require.NoError(t, err)

	fc := m.ChoroplethFeatureCollection("CH")
	require.Len(t, fc.Features, m.Boundaries.Len())

	fills := map[string]string{}
	for _, f := range fc.Features {
		id, ok := f.ID.(string)
		require.True(t, ok)
		assert.Equal(t, id, f.Properties["ISO2"])
		fills[id] = f.Properties.MustString("fillColor")
		_, isMulti := f.Geometry.(orb.MultiPolygon)
		assert.True(t, isMulti)
	}
	assert.Equal(t, map[string]string{
		"BE": ColorOther,
		"CH": ColorSelected,
		"DE": ColorNeighbor,
		"FR": ColorNeighbor,
		"PL": ColorOther,
	}, fills)
}

func TestAnnotationsFeatureCollection(t *testing.T) {
	b := testBoundaries(t)
	anns := AnnotationsFor("DE", b, []ConnectionRecord{{
		FromISO: "DE", ToISO: "FR", FromName: "S1", ToName: "S2", FromOperator: "TSO1", ToOperator: "TSO2",
	}})

	fc := AnnotationsFeatureCollection(anns)
	require.Len(t, fc.Features, 4)

	line := fc.Features[0]
	assert.Equal(t, "line-0", line.ID)
	assert.Equal(t, orb.LineString{{10, 52}, {2, 46}}, line.Geometry)
	assert.Equal(t, "line", line.Properties["kind"])
	assert.Equal(t, "green", line.Properties["color"])
	assert.InDelta(t, LineLengthKm(*anns[0].Line), line.Properties.MustFloat64("length_km"), 1e-9)

	from := fc.Features[1]
	assert.Equal(t, orb.Point{10, 52}, from.Geometry)
	assert.Equal(t, "marker-0-from", from.ID)
	assert.Equal(t, geohash.EncodeWithPrecision(52, 10, 9), from.Properties["geohash"])
	assert.Equal(t, "marker-0-to", fc.Features[2].ID)
	assert.Equal(t, "S1 (TSO1)", from.Properties["popup"])
	assert.Equal(t, "blue", from.Properties["color"])

	label := fc.Features[3]
	assert.Equal(t, orb.Point{6, 49}, label.Geometry)
	assert.Equal(t, "DE -   S1 (TSO1) - S2 (TSO2) - FR", label.Properties["popup"])
	assert.Equal(t, "red", label.Properties["color"])
	assert.Equal(t, "label-0", label.ID)
	assert.Equal(t, "label", label.Properties["kind"])
	assert.Equal(t, 0, label.Properties["record"])

	assert.Empty(t, AnnotationsFeatureCollection(nil).Features)
}

func TestAnnotationsFeatureIDsAreDistinct(t *testing.T) {
	b := testBoundaries(t)
	// Parallel lines share both centroids and the midpoint.
	anns := AnnotationsFor("DE", b, []ConnectionRecord{
		{FromISO: "DE", ToISO: "FR", FromName: "S1", ToName: "S2"},
		{FromISO: "DE", ToISO: "FR", FromName: "S3", ToName: "S4"},
	})

	fc := AnnotationsFeatureCollection(anns)
	require.Len(t, fc.Features, 8)

	ids := make(map[any]int)
	for _, f := range fc.Features {
		ids[f.ID]++
	}
	assert.Len(t, ids, 8)
	assert.Equal(t, fc.Features[1].Properties["geohash"], fc.Features[5].Properties["geohash"])
	assert.Equal(t, "marker-1-to", fc.Features[6].ID)
}
