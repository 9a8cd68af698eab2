package tsomap

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func totalArea(mp orb.MultiPolygon) float64 {
	var sum float64
	for _, p := range mp {
		sum += planar.Area(p)
	}
	return sum
}

func TestRepairValidPolygonUnchanged(t *testing.T) {
	in := orb.MultiPolygon{{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}}
	out, changed := repairMultiPolygon(in)
	assert.False(t, changed)
	assert.Equal(t, in, out)
}

func TestRepairOrientationOnly(t *testing.T) {
	cw := orb.MultiPolygon{{orb.Ring{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}}}
	out, changed := repairMultiPolygon(cw)
	assert.False(t, changed, "orientation is normalized without counting as a repair")
	require.Len(t, out, 1)
	assert.Greater(t, signedArea(out[0][0]), 0.0)
	assert.InDelta(t, 1, totalArea(out), 1e-12)
}

func TestRepairBowTie(t *testing.T) {
	bowTie := orb.MultiPolygon{{orb.Ring{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0}}}}

	out, changed := repairMultiPolygon(bowTie)
	require.True(t, changed)
	require.Len(t, out, 2)
	for _, p := range out {
		require.Len(t, p, 1)
		assert.Len(t, p[0], 4, "triangle plus closing point")
		assert.Greater(t, signedArea(p[0]), 0.0)
		assert.Equal(t, p[0][0], p[0][len(p[0])-1])
	}
	assert.InDelta(t, 2, totalArea(out), 1e-12)

	assert.True(t, planar.MultiPolygonContains(out, orb.Point{0.5, 1}))
	assert.True(t, planar.MultiPolygonContains(out, orb.Point{1.5, 1}))
	assert.False(t, planar.MultiPolygonContains(out, orb.Point{1, 1.5}))
}

func TestRepairCleansRings(t *testing.T) {
	tests := []struct {
		name    string
		in      orb.MultiPolygon
		wantLen int
		area    float64
	}{
		{
			name:    "unclosed ring",
			in:      orb.MultiPolygon{{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}},
			wantLen: 1,
			area:    1,
		},
		{
			name:    "repeated vertices",
			in:      orb.MultiPolygon{{orb.Ring{{0, 0}, {1, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 1}, {0, 0}}}},
			wantLen: 1,
			area:    1,
		},
		{
			name:    "non-finite vertex dropped",
			in:      orb.MultiPolygon{{orb.Ring{{0, 0}, {1, 0}, {math.NaN(), 5}, {1, 1}, {0, 1}, {0, 0}}}},
			wantLen: 1,
			area:    1,
		},
		{
			name:    "degenerate ring dropped",
			in:      orb.MultiPolygon{{orb.Ring{{0, 0}, {1, 1}, {0, 0}}}},
			wantLen: 0,
		},
		{
			name:    "collinear ring dropped",
			in:      orb.MultiPolygon{{orb.Ring{{0, 0}, {1, 0}, {2, 0}, {0, 0}}}},
			wantLen: 0,
		},
		{
			name: "ring touching itself split at the shared vertex",
			in: orb.MultiPolygon{{orb.Ring{
				{0, 0}, {2, 0}, {1, 1}, {2, 2}, {0, 2}, {1, 1}, {0, 0},
			}}},
			wantLen: 2,
			area:    2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, changed := repairMultiPolygon(tt.in)
			assert.True(t, changed)
			require.Len(t, out, tt.wantLen)
			assert.InDelta(t, tt.area, totalArea(out), 1e-12)
			for _, p := range out {
				r := p[0]
				assert.Equal(t, r[0], r[len(r)-1], "ring is closed")
			}
		})
	}
}

func TestRepairKeepsHoles(t *testing.T) {
	in := orb.MultiPolygon{{
		orb.Ring{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		orb.Ring{{1, 1}, {2, 1}, {2, 2}, {1, 2}, {1, 1}}, // counter-clockwise hole
	}}
	out, changed := repairMultiPolygon(in)
	assert.False(t, changed)
	require.Len(t, out, 1)
	require.Len(t, out[0], 2)
	assert.Less(t, signedArea(out[0][1]), 0.0)
	assert.InDelta(t, 15, planar.Area(out[0]), 1e-12)
}

func TestRepairDropsOrphanHole(t *testing.T) {
	in := orb.MultiPolygon{{
		orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}},
		orb.Ring{{5, 5}, {5, 6}, {6, 6}, {6, 5}, {5, 5}},
	}}
	out, changed := repairMultiPolygon(in)
	assert.True(t, changed)
	require.Len(t, out, 1)
	assert.Len(t, out[0], 1)
}

func TestRepairOverlappingMembers(t *testing.T) {
	square := func(x0, y0, x1, y1 float64) orb.Polygon {
		return orb.Polygon{orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
	}
	tests := []struct {
		name     string
		in       orb.MultiPolygon
		wantLen  int
		wantArea float64
	}{
		{"identical", orb.MultiPolygon{square(0, 0, 2, 2), square(0, 0, 2, 2)}, 1, 4},
		{"nested", orb.MultiPolygon{square(1, 1, 2, 2), square(0, 0, 4, 4)}, 1, 16},
		{"partial", orb.MultiPolygon{square(0, 0, 2, 2), square(1, 1, 3, 3)}, 2, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, changed := repairMultiPolygon(tt.in)
			assert.True(t, changed)
			require.Len(t, out, tt.wantLen)
			assert.InDelta(t, tt.wantArea, totalArea(out), 1e-12)
		})
	}

	// Members sharing only an edge stay valid.
	touching := orb.MultiPolygon{square(0, 0, 1, 1), square(1, 0, 2, 1)}
	out, changed := repairMultiPolygon(touching)
	assert.False(t, changed)
	assert.Len(t, out, 2)
}

func TestRepairOverlapCentroid(t *testing.T) {
	dup := orb.MultiPolygon{
		{orb.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}},
		{orb.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}},
		{orb.Ring{{4, 0}, {6, 0}, {6, 2}, {4, 2}, {4, 0}}},
	}
	out, _ := repairMultiPolygon(dup)
	require.Len(t, out, 2)
	c, _ := planar.CentroidArea(out)
	assert.InDelta(t, 3, c[0], 1e-12, "the duplicate no longer pulls the centroid west")
}

func TestSegmentIntersection(t *testing.T) {
	p, tt, u, ok := segmentIntersection(orb.Point{0, 0}, orb.Point{2, 2}, orb.Point{2, 0}, orb.Point{0, 2})
	require.True(t, ok)
	assert.Equal(t, orb.Point{1, 1}, p)
	assert.InDelta(t, 0.5, tt, 1e-12)
	assert.InDelta(t, 0.5, u, 1e-12)

	_, _, _, ok = segmentIntersection(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{0, 1}, orb.Point{1, 1})
	assert.False(t, ok, "parallel")

	_, _, _, ok = segmentIntersection(orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{3, 0}, orb.Point{2, 1})
	assert.False(t, ok, "disjoint")

	p, tt, _, ok = segmentIntersection(orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{2, 0}, orb.Point{2, 3})
	require.True(t, ok)
	assert.Equal(t, orb.Point{2, 0}, p, "snaps to the shared end")
	assert.Equal(t, 1.0, tt)
}
