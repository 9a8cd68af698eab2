package tsomap

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// repairEpsilon is the parametric tolerance used when deciding whether a
// crossing falls on a segment end.
const repairEpsilon = 1e-12

// repairMultiPolygon canonicalizes country outlines so that every ring is
// closed, simple and non-degenerate, outer rings run counter-clockwise and
// holes clockwise. A member lying inside another member of the same
// feature is dropped; members that only partly overlap are kept as they are
// and still count as repaired. The bool reports whether validity problems
// were fixed; orientation alone does not count.
func repairMultiPolygon(mp orb.MultiPolygon) (orb.MultiPolygon, bool) {
	changed := false
	var outers []orb.Ring
	var holes []orb.Ring

	for _, poly := range mp {
		for ri, ring := range poly {
			clean, ok := cleanRing(ring)
			if !ok {
				changed = true
				continue
			}
			if !sameRing(clean, ring) {
				changed = true
			}
			pieces := splitRing(clean)
			if len(pieces) != 1 {
				changed = true
			}
			for _, piece := range pieces {
				area := signedArea(piece)
				if area == 0 {
					changed = true
					continue
				}
				if ri == 0 {
					if area < 0 {
						piece.Reverse()
					}
					outers = append(outers, piece)
				} else {
					if area > 0 {
						piece.Reverse()
					}
					holes = append(holes, piece)
				}
			}
		}
	}

	outers, overlapped := resolveOverlaps(outers)
	if overlapped {
		changed = true
	}

	out := make(orb.MultiPolygon, len(outers))
	for i, o := range outers {
		out[i] = orb.Polygon{o}
	}
	for _, h := range holes {
		owner := -1
		first := h[0]
		for i, o := range outers {
			if planar.RingContains(o, first) {
				owner = i
				break
			}
		}
		if owner < 0 {
			changed = true
			continue
		}
		out[owner] = append(out[owner], h)
	}
	return out, changed
}

// resolveOverlaps drops outer rings covered by a larger one and reports
// whether any two outers share interior. Survivors keep their input order.
func resolveOverlaps(outers []orb.Ring) ([]orb.Ring, bool) {
	if len(outers) < 2 {
		return outers, false
	}
	order := make([]int, len(outers))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(signedArea(outers[order[a]])) > math.Abs(signedArea(outers[order[b]]))
	})

	overlapped := false
	dropped := make([]bool, len(outers))
	for k, i := range order {
		for _, j := range order[:k] {
			if dropped[j] || !outers[i].Bound().Intersects(outers[j].Bound()) {
				continue
			}
			if ringCovers(outers[j], outers[i]) {
				dropped[i] = true
				overlapped = true
				break
			}
			if ringsOverlap(outers[j], outers[i]) {
				overlapped = true
			}
		}
	}
	if !overlapped {
		return outers, false
	}

	kept := outers[:0:0]
	for i, o := range outers {
		if !dropped[i] {
			kept = append(kept, o)
		}
	}
	return kept, true
}

// ringCovers reports whether small lies entirely inside big, boundary
// included.
func ringCovers(big, small orb.Ring) bool {
	if ringsCross(big, small) {
		return false
	}
	for _, p := range ringSamples(small) {
		if !planar.RingContains(big, p) {
			return false
		}
	}
	return true
}

// ringsOverlap reports whether two simple rings share interior area.
func ringsOverlap(a, b orb.Ring) bool {
	if ringsCross(a, b) {
		return true
	}
	for _, p := range ringSamples(b) {
		if strictlyInside(a, p) {
			return true
		}
	}
	for _, p := range ringSamples(a) {
		if strictlyInside(b, p) {
			return true
		}
	}
	return false
}

// ringsCross reports a crossing strictly inside an edge of both rings.
func ringsCross(a, b orb.Ring) bool {
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if !boundsOverlap(a[i], a[i+1], b[j], b[j+1]) {
				continue
			}
			_, t, u, ok := segmentIntersection(a[i], a[i+1], b[j], b[j+1])
			if ok && t > repairEpsilon && t < 1-repairEpsilon && u > repairEpsilon && u < 1-repairEpsilon {
				return true
			}
		}
	}
	return false
}

// ringSamples returns the vertices of a closed ring and its edge midpoints.
func ringSamples(r orb.Ring) []orb.Point {
	out := make([]orb.Point, 0, 2*len(r))
	for i := 0; i+1 < len(r); i++ {
		out = append(out, r[i], orb.Point{(r[i][0] + r[i+1][0]) / 2, (r[i][1] + r[i+1][1]) / 2})
	}
	return out
}

func strictlyInside(r orb.Ring, p orb.Point) bool {
	return planar.RingContains(r, p) && !onRing(r, p)
}

func onRing(r orb.Ring, p orb.Point) bool {
	for i := 0; i+1 < len(r); i++ {
		a, b := r[i], r[i+1]
		dx, dy := b[0]-a[0], b[1]-a[1]
		cross := dx*(p[1]-a[1]) - dy*(p[0]-a[0])
		if math.Abs(cross) > repairEpsilon*math.Max(1, dx*dx+dy*dy) {
			continue
		}
		if p[0] >= math.Min(a[0], b[0]) && p[0] <= math.Max(a[0], b[0]) &&
			p[1] >= math.Min(a[1], b[1]) && p[1] <= math.Max(a[1], b[1]) {
			return true
		}
	}
	return false
}

// cleanRing drops non-finite and consecutive duplicate vertices and closes
// the ring. It fails when fewer than three distinct vertices remain.
func cleanRing(r orb.Ring) (orb.Ring, bool) {
	out := make(orb.Ring, 0, len(r)+1)
	for _, p := range r {
		if !finitePoint(p) {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[len(out)-1] == out[0] {
		out = out[:len(out)-1]
	}
	if len(out) < 3 {
		return nil, false
	}
	return append(out, out[0]), true
}

func finitePoint(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func sameRing(a, b orb.Ring) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// signedArea is the shoelace area of a closed ring; positive means
// counter-clockwise in lon/lat space.
func signedArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i+1 < len(r); i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}

// splitPoint is a vertex inserted into an edge at parameter t.
type splitPoint struct {
	t float64
	p orb.Point
}

// splitRing nodes a closed ring at its self-intersections and cuts it into
// simple closed rings at every repeated vertex. A simple ring is returned
// as is.
func splitRing(r orb.Ring) []orb.Ring {
	n := len(r) - 1
	inserts := make([][]splitPoint, n)
	crossings := 0

	for i := 0; i < n; i++ {
		a1, a2 := r[i], r[i+1]
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			b1, b2 := r[j], r[j+1]
			if !boundsOverlap(a1, a2, b1, b2) {
				continue
			}
			p, t, u, ok := segmentIntersection(a1, a2, b1, b2)
			if !ok {
				continue
			}
			if t > repairEpsilon && t < 1-repairEpsilon {
				inserts[i] = append(inserts[i], splitPoint{t: t, p: p})
				crossings++
			}
			if u > repairEpsilon && u < 1-repairEpsilon {
				inserts[j] = append(inserts[j], splitPoint{t: u, p: p})
				crossings++
			}
		}
	}

	// Shared vertices without crossings (a ring touching itself) still need
	// splitting, so the walk below runs either way.
	seq := make([]orb.Point, 0, n+crossings)
	for i := 0; i < n; i++ {
		seq = append(seq, r[i])
		pts := inserts[i]
		sort.Slice(pts, func(a, b int) bool { return pts[a].t < pts[b].t })
		for _, sp := range pts {
			if seq[len(seq)-1] != sp.p {
				seq = append(seq, sp.p)
			}
		}
	}
	seq = append(seq, r[0])

	var pieces []orb.Ring
	stack := make([]orb.Point, 0, len(seq))
	pos := make(map[orb.Point]int, len(seq))
	for _, p := range seq {
		idx, seen := pos[p]
		if !seen {
			pos[p] = len(stack)
			stack = append(stack, p)
			continue
		}
		if len(stack)-idx >= 3 {
			loop := make(orb.Ring, 0, len(stack)-idx+1)
			loop = append(loop, stack[idx:]...)
			loop = append(loop, p)
			pieces = append(pieces, loop)
		}
		for _, q := range stack[idx+1:] {
			delete(pos, q)
		}
		stack = stack[:idx+1]
	}

	if crossings == 0 && len(pieces) == 1 && len(pieces[0]) == len(r) {
		return []orb.Ring{r}
	}
	return pieces
}

func boundsOverlap(a1, a2, b1, b2 orb.Point) bool {
	return math.Max(a1[0], a2[0]) >= math.Min(b1[0], b2[0]) &&
		math.Max(b1[0], b2[0]) >= math.Min(a1[0], a2[0]) &&
		math.Max(a1[1], a2[1]) >= math.Min(b1[1], b2[1]) &&
		math.Max(b1[1], b2[1]) >= math.Min(a1[1], a2[1])
}

// segmentIntersection intersects segments a1-a2 and b1-b2. It returns the
// crossing point and its parameters along each segment. Parallel and
// collinear segments report no intersection. Crossings at a segment end
// snap to that end's exact coordinates.
func segmentIntersection(a1, a2, b1, b2 orb.Point) (orb.Point, float64, float64, bool) {
	dax, day := a2[0]-a1[0], a2[1]-a1[1]
	dbx, dby := b2[0]-b1[0], b2[1]-b1[1]
	den := dax*dby - day*dbx
	if den == 0 {
		return orb.Point{}, 0, 0, false
	}
	ex, ey := b1[0]-a1[0], b1[1]-a1[1]
	t := (ex*dby - ey*dbx) / den
	u := (ex*day - ey*dax) / den
	if t < -repairEpsilon || t > 1+repairEpsilon || u < -repairEpsilon || u > 1+repairEpsilon {
		return orb.Point{}, 0, 0, false
	}

	switch {
	case t <= repairEpsilon:
		return a1, 0, u, true
	case t >= 1-repairEpsilon:
		return a2, 1, u, true
	case u <= repairEpsilon:
		return b1, t, 0, true
	case u >= 1-repairEpsilon:
		return b2, t, 1, true
	}
	return orb.Point{a1[0] + t*dax, a1[1] + t*day}, t, u, true
}
