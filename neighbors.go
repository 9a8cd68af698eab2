package tsomap

import "sort"

// NeighborIndex maps a country ISO code to the set of country codes it is
// electrically connected to.
type NeighborIndex map[string]map[string]struct{}

// BuildIndex derives the undirected neighbor relation from connection
// records. Several physical lines between the same pair of countries produce
// a single neighbor entry. Records whose endpoints share a country code are
// skipped; the loader reports them separately.
func BuildIndex(records []ConnectionRecord) NeighborIndex {
	idx := make(NeighborIndex)
	for _, r := range records {
		if r.isSelfLoop() {
			continue
		}
		idx.add(r.FromISO, r.ToISO)
		idx.add(r.ToISO, r.FromISO)
	}
	return idx
}

func (n NeighborIndex) add(from, to string) {
	set, ok := n[from]
	if !ok {
		set = make(map[string]struct{})
		n[from] = set
	}
	set[to] = struct{}{}
}

// Lookup returns the neighbors of iso sorted ascending. Unknown or islanded
// countries have no neighbors; the result is then empty, never nil.
func (n NeighborIndex) Lookup(iso string) []string {
	set := n[iso]
	out := make([]string, 0, len(set))
	for code := range set {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether a and b share at least one connection.
func (n NeighborIndex) Contains(a, b string) bool {
	_, ok := n[a][b]
	return ok
}

// Len returns the number of countries with at least one neighbor.
func (n NeighborIndex) Len() int { return len(n) }
