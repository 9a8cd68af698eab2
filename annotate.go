package tsomap

import (
	"fmt"

	"github.com/golang/geo/s2"
)

// earthRadiusKm is the mean Earth radius used for line lengths.
const earthRadiusKm = 6371.0088

// AnnotationKind tells drawable annotations apart.
type AnnotationKind int

const (
	KindLineSegment AnnotationKind = iota
	KindPointMarker
	KindMidpointLabel
)

func (k AnnotationKind) String() string {
	switch k {
	case KindLineSegment:
		return "line"
	case KindPointMarker:
		return "marker"
	case KindMidpointLabel:
		return "label"
	}
	return fmt.Sprintf("AnnotationKind(%d)", int(k))
}

func (k AnnotationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Annotation is one drawable item. Exactly one of Line, Marker or Label is
// set, matching Kind.
type Annotation struct {
	Kind   AnnotationKind `json:"kind"`
	Record int            `json:"record"` // Index of the source record in the input sequence

	Line   *LineSegment   `json:"line,omitempty"`
	Marker *PointMarker   `json:"marker,omitempty"`
	Label  *MidpointLabel `json:"label,omitempty"`
}

// LineSegment connects two country centroids.
type LineSegment struct {
	From LatLon `json:"from"`
	To   LatLon `json:"to"`
}

// PointMarker marks a substation end of a connection.
type PointMarker struct {
	At    LatLon `json:"at"`
	Label string `json:"label"`
}

// MidpointLabel names a connection halfway along its line.
type MidpointLabel struct {
	At    LatLon `json:"at"`
	Label string `json:"label"`
}

// AnnotationsFor returns the lines, substation markers and line labels for
// every record touching iso, in record order. Each relevant record yields
// exactly four annotations. Parallel lines between the same two countries
// are all kept.
func AnnotationsFor(iso string, boundaries *Boundaries, records []ConnectionRecord) []Annotation {
	out := make([]Annotation, 0)
	for i, r := range records {
		if !r.Touches(iso) {
			continue
		}
		from := boundaries.CentroidOf(r.FromISO)
		to := boundaries.CentroidOf(r.ToISO)
		mid := LatLon{Lat: (from.Lat + to.Lat) / 2, Lon: (from.Lon + to.Lon) / 2}

		out = append(out,
			Annotation{Kind: KindLineSegment, Record: i, Line: &LineSegment{From: from, To: to}},
			Annotation{Kind: KindPointMarker, Record: i, Marker: &PointMarker{At: from, Label: substationLabel(r.FromName, r.FromOperator)}},
			Annotation{Kind: KindPointMarker, Record: i, Marker: &PointMarker{At: to, Label: substationLabel(r.ToName, r.ToOperator)}},
			Annotation{Kind: KindMidpointLabel, Record: i, Label: &MidpointLabel{At: mid, Label: LineLabel(r)}},
		)
	}
	return out
}

func substationLabel(name, operator string) string {
	return name + " (" + operator + ")"
}

// LineLabel composes the label drawn at a connection's midpoint, e.g.
// "DE -   S1 (TSO1) - S2 (TSO2) - FR". The spacing after the first code is
// what existing map exports carry and is kept byte for byte.
func LineLabel(r ConnectionRecord) string {
	return r.FromISO + " - " + "  " + substationLabel(r.FromName, r.FromOperator) +
		" - " + substationLabel(r.ToName, r.ToOperator) + " - " + r.ToISO
}

// LineLengthKm is the great-circle length of the segment.
func LineLengthKm(l LineSegment) float64 {
	a := s2.LatLngFromDegrees(l.From.Lat, l.From.Lon)
	b := s2.LatLngFromDegrees(l.To.Lat, l.To.Lon)
	return a.Distance(b).Radians() * earthRadiusKm
}
