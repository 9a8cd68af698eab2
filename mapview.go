package tsomap

import (
	"strconv"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultZoom is the initial zoom level of a map view.
const DefaultZoom = 6

// markerHashPrecision is the geohash length of the marker geohash property (~5m).
const markerHashPrecision = 9

// Fill colors of the choropleth.
const (
	ColorSelected = "blue"
	ColorNeighbor = "red"
	ColorOther    = "lightgray"
)

// Stroke and fill styling of a country outline.
type FeatureStyle struct {
	FillColor   string  `json:"fillColor"`
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	FillOpacity float64 `json:"fillOpacity"`
}

// StyleFor returns the choropleth style of iso while selected is chosen.
func (m *TsoMap) StyleFor(selected, iso string) FeatureStyle {
	fill := ColorOther
	switch {
	case iso == selected:
		fill = ColorSelected
	case m.highlightNeighbors() && m.Neighbors.Contains(selected, iso):
		fill = ColorNeighbor
	}
	opacity := 0.7
	if fill == ColorOther {
		opacity = 0.4
	}
	return FeatureStyle{FillColor: fill, Color: "black", Weight: 1, FillOpacity: opacity}
}

func (m *TsoMap) highlightNeighbors() bool {
	return m.config == nil || m.config.NeighborHighlight
}

// CenterOf is the map center for a selection.
func (m *TsoMap) CenterOf(iso string) LatLon {
	return m.Boundaries.CentroidOf(iso)
}

// MapView is everything a map front end needs to draw one selection.
type MapView struct {
	Selected    string       `json:"selected"`
	Center      LatLon       `json:"center"`
	Zoom        int          `json:"zoom"`
	Neighbors   []string     `json:"neighbors"`
	Details     []string     `json:"details"`
	Annotations []Annotation `json:"-"`
}

// View assembles the map view for iso.
func (m *TsoMap) View(iso string) MapView {
	details := make([]string, 0)
	for _, e := range m.NeighborDetails(iso) {
		details = append(details, e.String())
	}
	return MapView{
		Selected:    iso,
		Center:      m.CenterOf(iso),
		Zoom:        DefaultZoom,
		Neighbors:   m.Lookup(iso),
		Details:     details,
		Annotations: m.AnnotationsFor(iso),
	}
}

// ChoroplethFeatureCollection returns every country outline with its style
// for the given selection as feature properties.
func (m *TsoMap) ChoroplethFeatureCollection(selected string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range m.Boundaries.Features() {
		feat := geojson.NewFeature(f.Geometry)
		feat.ID = f.ISOCode
		style := m.StyleFor(selected, f.ISOCode)
		feat.Properties["ISO2"] = f.ISOCode
		feat.Properties["tooltip"] = f.ISOCode
		feat.Properties["fillColor"] = style.FillColor
		feat.Properties["color"] = style.Color
		feat.Properties["weight"] = style.Weight
		feat.Properties["fillOpacity"] = style.FillOpacity
		fc.Append(feat)
	}
	return fc
}

// AnnotationsFeatureCollection converts annotations to GeoJSON: lines become
// LineStrings, markers and labels become Points with a popup property.
// Feature ids are derived from the record index so they stay unique when
// several markers share a centroid; the first marker of a record is its
// from end.
func AnnotationsFeatureCollection(anns []Annotation) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fromSeen := make(map[int]bool)
	for _, a := range anns {
		var feat *geojson.Feature
		switch a.Kind {
		case KindLineSegment:
			feat = geojson.NewFeature(orb.LineString{a.Line.From.point(), a.Line.To.point()})
			feat.ID = "line-" + strconv.Itoa(a.Record)
			feat.Properties["color"] = "green"
			feat.Properties["weight"] = 4
			feat.Properties["opacity"] = 0.7
			feat.Properties["length_km"] = LineLengthKm(*a.Line)
		case KindPointMarker:
			end := "from"
			if fromSeen[a.Record] {
				end = "to"
			}
			fromSeen[a.Record] = true
			feat = markerFeature(a.Marker.At, a.Marker.Label, "blue")
			feat.ID = "marker-" + strconv.Itoa(a.Record) + "-" + end
		case KindMidpointLabel:
			feat = markerFeature(a.Label.At, a.Label.Label, "red")
			feat.ID = "label-" + strconv.Itoa(a.Record)
		default:
			continue
		}
		feat.Properties["kind"] = a.Kind.String()
		feat.Properties["record"] = a.Record
		fc.Append(feat)
	}
	return fc
}

func markerFeature(at LatLon, label, color string) *geojson.Feature {
	feat := geojson.NewFeature(at.point())
	feat.Properties["geohash"] = geohash.EncodeWithPrecision(at.Lat, at.Lon, markerHashPrecision)
	feat.Properties["popup"] = label
	feat.Properties["color"] = color
	return feat
}
