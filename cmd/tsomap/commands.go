package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andreiashu/tsomap"
	"github.com/andreiashu/tsomap/internal/server"
)

type neighborsOutput struct {
	ISOCode   string            `json:"iso" yaml:"iso"`
	Neighbors []string          `json:"neighbors" yaml:"neighbors"`
	Details   []tsomap.TsoEntry `json:"details" yaml:"details"`
}

func newNeighborsCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "neighbors <iso>",
		Short: "List the countries electrically connected to a country",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, _, err := f.load()
			if err != nil {
				return err
			}
			iso := strings.ToUpper(args[0])
			out := neighborsOutput{ISOCode: iso, Neighbors: m.Lookup(iso), Details: m.NeighborDetails(iso)}

			w := cmd.OutOrStdout()
			if done, err := f.emit(w, out); done {
				return err
			}
			if len(out.Neighbors) == 0 {
				fmt.Fprintf(w, "%s has no recorded interconnections\n", iso)
				return nil
			}
			for _, code := range out.Neighbors {
				if e, ok := m.Registry.ByISO(code); ok {
					fmt.Fprintln(w, e.String())
				} else {
					fmt.Fprintln(w, code)
				}
			}
			return nil
		},
	}
}

func newAnnotateCmd(f *rootFlags) *cobra.Command {
	var asGeoJSON bool
	cmd := &cobra.Command{
		Use:   "annotate <iso>",
		Short: "Print the line, marker and label annotations for a country",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, _, err := f.load()
			if err != nil {
				return err
			}
			anns := m.AnnotationsFor(strings.ToUpper(args[0]))

			w := cmd.OutOrStdout()
			if asGeoJSON {
				data, err := json.MarshalIndent(tsomap.AnnotationsFeatureCollection(anns), "", "  ")
				if err != nil {
					return fmt.Errorf("encoding geojson: %w", err)
				}
				_, err = fmt.Fprintln(w, string(data))
				return err
			}
			if done, err := f.emit(w, anns); done {
				return err
			}
			for _, a := range anns {
				fmt.Fprintln(w, describeAnnotation(a))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asGeoJSON, "geojson", false, "Write a GeoJSON FeatureCollection")
	return cmd
}

func describeAnnotation(a tsomap.Annotation) string {
	switch a.Kind {
	case tsomap.KindLineSegment:
		return fmt.Sprintf("#%d line   %s -> %s (%.0f km)", a.Record, formatLatLon(a.Line.From), formatLatLon(a.Line.To), tsomap.LineLengthKm(*a.Line))
	case tsomap.KindPointMarker:
		return fmt.Sprintf("#%d marker %s %s", a.Record, formatLatLon(a.Marker.At), a.Marker.Label)
	case tsomap.KindMidpointLabel:
		return fmt.Sprintf("#%d label  %s %s", a.Record, formatLatLon(a.Label.At), a.Label.Label)
	}
	return fmt.Sprintf("#%d %s", a.Record, a.Kind)
}

func formatLatLon(ll tsomap.LatLon) string {
	return strconv.FormatFloat(ll.Lat, 'f', 4, 64) + "," + strconv.FormatFloat(ll.Lon, 'f', 4, 64)
}

func newSelectCmd(f *rootFlags) *cobra.Command {
	var country, iso, operator string
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Resolve a country, ISO code or operator to the full TSO selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, _, err := f.load()
			if err != nil {
				return err
			}
			sel, err := m.NewSelector()
			if err != nil {
				return err
			}

			switch {
			case country != "":
				err = sel.Apply(tsomap.FieldCountry, country)
			case iso != "":
				err = sel.Apply(tsomap.FieldISOCode, strings.ToUpper(iso))
			default:
				err = sel.Apply(tsomap.FieldOperator, operator)
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			cur := sel.Current()
			if done, err := f.emit(w, cur); done {
				return err
			}
			fmt.Fprintf(w, "%s - %s (%s)\n", cur.ISOCode, cur.Country, cur.Operator)
			return nil
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "Country name, e.g. Germany")
	cmd.Flags().StringVar(&iso, "iso", "", "ISO code, e.g. DE")
	cmd.Flags().StringVar(&operator, "operator", "", "Operator name, e.g. Amprion GmbH")
	cmd.MarkFlagsMutuallyExclusive("country", "iso", "operator")
	cmd.MarkFlagsOneRequired("country", "iso", "operator")
	return cmd
}

type locateOutput struct {
	ISOCode string  `json:"iso" yaml:"iso"`
	Lat     float64 `json:"lat" yaml:"lat"`
	Lon     float64 `json:"lon" yaml:"lon"`
}

func newLocateCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <lat> <lon>",
		Short: "Find the country containing a coordinate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid latitude %q: %w", args[0], err)
			}
			if math.IsNaN(lat) || lat < -90 || lat > 90 {
				return fmt.Errorf("invalid latitude %q: must be in [-90, 90]", args[0])
			}
			lon, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid longitude %q: %w", args[1], err)
			}
			if math.IsNaN(lon) || lon < -180 || lon > 180 {
				return fmt.Errorf("invalid longitude %q: must be in [-180, 180]", args[1])
			}
			m, _, _, err := f.load()
			if err != nil {
				return err
			}
			iso, ok := m.CountryAt(lat, lon)
			if !ok {
				return fmt.Errorf("no country at %g,%g", lat, lon)
			}

			w := cmd.OutOrStdout()
			if done, err := f.emit(w, locateOutput{ISOCode: iso, Lat: lat, Lon: lon}); done {
				return err
			}
			fmt.Fprintln(w, iso)
			return nil
		},
	}
}

func newServeCmd(f *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the map API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, l, err := f.load()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Addr
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			err = server.Run(ctx, l, addr, server.New(m, l).Handler())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	return cmd
}
