// Package server exposes a loaded TSO map over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/andreiashu/tsomap"
	"github.com/andreiashu/tsomap/internal/metrics"
)

const shutdownTimeout = 30 * time.Second

// Server answers neighbor, annotation, selection and map requests.
type Server struct {
	m      *tsomap.TsoMap
	logger *slog.Logger
}

// New returns a server over m and publishes the dataset sizes.
func New(m *tsomap.TsoMap, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	metrics.DatasetSize.WithLabelValues("boundaries").Set(float64(m.Boundaries.Len()))
	metrics.DatasetSize.WithLabelValues("connections").Set(float64(len(m.Connections)))
	metrics.DatasetSize.WithLabelValues("registry").Set(float64(m.Registry.Len()))
	return &Server{m: m, logger: logger}
}

// Routes registers every endpoint.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	handle := func(pattern, route string, h http.HandlerFunc) {
		mux.Handle(pattern, instrument(route, h))
	}

	handle("GET /healthz", "healthz", s.healthz)
	mux.Handle("GET /metrics", metrics.Handler())
	handle("GET /api/registry", "registry", s.registry)
	handle("GET /api/selection", "selection", s.selection)
	handle("GET /api/countries/{iso}/neighbors", "neighbors", s.neighbors)
	handle("GET /api/countries/{iso}/annotations", "annotations", s.annotations)
	handle("GET /api/map/{iso}", "map", s.mapView)
	handle("GET /api/locate", "locate", s.locate)

	return mux
}

// Handler is Routes wrapped in the request middleware chain.
func (s *Server) Handler() http.Handler {
	return WrapMiddleware(s.Routes(),
		WithRequestID,
		WithLogger(s.logger),
		Recover(s.logger),
		AccessLog(s.logger),
	)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) registry(w http.ResponseWriter, r *http.Request) {
	Respond(w, http.StatusOK, s.m.Registry.Entries())
}

// selection resolves exactly one of country, iso or operator into the full
// synchronized selection.
func (s *Server) selection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		field tsomap.Field
		value string
		n     int
	)
	for _, f := range []tsomap.Field{tsomap.FieldCountry, tsomap.FieldISOCode, tsomap.FieldOperator} {
		if v := strings.TrimSpace(q.Get(f.String())); v != "" {
			field, value = f, v
			n++
		}
	}
	if n != 1 {
		Respond(w, http.StatusBadRequest, newErrResp("exactly one of country, iso or operator is required"))
		return
	}

	sel, err := s.m.NewSelector()
	if err != nil {
		Respond(w, http.StatusInternalServerError, newErrResp(err.Error()))
		return
	}
	if field == tsomap.FieldISOCode {
		value = strings.ToUpper(value)
	}
	if err := sel.Apply(field, value); err != nil {
		var se *tsomap.SelectionError
		if errors.As(err, &se) {
			metrics.SelectionFailuresTotal.WithLabelValues(field.String()).Inc()
			Respond(w, http.StatusNotFound, ErrorResponse{Error: se.Error(), Suggestion: se.Suggestion})
			return
		}
		Respond(w, http.StatusBadRequest, newErrResp(err.Error()))
		return
	}
	Respond(w, http.StatusOK, sel.Current())
}

type neighborsResponse struct {
	ISOCode   string            `json:"iso"`
	Neighbors []string          `json:"neighbors"`
	Details   []tsomap.TsoEntry `json:"details"`
}

func (s *Server) neighbors(w http.ResponseWriter, r *http.Request) {
	iso := pathISO(r)
	details := s.m.NeighborDetails(iso)
	if details == nil {
		details = []tsomap.TsoEntry{}
	}
	Respond(w, http.StatusOK, neighborsResponse{
		ISOCode:   iso,
		Neighbors: s.m.Lookup(iso),
		Details:   details,
	})
}

func (s *Server) annotations(w http.ResponseWriter, r *http.Request) {
	anns := s.m.AnnotationsFor(pathISO(r))
	metrics.AnnotationsServed.Observe(float64(len(anns)))
	respondAs(w, "application/geo+json", http.StatusOK, tsomap.AnnotationsFeatureCollection(anns))
}

type mapResponse struct {
	tsomap.MapView
	Choropleth  any `json:"choropleth"`
	Annotations any `json:"annotations"`
}

func (s *Server) mapView(w http.ResponseWriter, r *http.Request) {
	iso := pathISO(r)
	view := s.m.View(iso)
	metrics.AnnotationsServed.Observe(float64(len(view.Annotations)))
	Respond(w, http.StatusOK, mapResponse{
		MapView:     view,
		Choropleth:  s.m.ChoroplethFeatureCollection(iso),
		Annotations: tsomap.AnnotationsFeatureCollection(view.Annotations),
	})
}

type locateResponse struct {
	ISOCode string `json:"iso"`
	tsomap.LatLon
}

func (s *Server) locate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		Respond(w, http.StatusBadRequest, newErrResp("lat must be a number in [-90, 90]"))
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
		Respond(w, http.StatusBadRequest, newErrResp("lon must be a number in [-180, 180]"))
		return
	}
	iso, ok := s.m.CountryAt(lat, lon)
	if !ok {
		Respond(w, http.StatusNotFound, newErrResp(fmt.Sprintf("no country at %g,%g", lat, lon)))
		return
	}
	Respond(w, http.StatusOK, locateResponse{ISOCode: iso, LatLon: tsomap.LatLon{Lat: lat, Lon: lon}})
}

func pathISO(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(r.PathValue("iso")))
}

// Run serves handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) error {
	wg := sync.WaitGroup{}

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrs := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(serverErrs)

		logger.Info("starting http server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrs <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case err, ok := <-serverErrs:
		if ok {
			return fmt.Errorf("received server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	wg.Wait()
	return nil
}
