package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tsomap_requests_total",
		Help: "Total HTTP requests by route and status code",
	}, []string{"route", "code"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tsomap_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	AnnotationsServed = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tsomap_annotations_per_view",
		Help:    "Annotations returned per annotation or map request",
		Buckets: []float64{0, 4, 8, 16, 32, 64, 128, 256},
	})
	SelectionFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tsomap_selection_failures_total",
		Help: "Selections rejected because no registry row matched",
	}, []string{"field"})
	DatasetSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tsomap_dataset_rows",
		Help: "Rows loaded per reference table",
	}, []string{"table"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(AnnotationsServed)
	prometheus.MustRegister(SelectionFailuresTotal)
	prometheus.MustRegister(DatasetSize)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }
