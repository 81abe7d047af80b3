package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goplaces_uploads_total",
		Help: "Total image uploads by terminal state",
	}, []string{"state"})
	UploadDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "goplaces_upload_duration_ms",
		Help:    "Single image upload duration in milliseconds, including resampling",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})
	ResampleFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "goplaces_resample_fallbacks_total",
		Help: "Total uploads that fell back to the original bytes after a resample failure",
	})
	AssetDeletesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goplaces_asset_deletes_total",
		Help: "Total asset deletions by outcome",
	}, []string{"outcome"})
	NearbyRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "goplaces_nearby_requests_total",
		Help: "Total nearby place queries",
	})
	NearbyDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "goplaces_nearby_duration_ms",
		Help:    "Nearby place query duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "goplaces_edit_sessions_active",
		Help: "Number of open image edit sessions",
	})
)

func init() {
	prometheus.MustRegister(UploadsTotal)
	prometheus.MustRegister(UploadDurationMs)
	prometheus.MustRegister(ResampleFallbacksTotal)
	prometheus.MustRegister(AssetDeletesTotal)
	prometheus.MustRegister(NearbyRequestsTotal)
	prometheus.MustRegister(NearbyDurationMs)
	prometheus.MustRegister(ActiveSessions)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }

// RecordDeletes counts each outcome of a delete batch.
func RecordDeletes[T ~string](results map[string]T) {
	for _, outcome := range results {
		AssetDeletesTotal.WithLabelValues(string(outcome)).Inc()
	}
}
