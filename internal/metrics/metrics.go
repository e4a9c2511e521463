package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the order intake service
type Metrics struct {
	AnalysisTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	ManualParseTotal *prometheus.CounterVec
	SubmissionsTotal *prometheus.CounterVec
	SubmittedOrders  prometheus.Counter
	ImagesCompressed *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all collectors once per process.
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			AnalysisTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "intake_image_analysis_total",
					Help: "Image analysis requests by outcome",
				},
				[]string{"outcome"},
			),
			AnalysisDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "intake_image_analysis_duration_seconds",
					Help:    "Latency of the analyze-image collaborator",
					Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
				},
				[]string{"outcome"},
			),
			ManualParseTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "intake_manual_parse_total",
					Help: "Manual text applications by mode (local, ai) and outcome",
				},
				[]string{"mode", "outcome"},
			),
			SubmissionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "intake_submissions_total",
					Help: "Submission attempts by outcome (rejected, failed, success)",
				},
				[]string{"outcome"},
			),
			SubmittedOrders: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "intake_submitted_orders_total",
					Help: "Order rows accepted by the submit-orders collaborator",
				},
			),
			ImagesCompressed: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "intake_images_total",
					Help: "Uploaded images by downscaling result (kept, compressed, fallback)",
				},
				[]string{"result"},
			),
		}
	})
	return instance
}

// Get returns the registered collectors, initializing them on first use.
func Get() *Metrics {
	return Initialize()
}
