// Package metrics owns the Prometheus collectors exported by the service
// and the exposition scraper used by the stats command.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "regionmetrics"

// Region outcome labels.
const (
	RegionFound   = "found"
	RegionMissing = "missing"
)

// Metric names as they appear in the exposition.
const (
	RequestsTotalName = namespace + "_http_requests_total"
	RegionsTotalName  = namespace + "_regions_requested_total"
	BreachesTotalName = namespace + "_breaches_total"
	SamplesName       = namespace + "_dataset_samples"
	DatasetRegions    = namespace + "_dataset_regions"
)

var histogramBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers.",
			Buckets:   histogramBuckets,
		},
		[]string{"method", "route", "status"},
	)

	regionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_requested_total",
			Help:      "Regions named in metrics requests, partitioned by whether the dataset had samples for them.",
		},
		[]string{"outcome"},
	)

	breachesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaches_total",
			Help:      "Threshold breaches reported across all responses.",
		},
	)

	datasetSamples = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_samples",
			Help:      "Number of telemetry samples loaded.",
		},
	)

	datasetRegions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_regions",
			Help:      "Number of distinct regions in the loaded dataset.",
		},
	)
)

// Register attaches the collectors to reg. Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		requestsTotal,
		requestDuration,
		regionsTotal,
		breachesTotal,
		datasetSamples,
		datasetRegions,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRequest records one handled HTTP request.
func ObserveRequest(method, route string, status int, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	requestsTotal.With(labels).Inc()
	requestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveRegion records one requested region and the breaches reported for it.
func ObserveRegion(outcome string, breaches int) {
	if outcome != RegionFound {
		outcome = RegionMissing
	}
	regionsTotal.WithLabelValues(outcome).Inc()
	if breaches > 0 {
		breachesTotal.Add(float64(breaches))
	}
}

// SetDataset publishes the size of the loaded dataset.
func SetDataset(samples, regions int) {
	datasetSamples.Set(float64(samples))
	datasetRegions.Set(float64(regions))
}
