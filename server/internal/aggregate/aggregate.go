package aggregate

import (
	"errors"
	"fmt"

	"github.com/obsidianstack/regionmetrics/pkg/types"
	"github.com/obsidianstack/regionmetrics/server/internal/metrics"
	"github.com/obsidianstack/regionmetrics/server/internal/telemetry"
)

// ErrInvalidRequest marks a request the caller must fix (HTTP 400).
var ErrInvalidRequest = errors.New("invalid request")

const (
	latencyPercentile = 95
	latencyPlaces     = 2
	uptimePlaces      = 4
)

// Validate checks that req names at least one region and carries a threshold.
func Validate(req types.MetricsRequest) error {
	if len(req.Regions) == 0 {
		return fmt.Errorf("%w: regions must be a non-empty list", ErrInvalidRequest)
	}
	for i, r := range req.Regions {
		if r == "" {
			return fmt.Errorf("%w: regions[%d] is empty", ErrInvalidRequest, i)
		}
	}
	if req.ThresholdMs == nil {
		return fmt.Errorf("%w: threshold_ms is required", ErrInvalidRequest)
	}
	return nil
}

// Compute summarises each requested region of ds. Regions without samples
// are left out of the result.
func Compute(regions []string, thresholdMs float64, ds *telemetry.Dataset) types.Response {
	out := make(types.Response, len(regions))
	for _, region := range regions {
		if _, done := out[region]; done {
			continue
		}
		summary, ok := Summarize(ds.Region(region), thresholdMs)
		if !ok {
			continue
		}
		out[region] = summary
	}
	return out
}

// Summarize computes the RegionSummary for one region's samples. ok is false
// when samples is empty.
func Summarize(samples []types.Sample, thresholdMs float64) (summary types.RegionSummary, ok bool) {
	if len(samples) == 0 {
		return types.RegionSummary{}, false
	}

	latencies := make([]float64, len(samples))
	uptimes := make([]float64, len(samples))
	breaches := 0
	for i, s := range samples {
		latencies[i] = s.LatencyMs
		uptimes[i] = s.Uptime
		if s.LatencyMs > thresholdMs {
			breaches++
		}
	}

	return types.RegionSummary{
		AvgLatency: Round(Mean(latencies), latencyPlaces),
		P95Latency: Round(Percentile(latencies, latencyPercentile), latencyPlaces),
		AvgUptime:  Round(Mean(uptimes), uptimePlaces),
		Breaches:   breaches,
	}, true
}

// Aggregator answers metrics requests against one injected Dataset.
type Aggregator struct {
	ds *telemetry.Dataset
}

// New returns an Aggregator bound to ds. ds must not be modified afterwards.
func New(ds *telemetry.Dataset) *Aggregator {
	return &Aggregator{ds: ds}
}

// Dataset returns the bound dataset.
func (a *Aggregator) Dataset() *telemetry.Dataset {
	return a.ds
}

// Handle validates req and computes its response. Validation failures wrap
// ErrInvalidRequest; nothing is computed in that case.
func (a *Aggregator) Handle(req types.MetricsRequest) (types.Response, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	resp := Compute(req.Regions, *req.ThresholdMs, a.ds)

	for _, region := range req.Regions {
		summary, found := resp[region]
		if !found {
			metrics.ObserveRegion(metrics.RegionMissing, 0)
			continue
		}
		metrics.ObserveRegion(metrics.RegionFound, summary.Breaches)
	}
	return resp, nil
}
