package types

import (
	"encoding/json"
	"fmt"
)

// Sample is one observed latency/uptime measurement tagged with a region.
type Sample struct {
	Region    string  `json:"region"`
	LatencyMs float64 `json:"latency_ms"`
	Uptime    float64 `json:"uptime"`
}

// UnmarshalJSON accepts the uptime value under either "uptime" or
// "uptime_pct". When both are present, "uptime" wins.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var raw struct {
		Region    *string  `json:"region"`
		LatencyMs *float64 `json:"latency_ms"`
		Uptime    *float64 `json:"uptime"`
		UptimePct *float64 `json:"uptime_pct"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Region == nil || *raw.Region == "" {
		return fmt.Errorf("sample: region is required")
	}
	if raw.LatencyMs == nil {
		return fmt.Errorf("sample %q: latency_ms is required", *raw.Region)
	}
	if *raw.LatencyMs < 0 {
		return fmt.Errorf("sample %q: latency_ms %v must not be negative", *raw.Region, *raw.LatencyMs)
	}

	s.Region = *raw.Region
	s.LatencyMs = *raw.LatencyMs
	switch {
	case raw.Uptime != nil:
		s.Uptime = *raw.Uptime
	case raw.UptimePct != nil:
		s.Uptime = *raw.UptimePct
	default:
		return fmt.Errorf("sample %q: uptime or uptime_pct is required", *raw.Region)
	}
	return nil
}

// MetricsRequest is the body of a metrics call.
// ThresholdMs is a pointer so an absent field is distinguishable from 0.
type MetricsRequest struct {
	Regions     []string `json:"regions"`
	ThresholdMs *float64 `json:"threshold_ms"`
}

// RegionSummary holds the statistics computed for one requested region.
type RegionSummary struct {
	AvgLatency float64 `json:"avg_latency"`
	P95Latency float64 `json:"p95_latency"`
	AvgUptime  float64 `json:"avg_uptime"`
	Breaches   int     `json:"breaches"`
}

// Response maps region name to its summary. Regions without samples are absent.
type Response map[string]RegionSummary
