package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Totals summarises a regionmetrics exposition.
type Totals struct {
	Requests       float64 `json:"requests"`
	RegionsFound   float64 `json:"regions_found"`
	RegionsMissing float64 `json:"regions_missing"`
	Breaches       float64 `json:"breaches"`
	Samples        float64 `json:"dataset_samples"`
	Regions        float64 `json:"dataset_regions"`
}

// ErrForeignExposition is returned by Scrape when the endpoint answers but
// exposes none of the regionmetrics families.
var ErrForeignExposition = errors.New("exposition has no regionmetrics families")

// Scrape fetches the exposition at url and sums the service's own families.
func Scrape(ctx context.Context, client *http.Client, url string) (Totals, error) {
	mfs, err := fetchMetrics(ctx, client, url)
	if err != nil {
		return Totals{}, fmt.Errorf("scrape %s: %w", url, err)
	}
	if !hasOwnFamilies(mfs) {
		return Totals{}, fmt.Errorf("scrape %s: %w", url, ErrForeignExposition)
	}
	return TotalsFrom(mfs), nil
}

// hasOwnFamilies reports whether any family carries the service namespace.
// The dataset gauges are always exported, so a live server never fails this.
func hasOwnFamilies(mfs map[string]*dto.MetricFamily) bool {
	for name := range mfs {
		if strings.HasPrefix(name, namespace+"_") {
			return true
		}
	}
	return false
}

// TotalsFrom extracts Totals from already-parsed metric families.
func TotalsFrom(mfs map[string]*dto.MetricFamily) Totals {
	return Totals{
		Requests:       sumFamily(mfs[RequestsTotalName]),
		RegionsFound:   sumLabeled(mfs[RegionsTotalName], "outcome", RegionFound),
		RegionsMissing: sumLabeled(mfs[RegionsTotalName], "outcome", RegionMissing),
		Breaches:       sumFamily(mfs[BreachesTotalName]),
		Samples:        sumFamily(mfs[SamplesName]),
		Regions:        sumFamily(mfs[DatasetRegions]),
	}
}

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return ParseText(resp.Body)
}

// ParseText decodes a Prometheus text exposition from r into metric families.
// A partial result with a non-fatal parse warning is still returned.
func ParseText(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// sumFamily adds up all counter, gauge, or untyped values in a MetricFamily.
// Returns 0 if mf is nil (metric not present in the scrape).
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		total += value(m)
	}
	return total
}

// sumLabeled is sumFamily restricted to series where label == want.
func sumLabeled(mf *dto.MetricFamily, label, want string) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label && lp.GetValue() == want {
				total += value(m)
				break
			}
		}
	}
	return total
}

func value(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	}
	return 0
}
