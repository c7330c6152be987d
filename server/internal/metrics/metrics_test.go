package metrics

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// gatherTotals gathers reg and round-trips it through the text format.
func gatherTotals(t *testing.T, reg *prometheus.Registry) Totals {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			t.Fatalf("MetricFamilyToText: %v", err)
		}
	}
	mfs, err := ParseText(&buf)
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	return TotalsFrom(mfs)
}

func newRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return reg
}

func TestRegister_Twice(t *testing.T) {
	reg := newRegistry(t)
	if err := Register(reg); err != nil {
		t.Fatalf("second Register: %v", err)
	}
}

func TestObserveRegion_CountsOutcomesAndBreaches(t *testing.T) {
	reg := newRegistry(t)
	before := gatherTotals(t, reg)

	ObserveRegion(RegionFound, 3)
	ObserveRegion(RegionFound, 0)
	ObserveRegion(RegionMissing, 0)
	ObserveRegion("bogus", 5) // normalised to missing, breaches still counted

	after := gatherTotals(t, reg)
	if got := after.RegionsFound - before.RegionsFound; got != 2 {
		t.Errorf("regions found delta: got %v, want 2", got)
	}
	if got := after.RegionsMissing - before.RegionsMissing; got != 2 {
		t.Errorf("regions missing delta: got %v, want 2", got)
	}
	if got := after.Breaches - before.Breaches; got != 8 {
		t.Errorf("breaches delta: got %v, want 8", got)
	}
}

func TestObserveRequest_Counts(t *testing.T) {
	reg := newRegistry(t)
	before := gatherTotals(t, reg)

	ObserveRequest(http.MethodPost, "/api", http.StatusOK, 2*time.Millisecond)
	ObserveRequest(http.MethodPost, "/", http.StatusBadRequest, -time.Second)

	after := gatherTotals(t, reg)
	if got := after.Requests - before.Requests; got != 2 {
		t.Errorf("requests delta: got %v, want 2", got)
	}
}

func TestSetDataset(t *testing.T) {
	reg := newRegistry(t)
	SetDataset(40, 4)
	got := gatherTotals(t, reg)
	if got.Samples != 40 || got.Regions != 4 {
		t.Errorf("dataset gauges: got samples=%v regions=%v, want 40/4", got.Samples, got.Regions)
	}
}

func TestScrape_FromPromHTTP(t *testing.T) {
	reg := newRegistry(t)
	SetDataset(12, 3)

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer srv.Close()

	got, err := Scrape(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if got.Samples != 12 || got.Regions != 3 {
		t.Errorf("Scrape: got %+v", got)
	}
}

func TestScrape_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := Scrape(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Fatal("expected error for 503, got nil")
	}
}

func TestScrape_ForeignExposition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.Write([]byte("# TYPE node_load1 gauge\nnode_load1 0.42\n")) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := Scrape(context.Background(), srv.Client(), srv.URL)
	if !errors.Is(err, ErrForeignExposition) {
		t.Fatalf("err: got %v, want ErrForeignExposition", err)
	}
}

func TestParseText_Garbage(t *testing.T) {
	if _, err := ParseText(strings.NewReader("{{{ not metrics")); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestSumLabeled_NilFamily(t *testing.T) {
	var mf *dto.MetricFamily
	if got := sumLabeled(mf, "outcome", RegionFound); got != 0 {
		t.Errorf("sumLabeled(nil): got %v, want 0", got)
	}
}
