package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obsidianstack/regionmetrics/pkg/types"
	"github.com/obsidianstack/regionmetrics/server/internal/aggregate"
	"github.com/obsidianstack/regionmetrics/server/internal/config"
	"github.com/obsidianstack/regionmetrics/server/internal/metrics"
)

const fixture = `[
  {"region": "us-east", "latency_ms": 100, "uptime": 0.99},
  {"region": "us-east", "latency_ms": 120, "uptime": 0.98},
  {"region": "us-east", "latency_ms": 130, "uptime": 0.97},
  {"region": "us-east", "latency_ms": 500, "uptime": 0.95},
  {"region": "eu-west", "latency_ms": 90, "uptime_pct": 99.9}
]`

func writeDataset(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "telemetry.json")
	if err := os.WriteFile(p, []byte(fixture), 0o600); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- version ------------------------------------------------------------------

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "regionmetrics ") {
		t.Errorf("output: got %q", out)
	}
}

// --- compute ------------------------------------------------------------------

func TestComputeCmd(t *testing.T) {
	path := writeDataset(t)
	out, err := run(t, "compute", "--dataset", path, "--regions", "us-east,mars", "--threshold", "150")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	var resp types.Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, out)
	}
	want := types.RegionSummary{AvgLatency: 212.5, P95Latency: 500, AvgUptime: 0.9725, Breaches: 1}
	if resp["us-east"] != want {
		t.Errorf("us-east: got %+v, want %+v", resp["us-east"], want)
	}
	if _, ok := resp["mars"]; ok {
		t.Errorf("mars should be omitted: %v", resp)
	}
}

func TestComputeCmd_Invalid(t *testing.T) {
	path := writeDataset(t)
	tests := []struct {
		name string
		args []string
	}{
		{"missing threshold", []string{"compute", "--dataset", path, "--regions", "us-east"}},
		{"missing regions", []string{"compute", "--dataset", path, "--threshold", "1"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, tc.args...)
			if !errors.Is(err, aggregate.ErrInvalidRequest) {
				t.Fatalf("err: got %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestComputeCmd_InvalidRequestSkipsDatasetLoad(t *testing.T) {
	// The dataset path does not exist; the request error must win.
	_, err := run(t, "compute", "--dataset", filepath.Join(t.TempDir(), "nope.json"), "--regions", "us-east")
	if !errors.Is(err, aggregate.ErrInvalidRequest) {
		t.Fatalf("err: got %v, want ErrInvalidRequest", err)
	}
}

func TestComputeCmd_MissingDataset(t *testing.T) {
	_, err := run(t, "compute", "--dataset", filepath.Join(t.TempDir(), "nope.json"), "--regions", "a", "--threshold", "1")
	if err == nil {
		t.Fatal("expected error for missing dataset")
	}
}

// --- stats --------------------------------------------------------------------

func TestStatsCmd(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	metrics.SetDataset(42, 3)
	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer srv.Close()

	out, err := run(t, "stats", "--url", srv.URL)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"REQUESTS", "BREACHES", "DATASET SAMPLES  42", "DATASET REGIONS  3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatsCmd_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := run(t, "stats", "--url", url, "--timeout", "1s"); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

// --- serve --------------------------------------------------------------------

func TestServe_StartupFailsOnBadDataset(t *testing.T) {
	t.Setenv("REGIONMETRICS_DATASET_PATH", filepath.Join(t.TempDir(), "missing.json"))
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if _, err := buildHandler(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatal("expected dataset load error")
	}
}

func TestServe_EndToEnd(t *testing.T) {
	t.Setenv("REGIONMETRICS_DATASET_PATH", writeDataset(t))
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Server.ShutdownTimeout = 2 * time.Second

	handler, err := buildHandler(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("buildHandler: %v", err)
	}
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, "", lis, handler, quietLogger(), nil) }()

	base := "http://" + lis.Addr().String()

	resp, err := http.Post(base+"/api", "application/json",
		strings.NewReader(`{"regions":["us-east"],"threshold_ms":150}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var body types.Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if body["us-east"].Breaches != 1 {
		t.Errorf("breaches: got %d, want 1", body["us-east"].Breaches)
	}

	resp, err = http.Get(base + config.DefaultMetricsPath)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	mfs, err := metrics.ParseText(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}
	if totals := metrics.TotalsFrom(mfs); totals.Samples != 5 || totals.Regions != 2 {
		t.Errorf("dataset gauges: got %+v", totals)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}
