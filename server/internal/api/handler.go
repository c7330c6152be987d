package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/obsidianstack/regionmetrics/pkg/types"
	"github.com/obsidianstack/regionmetrics/server/internal/aggregate"
	"github.com/obsidianstack/regionmetrics/server/internal/auth"
	"github.com/obsidianstack/regionmetrics/server/internal/config"
)

// HealthPath is the liveness endpoint.
const HealthPath = "/healthz"

var errTrailingData = errors.New("unexpected data after JSON body")

// Handler serves metrics requests against the aggregator's dataset.
type Handler struct {
	agg     *aggregate.Aggregator
	maxBody int64
	logger  *slog.Logger
	router  chi.Router
}

// New creates a Handler wired to agg and registers all routes described by
// cfg. metricsHandler is mounted on cfg.MetricsPath when both are non-empty.
func New(agg *aggregate.Aggregator, cfg config.ServerConfig, logger *slog.Logger, metricsHandler http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = config.DefaultMaxBodyBytes
	}

	h := &Handler{
		agg:     agg,
		maxBody: maxBody,
		logger:  logger,
		router:  chi.NewRouter(),
	}

	r := h.router
	r.Use(requestID)
	r.Use(instrument(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions(cfg.CORS)))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get(HealthPath, h.health)
	if cfg.MetricsPath != "" && metricsHandler != nil {
		r.Method(http.MethodGet, cfg.MetricsPath, metricsHandler)
	}

	routes := cfg.Routes
	if len(routes) == 0 {
		routes = []string{"/", "/api"}
	}
	r.Group(func(r chi.Router) {
		r.Use(auth.APIKeyMiddleware(cfg.Auth.Mode, cfg.Auth.EffectiveHeader(), cfg.Auth.Key()))
		for _, route := range routes {
			r.Post(route, h.metrics)
		}
	})
	// Bare OPTIONS (no preflight headers) still succeeds on the metric routes.
	for _, route := range routes {
		r.Options(route, noContent)
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// metrics handles POST on every configured route.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	var req types.MetricsRequest
	if err := decodeBody(r.Body, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonErr(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		jsonErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.agg.Handle(req)
	if err != nil {
		if errors.Is(err, aggregate.ErrInvalidRequest) {
			jsonErr(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("compute failed", "err", err, "request_id", RequestIDFrom(r.Context()))
		jsonErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Debug("metrics computed",
		"regions", len(req.Regions),
		"returned", len(resp),
		"threshold_ms", *req.ThresholdMs,
		"request_id", RequestIDFrom(r.Context()),
	)
	jsonResp(w, http.StatusOK, resp)
}

// health returns GET /healthz: process liveness and the dataset size.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ds := h.agg.Dataset()
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Samples: ds.Len(),
		Regions: len(ds.Regions()),
	})
}

// --- helpers ----------------------------------------------------------------

// decodeBody decodes exactly one JSON value from body into v. Anything but
// whitespace after that value is an error.
func decodeBody(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errTrailingData
		}
		return err
	}
	return nil
}

func noContent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func corsOptions(c config.CORSConfig) cors.Options {
	return cors.Options{
		AllowedOrigins: c.AllowedOrigins,
		AllowedMethods: c.AllowedMethods,
		AllowedHeaders: c.AllowedHeaders,
		ExposedHeaders: []string{RequestIDHeader},
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
