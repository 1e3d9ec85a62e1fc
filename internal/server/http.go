// Package server exposes the evaluation registry over HTTP. The API is
// read-and-resolve only: configuration enters the registry through the
// loader (and the optional file watcher), never through this surface.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/matt-riley/variantz"
	"github.com/matt-riley/variantz/internal/metrics"
)

const defaultMaxJSONBodyBytes int64 = 1 << 20

var errJSONBodyTooLarge = errors.New("json request body too large")

// Server handles the variantz HTTP API.
type Server struct {
	registry     *variantz.Registry
	metrics      *metrics.Metrics
	maxBodyBytes int64
}

// Option configures the HTTP handler.
type Option func(*Server)

// WithMaxJSONBodySize caps the size of JSON request bodies in bytes.
func WithMaxJSONBodySize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// NewHandler builds the HTTP handler for the given registry. m may be nil
// when metrics are not wanted (the /metrics route is then absent).
func NewHandler(registry *variantz.Registry, m *metrics.Metrics, opts ...Option) http.Handler {
	if registry == nil {
		panic("registry is nil")
	}

	s := &Server{
		registry:     registry,
		metrics:      m,
		maxBodyBytes: defaultMaxJSONBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /v1/flags", s.instrument("/v1/flags", s.handleListFlags))
	mux.Handle("GET /v1/variants", s.instrument("/v1/variants", s.handleListVariants))
	mux.Handle("POST /v1/evaluate", s.instrument("/v1/evaluate", s.handleEvaluate))
	mux.Handle("GET /healthz", s.instrument("/healthz", s.handleHealthz))
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}
	return mux
}

// statusRecorder captures the response status for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter { return rec.ResponseWriter }

func (s *Server) instrument(route string, handler http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			handler(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		handler(rec, r)
		elapsed := time.Since(start).Seconds()
		status := strconv.Itoa(rec.status)
		s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(r.Method, route, status).Observe(elapsed)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListFlags(w http.ResponseWriter, _ *http.Request) {
	flags := s.registry.Flags()
	if s.metrics != nil {
		s.metrics.ObserveRegistry(len(flags), len(s.registry.Variants()))
	}
	writeJSON(w, http.StatusOK, map[string]any{"flags": flags})
}

type variantJSON struct {
	Identifier string           `json:"identifier"`
	Op         string           `json:"op"`
	Conditions []map[string]any `json:"conditions"`
	Mods       []variantz.Mod   `json:"mods"`
}

func (s *Server) handleListVariants(w http.ResponseWriter, _ *http.Request) {
	variants := s.registry.Variants()
	out := make([]variantJSON, 0, len(variants))
	for _, v := range variants {
		specs := v.ConditionSpecs()
		conditions := make([]map[string]any, 0, len(specs))
		for _, spec := range specs {
			entry := make(map[string]any, len(spec.Params)+1)
			entry["type"] = spec.Type
			for key, value := range spec.Params {
				entry[key] = value
			}
			conditions = append(conditions, entry)
		}
		out = append(out, variantJSON{
			Identifier: v.Identifier(),
			Op:         string(v.Op()),
			Conditions: conditions,
			Mods:       v.Mods(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"variants": out})
}

type evaluateRequest struct {
	FlagName string              `json:"flagName,omitempty"`
	Context  variantz.Context    `json:"context,omitempty"`
	Requests []evaluateBatchItem `json:"requests,omitempty"`
}

type evaluateBatchItem struct {
	FlagName string           `json:"flagName"`
	Context  variantz.Context `json:"context"`
}

type evaluateResponse struct {
	Results []variantz.Resolution `json:"results"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := s.decodeJSONBody(w, r, &req); err != nil {
		writeJSONDecodeError(w, err)
		return
	}

	items := req.Requests
	if len(items) == 0 {
		if req.FlagName == "" {
			writeJSONError(w, http.StatusBadRequest, "flagName is required")
			return
		}
		items = []evaluateBatchItem{{FlagName: req.FlagName, Context: req.Context}}
	}

	results := make([]variantz.Resolution, 0, len(items))
	for _, item := range items {
		res, err := s.registry.Resolve(item.FlagName, item.Context)
		if err != nil {
			if s.metrics != nil && errors.Is(err, variantz.ErrUnknownFlag) {
				s.metrics.EvaluationErrors.WithLabelValues("unknown_flag").Inc()
			}
			writeResolveError(w, err)
			return
		}
		if s.metrics != nil {
			outcome := "variant"
			if res.Base() {
				outcome = "base"
			}
			s.metrics.EvaluationsTotal.WithLabelValues(res.FlagName, outcome).Inc()
		}
		results = append(results, res)
	}

	writeJSON(w, http.StatusOK, evaluateResponse{Results: results})
}

func writeResolveError(w http.ResponseWriter, err error) {
	if errors.Is(err, variantz.ErrUnknownFlag) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSONError(w, http.StatusInternalServerError, "internal error")
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSONDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errJSONBodyTooLarge) {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return io.EOF
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return normalizeJSONDecodeError(err)
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("request body must contain a single JSON object")
		}
		return normalizeJSONDecodeError(err)
	}

	return nil
}

func normalizeJSONDecodeError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return errJSONBodyTooLarge
	}
	return err
}
