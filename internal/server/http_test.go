package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matt-riley/variantz"
	"github.com/matt-riley/variantz/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testPayload = `{
	"flags": [
		{"name": "checkout_redesign", "description": "new checkout flow", "baseValue": false},
		{"name": "banner_color", "baseValue": "blue"}
	],
	"variants": [
		{
			"identifier": "us-users",
			"op": "and",
			"conditions": [{"type": "attr_equals", "attribute": "country", "value": "US"}],
			"mods": [{"flagName": "checkout_redesign", "value": true}]
		}
	]
}`

func testRegistry(t *testing.T) *variantz.Registry {
	t.Helper()
	r := variantz.New()
	if err := r.LoadJSON([]byte(testPayload)); err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	return r
}

func TestHandleListFlags(t *testing.T) {
	handler := NewHandler(testRegistry(t), nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/flags", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "application/json") {
		t.Fatalf("Content-Type = %q, want application/json", got)
	}

	var got struct {
		Flags []variantz.Flag `json:"flags"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(got.Flags) != 2 || got.Flags[0].Name != "checkout_redesign" {
		t.Fatalf("response = %#v, want checkout_redesign first", got.Flags)
	}
}

func TestHandleListVariants(t *testing.T) {
	handler := NewHandler(testRegistry(t), nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/variants", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got struct {
		Variants []struct {
			Identifier string           `json:"identifier"`
			Op         string           `json:"op"`
			Conditions []map[string]any `json:"conditions"`
			Mods       []variantz.Mod   `json:"mods"`
		} `json:"variants"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(got.Variants) != 1 {
		t.Fatalf("got %d variants, want 1", len(got.Variants))
	}
	v := got.Variants[0]
	if v.Identifier != "us-users" || v.Op != "and" {
		t.Fatalf("variant = %#v, want us-users/and", v)
	}
	if len(v.Conditions) != 1 || v.Conditions[0]["type"] != "attr_equals" {
		t.Fatalf("conditions = %#v, want one attr_equals entry", v.Conditions)
	}
	if len(v.Mods) != 1 || v.Mods[0].FlagName != "checkout_redesign" {
		t.Fatalf("mods = %#v, want one checkout_redesign mod", v.Mods)
	}
}

func TestHandleEvaluateSingle(t *testing.T) {
	handler := NewHandler(testRegistry(t), nil)

	tests := []struct {
		name        string
		body        string
		wantValue   any
		wantVariant string
	}{
		{
			name:        "variant matches",
			body:        `{"flagName": "checkout_redesign", "context": {"attributes": {"country": "US"}}}`,
			wantValue:   true,
			wantVariant: "us-users",
		},
		{
			name:      "base value applies",
			body:      `{"flagName": "checkout_redesign", "context": {"attributes": {"country": "DE"}}}`,
			wantValue: false,
		},
		{
			name:      "empty context",
			body:      `{"flagName": "banner_color"}`,
			wantValue: "blue",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
			}
			var got struct {
				Results []variantz.Resolution `json:"results"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			if len(got.Results) != 1 {
				t.Fatalf("got %d results, want 1", len(got.Results))
			}
			res := got.Results[0]
			if res.Value != tt.wantValue {
				t.Fatalf("value = %v, want %v", res.Value, tt.wantValue)
			}
			if res.VariantID != tt.wantVariant {
				t.Fatalf("variantId = %q, want %q", res.VariantID, tt.wantVariant)
			}
		})
	}
}

func TestHandleEvaluateBatch(t *testing.T) {
	handler := NewHandler(testRegistry(t), nil)
	body := `{"requests": [
		{"flagName": "checkout_redesign", "context": {"attributes": {"country": "US"}}},
		{"flagName": "banner_color", "context": {"attributes": {"country": "US"}}}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var got struct {
		Results []variantz.Resolution `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(got.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(got.Results))
	}
	if got.Results[0].Value != true || got.Results[0].VariantID != "us-users" {
		t.Fatalf("first result = %#v, want modded checkout_redesign", got.Results[0])
	}
	if got.Results[1].Value != "blue" || got.Results[1].VariantID != "" {
		t.Fatalf("second result = %#v, want base banner_color", got.Results[1])
	}
}

func TestHandleEvaluateErrors(t *testing.T) {
	handler := NewHandler(testRegistry(t), nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "unknown flag", body: `{"flagName": "nope"}`, wantStatus: http.StatusNotFound},
		{name: "missing flagName", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "invalid JSON", body: `{invalid`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"flagName": "banner_color", "extra": 1}`, wantStatus: http.StatusBadRequest},
		{name: "trailing object", body: `{"flagName": "banner_color"}{}`, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var got map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("unmarshal error response: %v", err)
			}
			if got["error"] == "" {
				t.Fatal("expected error message in response body")
			}
		})
	}
}

func TestHandleEvaluateOversizedBody(t *testing.T) {
	handler := NewHandler(testRegistry(t), nil, WithMaxJSONBodySize(64))
	body := `{"flagName": "banner_color", "context": {"attributes": {"blob": "` +
		strings.Repeat("a", 256) + `"}}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestHandleHealthz(t *testing.T) {
	handler := NewHandler(testRegistry(t), nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("body = %s, want status ok", rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := NewHandler(testRegistry(t), nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/flags", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestMetricsRecorded(t *testing.T) {
	m := metrics.New()
	handler := NewHandler(testRegistry(t), m)

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate",
		strings.NewReader(`{"flagName": "checkout_redesign", "context": {"attributes": {"country": "US"}}}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader(`{"flagName": "nope"}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if v := testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("checkout_redesign", "variant")); v != 1 {
		t.Fatalf("evaluations(checkout_redesign, variant) = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.EvaluationErrors.WithLabelValues("unknown_flag")); v != 1 {
		t.Fatalf("evaluation errors(unknown_flag) = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/v1/evaluate", "200")); v != 1 {
		t.Fatalf("http requests(200) = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/v1/evaluate", "404")); v != 1 {
		t.Fatalf("http requests(404) = %v, want 1", v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics endpoint status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "variantz_evaluations_total") {
		t.Fatal("expected variantz_evaluations_total on /metrics")
	}
}
