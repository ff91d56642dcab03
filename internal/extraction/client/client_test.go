package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"uw_workbench_backend/platform/logger"
)

type testExtractionConfig struct {
	url         string
	maxAttempts int
}

func (c testExtractionConfig) GetExtractionServiceURL() string  { return c.url }
func (c testExtractionConfig) GetExtractionAPIKey() string      { return "test-key" }
func (c testExtractionConfig) GetExtractionTimeout() time.Duration {
	return 5 * time.Second
}
func (c testExtractionConfig) GetExtractionMaxAttempts() int { return c.maxAttempts }

func newTestClient(t *testing.T, url string, maxAttempts int) *Client {
	t.Helper()
	c := New(testExtractionConfig{url: url, maxAttempts: maxAttempts}, logger.New("test"))
	c.policy.BaseDelay = time.Millisecond
	c.policy.MaxDelay = 5 * time.Millisecond
	return c
}

func TestExtractSuccess(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/extract" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req ExtractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"extractedFields": map[string]any{"insured_name": "Acme Corp", "coverage_amount": "$5M"},
			"confidence":      0.92,
			"modelUsed":       "gpt-4o",
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	result, err := c.Extract(context.Background(), ExtractRequest{
		Text:        "We need cyber coverage for Acme Corp",
		Subject:     "Cyber Insurance Application",
		SenderEmail: "broker@example.com",
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q", StatusCompleted, result.Status)
	}
	if got := result.Fields.Display("insured_name"); got != "Acme Corp" {
		t.Fatalf("expected insured_name Acme Corp, got %q", got)
	}
	if result.Confidence != 0.92 {
		t.Fatalf("expected confidence 0.92, got %v", result.Confidence)
	}
}

func TestExtractRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"extractedFields": map[string]any{}, "confidence": 0.5})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	result, err := c.Extract(context.Background(), ExtractRequest{Text: "hello"})
	if err != nil {
		t.Fatalf("expected recovery on third attempt, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q", StatusCompleted, result.Status)
	}
}

func TestExtractExhaustsRetriesOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.Extract(context.Background(), ExtractRequest{Text: "hello"})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestExtractDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.Extract(context.Background(), ExtractRequest{Text: "hello"})
	if err == nil {
		t.Fatal("expected error on 400")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("4xx must fail immediately, got %d attempts", got)
	}
}

func TestExtractNilFieldsBecomeEmptyMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"confidence": 0.1})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	result, err := c.Extract(context.Background(), ExtractRequest{Text: "hello"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result.Fields == nil {
		t.Fatal("fields must never be nil on success")
	}
}

func TestFallbackResult(t *testing.T) {
	r := FallbackResult()
	if r.Status != StatusFallbackMode {
		t.Fatalf("expected status %q, got %q", StatusFallbackMode, r.Status)
	}
	if r.Fields == nil || len(r.Fields) != 0 {
		t.Fatalf("fallback fields must be an empty map, got %v", r.Fields)
	}
	if r.Confidence != 0 {
		t.Fatalf("fallback confidence must be zero, got %v", r.Confidence)
	}
}

func TestAssessRisk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/risk-assessment" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"overallRiskScore": 72.5,
			"riskCategories":   map[string]float64{"technical": 80},
			"riskFactors":      []string{"no MFA"},
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	result, err := c.AssessRisk(context.Background(), RiskAssessmentRequest{})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result.OverallRiskScore != 72.5 {
		t.Fatalf("expected score 72.5, got %v", result.OverallRiskScore)
	}
}
