// Package client talks to the external field-extraction and triage service.
// The service turns raw submission text into structured fields; it may be
// slow, unavailable, or return malformed data, so every call runs under a
// total deadline with a bounded, jittered retry policy and a documented
// fallback result.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"uw_workbench_backend/internal/fields"
	"uw_workbench_backend/platform/config"
	"uw_workbench_backend/platform/logger"
)

// Extraction result statuses.
const (
	StatusCompleted    = "completed"
	StatusFallbackMode = "fallback_mode"
)

const maxResponseBytes = 1 << 20

// ExtractRequest is the payload sent to the extraction service.
type ExtractRequest struct {
	Text        string `json:"text"`
	Subject     string `json:"subject"`
	SenderEmail string `json:"senderEmail"`
}

// ExtractResult is the structured outcome of one extraction call.
type ExtractResult struct {
	Fields     fields.Map `json:"extractedFields"`
	Confidence float64    `json:"confidence"`
	ModelUsed  string     `json:"modelUsed"`
	Status     string     `json:"status"`
}

// RiskAssessmentRequest is the payload for the optional triage call.
type RiskAssessmentRequest struct {
	SubmissionData  map[string]string `json:"submissionData"`
	ExtractedFields fields.Map        `json:"extractedFields"`
}

// RiskAssessmentResult is the triage service's advisory assessment.
type RiskAssessmentResult struct {
	OverallRiskScore float64            `json:"overallRiskScore"`
	RiskCategories   map[string]float64 `json:"riskCategories"`
	RiskFactors      []string           `json:"riskFactors"`
	Recommendations  []string           `json:"recommendations"`
	ConfidenceScore  float64            `json:"confidenceScore"`
}

// Client calls the extraction service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	policy     Policy
	log        *logger.Logger
}

// New creates an extraction service client from configuration.
func New(cfg config.ExtractionConfig, log *logger.Logger) *Client {
	timeout := cfg.GetExtractionTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.GetExtractionServiceURL(), "/"),
		apiKey:     cfg.GetExtractionAPIKey(),
		timeout:    timeout,
		policy:     DefaultPolicy(cfg.GetExtractionMaxAttempts()),
		log:        log,
	}
}

// Extract runs the extraction call under the client's total deadline and
// retry policy. The returned error means every attempt failed; callers are
// expected to degrade to FallbackResult rather than fail the intake.
func (c *Client) Extract(ctx context.Context, req ExtractRequest) (ExtractResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result ExtractResult
	attempts := 0
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		attempts++
		return c.post(ctx, "/extract", req, &result)
	})

	if err != nil {
		c.log.Warn("extraction call failed", "attempts", attempts, "error", err)
		return ExtractResult{}, fmt.Errorf("extract: %w", err)
	}

	if result.Fields == nil {
		result.Fields = fields.Map{}
	}
	result.Status = StatusCompleted
	c.log.Debug("extraction call succeeded", "attempts", attempts, "model", result.ModelUsed)
	return result, nil
}

// AssessRisk asks the triage service for an advisory risk assessment.
// The result supplements local scoring and is never authoritative.
func (c *Client) AssessRisk(ctx context.Context, req RiskAssessmentRequest) (RiskAssessmentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result RiskAssessmentResult
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, "/risk-assessment", req, &result)
	})
	if err != nil {
		return RiskAssessmentResult{}, fmt.Errorf("risk assessment: %w", err)
	}
	return result, nil
}

// FallbackResult is the degraded extraction outcome used after all retries
// are exhausted: no fields, flagged for manual review by the caller.
func FallbackResult() ExtractResult {
	return ExtractResult{
		Fields: fields.Map{},
		Status: StatusFallbackMode,
	}
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return &StatusError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
