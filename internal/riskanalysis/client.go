// Package riskanalysis adapts the external AI risk-analysis service behind a
// uniform request/response contract. Every analysis kind has one method that
// always returns a well-formed report: transport failures, non-2xx statuses,
// and malformed payloads are recovered locally into conservative fallback
// reports and never surfaced to the caller.
package riskanalysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var analysisCalls = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fleetwatch_risk_analysis_calls_total",
		Help: "Total risk analysis calls by kind and outcome",
	},
	[]string{"kind", "outcome"},
)

func init() {
	prometheus.MustRegister(analysisCalls)
}

// Client handles communication with the risk-analysis API.
type Client struct {
	apiEndpoint string
	apiKey      string
	httpClient  *http.Client
	log         *logrus.Logger
}

// Config for the risk-analysis client.
type Config struct {
	APIEndpoint string
	APIKey      string
	Timeout     time.Duration
}

// NewClient creates a new risk-analysis API client.
func NewClient(cfg Config, log *logrus.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		apiEndpoint: cfg.APIEndpoint,
		apiKey:      cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

// GetAdvice answers a free-text operator query.
func (c *Client) GetAdvice(ctx context.Context, query string) AdviceReport {
	req := struct {
		Query string `json:"query"`
	}{Query: query}
	var report AdviceReport
	if err := c.post(ctx, "advice", req, &report); err != nil {
		c.recordFailure("advice", err)
		return AdviceReport{
			Content:     "I'm having trouble connecting to my expert database right now.",
			Suggestions: []string{"Check connection", "Try again later"},
			Fallback:    true,
		}
	}
	analysisCalls.WithLabelValues("advice", "ok").Inc()
	return report
}

// AnalyzeAmbientEnvironment classifies an intercepted ambient transcript.
func (c *Client) AnalyzeAmbientEnvironment(ctx context.Context, transcript string) AmbientReport {
	req := struct {
		Transcript string `json:"transcript"`
	}{Transcript: transcript}
	var report AmbientReport
	if err := c.post(ctx, "ambient", req, &report); err != nil {
		c.recordFailure("ambient", err)
		return AmbientReport{
			Context:     "Indeterminate",
			ThreatLevel: ThreatLow,
			Summary:     "Audio analysis offline.",
			Fallback:    true,
		}
	}
	analysisCalls.WithLabelValues("ambient", "ok").Inc()
	return report
}

// AnalyzeScreenshot classifies a captured screenshot. The query is optional
// operator context.
func (c *Client) AnalyzeScreenshot(ctx context.Context, imageData, mimeType, query string) ScreenshotReport {
	req := struct {
		ImageData string `json:"imageData"`
		MimeType  string `json:"mimeType"`
		Query     string `json:"query,omitempty"`
	}{ImageData: imageData, MimeType: mimeType, Query: query}
	var report ScreenshotReport
	if err := c.post(ctx, "screenshot", req, &report); err != nil {
		c.recordFailure("screenshot", err)
		return ScreenshotReport{
			Content:     "Analysis error.",
			RiskLevel:   "Unknown",
			Suggestions: []string{},
			Fallback:    true,
		}
	}
	analysisCalls.WithLabelValues("screenshot", "ok").Inc()
	return report
}

// AnalyzeCallIntent classifies a phone call from its number and an optional
// transcript excerpt.
func (c *Client) AnalyzeCallIntent(ctx context.Context, number, transcriptExcerpt string) CallIntentReport {
	req := struct {
		Number            string `json:"number"`
		TranscriptExcerpt string `json:"transcriptExcerpt,omitempty"`
	}{Number: number, TranscriptExcerpt: transcriptExcerpt}
	var report CallIntentReport
	if err := c.post(ctx, "call-intent", req, &report); err != nil {
		c.recordFailure("call_intent", err)
		return CallIntentReport{
			Classification: "Unknown",
			RiskScore:      50,
			Action:         "Monitor",
			Reasoning:      "Metadata failed.",
			Fallback:       true,
		}
	}
	analysisCalls.WithLabelValues("call_intent", "ok").Inc()
	return report
}

// AnalyzeFileRisk classifies a file by name, size, and path.
func (c *Client) AnalyzeFileRisk(ctx context.Context, fileName, fileSize, path string) FileRiskReport {
	req := struct {
		FileName string `json:"fileName"`
		FileSize string `json:"fileSize"`
		Path     string `json:"path"`
	}{FileName: fileName, FileSize: fileSize, Path: path}
	var report FileRiskReport
	if err := c.post(ctx, "file-risk", req, &report); err != nil {
		c.recordFailure("file_risk", err)
		return FileRiskReport{
			RiskLevel:      "Unknown",
			Reason:         "Error scan.",
			Recommendation: "Manual required.",
			Fallback:       true,
		}
	}
	analysisCalls.WithLabelValues("file_risk", "ok").Inc()
	return report
}

// AnalyzeSocialPlatform audits recent activity on a social platform.
func (c *Client) AnalyzeSocialPlatform(ctx context.Context, platform, excerpt string) SocialReport {
	req := struct {
		Platform string `json:"platform"`
		Excerpt  string `json:"excerpt"`
	}{Platform: platform, Excerpt: excerpt}
	var report SocialReport
	if err := c.post(ctx, "social", req, &report); err != nil {
		c.recordFailure("social", err)
		return SocialReport{
			Sentiment:    "Unknown",
			KeyRisks:     []string{"Audit failed"},
			SafetyScore:  50,
			UrgentAction: "Check manual.",
			Fallback:     true,
		}
	}
	analysisCalls.WithLabelValues("social", "ok").Inc()
	return report
}

func (c *Client) recordFailure(kind string, err error) {
	analysisCalls.WithLabelValues(kind, "fallback").Inc()
	c.log.WithError(err).WithField("kind", kind).Warn("Risk analysis unavailable, returning fallback report")
}

// post sends a JSON payload to the analysis endpoint for the given kind and
// decodes the response into out.
func (c *Client) post(ctx context.Context, kind string, payload interface{}, out interface{}) error {
	if c.apiEndpoint == "" {
		return fmt.Errorf("risk analysis client not configured")
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/analysis/%s", c.apiEndpoint, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	req.Header.Set("User-Agent", "fleetwatch-console/0.1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"kind":   kind,
		"status": resp.StatusCode,
	}).Debug("Risk analysis completed")

	return nil
}
