// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/datacheck/internal/core"
	"github.com/newthinker/datacheck/internal/notifier"
)

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Init(cfg notifier.Config) error {
	if url, ok := cfg.Params["url"].(string); ok {
		w.url = url
	}
	if headers, ok := cfg.Params["headers"].(map[string]string); ok {
		w.headers = headers
	}
	if timeout, ok := cfg.Params["timeout"].(time.Duration); ok && timeout > 0 {
		w.client = &http.Client{Timeout: timeout}
	}

	if w.url == "" {
		return core.Errorf(core.ErrConfigMissing, "webhook: url is required")
	}

	if w.client == nil {
		w.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (w *Webhook) Send(ctx context.Context, report notifier.GapReport) error {
	return w.post(ctx, reportToPayload(report))
}

func reportToPayload(report notifier.GapReport) map[string]any {
	return map[string]any{
		"type":         "gap_report",
		"source":       report.Source,
		"from":         report.From.Format(time.RFC3339),
		"to":           report.To.Format(time.RFC3339),
		"total":        report.Summary.Total,
		"available":    report.Summary.Available,
		"missing":      report.Summary.Missing,
		"corrupt":      report.Summary.Corrupt,
		"coverage":     report.Summary.Coverage,
		"missing_at":   formatTimes(report.Missing),
		"corrupt_at":   formatTimes(report.Corrupt),
		"generated_at": report.GeneratedAt.Format(time.RFC3339),
	}
}

func formatTimes(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Format(time.RFC3339)
	}
	return out
}

func (w *Webhook) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrNotifierFailed, fmt.Errorf("webhook: request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return core.Errorf(core.ErrNotifierFailed, "webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
