package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// HTTPReporter posts a posted-document confirmation to the upstream callback.
type HTTPReporter struct {
	url    string
	client *http.Client
}

func NewHTTPReporter(cfg Config) *HTTPReporter {
	return &HTTPReporter{
		url:    cfg.SyncBackURL,
		client: &http.Client{Timeout: cfg.FetchTimeout},
	}
}

func (r *HTTPReporter) ReportPosted(ctx context.Context, chargeID string, documentID uint, total decimal.Decimal) error {
	payload, err := json.Marshal(map[string]any{
		"charge_id":    chargeID,
		"document_id":  documentID,
		"total_amount": total,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return &UpstreamUnavailable{Op: "sync-back", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &UpstreamUnavailable{Op: "sync-back", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

// NopReporter is used when sync-back is disabled.
type NopReporter struct{}

func (NopReporter) ReportPosted(context.Context, string, uint, decimal.Decimal) error { return nil }
