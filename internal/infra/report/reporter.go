// Package report delivers flagged-message reports to the endpoint named
// by the active manifest. Delivery is best-effort: failures are logged
// and counted, never surfaced to the filter path.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gatekeep-net/gatekeep/internal/domain"
	"github.com/gatekeep-net/gatekeep/internal/infra/metrics"
)

// userAgent matches the fetcher identity so the report endpoint sees one
// client string.
const userAgent = "Gatekeep/0.1.0"

// Report is one flagged-message notification.
type Report struct {
	ID           string          `json:"id"`
	InstallID    string          `json:"install_id,omitempty"`
	Channel      int64           `json:"channel"`
	Category     domain.Category `json:"category"`
	Confidence   float64         `json:"confidence"`
	ModelVersion uint32          `json:"model_version"`
	ReportedAt   time.Time       `json:"reported_at"`
}

// Reporter POSTs reports to a single endpoint.
type Reporter struct {
	endpoint  string
	installID string
	client    *http.Client
}

// New creates a Reporter for endpoint. An empty endpoint disables
// delivery. installID correlates reports from one installation.
func New(endpoint, installID string) *Reporter {
	return &Reporter{
		endpoint:  endpoint,
		installID: installID,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Flag builds and sends a report for one verdict. Call from a goroutine;
// it blocks on the HTTP round trip.
func (r *Reporter) Flag(ctx context.Context, channel int64, modelVersion uint32, v domain.Verdict) {
	if r == nil || r.endpoint == "" {
		return
	}

	rep := Report{
		ID:           uuid.NewString(),
		InstallID:    r.installID,
		Channel:      channel,
		Category:     v.Category,
		Confidence:   v.Confidence,
		ModelVersion: modelVersion,
		ReportedAt:   time.Now().UTC(),
	}

	if err := r.send(ctx, rep); err != nil {
		log.Printf("[report] deliver %s: %v", rep.ID, err)
		metrics.ReportsSent.WithLabelValues("error").Inc()
		return
	}
	metrics.ReportsSent.WithLabelValues("ok").Inc()
}

func (r *Reporter) send(ctx context.Context, rep Report) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
