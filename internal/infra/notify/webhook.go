package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"slawatch/internal/config"
	"slawatch/internal/domain"
	"slawatch/internal/ports"
)

var _ ports.Dispatcher = (*Webhook)(nil)

// Webhook posts escalation notices to a configured endpoint. The receiving
// side is expected to deduplicate; delivery here is at-least-once.
type Webhook struct {
	URL    string
	Client *http.Client
}

func NewWebhook(cfg config.Notify) *Webhook {
	return &Webhook{
		URL:    cfg.WebhookURL,
		Client: &http.Client{Timeout: cfg.Timeout},
	}
}

type notice struct {
	SubmissionID    string    `json:"submission_id"`
	EscalationCount int       `json:"escalation_count"`
	Deadline        time.Time `json:"deadline"`
}

func (w *Webhook) Notify(ctx context.Context, s domain.Submission) error {
	b, err := json.Marshal(notice{
		SubmissionID:    s.ID,
		EscalationCount: s.EscalationCount,
		Deadline:        s.Deadline(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDispatchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDispatchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: webhook returned %s", domain.ErrDispatchFailed, resp.Status)
	}
	return nil
}
