package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tamperscope/tamperscope/internal/ingestion"
	"github.com/tamperscope/tamperscope/pkg/risk"
)

// Notifier posts signed events to one URL. It implements
// ingestion.Notifier.
type Notifier struct {
	url        string
	secret     []byte
	httpClient *http.Client
	logger     *slog.Logger

	// MaxAttempts bounds deliveries per event. Only network errors and 5xx
	// responses are retried.
	MaxAttempts int
	// Backoff is the wait before the second attempt; it doubles after that.
	Backoff time.Duration
}

// NewNotifier creates a notifier. An empty secret sends unsigned events.
func NewNotifier(url string, secret []byte, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		url:         url,
		secret:      secret,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
		MaxAttempts: 3,
		Backoff:     time.Second,
	}
}

// Notify delivers the event for a finished analysis, logging failures.
func (n *Notifier) Notify(ctx context.Context, a *ingestion.Analysis, report *risk.Report) {
	e := NewEvent(a, report)
	if err := n.Send(ctx, e); err != nil {
		n.logger.Error("webhook delivery failed",
			"analysis_id", a.ID,
			"event", e.Type,
			"error", err,
		)
	}
}

// Send posts e, retrying transient failures.
func (n *Notifier) Send(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	delivery := uuid.NewString()

	attempts := max(n.MaxAttempts, 1)
	wait := n.Backoff
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		retry, err := n.post(ctx, e.Type, delivery, payload)
		if err == nil {
			n.logger.Debug("webhook delivered", "event", e.Type, "delivery", delivery, "attempt", attempt)
			return nil
		}
		lastErr = err
		if !retry || attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return lastErr
}

// post makes one delivery attempt and reports whether a failure is worth
// retrying.
func (n *Notifier) post(ctx context.Context, eventType, delivery string, payload []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, eventType)
	req.Header.Set(DeliveryHeader, delivery)
	if len(n.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(payload, n.secret))
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("webhook returned %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		return false, fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return false, nil
}
