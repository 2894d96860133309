package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Event types emitted after a committed seal.
const (
	EventDocumentCompleted = "DOCUMENT_COMPLETED"
	EventDocumentRejected  = "DOCUMENT_REJECTED"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Seal-Signature"

// Event is one webhook delivery.
type Event struct {
	Event      string `json:"event"`
	DocumentID string `json:"documentId"`
	UserID     string `json:"userId"`
	TeamID     string `json:"teamId,omitempty"`
	Payload    any    `json:"payload"`
}

// Dispatcher delivers webhook events to subscribers.
type Dispatcher interface {
	Trigger(ctx context.Context, event Event) error
}

// HTTPDispatcher posts JSON events to a single endpoint, signing each body
// with a shared secret.
type HTTPDispatcher struct {
	url    string
	secret []byte
	client *http.Client
	log    *zap.Logger
}

// NewHTTPDispatcher creates a dispatcher for the given endpoint.
func NewHTTPDispatcher(url, secret string, timeout time.Duration, log *zap.Logger) *HTTPDispatcher {
	return &HTTPDispatcher{
		url:    url,
		secret: []byte(secret),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log,
	}
}

var _ Dispatcher = (*HTTPDispatcher)(nil)

// Trigger posts one event. A non-2xx response is an error so the caller can
// count failures; it never retries by itself.
func (d *HTTPDispatcher) Trigger(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(d.secret, body))

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("deliver webhook: unexpected status %d", resp.StatusCode)
	}
	d.log.Debug("webhook delivered",
		zap.String("event", event.Event),
		zap.String("document_id", event.DocumentID))
	return nil
}

// Sign computes the hex HMAC-SHA256 of body under the shared secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
