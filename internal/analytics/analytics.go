package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Sink captures product analytics events. Capture is fire-and-forget: it
// returns nothing and failures are logged, never surfaced.
type Sink interface {
	Capture(event string, properties map[string]any)
}

// HTTPSink posts events to a collection endpoint in a background goroutine.
type HTTPSink struct {
	url    string
	apiKey string
	client *http.Client
	log    *zap.Logger
}

// NewHTTPSink creates a sink for the given endpoint.
func NewHTTPSink(url, apiKey string, timeout time.Duration, log *zap.Logger) *HTTPSink {
	return &HTTPSink{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log,
	}
}

var _ Sink = (*HTTPSink)(nil)

// Capture enqueues one event. The HTTP call runs detached from the caller so
// a slow collector never stalls sealing.
func (s *HTTPSink) Capture(event string, properties map[string]any) {
	body, err := json.Marshal(map[string]any{
		"event":      event,
		"properties": properties,
	})
	if err != nil {
		s.log.Warn("analytics event dropped", zap.String("event", event), zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			s.log.Warn("analytics event dropped", zap.String("event", event), zap.Error(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.apiKey)

		resp, err := s.client.Do(req)
		if err != nil {
			s.log.Warn("analytics event dropped", zap.String("event", event), zap.Error(err))
			return
		}
		resp.Body.Close()
	}()
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Capture(string, map[string]any) {}
