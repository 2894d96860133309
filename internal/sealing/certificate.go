package sealing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// CertificateRequest identifies the document whose signing audit trail the
// certificate pages describe.
type CertificateRequest struct {
	DocumentID string `json:"documentId"`
	Language   string `json:"language"`
}

// CertificateRenderer produces the signing-certificate page set as PDF bytes.
// Render failures are tolerated by the caller: a certificate outage must
// never block sealing.
type CertificateRenderer interface {
	Render(ctx context.Context, req CertificateRequest) ([]byte, error)
}

// HTTPCertificateRenderer fetches certificate pages from a rendering service.
type HTTPCertificateRenderer struct {
	url    string
	client *http.Client
}

// NewHTTPCertificateRenderer creates a renderer against the given endpoint.
func NewHTTPCertificateRenderer(url string, timeout time.Duration) *HTTPCertificateRenderer {
	return &HTTPCertificateRenderer{
		url: url,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

var _ CertificateRenderer = (*HTTPCertificateRenderer)(nil)

func (r *HTTPCertificateRenderer) Render(ctx context.Context, req CertificateRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal certificate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build certificate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/pdf")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render certificate: unexpected status %d", resp.StatusCode)
	}
	pdfBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read certificate response: %w", err)
	}
	return pdfBytes, nil
}
