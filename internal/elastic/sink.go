// Package elastic owns the outbound document write.
package elastic

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"scribe/internal/domain"
)

// Config configures the sink.
type Config struct {
	BaseURL string
	Index   string
	APIKey  string
	// InsecureSkipVerify disables TLS peer verification, matching clusters
	// that run on self-signed certificates.
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Sink writes documents to an Elasticsearch-compatible datastore. Each write
// is a single POST to {baseUrl}/{index}/_doc; rejected writes (non-2xx) are
// reported through the outcome, not as errors, and are never retried.
type Sink struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// New creates a sink for the given cluster.
func New(cfg Config, logger *slog.Logger) *Sink {
	return &Sink{
		endpoint: strings.TrimSuffix(cfg.BaseURL, "/") + "/" + cfg.Index + "/_doc",
		apiKey:   cfg.APIKey,
		client:   newHTTPClient(cfg.Timeout, cfg.InsecureSkipVerify),
		logger:   logger,
	}
}

// newHTTPClient returns an HTTP client with connection pooling; one client is
// shared across all writes of the process.
func newHTTPClient(timeout time.Duration, insecure bool) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: insecure},
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Write indexes one document. The returned error is a transport failure;
// the caller decides whether that aborts anything (it shouldn't).
func (s *Sink) Write(ctx context.Context, doc domain.Document) (domain.WriteOutcome, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		// Document is a closed struct; this cannot happen with real input.
		return domain.WriteOutcome{}, fmt.Errorf("encode document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.WriteOutcome{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "ApiKey "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.WriteOutcome{}, fmt.Errorf("write document: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	outcome := domain.WriteOutcome{StatusCode: resp.StatusCode, Body: string(body)}

	s.logger.Debug("document written",
		"status", outcome.StatusCode,
		"channel", doc.Channel.ID,
		"author", doc.Author.ID,
	)
	return outcome, nil
}
