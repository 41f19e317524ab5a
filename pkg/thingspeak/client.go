// Package thingspeak provides the HTTP transport for the ThingSpeak read
// API, with retry, error classification, and request metrics. Retry policy
// lives here; the ingestion layers above never retry on their own.
package thingspeak

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public ThingSpeak API endpoint.
const DefaultBaseURL = "https://api.thingspeak.com"

// Prometheus metrics for transport operations.
var (
	tsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thingspeak_requests_total",
		Help: "Total ThingSpeak requests by endpoint and status",
	}, []string{"endpoint", "status"})

	tsRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "thingspeak_request_duration_seconds",
		Help:    "ThingSpeak request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	tsErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thingspeak_errors_total",
		Help: "Total ThingSpeak transport errors by class",
	}, []string{"class"})
)

// Client is the ThingSpeak transport client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	logger     zerolog.Logger
}

// Config holds the transport configuration.
type Config struct {
	// BaseURL of the ThingSpeak-compatible service.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per HTTP request.
	Timeout time.Duration

	// Retry
	MaxAttempts    int
	InitialBackoff time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		UserAgent:      "telemetry-ingest/0.1.0",
		Timeout:        30 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
	}
}

// New creates a new transport client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 1 * time.Second
	}

	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	logger := log.With().Str("component", "thingspeak-transport").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		config:  cfg,
		logger:  logger,
	}, nil
}

// retryConfig derives the retry policy from the client configuration.
func (c *Client) retryConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = c.config.MaxAttempts
	cfg.InitialBackoff = c.config.InitialBackoff
	return cfg
}

// Get performs a GET request against the given API path and returns the
// response body. HTTP error statuses and network failures surface as
// *APIError; 5xx, 429, and network errors are retried with backoff, 4xx
// errors are not.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := path

	startTime := time.Now()
	defer func() {
		tsRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	requestURL := c.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + encodeQuery(params)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("url", requestURL).
		Msg("Executing ThingSpeak request")

	var body []byte

	retryErr := retryWithBackoff(ctx, c.retryConfig(), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return &APIError{ErrorClass: ErrorClassClient, Message: "create request", Err: err}
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			tsErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			tsRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			errClass := classifyStatus(resp.StatusCode)
			tsErrorsTotal.WithLabelValues(string(errClass)).Inc()
			tsRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("ThingSpeak request error")

			return &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: errClass,
				Message:    resp.Status,
			}
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			tsErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassNetwork,
				Message:    "read response body",
				Err:        err,
			}
		}

		body = b
		tsRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return body, nil
}

// encodeQuery encodes query parameters, sending spaces as %20. The
// ThingSpeak API does not accept '+'-encoded spaces in timestamp bounds, so
// the default form encoding of url.Values cannot be used as-is.
func encodeQuery(params url.Values) string {
	return strings.ReplaceAll(params.Encode(), "+", "%20")
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
