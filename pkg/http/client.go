// Package http provides a reusable HTTP client with resilience features
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbot_http_requests_total",
		Help: "Total number of HTTP requests issued to the exchange",
	}, []string{"method"})
	requestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbot_http_request_errors_total",
		Help: "Total number of failed HTTP requests",
	}, []string{"method"})
)

// APIError represents a non-2xx API response
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d body=%s", e.StatusCode, string(e.Body))
}

// Signer is an interface for signing requests
type Signer interface {
	SignRequest(req *http.Request) error
}

// apiResponse is a fully drained HTTP response. Reading and closing the body
// before the resilience pipeline judges the attempt keeps retried attempts
// from leaking connections.
type apiResponse struct {
	StatusCode int
	Body       []byte
}

// Client is a wrapper around http.Client with resilience
type Client struct {
	client   *http.Client
	baseURL  string
	signer   Signer
	pipeline failsafe.Executor[*apiResponse]
}

// NewClient creates a new HTTP client with default resilience policies
func NewClient(baseURL string, timeout time.Duration, signer Signer) *Client {
	// Retry on network errors, 5xx server errors and 429 rate limits
	retryPolicy := retrypolicy.NewBuilder[*apiResponse]().
		HandleIf(func(resp *apiResponse, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode >= 500 || resp.StatusCode == 429
		}).
		WithBackoff(100*time.Millisecond, 2*time.Second).
		WithMaxRetries(3).
		Build()

	// Open circuit on consecutive 5xx errors
	breaker := circuitbreaker.NewBuilder[*apiResponse]().
		HandleIf(func(resp *apiResponse, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode >= 500
		}).
		WithFailureThresholdRatio(5, 10).
		WithDelay(10 * time.Second).
		Build()

	return &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL:  baseURL,
		signer:   signer,
		pipeline: failsafe.With[*apiResponse](retryPolicy, breaker),
	}
}

// Get sends a GET request with the given query parameters
func (c *Client) Get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	return c.request(ctx, http.MethodGet, path, params)
}

// Post sends a POST request. Parameters travel in the query string, which is
// how Binance-compatible futures APIs accept order placement.
func (c *Client) Post(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	return c.request(ctx, http.MethodPost, path, params)
}

// Delete sends a DELETE request with the given query parameters
func (c *Client) Delete(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	return c.request(ctx, http.MethodDelete, path, params)
}

func (c *Client) request(ctx context.Context, method, path string, params map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	req.URL.RawQuery = q.Encode()

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.signer != nil {
		if err := c.signer.SignRequest(req); err != nil {
			return nil, fmt.Errorf("failed to sign request: %w", err)
		}
	}

	requestsTotal.WithLabelValues(req.Method).Inc()

	resp, err := c.pipeline.GetWithExecution(func(exec failsafe.Execution[*apiResponse]) (*apiResponse, error) {
		httpResp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		return &apiResponse{StatusCode: httpResp.StatusCode, Body: body}, nil
	})
	if err != nil {
		requestErrors.WithLabelValues(req.Method).Inc()
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		requestErrors.WithLabelValues(req.Method).Inc()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	return resp.Body, nil
}
