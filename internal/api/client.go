// Package api implements the client for the storefront backend. One
// configured Client carries the bearer token, retry policy and rate limit;
// sub-clients cover each resource area of the REST surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/sajilostore/storefront/internal/logging"
	"github.com/sajilostore/storefront/internal/metrics"
)

// TokenSource supplies the bearer token attached to outgoing requests.
// The session store implements it; absence of a token means the request
// goes out unauthenticated.
type TokenSource interface {
	Token() (string, bool)
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxRetries           int
	InitialBackoff       time.Duration
	MaxBackoff           time.Duration
	BackoffMultiplier    float64
	Jitter               float64
	RetryableStatusCodes []int
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryableStatusCodes: []int{
			http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

func (rc RetryConfig) retryable(status int) bool {
	for _, code := range rc.RetryableStatusCodes {
		if code == status {
			return true
		}
	}
	return false
}

func (rc RetryConfig) backoff(attempt int) time.Duration {
	d := float64(rc.InitialBackoff) * math.Pow(rc.BackoffMultiplier, float64(attempt))
	if max := float64(rc.MaxBackoff); d > max {
		d = max
	}
	if rc.Jitter > 0 {
		d += d * rc.Jitter * rand.Float64()
	}
	return time.Duration(d)
}

// Config configures the backend client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Tokens     TokenSource
	Logger     *logging.Logger
	Metrics    *metrics.Metrics
	Retry      *RetryConfig
	RateLimit  float64
	RateBurst  int
	HTTPClient *http.Client
}

// Client is the configured backend client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	logger     *logging.Logger
	metrics    *metrics.Metrics
	limiter    *rate.Limiter
	retry      RetryConfig

	auth       *AuthClient
	products   *ProductsClient
	categories *CategoriesClient
	orders     *OrdersClient
	users      *UsersClient
	payments   *PaymentsClient
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	retry := DefaultRetryConfig()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		tokens:     cfg.Tokens,
		logger:     logger,
		metrics:    cfg.Metrics,
		limiter:    limiter,
		retry:      retry,
	}

	c.auth = &AuthClient{client: c}
	c.products = &ProductsClient{client: c}
	c.categories = &CategoriesClient{client: c}
	c.orders = &OrdersClient{client: c}
	c.users = &UsersClient{client: c}
	c.payments = &PaymentsClient{client: c}

	return c, nil
}

// Auth returns the auth client.
func (c *Client) Auth() *AuthClient { return c.auth }

// Products returns the products client.
func (c *Client) Products() *ProductsClient { return c.products }

// Categories returns the categories client.
func (c *Client) Categories() *CategoriesClient { return c.categories }

// Orders returns the orders client.
func (c *Client) Orders() *OrdersClient { return c.orders }

// Users returns the users client.
func (c *Client) Users() *UsersClient { return c.users }

// Payments returns the payment-gateway client.
func (c *Client) Payments() *PaymentsClient { return c.payments }

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// request performs an HTTP request against the backend, attaching the
// bearer token when one is present and retrying transient failures.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body []byte, contentType string, headers map[string]string) ([]byte, int, error) {
	endpoint := path
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if !strings.HasPrefix(endpoint, "/") {
			endpoint = "/" + endpoint
		}
		endpoint = c.baseURL + endpoint
	}
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}

	requestID := uuid.NewString()

	var lastErr error
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, 0, err
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, 0, fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if c.tokens != nil {
			if token, ok := c.tokens.Token(); ok {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			c.metrics.ObserveRequest(method, 0, time.Since(start).Seconds())
			if attempt < c.retry.MaxRetries {
				if werr := c.wait(ctx, c.retry.backoff(attempt)); werr != nil {
					return nil, 0, werr
				}
				continue
			}
			return nil, 0, lastErr
		}

		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		resp.Body.Close()
		c.metrics.ObserveRequest(method, resp.StatusCode, time.Since(start).Seconds())
		if readErr != nil {
			return nil, resp.StatusCode, fmt.Errorf("read response body: %w", readErr)
		}

		if c.retry.retryable(resp.StatusCode) && attempt < c.retry.MaxRetries {
			c.logger.WithFields(map[string]interface{}{
				"method": method,
				"status": resp.StatusCode,
			}).Debug("retrying transient failure")
			if werr := c.wait(ctx, c.retry.backoff(attempt)); werr != nil {
				return nil, 0, werr
			}
			continue
		}

		return respBody, resp.StatusCode, nil
	}
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// getJSON issues a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, headers map[string]string, out interface{}) error {
	body, status, err := c.request(ctx, http.MethodGet, path, query, nil, "", headers)
	if err != nil {
		return err
	}
	if status >= 400 {
		return parseError(body, status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// sendJSON issues a request with a JSON body and decodes the response.
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body []byte
	contentType := ""
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		contentType = "application/json"
	}

	respBody, status, err := c.request(ctx, method, path, nil, body, contentType, nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return parseError(respBody, status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
