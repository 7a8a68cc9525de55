package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/threatflux/violetearClient/internal/models"
	"golang.org/x/time/rate"
)

// API paths
const (
	APIPathConfig        = "/config.json"
	APIPathAuthLogin     = "/v1/auth/login"
	APIPathAuthRegister  = "/v1/auth/register"
	APIPathAuthLogout    = "/v1/auth/logout"
	APIPathProfiles      = "/v1/profiles"
	APIPathReportsCreate = "/v1/reports/create"
	APIPathReportTasks   = "/v1/reports/%d/tasks"
)

// HeaderRequestID carries a per-request correlation id
const HeaderRequestID = "X-Request-ID"

// --- Client Configuration ---

// ClientOption represents a functional option for configuring the client
type ClientOption func(*ClientConfig) error

// ClientConfig represents the configuration for the client
type ClientConfig struct {
	// BaseURL is the static origin serving /config.json
	BaseURL string
	// APIURL is the API root announced by /config.json. It may be set later with SetAPIURL.
	APIURL                string
	Timeout               time.Duration
	MaxRetries            int
	RetryDelay            time.Duration
	UserAgent             string
	HTTPClient            *http.Client
	Headers               map[string]string
	TLSInsecureSkipVerify bool
	RateLimit             rate.Limit
	RateBurst             int
	Logger                logrus.FieldLogger
}

// DefaultClientConfig returns the default client configuration.
// Retries are off: failed calls surface to the caller, which decides whether to retry.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:    "http://localhost:8080",
		Timeout:    time.Second * 30,
		MaxRetries: 0,
		RetryDelay: time.Second,
		UserAgent:  "VioletearClient/1.0",
		Headers:    make(map[string]string),
		RateLimit:  rate.Inf,
		RateBurst:  1,
	}
}

// WithBaseURL sets the static origin
func WithBaseURL(baseURL string) ClientOption {
	return func(config *ClientConfig) error {
		if err := validateURL(baseURL); err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
		config.BaseURL = baseURL
		return nil
	}
}

// WithAPIURL sets the API root up front, skipping the need for FetchConfig
func WithAPIURL(apiURL string) ClientOption {
	return func(config *ClientConfig) error {
		if err := validateURL(apiURL); err != nil {
			return fmt.Errorf("invalid API URL: %w", err)
		}
		config.APIURL = apiURL
		return nil
	}
}

// WithTimeout sets the timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(config *ClientConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		config.Timeout = timeout
		return nil
	}
}

// WithRetryOptions sets the retry options. Only idempotent GET requests are retried.
func WithRetryOptions(maxRetries int, retryDelay time.Duration) ClientOption {
	return func(config *ClientConfig) error {
		if maxRetries < 0 {
			return fmt.Errorf("max retries must be non-negative")
		}
		if retryDelay < 0 {
			return fmt.Errorf("retry delay must be non-negative")
		}
		config.MaxRetries = maxRetries
		config.RetryDelay = retryDelay
		return nil
	}
}

// WithUserAgent sets the user agent
func WithUserAgent(userAgent string) ClientOption {
	return func(config *ClientConfig) error {
		if userAgent == "" {
			return fmt.Errorf("user agent cannot be empty")
		}
		config.UserAgent = userAgent
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(config *ClientConfig) error {
		if client == nil {
			return fmt.Errorf("HTTP client cannot be nil")
		}
		config.HTTPClient = client
		return nil
	}
}

// WithHeader adds an HTTP header
func WithHeader(key, value string) ClientOption {
	return func(config *ClientConfig) error {
		if key == "" {
			return fmt.Errorf("header key cannot be empty")
		}
		if config.Headers == nil {
			config.Headers = make(map[string]string)
		}
		config.Headers[key] = value
		return nil
	}
}

// WithTLSInsecureSkipVerify sets the TLS insecure skip verify option
func WithTLSInsecureSkipVerify(skip bool) ClientOption {
	return func(config *ClientConfig) error {
		config.TLSInsecureSkipVerify = skip
		return nil
	}
}

// WithRateLimit limits outgoing requests to rps per second. Zero disables the limit.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(config *ClientConfig) error {
		if rps < 0 {
			return fmt.Errorf("rate limit must be non-negative")
		}
		if rps == 0 {
			config.RateLimit = rate.Inf
			return nil
		}
		if burst < 1 {
			return fmt.Errorf("rate burst must be at least 1")
		}
		config.RateLimit = rate.Limit(rps)
		config.RateBurst = burst
		return nil
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger logrus.FieldLogger) ClientOption {
	return func(config *ClientConfig) error {
		config.Logger = logger
		return nil
	}
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL %q must be absolute", raw)
	}
	return nil
}

// Client defines the interface for the violetear API client.
// Authenticated calls take the raw session token explicitly.
type Client interface {
	// Configuration
	FetchConfig(ctx context.Context) (*models.Config, error)
	SetAPIURL(apiURL string) error

	// Authentication
	Login(ctx context.Context, creds models.Credentials) (string, error)
	Register(ctx context.Context, creds models.Credentials) (string, error)
	Logout(ctx context.Context, token string) error

	// Profiles
	ListProfiles(ctx context.Context, token string) ([]models.Profile, error)

	// Reports
	CreateReport(ctx context.Context, token string, profiles string, content []byte) (*models.Report, error)
	ListTasks(ctx context.Context, token string, reportID int64) ([]models.Task, error)
}

// APIClient implements the Client interface
type APIClient struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logrus.FieldLogger

	mu     sync.RWMutex
	apiURL string
}

// NewClient creates a new API client
func NewClient(opts ...ClientOption) (*APIClient, error) {
	config := DefaultClientConfig()

	// Apply options
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, fmt.Errorf("option application failed: %w", err)
		}
	}

	// Create HTTP client if not provided
	httpClient := config.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: config.TLSInsecureSkipVerify} // #nosec G402 -- opt-in for self-signed dev servers
		httpClient = &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		}
	}

	log := config.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	return &APIClient{
		config:     config,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(config.RateLimit, config.RateBurst),
		log:        log,
		apiURL:     config.APIURL,
	}, nil
}

// SetAPIURL points authenticated calls at the API root from /config.json
func (c *APIClient) SetAPIURL(apiURL string) error {
	if err := validateURL(apiURL); err != nil {
		return fmt.Errorf("invalid API URL: %w", err)
	}
	c.mu.Lock()
	c.apiURL = apiURL
	c.mu.Unlock()
	return nil
}

// APIURL returns the current API root
func (c *APIClient) APIURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiURL
}

// buildURL joins base and path
func buildURL(base, path string) string {
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// apiEndpoint builds a URL below the API root
func (c *APIClient) apiEndpoint(path string) (string, error) {
	base := c.APIURL()
	if base == "" {
		return "", ErrNotConfigured
	}
	return buildURL(base, path), nil
}

// setAuthHeader sets the Authorization header to the raw token
func setAuthHeader(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", token)
	}
}

// newRequest creates a new HTTP request. A []byte body is sent as-is as
// application/octet-stream; anything else non-nil is encoded as JSON.
func (c *APIClient) newRequest(ctx context.Context, method, rawURL string, body interface{}) (*http.Request, error) {
	var (
		bodyReader  io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case []byte:
		bodyReader = bytes.NewReader(b)
		contentType = "application/octet-stream"
	default:
		bodyBytes, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set(HeaderRequestID, uuid.NewString())

	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

// handleResponse checks the status and decodes the JSON body into out when given
func (c *APIClient) handleResponse(resp *http.Response, out interface{}) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return fmt.Errorf("%w: failed to read response body: %w", ErrConnectionFailed, readErr)
		}
		return newAPIError(resp.StatusCode, readErr.Error())
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return fmt.Errorf("%w: empty response body", ErrDecodeFailed)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: %w", ErrDecodeFailed, err)
		}
		return nil
	}

	// Prefer the server's message, fall back to a body snippet
	var errorResp models.ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error != "" {
		return newAPIError(resp.StatusCode, errorResp.Error)
	}
	bodySnippet := string(body)
	if len(bodySnippet) > 100 {
		bodySnippet = bodySnippet[:100] + "..."
	}
	return newAPIError(resp.StatusCode, bodySnippet)
}

// Do sends an HTTP request and returns the response.
// Transport failures are mapped to ErrCanceled, ErrTimeout or ErrConnectionFailed.
func (c *APIClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	retryable := req.Method == http.MethodGet

	var resp *http.Response
	var err error

	for retry := 0; retry <= c.config.MaxRetries; retry++ {
		if err = c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCanceled, err)
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
			}
			if retryable && retry < c.config.MaxRetries {
				if waitErr := c.backoff(ctx); waitErr != nil {
					return nil, waitErr
				}
				continue
			}
			var urlErr *url.Error
			if errors.As(err, &urlErr) && urlErr.Timeout() {
				return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
			}
			return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
		}

		// Retry 5xx on idempotent requests
		if resp.StatusCode >= 500 && retryable && retry < c.config.MaxRetries {
			resp.Body.Close()
			if waitErr := c.backoff(ctx); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		break
	}

	return resp, nil
}

func (c *APIClient) backoff(ctx context.Context) error {
	select {
	case <-time.After(c.config.RetryDelay):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
	}
}

// doRequest is a helper function to make requests and handle responses
func (c *APIClient) doRequest(ctx context.Context, method, rawURL, token string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, rawURL, body)
	if err != nil {
		return err
	}
	setAuthHeader(req, token)

	start := time.Now()
	resp, err := c.Do(ctx, req)
	fields := logrus.Fields{
		"method":     method,
		"url":        rawURL,
		"request_id": req.Header.Get(HeaderRequestID),
		"duration":   time.Since(start).String(),
	}
	if err != nil {
		c.log.WithFields(fields).WithError(err).Debug("API request failed")
		return err
	}
	defer resp.Body.Close()

	fields["status"] = resp.StatusCode
	c.log.WithFields(fields).Debug("API request completed")

	return c.handleResponse(resp, out)
}

// FetchConfig loads /config.json from the static origin
func (c *APIClient) FetchConfig(ctx context.Context) (*models.Config, error) {
	var cfg models.Config
	if err := c.doRequest(ctx, http.MethodGet, buildURL(c.config.BaseURL, APIPathConfig), "", nil, &cfg); err != nil {
		return nil, fmt.Errorf("fetch config failed: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("fetch config failed: %w: %w", ErrDecodeFailed, err)
	}
	return &cfg, nil
}
