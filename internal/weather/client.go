// Package weather provides a client for the wttr.in current-conditions
// endpoint.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/jobrunner/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the weather endpoint.
	DefaultBaseURL = "https://wttr.in"

	// DefaultLocation is the fixed job location in URL path form.
	DefaultLocation = "Los+Angeles,CA"

	// DefaultTimeout bounds the weather fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 1

	// userAgent identifies the runner to the endpoint.
	userAgent = "jobrunner/1.0"
)

// ErrBadPayload reports a response that is not the expected wttr.in shape.
var ErrBadPayload = errors.New("malformed weather payload")

// Client is a wttr.in API client.
type Client struct {
	baseURL    string
	location   string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithLocation sets the location queried.
func WithLocation(location string) ClientOption {
	return func(c *Client) {
		c.location = location
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new weather client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		location: DefaultLocation,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-OK response from the weather endpoint.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("weather API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// response mirrors the wttr.in j1 JSON payload. All numeric values arrive as
// strings.
type response struct {
	CurrentCondition []struct {
		TempC       string `json:"temp_C"`
		TempF       string `json:"temp_F"`
		Humidity    string `json:"humidity"`
		WeatherDesc []struct {
			Value string `json:"value"`
		} `json:"weatherDesc"`
	} `json:"current_condition"`
}

// Current fetches the current conditions for the configured location.
func (c *Client) Current(ctx context.Context) (*models.WeatherConditions, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s?format=j1", c.baseURL, c.location)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	if c.logger != nil {
		c.logger.Debug().Str("url", reqURL).Msg("Weather API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   c.location,
		}
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if len(payload.CurrentCondition) == 0 || len(payload.CurrentCondition[0].WeatherDesc) == 0 {
		return nil, fmt.Errorf("%w: no current condition", ErrBadPayload)
	}

	current := payload.CurrentCondition[0]
	return &models.WeatherConditions{
		TempC:       current.TempC,
		TempF:       current.TempF,
		Humidity:    current.Humidity,
		Description: current.WeatherDesc[0].Value,
	}, nil
}
