// Package availability looks up which streaming services carry a title.
package availability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/i2y/moviemood/config"
	"github.com/i2y/moviemood/logging"
)

// NoInfo is shown when nothing is known about a title, whatever the reason.
const NoInfo = "No streaming information available"

const maxErrorBody = 512

// StatusError is a non-200 lookup response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("lookup failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("lookup failed: status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

type lookupResponse struct {
	Results []struct {
		Locations []struct {
			DisplayName string `json:"display_name"`
		} `json:"locations"`
	} `json:"results"`
}

// Client calls the Utelly lookup endpoint through a rate limiter and a
// circuit breaker. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	host    string
	country string
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]string]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its timeout is left alone.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New returns a client for cfg.
func New(cfg config.AvailabilityConfig, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		host:    cfg.Host,
		country: cfg.Country,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.cb = gobreaker.NewCircuitBreaker[[]string](gobreaker.Settings{
		Name:        "utelly",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var abandoned *abandonedError
			return err == nil || errors.As(err, &abandoned)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
	return c
}

// abandonedError marks a lookup the caller gave up on: its context ended, or
// the limiter could not admit it before the deadline. The breaker does not
// count these against the service.
type abandonedError struct {
	err error
}

func (e *abandonedError) Error() string { return e.err.Error() }
func (e *abandonedError) Unwrap() error { return e.err }

// Lookup returns the distinct service names for title in first-seen order.
func (c *Client) Lookup(ctx context.Context, title string) ([]string, error) {
	return c.cb.Execute(func() ([]string, error) {
		services, err := c.lookup(ctx, title)
		if err != nil && ctx.Err() != nil {
			return nil, &abandonedError{err: err}
		}
		return services, err
	})
}

func (c *Client) lookup(ctx context.Context, title string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &abandonedError{err: fmt.Errorf("rate limit: %w", err)}
	}

	query := url.Values{}
	query.Set("term", title)
	query.Set("country", c.country)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/lookup?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var lr lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	seen := make(map[string]bool)
	var services []string
	for _, r := range lr.Results {
		for _, loc := range r.Locations {
			if loc.DisplayName != "" && !seen[loc.DisplayName] {
				seen[loc.DisplayName] = true
				services = append(services, loc.DisplayName)
			}
		}
	}
	return services, nil
}

// Describe returns the comma-joined services for title, or NoInfo.
func (c *Client) Describe(ctx context.Context, title string) string {
	services, err := c.Lookup(ctx, title)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("title", title).Msg("streaming lookup failed")
		return NoInfo
	}
	return Summary(services)
}

// Summary joins services, or returns NoInfo when there are none.
func Summary(services []string) string {
	if len(services) == 0 {
		return NoInfo
	}
	return strings.Join(services, ", ")
}
