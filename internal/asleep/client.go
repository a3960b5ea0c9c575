// Package asleep provides a client for the Asleep sleep-tracking API.
package asleep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://api.asleep.ai"
	// Timezone is sent with every stats query.
	Timezone = "Asia/Seoul"

	requestTimeout = 15 * time.Second
	maxBodySize    = 4 << 20 // 4 MB
	userAgent      = "asleep-cli/1.0"
)

var (
	// ErrUnauthorized indicates the access token is expired or invalid.
	ErrUnauthorized = errors.New("asleep: unauthorized (access token expired or invalid)")
	// ErrRateLimited indicates the API rate limit was hit.
	ErrRateLimited = errors.New("asleep: rate limited")
	// ErrNoCredentials indicates no access token is configured.
	ErrNoCredentials = errors.New("asleep: no access token configured, run 'asleep setup' first")
)

// StatusError is a non-2xx response other than the mapped sentinels.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("asleep: API error %d", e.Code)
	}
	return fmt.Sprintf("asleep: API error %d: %s", e.Code, e.Body)
}

// Client talks to the Asleep REST API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLimiter replaces the request rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a client for baseURL, or DefaultBaseURL when empty.
func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		// 1 request per second, burst of 3
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchAverageStats returns the raw average-stats payload for userID over r.
func (c *Client) FetchAverageStats(ctx context.Context, token, userID string, r DateRange) ([]byte, error) {
	if token == "" {
		return nil, ErrNoCredentials
	}
	if userID == "" {
		return nil, errors.New("asleep: no user id configured")
	}

	q := url.Values{}
	q.Set("start_date", r.StartDate())
	q.Set("end_date", r.EndDate())
	q.Set("timezone", Timezone)
	path := fmt.Sprintf("/data/v1/users/%s/average-stats?%s", url.PathEscape(userID), q.Encode())

	return c.do(ctx, http.MethodGet, path, token, nil)
}

// RefreshToken exchanges a refresh token for new tokens. If the response
// omits a new refresh token, the old one is returned in its place.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string, now time.Time) (*Tokens, error) {
	if refreshToken == "" {
		return nil, errors.New("asleep: no refresh token configured")
	}

	reqBody, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}

	body, err := c.do(ctx, http.MethodPost, "/customer/v1/app/refresh", "", reqBody)
	if err != nil {
		return nil, fmt.Errorf("asleep: token refresh failed: %w", err)
	}

	var env refreshEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("asleep: parsing refresh response: %w", err)
	}
	payload := body
	if len(env.Result) > 0 && !bytes.Equal(env.Result, []byte("null")) {
		payload = env.Result
	}

	var tr tokenResponse
	if err := json.Unmarshal(payload, &tr); err != nil {
		return nil, fmt.Errorf("asleep: parsing refresh response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, errors.New("asleep: refresh response has no access_token")
	}

	t := &Tokens{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}
	if t.RefreshToken == "" {
		t.RefreshToken = refreshToken
	}
	if tr.ExpiresIn != nil {
		t.ExpiresAt = now.Add(time.Duration(*tr.ExpiresIn * float64(time.Second)))
	}
	return t, nil
}

// do performs a rate-limited request and returns the response body.
// token is sent as a bearer token when non-empty.
func (c *Client) do(ctx context.Context, method, path, token string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("asleep: creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	//nolint:gosec // URL is built from the configured base URL
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asleep: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("asleep: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}
