package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	gosync "sync"
	"time"
)

// Client is a thin HTTP client for a Supabase project's REST (PostgREST)
// and GoTrue auth endpoints. It handles apikey/bearer authentication,
// JSON marshaling, and automatic retry with exponential backoff on
// HTTP 429. A single Client is built once per process and passed to
// every consumer explicitly; there is no package-level instance.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	maxRetries int

	mu      gosync.RWMutex
	session *Session
}

// NewClient creates a new Supabase client. The baseURL should be the
// project root URL (e.g. https://abcdefgh.supabase.co) and anonKey the
// project's public anonymous API key.
func NewClient(baseURL, anonKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
}

// SetSession installs the authenticated session used for subsequent
// requests. Passing nil reverts the client to anonymous access.
func (c *Client) SetSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// Session returns the currently installed session, or nil.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// UserID returns the authenticated user's id, or "" when anonymous.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.UserID
}

// accessToken returns the bearer token for requests: the session's
// access token when signed in, the anon key otherwise.
func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session != nil && c.session.AccessToken != "" {
		return c.session.AccessToken
	}
	return c.anonKey
}

// APIError is a non-401 error response from the backend.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Body)
}

// do is the core HTTP method that builds the request, handles auth,
// rate limiting with exponential backoff, and JSON (de)serialization.
// The extra headers are applied after the auth headers so callers can
// set PostgREST preferences (Prefer, Range). It returns the response
// headers so callers can read Content-Range for count queries.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	extra http.Header,
	body interface{},
	result interface{},
) (http.Header, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Rebuild the body reader on retries since it was consumed.
		if attempt > 0 && body != nil {
			data, _ := json.Marshal(body)
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("apikey", c.anonKey)
		req.Header.Set("Authorization", "Bearer "+c.accessToken())
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, vs := range extra {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return nil, &AuthError{Message: strings.TrimSpace(string(respBody))}
		}

		if resp.StatusCode >= 400 {
			return nil, &APIError{
				Status: resp.StatusCode,
				Body:   strings.TrimSpace(string(respBody)),
			}
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return nil, fmt.Errorf("decoding response from %s: %w", path, err)
			}
		}

		return resp.Header, nil
	}

	return nil, fmt.Errorf("exhausted retries: %w", lastErr)
}

// retryAfterDuration determines how long to wait before retrying a
// rate-limited request, honoring the Retry-After header when present
// and falling back to exponential backoff.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<attempt) * time.Second
}
