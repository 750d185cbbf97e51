// Package remote is the HTTP client used for all vendor API traffic.
// Every call is a single authenticated GET for one page of results.
// Throttling (429), server errors (5xx), and transport failures retry
// with exponential backoff up to a bounded attempt budget and then
// surface as transient_remote errors; any other 4xx is a remote_request
// error carrying the status and a sample of the response body.
//
// The client never logs or echoes the Authorization header.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"rowbridge/cli/internal/credential"
	"rowbridge/cli/internal/wraperr"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultRetryInterval = 500 * time.Millisecond
	defaultMaxRetries    = 3
	bodySampleLimit      = 512
)

// RequestError describes a request the remote API rejected outright.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

// IsStatus reports whether err wraps a RequestError with the given status.
func IsStatus(err error, status int) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Status == status
}

// Request names one remote resource: path segments joined under the
// client's base URL plus query parameters. Segments are escaped
// individually, so grid table names with spaces stay intact.
type Request struct {
	Path  []string
	Query url.Values
}

// Config carries everything needed to build a Client.
type Config struct {
	// BaseURL is the vendor API root, e.g. https://api.stripe.com/v1/.
	BaseURL string
	// Credential supplies the bearer token.
	Credential credential.Credential
	// Timeout bounds each request attempt. Zero means 30s.
	Timeout time.Duration
	// UserAgent is sent with every request. Zero means "rowbridge".
	UserAgent string
	// RetryInterval is the initial backoff delay. Zero means 500ms.
	RetryInterval time.Duration
	// MaxRetries bounds retry attempts after the first try. Zero means 3.
	MaxRetries uint64
}

// Client issues authenticated page fetches against one vendor API.
type Client struct {
	base          *url.URL
	http          *http.Client
	cred          credential.Credential
	userAgent     string
	retryInterval time.Duration
	maxRetries    uint64
}

// NewClient validates the base URL and builds a client around it.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, wraperr.Wrap(wraperr.InvalidOption, fmt.Sprintf("api_url %q", cfg.BaseURL), err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, wraperr.Newf(wraperr.InvalidOption, "api_url %q is not an absolute http(s) URL", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "rowbridge"
	}
	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}

	return &Client{
		base:          base,
		http:          &http.Client{Timeout: timeout},
		cred:          cfg.Credential,
		userAgent:     userAgent,
		retryInterval: retryInterval,
		maxRetries:    maxRetries,
	}, nil
}

// Get fetches one page and returns the raw response body.
func (c *Client) Get(ctx context.Context, req Request) ([]byte, error) {
	u := c.base.JoinPath(req.Path...)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}
	target := u.String()

	attempt := 0
	op := func() ([]byte, error) {
		attempt++
		return c.fetch(ctx, target, attempt)
	}
	return backoff.RetryWithData(op, c.newBackOff(ctx))
}

// Close releases idle connections held by the underlying transport.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	bo.MaxInterval = 20 * c.retryInterval
	bo.MaxElapsedTime = 0 // the attempt budget bounds us, not wall time
	return backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx)
}

// fetch performs one attempt. Returned errors are retryable unless
// wrapped in backoff.Permanent.
func (c *Client) fetch(ctx context.Context, target string, attempt int) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(wraperr.Wrap(wraperr.RemoteRequest, "building request", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cred.Token())
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Debug().Str("url", target).Int("attempt", attempt).Err(err).Msg("remote fetch failed")
		return nil, wraperr.Wrap(wraperr.TransientRemote, "remote unreachable", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	log.Debug().
		Str("url", target).
		Int("status", resp.StatusCode).
		Int("attempt", attempt).
		Dur("elapsed", time.Since(start)).
		Msg("remote fetch")

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, wraperr.Newf(wraperr.TransientRemote, "remote returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		reqErr := &RequestError{Status: resp.StatusCode, Body: bodySample(body)}
		return nil, backoff.Permanent(wraperr.Wrap(wraperr.RemoteRequest, "remote rejected request", reqErr))
	}

	if readErr != nil {
		return nil, wraperr.Wrap(wraperr.TransientRemote, "reading response", readErr)
	}
	return body, nil
}

// bodySample trims an error body for inclusion in messages.
func bodySample(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > bodySampleLimit {
		s = s[:bodySampleLimit] + "..."
	}
	return s
}
