package resilience

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without calling the provider while its
// breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ServerError is a 5xx response from a provider.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// ClientConfig configures a Client. Zero fields take the defaults noted.
type ClientConfig struct {
	Name   string
	Logger zerolog.Logger

	// Timeout per attempt. Default 10s.
	Timeout time.Duration

	// MaxRetries after the first attempt. Default 3; negative disables retries.
	MaxRetries int

	// InitialInterval and MaxInterval bound the exponential backoff.
	// Defaults 100ms and 5s.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	Breaker BreakerConfig
}

// Client is an http.Client wrapper that retries transient failures and
// stops calling a provider that keeps failing.
type Client struct {
	name    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	retries uint64
	initial time.Duration
	max     time.Duration
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	var retries uint64
	switch {
	case cfg.MaxRetries == 0:
		retries = 3
	case cfg.MaxRetries > 0:
		retries = uint64(cfg.MaxRetries)
	}

	return &Client{
		name:    cfg.Name,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: newBreaker[*http.Response](cfg.Name, cfg.Breaker, cfg.Logger), //nolint:bodyclose // type parameter
		retries: retries,
		initial: cfg.InitialInterval,
		max:     cfg.MaxInterval,
	}
}

// Name returns the provider name.
func (c *Client) Name() string { return c.name }

// Do sends req, retrying network errors and 5xx responses with exponential
// backoff. 4xx responses are returned as-is. When retries run out on a 5xx
// the last response is returned with a nil error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initial
	bo.MaxInterval = c.max
	bo.MaxElapsedTime = 0

	var last *http.Response
	attempt := func() error {
		if last != nil {
			drain(last)
			last = nil
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to caller
			r, err := c.http.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= http.StatusInternalServerError {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		last = resp
		return err
	}

	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, c.retries), ctx))
	if err != nil {
		var serverErr *ServerError
		if last != nil && errors.As(err, &serverErr) {
			return last, nil
		}
		if last != nil {
			drain(last)
		}
		return nil, err
	}
	return last, nil
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the breaker counters for the current generation.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
