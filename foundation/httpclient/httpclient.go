// Package httpclient provides basic http functions
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// StatusError is returned when the remote responds with a non 2xx status
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Config contains the retry and timeout behaviour of a Client
type Config struct {
	Timeout         time.Duration
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
	MaxRetries      uint64
	UserAgent       string
}

// DefaultConfig returns Config suitable for polling feeds every few seconds
func DefaultConfig() Config {
	return Config{
		Timeout:         15 * time.Second,
		InitialInterval: 500 * time.Millisecond,
		MaxElapsedTime:  30 * time.Second,
		MaxRetries:      4,
		UserAgent:       "train-monitor",
	}
}

// Client retrieves remote snapshots, retrying transient failures with exponential backoff
type Client struct {
	log    *log.Logger
	cfg    Config
	client *http.Client
}

// NewClient creates Client
func NewClient(log *log.Logger, cfg Config) *Client {
	return &Client{
		log: log,
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// newBackOff builds the retry policy for a single request bound by ctx
func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialInterval
	b.MaxElapsedTime = c.cfg.MaxElapsedTime
	return backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx)
}

// GetBytes retrieves the body at url using a GET request.
// 4xx responses are not retried
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	return backoff.RetryNotifyWithData(
		func() ([]byte, error) {
			return c.get(ctx, url)
		},
		c.newBackOff(ctx),
		func(err error, d time.Duration) {
			c.log.Printf("retrying %s in %s, error: %v", url, d, err)
		},
	)
}

// GetJSON retrieves url and unmarshals the json body into target
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	body, err := c.GetBytes(ctx, url)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("unable to unmarshal response from %s: %w", url, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("Digitraffic-User", c.cfg.UserAgent)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		innerErr := resp.Body.Close()
		if innerErr != nil {
			c.log.Printf("error closing http response body. error: %v\n", innerErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{URL: url, StatusCode: resp.StatusCode}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(statusErr)
		}
		return nil, statusErr
	}
	return io.ReadAll(resp.Body)
}
