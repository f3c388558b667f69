// Package fetch performs HTTP GETs with bounded retries and jittered linear
// backoff. The per-jurisdiction scraper tasks and the reference adapter both
// retrieve upstream pages through this client.
package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Result carries the outcome of a successful fetch. It is ephemeral and never
// persisted.
type Result struct {
	StatusCode int
	Body       []byte
	Elapsed    time.Duration
}

// Error reports a fetch that failed after exhausting its retry budget.
type Error struct {
	URL        string
	Attempts   int
	LastStatus int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s failed after %d attempts: last status %d", e.URL, e.Attempts, e.LastStatus)
}

func (e *Error) Unwrap() error { return e.Err }

// Config controls client behavior.
type Config struct {
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
}

// Client fetches URLs with retries. Backoff between attempts is linear with
// uniform jitter, which bounds worst-case wait while spreading retries from
// many concurrent scrapers hitting the same host.
type Client struct {
	http   *resty.Client
	cfg    Config
	logger *zap.Logger

	// Both injectable for tests.
	sleep  func(time.Duration)
	jitter func() float64
}

// New builds a Client. Resty's built-in retry is disabled; the retry policy
// here is the one the run journal reports against.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent)

	return &Client{
		http:   httpClient,
		cfg:    cfg,
		logger: logger,
		sleep:  time.Sleep,
		jitter: rand.Float64,
	}
}

// Fetch GETs url, retrying up to the configured attempt budget. A response
// with status in [200,400) is a success; anything else, including transport
// errors, consumes an attempt. After attempt i the client sleeps
// (i+1) seconds plus up to one second of jitter before trying again.
func (c *Client) Fetch(ctx context.Context, url string) (Result, error) {
	if c.cfg.MaxRetries <= 0 {
		return Result{}, fmt.Errorf("fetch %s: max retries must be > 0", url)
	}

	var (
		lastErr    error
		lastStatus int
	)
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		resp, err := c.http.R().SetContext(ctx).Get(url)
		switch {
		case err != nil:
			lastErr = err
			lastStatus = 0
			c.logger.Warn("fetch attempt failed",
				zap.String("url", url),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		case resp.StatusCode() >= 200 && resp.StatusCode() < 400:
			return Result{
				StatusCode: resp.StatusCode(),
				Body:       resp.Body(),
				Elapsed:    resp.Time(),
			}, nil
		default:
			lastErr = nil
			lastStatus = resp.StatusCode()
			c.logger.Warn("fetch attempt rejected",
				zap.String("url", url),
				zap.Int("attempt", attempt+1),
				zap.Int("status", resp.StatusCode()),
			)
		}

		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("fetch %s canceled: %w", url, ctx.Err())
		}
		c.sleep(time.Duration((float64(attempt+1) + c.jitter()) * float64(time.Second)))
	}

	return Result{}, &Error{
		URL:        url,
		Attempts:   c.cfg.MaxRetries,
		LastStatus: lastStatus,
		Err:        lastErr,
	}
}
