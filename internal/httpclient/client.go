// Package httpclient builds the single shared HTTP client the fetch
// worker pool uses to retrieve page bodies (§4.3), generalizing the
// teacher's internal/http package (header rotation, TLS fingerprinting,
// retry/backoff) from a collection of standalone helpers into one
// client with a bounded-redirect, bounded-size Fetch call.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Result is one fetch outcome: the final URL after redirects, the
// final status code, content type, and a size-bounded body.
type Result struct {
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
	IsRedirect  bool
	InitialURL  string
}

// Client is the shared fetch client described by §4.3: one connection
// pool (keeping at most one idle connection per host; the one-request-
// at-a-time-per-host rule is enforced by the frontier, not here),
// bounded redirects, bounded body size, optional header/TLS rotation,
// and per-host retry/backoff.
type Client struct {
	http              *http.Client
	headerRotator     *headerRotator
	useHeaderRotation bool
	userAgent         string
	maxBodyBytes      int64
	retry             retryPolicy
	backoff           *hostBackoffTracker
}

// Options configures a new Client, sourced from internal/config.
type Options struct {
	UserAgent            string
	FetchTimeout         time.Duration
	MaxRedirects         int
	MaxBodyBytes         int64
	EnableTLSFingerprint bool
	UseHeaderRotation    bool
	MaxRetries           int
}

// New builds a Client from Options.
func New(opts Options) *Client {
	var transport http.RoundTripper
	if opts.EnableTLSFingerprint {
		transport = newFingerprintingTransport()
	} else {
		transport = &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 1,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	maxRedirects := opts.MaxRedirects
	httpClient := &http.Client{
		Timeout:   opts.FetchTimeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("httpclient: stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Client{
		http:              httpClient,
		headerRotator:     newHeaderRotator(),
		useHeaderRotation: opts.UseHeaderRotation,
		userAgent:         opts.UserAgent,
		maxBodyBytes:      opts.MaxBodyBytes,
		retry:             defaultRetryPolicy(opts.MaxRetries),
		backoff:           newHostBackoffTracker(),
	}
}

// Fetch performs §4.3 steps 2-3: one bounded-redirect, bounded-size
// HTTP GET, retried per retryPolicy on transient failure.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Result, error) {
	host := requestHost(rawURL)

	var lastErr error
	for attempt := 0; attempt <= c.retry.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(c.retry.backoff(attempt - 1)):
			}
		}

		if inBackoff, wait := c.backoff.inBackoff(host); inBackoff {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(wait):
			}
		}

		result, statusCode, err := c.doFetch(ctx, rawURL)
		if !c.retry.shouldRetry(statusCode, err) {
			if err == nil {
				c.backoff.recordSuccess(host)
			}
			return result, err
		}

		lastErr = err
		c.backoff.recordFailure(c.retry, host)
	}

	return Result{}, fmt.Errorf("httpclient: exhausted %d retries fetching %s: %w", c.retry.maxRetries, rawURL, lastErr)
}

func (c *Client) doFetch(ctx context.Context, rawURL string) (Result, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.useHeaderRotation {
		c.headerRotator.apply(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return Result{}, resp.StatusCode, err
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return Result{
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		IsRedirect:  finalURL != rawURL,
		InitialURL:  rawURL,
	}, resp.StatusCode, nil
}

func requestHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}
