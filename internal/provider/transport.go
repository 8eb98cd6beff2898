package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mhkarimi/coinscout/internal/logger"
)

// Options configures the shared resilient transport.
type Options struct {
	Timeout        time.Duration
	MaxRetries     int
	RetryDelayBase time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 20 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelayBase <= 0 {
		o.RetryDelayBase = 5 * time.Second
	}
	return o
}

// transport performs HTTP GETs with retry and rate-limit handling on behalf
// of a named provider.
type transport struct {
	provider   string
	httpClient *http.Client
	maxRetries int
	delayBase  time.Duration
}

func newTransport(provider string, opts Options) *transport {
	opts = opts.withDefaults()
	return &transport{
		provider:   provider,
		httpClient: &http.Client{Timeout: opts.Timeout},
		maxRetries: opts.MaxRetries,
		delayBase:  opts.RetryDelayBase,
	}
}

// getJSON fetches urlStr and decodes the response body into v.
//
// Retry policy: up to maxRetries attempts. 429 backs off exponentially from
// delayBase, doubling per attempt; network errors, timeouts, and 5xx wait a
// fixed delayBase. Other 4xx statuses indicate a malformed request and fail
// immediately. Exhaustion yields a *FetchError.
func (t *transport) getJSON(ctx context.Context, urlStr string, header http.Header, v any) error {
	var lastErr error
	var lastStatus int

	for attempt := 0; attempt < t.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return &FetchError{Provider: t.provider, Attempts: attempt, Err: err}
		}
		req.Header.Set("Accept", "application/json")
		for k, vals := range header {
			for _, hv := range vals {
				req.Header.Add(k, hv)
			}
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			lastErr = err
			lastStatus = 0
			logger.Warn("%s: request failed (attempt %d/%d): %v", t.provider, attempt+1, t.maxRetries, err)
			if !t.wait(ctx, t.delayBase, attempt) {
				break
			}
			continue
		}

		if resp.StatusCode == http.StatusOK {
			err := json.NewDecoder(resp.Body).Decode(v)
			resp.Body.Close()
			if err != nil {
				// A garbled body is not retried; the transport succeeded.
				return &FetchError{
					Provider: t.provider,
					Attempts: attempt + 1,
					Err:      fmt.Errorf("failed to decode response: %w", err),
				}
			}
			return nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastErr = errors.New("rate limited")
			lastStatus = resp.StatusCode
			backoff := t.delayBase << attempt
			logger.Warn("%s: rate limited (attempt %d/%d), backing off %v", t.provider, attempt+1, t.maxRetries, backoff)
			if !t.wait(ctx, backoff, attempt) {
				break
			}
			continue
		}

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			resp.Body.Close()
			return &FetchError{
				Provider:   t.provider,
				StatusCode: resp.StatusCode,
				Attempts:   attempt + 1,
				Err:        errors.New("request rejected"),
			}
		}

		resp.Body.Close()
		lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		lastStatus = resp.StatusCode
		logger.Warn("%s: %v (attempt %d/%d)", t.provider, lastErr, attempt+1, t.maxRetries)
		if !t.wait(ctx, t.delayBase, attempt) {
			break
		}
	}

	if ctx.Err() != nil && lastErr == nil {
		lastErr = ctx.Err()
	}
	return &FetchError{
		Provider:   t.provider,
		StatusCode: lastStatus,
		Attempts:   t.maxRetries,
		Err:        lastErr,
	}
}

// wait sleeps for d unless this was the final attempt or ctx is cancelled.
// It reports whether the retry loop should continue.
func (t *transport) wait(ctx context.Context, d time.Duration, attempt int) bool {
	if attempt >= t.maxRetries-1 {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
