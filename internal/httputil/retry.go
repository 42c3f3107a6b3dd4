// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retrying HTTP GET used for every page
// request against the label API.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
)

// ErrRetriesExhausted is returned once every attempt has failed. The last
// attempt's error is wrapped alongside it.
var ErrRetriesExhausted = errors.New("retries exhausted")

// StatusError reports a response whose status was not 200 OK.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned HTTP %d", e.StatusCode)
}

// DecodeFunc parses the body of a 200 OK response. A non-nil error fails
// the attempt, which is then retried like any other failure.
type DecodeFunc func(body []byte) error

// DecodeError reports a 200 OK response whose body could not be parsed.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decoding response body: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Observer receives retry events. Implementations must not block.
type Observer interface {
	// AttemptFailed is called after each failed attempt (1-based).
	AttemptFailed(attempt int, err error)

	// RetryWait is called before sleeping ahead of the next attempt.
	RetryWait(attempt int, delay time.Duration)

	// Exhausted is called once when no attempts remain.
	Exhausted(attempts int, err error)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) AttemptFailed(int, error)     {}
func (NopObserver) RetryWait(int, time.Duration) {}
func (NopObserver) Exhausted(int, error)         {}

// Policy bounds the retry loop. The delay before attempt n+1 is
// BaseDelay * 2^(n-1): no jitter and no cap.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy returns three attempts with waits of 1s and 2s.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Delay returns the wait that follows the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay << (attempt - 1)
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

// Gate wraps a single GET with bounded exponential-backoff retry. Any
// non-200 status and any transport failure is retried.
type Gate struct {
	Client   *http.Client
	Policy   Policy
	Observer Observer

	// Sleep waits between attempts. Tests replace it to avoid real sleeps.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewGate returns a Gate using client, policy and obs. A nil obs discards
// events.
func NewGate(client *http.Client, policy Policy, obs Observer) *Gate {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Gate{
		Client:   client,
		Policy:   policy,
		Observer: obs,
		Sleep:    SleepContext,
	}
}

// Get fetches url and returns the response body of the first 200 OK. When
// all attempts fail it returns an error wrapping ErrRetriesExhausted. If
// ctx is cancelled the context error is returned instead.
func (g *Gate) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	return g.GetDecoded(ctx, url, header, nil)
}

// GetDecoded is Get with a parse step inside the retry loop: a 200 OK whose
// body decode rejects counts as a failed attempt and is retried. A nil
// decode accepts any body.
func (g *Gate) GetDecoded(ctx context.Context, url string, header http.Header, decode DecodeFunc) ([]byte, error) {
	obs := g.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	sleep := g.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	maxAttempts := g.Policy.attempts()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, err := g.do(ctx, url, header)
		if err == nil && decode != nil {
			if derr := decode(body); derr != nil {
				err = &DecodeError{Err: derr}
			}
		}
		if err == nil {
			return body, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		lastErr = err
		obs.AttemptFailed(attempt, err)
		if attempt == maxAttempts {
			break
		}

		delay := g.Policy.Delay(attempt)
		obs.RetryWait(attempt, delay)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	obs.Exhausted(maxAttempts, lastErr)
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, maxAttempts, lastErr)
}

func (g *Gate) do(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused by the next attempt.
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
