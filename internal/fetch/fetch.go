// Package fetch calls the dashboard backend's JSON endpoints and retries
// transient failures with exponential backoff.
package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/sony/gobreaker"
)

const (
	DefaultMaxAttempts     = 5
	DefaultInitialInterval = 2 * time.Second
	DefaultMaxBodyBytes    = 10 << 20
)

// Payload is the raw JSON body of a successful response. Callers decode it
// into whatever shape the endpoint returns.
type Payload = json.RawMessage

// Config controls the retry behaviour of a Fetcher.
type Config struct {
	// BaseURL is prepended to endpoints that start with "/".
	BaseURL string

	// MaxAttempts counts the first try. Zero means DefaultMaxAttempts.
	MaxAttempts int

	// InitialInterval is the delay after the first failure; each later
	// delay doubles it. Zero means DefaultInitialInterval.
	InitialInterval time.Duration

	// RetryLogicalFailures makes success:false payloads retryable like
	// transport errors.
	RetryLogicalFailures bool

	MaxBodyBytes int64
}

// DefaultConfig returns the retry policy the dashboard has always used:
// five attempts, 2s/4s/8s/16s between them, logical failures retried.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:              baseURL,
		MaxAttempts:          DefaultMaxAttempts,
		InitialInterval:      DefaultInitialInterval,
		RetryLogicalFailures: true,
		MaxBodyBytes:         DefaultMaxBodyBytes,
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithBreaker routes every attempt through cb. An open breaker fails the
// call immediately without further attempts.
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(f *Fetcher) { f.circuit = cb }
}

// WithSleep replaces the backoff timer, mainly for tests.
func WithSleep(sleep SleepFunc) Option {
	return func(f *Fetcher) { f.sleep = sleep }
}

// Fetcher performs resilient GET requests against JSON endpoints.
// It holds no per-call state and is safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	cfg     Config
	circuit *gobreaker.CircuitBreaker
	sleep   SleepFunc
}

// New creates a Fetcher. Zero fields in cfg fall back to the defaults.
func New(client *http.Client, cfg Config, opts ...Option) *Fetcher {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = DefaultInitialInterval
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	f := &Fetcher{
		client: client,
		cfg:    cfg,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch requests endpoint and returns the parsed payload. Failed attempts
// are retried up to the configured maximum; once attempts are exhausted
// the last failure is returned and can be inspected with errors.As for
// *TransportError or *LogicalFailure.
func (f *Fetcher) Fetch(ctx context.Context, endpoint string) (Payload, error) {
	if f.client == nil {
		return nil, errNoHTTPClient
	}
	if f.cfg.MaxAttempts < 1 || f.cfg.InitialInterval < 0 {
		return nil, errInvalidConfig
	}

	target := f.resolve(endpoint)

	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		payload, err := f.execute(ctx, target)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		if errors.Is(err, ErrCircuitOpen) {
			return nil, err
		}
		if !f.cfg.RetryLogicalFailures && IsLogical(err) {
			return nil, err
		}
		if attempt == f.cfg.MaxAttempts {
			break
		}

		delay := f.backoff(attempt)
		log.Printf("WARN: fetch %s attempt %d/%d failed: %v; retrying in %s",
			target, attempt, f.cfg.MaxAttempts, err, delay)

		if err := f.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("fetch %s aborted after %d attempts: %w: %w", target, attempt, err, lastErr)
		}
	}

	return nil, fmt.Errorf("fetch %s failed after %d attempts: %w", target, f.cfg.MaxAttempts, lastErr)
}

// Get fetches endpoint and decodes the successful payload into out.
func (f *Fetcher) Get(ctx context.Context, endpoint string, out any) error {
	payload, err := f.Fetch(ctx, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &TransportError{Endpoint: f.resolve(endpoint), Err: fmt.Errorf("decode payload: %w", err)}
	}
	return nil
}

// backoff returns the delay after the given failed attempt (counted from 1).
func (f *Fetcher) backoff(attempt int) time.Duration {
	return f.cfg.InitialInterval * time.Duration(1<<uint(attempt-1))
}

func (f *Fetcher) resolve(endpoint string) string {
	if f.cfg.BaseURL == "" || !strings.HasPrefix(endpoint, "/") {
		return endpoint
	}
	return strings.TrimRight(f.cfg.BaseURL, "/") + endpoint
}

func (f *Fetcher) execute(ctx context.Context, target string) (Payload, error) {
	if f.circuit == nil {
		return f.attempt(ctx, target)
	}

	result, err := f.circuit.Execute(func() (interface{}, error) {
		return f.attempt(ctx, target)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &TransportError{Endpoint: target, Err: fmt.Errorf("%w: %v", ErrCircuitOpen, err)}
	}
	if err != nil {
		return nil, err
	}
	payload, ok := result.(Payload)
	if !ok {
		return nil, &TransportError{Endpoint: target, Err: fmt.Errorf("unexpected result type %T from circuit breaker", result)}
	}
	return payload, nil
}

// attempt performs a single request and classifies its outcome.
func (f *Fetcher) attempt(ctx context.Context, target string) (Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &TransportError{Endpoint: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br, gzip")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := readBody(resp, f.cfg.MaxBodyBytes)
	if err != nil {
		return nil, &TransportError{Endpoint: target, Status: resp.StatusCode, Err: err}
	}
	if !json.Valid(body) {
		return nil, &TransportError{Endpoint: target, Status: resp.StatusCode, Err: errors.New("response body is not valid JSON")}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &LogicalFailure{Endpoint: target, Status: resp.StatusCode, Message: "response has no success indicator"}
	}
	if !truthy(envelope["success"]) {
		return nil, &LogicalFailure{Endpoint: target, Status: resp.StatusCode, Message: failureMessage(envelope["message"], target)}
	}

	return Payload(body), nil
}

// readBody decodes the response and caps the decoded size at limit bytes.
func readBody(resp *http.Response, limit int64) ([]byte, error) {
	var reader io.Reader = resp.Body

	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "br":
		reader = brotli.NewReader(reader)
	case "gzip":
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrBodyTooLarge, limit)
	}
	return body, nil
}

// truthy mirrors the loose success check of the browser dashboard:
// missing, null, false, 0 and "" are all failures.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func failureMessage(raw json.RawMessage, target string) string {
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil && msg != "" {
		return msg
	}
	if len(bytes.TrimSpace(raw)) > 0 && string(raw) != "null" {
		return string(raw)
	}
	return "error fetching data: " + target
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
