package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/sony/gobreaker"
)

// recordSleep collects requested backoff delays without waiting.
type recordSleep struct {
	delays []time.Duration
}

func (r *recordSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func (r *recordSleep) total() time.Duration {
	var sum time.Duration
	for _, d := range r.delays {
		sum += d
	}
	return sum
}

func newTestFetcher(t *testing.T, srv *httptest.Server, cfg Config, opts ...Option) (*Fetcher, *recordSleep) {
	t.Helper()
	rec := &recordSleep{}
	cfg.BaseURL = srv.URL
	opts = append(opts, WithSleep(rec.sleep))
	return New(srv.Client(), cfg, opts...), rec
}

func TestFetchTransportFailureExhaustsAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	f, rec := newTestFetcher(t, srv, DefaultConfig(""))

	_, err := f.Fetch(context.Background(), "/api/countries")
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if got := atomic.LoadInt32(&calls); got != 5 {
		t.Fatalf("expected 5 attempts, got %d", got)
	}
	if !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	if len(rec.delays) != len(want) {
		t.Fatalf("expected %d delays, got %v", len(want), rec.delays)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Fatalf("delay %d: expected %s, got %s", i, want[i], rec.delays[i])
		}
	}
	if rec.total() != 30*time.Second {
		t.Fatalf("expected 30s total backoff, got %s", rec.total())
	}
}

func TestFetchSucceedsAfterFailures(t *testing.T) {
	for failures := 0; failures < 5; failures++ {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&calls, 1)
			if int(n) <= failures {
				_, _ = w.Write([]byte("not json"))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"count":1,"results":[{"code":"ES","name":"Spain"}]}`))
		}))

		f, rec := newTestFetcher(t, srv, DefaultConfig(""))
		payload, err := f.Fetch(context.Background(), "/api/countries")
		srv.Close()

		if err != nil {
			t.Fatalf("failures=%d: unexpected error: %v", failures, err)
		}
		if got := atomic.LoadInt32(&calls); int(got) != failures+1 {
			t.Fatalf("failures=%d: expected %d attempts, got %d", failures, failures+1, got)
		}
		if len(rec.delays) != failures {
			t.Fatalf("failures=%d: expected %d delays, got %d", failures, failures, len(rec.delays))
		}

		var body struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(payload, &body); err != nil || body.Count != 1 {
			t.Fatalf("failures=%d: payload not returned as-is: %s", failures, payload)
		}
	}
}

func TestFetchLogicalFailureIsRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"success":false,"message":"sensor not found"}`))
	}))
	defer srv.Close()

	f, rec := newTestFetcher(t, srv, DefaultConfig(""))

	_, err := f.Fetch(context.Background(), "/api/parameters/42")
	if got := atomic.LoadInt32(&calls); got != 5 {
		t.Fatalf("expected 5 attempts, got %d", got)
	}
	if len(rec.delays) != 4 {
		t.Fatalf("expected 4 delays, got %d", len(rec.delays))
	}

	var lf *LogicalFailure
	if !errors.As(err, &lf) {
		t.Fatalf("expected LogicalFailure, got %v", err)
	}
	if lf.Message != "sensor not found" {
		t.Fatalf("unexpected message %q", lf.Message)
	}
	if IsTransport(err) {
		t.Fatal("logical failure must not be reported as transport error")
	}
}

func TestFetchLogicalFailureTerminalWhenRetryDisabled(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"date_from/date_to invalid"}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig("")
	cfg.RetryLogicalFailures = false
	f, rec := newTestFetcher(t, srv, cfg)

	_, err := f.Fetch(context.Background(), "/api/measurements/1/2")
	if !IsLogical(err) {
		t.Fatalf("expected logical failure, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
	if len(rec.delays) != 0 {
		t.Fatalf("expected no backoff, got %v", rec.delays)
	}
}

func TestFetchMissingSuccessIsLogicalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig("")
	cfg.MaxAttempts = 1
	f, _ := newTestFetcher(t, srv, cfg)

	_, err := f.Fetch(context.Background(), "/api/countries")
	var lf *LogicalFailure
	if !errors.As(err, &lf) {
		t.Fatalf("expected LogicalFailure, got %v", err)
	}
	if lf.Message == "" {
		t.Fatal("expected a default message")
	}
}

func TestFetchDecodesBrotli(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		_, _ = bw.Write([]byte(`{"success":true,"date_utc":"2024-06-15T10:00:00Z"}`))
		_ = bw.Close()
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	f, _ := newTestFetcher(t, srv, DefaultConfig(""))

	var out struct {
		DateUTC string `json:"date_utc"`
	}
	if err := f.Get(context.Background(), "/api/last_measurement_date/1/2", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.DateUTC != "2024-06-15T10:00:00Z" {
		t.Fatalf("unexpected date %q", out.DateUTC)
	}
}

// oversizedJSON is a valid success payload of roughly n bytes that
// compresses to a few kilobytes.
func oversizedJSON(n int) []byte {
	return []byte(`{"success":true,"pad":"` + strings.Repeat("a", n) + `"}`)
}

func TestFetchRejectsOversizedDecodedBody(t *testing.T) {
	encoders := map[string]func(*bytes.Buffer, []byte){
		"gzip": func(buf *bytes.Buffer, p []byte) {
			gw := gzip.NewWriter(buf)
			_, _ = gw.Write(p)
			_ = gw.Close()
		},
		"br": func(buf *bytes.Buffer, p []byte) {
			bw := brotli.NewWriter(buf)
			_, _ = bw.Write(p)
			_ = bw.Close()
		},
	}

	for encoding, encode := range encoders {
		t.Run(encoding, func(t *testing.T) {
			var wire bytes.Buffer
			encode(&wire, oversizedJSON(2<<20))

			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.Header().Set("Content-Encoding", encoding)
				_, _ = w.Write(wire.Bytes())
			}))
			defer srv.Close()

			cfg := DefaultConfig("")
			cfg.MaxBodyBytes = 1 << 20
			cfg.MaxAttempts = 1
			f, _ := newTestFetcher(t, srv, cfg)

			payload, err := f.Fetch(context.Background(), "/api/countries")
			if payload != nil {
				t.Fatalf("expected no payload, got %d bytes", len(payload))
			}
			var te *TransportError
			if !errors.As(err, &te) {
				t.Fatalf("expected transport error, got %v", err)
			}
			if !errors.Is(err, ErrBodyTooLarge) || !strings.Contains(err.Error(), "body exceeds 1048576 bytes") {
				t.Fatalf("expected size limit error, got %v", err)
			}
		})
	}
}

func TestFetchAcceptsBodyAtLimit(t *testing.T) {
	body := []byte(`{"success":true}`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	cfg := DefaultConfig("")
	cfg.MaxBodyBytes = int64(len(body))
	f, _ := newTestFetcher(t, srv, cfg)

	if _, err := f.Fetch(context.Background(), "/api/countries"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetchStopsWhenContextCancelled(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sleep := func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	cfg := DefaultConfig(srv.URL)
	f := New(srv.Client(), cfg, WithSleep(sleep))

	_, err := f.Fetch(ctx, "/api/countries")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !IsLogical(err) {
		t.Fatalf("expected last failure to stay inspectable, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
}

func TestFetchOpenBreakerFailsFast(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "test",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
		Timeout: time.Hour,
	})
	f, _ := newTestFetcher(t, srv, DefaultConfig(""), WithBreaker(cb))

	_, err := f.Fetch(context.Background(), "/api/countries")
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected breaker to stop after 2 attempts, got %d", got)
	}
}
