package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"options-lab/internal/config"
	"options-lab/internal/errors"
	"options-lab/internal/logging"
	"options-lab/pkg/utils"
)

func writeJSON(w io.Writer, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}

func testConfig(baseURL string) config.SynthConfig {
	return config.SynthConfig{
		BaseURL:       baseURL,
		Timeframe:     "24h",
		Timeout:       2 * time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(testConfig(srv.URL), "test-key", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

// fixtureHandler serves the bundled BTC snapshot endpoint by endpoint.
func fixtureHandler(t *testing.T) http.Handler {
	snap, err := Demo("BTC")
	if err != nil {
		t.Fatalf("Demo: %v", err)
	}
	mux := http.NewServeMux()
	serve := func(v interface{}) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if r.URL.Query().Get("asset") != "BTC" {
				http.Error(w, "unknown asset", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = writeJSON(w, v)
		}
	}
	mux.HandleFunc("/v1/option-pricing", serve(snap.Pricing))
	mux.HandleFunc("/v1/prediction-percentiles", serve(snap.Percentiles))
	mux.HandleFunc("/v1/volatility", serve(snap.Volatility))
	return mux
}

func TestNewClient_RequiresKeyAndURL(t *testing.T) {
	if _, err := NewClient(testConfig("https://api.synthdata.co"), ""); !errors.Is(err, errors.ErrConfigInvalid) {
		t.Errorf("missing key: got %v", err)
	}
	if _, err := NewClient(testConfig("not a url"), "key"); !errors.Is(err, errors.ErrConfigInvalid) {
		t.Errorf("bad url: got %v", err)
	}
}

func TestClient_Snapshot(t *testing.T) {
	c := newTestClient(t, fixtureHandler(t))

	snap, err := c.Snapshot(context.Background(), "btc", "")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Pricing.CurrentPrice != 87420 {
		t.Errorf("current price = %v", snap.Pricing.CurrentPrice)
	}
	if len(snap.Pricing.Strikes) != 13 {
		t.Errorf("strikes = %d", len(snap.Pricing.Strikes))
	}
	if snap.Volatility.ImpliedVolatility != 0.52 || snap.Volatility.RealizedVolatility != 0.44 {
		t.Errorf("volatility = %+v", snap.Volatility)
	}

	dist, err := snap.Percentiles.Distribution()
	if err != nil {
		t.Fatalf("Distribution: %v", err)
	}
	if dist.Len() != 23 {
		t.Errorf("percentile points = %d", dist.Len())
	}
}

func TestClient_SendsTimeframe(t *testing.T) {
	var got atomic.Value
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.URL.Query().Get("timeframe"))
		_ = writeJSON(w, Volatility{Asset: "ETH", ImpliedVolatility: 0.6})
	}))

	if _, err := c.Volatility(context.Background(), "ETH", "1h"); err != nil {
		t.Fatal(err)
	}
	if tf := got.Load(); tf != "1h" {
		t.Errorf("timeframe = %v, want 1h", tf)
	}
	if _, err := c.Volatility(context.Background(), "ETH", ""); err != nil {
		t.Fatal(err)
	}
	if tf := got.Load(); tf != "24h" {
		t.Errorf("default timeframe = %v, want 24h", tf)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_ = writeJSON(w, Volatility{Asset: "BTC", ImpliedVolatility: 0.5})
	}))

	v, err := c.Volatility(context.Background(), "BTC", "")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if v.ImpliedVolatility != 0.5 {
		t.Errorf("implied vol = %v", v.ImpliedVolatility)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestClient_LogsToContextLogger(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_ = writeJSON(w, Volatility{Asset: "BTC", ImpliedVolatility: 0.5})
	}))

	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), zerolog.New(&buf).Level(zerolog.DebugLevel))
	if _, err := c.Volatility(ctx, "btc", ""); err != nil {
		t.Fatalf("Volatility: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"event":"retry"`, `"event":"api_call"`, `"asset":"BTC"`, `"status":503`, `"status":200`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{"rate limited is retried", http.StatusTooManyRequests, 3},
		{"server error is retried", http.StatusBadGateway, 3},
		{"client error is not retried", http.StatusNotFound, 1},
		{"auth error is not retried", http.StatusUnauthorized, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				http.Error(w, "nope", tt.status)
			}))

			_, err := c.OptionPricing(context.Background(), "BTC")
			var pe *errors.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if pe.StatusCode != tt.status || pe.Endpoint != EndpointOptionPricing {
				t.Errorf("provider error = %+v", pe)
			}
			if !strings.Contains(pe.Message, "nope") {
				t.Errorf("message = %q", pe.Message)
			}
			if !errors.Is(err, errors.ErrProvider) {
				t.Error("provider errors must match ErrProvider")
			}
			if n := atomic.LoadInt32(&calls); n != tt.wantCalls {
				t.Errorf("calls = %d, want %d", n, tt.wantCalls)
			}
		})
	}
}

func TestClient_MalformedBody(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte("{not json"))
	}))

	_, err := c.PredictionPercentiles(context.Background(), "BTC", "")
	var de *errors.DataError
	if !errors.As(err, &de) {
		t.Fatalf("expected DataError, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("decode failures must not be retried, calls = %d", n)
	}
}

func TestClient_EmptyAsset(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	if _, err := c.OptionPricing(context.Background(), "  "); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestClient_SnapshotFailsFast(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, EndpointVolatility) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_ = writeJSON(w, map[string]interface{}{})
	}))

	_, err := c.Snapshot(context.Background(), "BTC", "")
	if !errors.Is(err, errors.ErrProvider) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestClient_ContextCancelStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(testConfig(srv.URL), "k",
		WithHTTPClient(srv.Client()),
		WithRetry(utils.RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, BackoffFactor: 1}),
	)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.Volatility(ctx, "BTC", "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("retry sleep ignored context cancellation")
	}
}

func TestBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewBreaker(BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute}, Retryable)
	b.now = func() time.Time { return now }

	failing := func() error { return errors.NewProviderError("volatility", 500, "down") }
	_ = b.Do(failing)
	if b.State() != BreakerClosed {
		t.Fatalf("state after one failure = %s", b.State())
	}
	_ = b.Do(failing)
	if b.State() != BreakerOpen {
		t.Fatalf("state after threshold = %s", b.State())
	}

	called := false
	if err := b.Do(func() error { called = true; return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("open breaker must reject, got %v", err)
	}
	if called {
		t.Error("open breaker called through")
	}

	now = now.Add(2 * time.Minute)
	if err := b.Do(func() error { return nil }); err != nil {
		t.Errorf("trial request after cooldown: %v", err)
	}
	if b.State() != BreakerClosed {
		t.Errorf("successful trial request must close, state = %s", b.State())
	}
}

func TestBreaker_IgnoresClientErrors(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute}, Retryable)
	_ = b.Do(func() error { return errors.NewProviderError("volatility", 404, "missing") })
	if b.State() != BreakerClosed {
		t.Errorf("4xx must not trip the breaker, state = %s", b.State())
	}
}

func TestDemo(t *testing.T) {
	assets := DemoAssets()
	if strings.Join(assets, ",") != "BTC,ETH,SOL" {
		t.Fatalf("DemoAssets = %v", assets)
	}
	for _, a := range assets {
		t.Run(a, func(t *testing.T) {
			snap, err := Demo(strings.ToLower(a))
			if err != nil {
				t.Fatalf("Demo(%s): %v", a, err)
			}
			if snap.Pricing.Asset != a {
				t.Errorf("asset = %q", snap.Pricing.Asset)
			}
			years := snap.Pricing.YearsToExpiry()
			if years < 7/366.0 || years > 7/365.0 {
				t.Errorf("years to expiry = %v, want about a week", years)
			}
			m := snap.Market(snap.Pricing.Strikes[0].Strike, 0.05)
			if m.Spot != snap.Pricing.CurrentPrice || m.Volatility != snap.Volatility.ImpliedVolatility {
				t.Errorf("market params = %+v", m)
			}
		})
	}

	if _, err := Demo("DOGE"); !errors.Is(err, errors.ErrDataNotFound) {
		t.Errorf("unknown asset: got %v", err)
	}
}

func TestLoadFixture(t *testing.T) {
	snap, err := Demo("BTC")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	good := filepath.Join(dir, "btc.json")
	f, err := os.Create(good)
	if err != nil {
		t.Fatal(err)
	}
	if err := writeJSON(f, snap); err != nil {
		t.Fatal(err)
	}
	f.Close()

	loaded, err := LoadFixture(good)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if q, ok := loaded.Pricing.Quote(87000); !ok || q.CallPrice != 2240 {
		t.Errorf("quote 87000 = %+v, %v", q, ok)
	}

	bad := filepath.Join(dir, "bad.json")
	snap.Percentiles.Percentiles = map[string]float64{"50": 87000}
	f, _ = os.Create(bad)
	_ = writeJSON(f, snap)
	f.Close()
	if _, err := LoadFixture(bad); err == nil {
		t.Error("fixture with a single percentile must be rejected")
	}

	if _, err := LoadFixture(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file must error")
	}
}
