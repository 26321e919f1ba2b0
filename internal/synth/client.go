// Package synth is the client for the Synth forecasting API, the source of
// percentile forecasts, forward volatility and provider option prices.
package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"options-lab/internal/config"
	"options-lab/internal/errors"
	"options-lab/internal/logging"
	"options-lab/pkg/utils"
)

// Endpoint names under /v1/.
const (
	EndpointOptionPricing = "option-pricing"
	EndpointPercentiles   = "prediction-percentiles"
	EndpointVolatility    = "volatility"
)

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

// Client fetches forecasts from the provider.
type Client struct {
	baseURL    string
	apiKey     string
	timeframe  string
	httpClient *http.Client
	retry      utils.RetryConfig
	breaker    *Breaker
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetry replaces the retry schedule derived from config.
func WithRetry(rc utils.RetryConfig) Option {
	return func(c *Client) {
		c.retry = rc
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// NewClient creates a client from the [synth] settings and an API key.
func NewClient(cfg config.SynthConfig, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: synth api key not configured", errors.ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: synth base_url %q: %v", errors.ErrConfigInvalid, cfg.BaseURL, err)
	}

	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    apiKey,
		timeframe: cfg.Timeframe,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retry: utils.RetryConfig{
			MaxAttempts:   cfg.RetryAttempts + 1,
			InitialDelay:  cfg.RetryDelay,
			MaxDelay:      cfg.Timeout,
			BackoffFactor: 2.0,
		},
		breaker: NewBreaker(DefaultBreakerConfig(), Retryable),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Retryable reports whether err is a transient provider or transport failure.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	var pe *errors.ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	var de *errors.DataError
	if errors.As(err, &de) {
		return false
	}
	// Transport errors: connection refused, resets, client timeouts.
	return true
}

// OptionPricing fetches provider option prices for asset.
func (c *Client) OptionPricing(ctx context.Context, asset string) (*OptionPricing, error) {
	return fetch[OptionPricing](ctx, c, EndpointOptionPricing, asset, "")
}

// PredictionPercentiles fetches the percentile forecast for asset. An empty
// timeframe uses the configured default.
func (c *Client) PredictionPercentiles(ctx context.Context, asset, timeframe string) (*PredictionPercentiles, error) {
	return fetch[PredictionPercentiles](ctx, c, EndpointPercentiles, asset, c.horizon(timeframe))
}

// Volatility fetches forward and realized volatility for asset.
func (c *Client) Volatility(ctx context.Context, asset, timeframe string) (*Volatility, error) {
	return fetch[Volatility](ctx, c, EndpointVolatility, asset, c.horizon(timeframe))
}

// Snapshot fetches pricing, percentiles and volatility concurrently. The first
// failure cancels the remaining requests.
func (c *Client) Snapshot(ctx context.Context, asset, timeframe string) (*Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := c.OptionPricing(gctx, asset)
		if err != nil {
			return err
		}
		snap.Pricing = *p
		return nil
	})
	g.Go(func() error {
		p, err := c.PredictionPercentiles(gctx, asset, timeframe)
		if err != nil {
			return err
		}
		snap.Percentiles = *p
		return nil
	})
	g.Go(func() error {
		v, err := c.Volatility(gctx, asset, timeframe)
		if err != nil {
			return err
		}
		snap.Volatility = *v
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching %s snapshot: %w", normalizeAsset(asset), err)
	}
	return &snap, nil
}

func (c *Client) horizon(timeframe string) string {
	if timeframe != "" {
		return timeframe
	}
	return c.timeframe
}

// fetch requests one endpoint with retries behind the circuit breaker. Each
// attempt decodes into a fresh value, so a failed attempt leaves nothing
// behind. Request and retry events go to the logger carried by ctx.
func fetch[T any](ctx context.Context, c *Client, endpoint, asset, timeframe string) (*T, error) {
	asset = normalizeAsset(asset)
	if asset == "" {
		return nil, errors.NewValidationError("asset", asset, "must not be empty")
	}

	query := url.Values{}
	query.Set("asset", asset)
	if timeframe != "" {
		query.Set("timeframe", timeframe)
	}

	logger := logging.WithAsset(logging.FromContext(ctx), asset)
	rc := c.retry
	rc.ShouldRetry = Retryable
	rc.OnRetry = func(attempt int, delay time.Duration, err error) {
		logging.LogRetry(logger, endpoint, attempt, delay, err)
	}

	return utils.RetryWithResult(ctx, rc, func() (*T, error) {
		out := new(T)
		err := c.breaker.Do(func() error {
			return c.do(ctx, logger, endpoint, asset, query, out)
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

func (c *Client) do(ctx context.Context, logger zerolog.Logger, endpoint, asset string, query url.Values, out interface{}) error {
	reqURL := c.baseURL + "/v1/" + endpoint + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "OptionsLab/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.LogAPICall(logger, http.MethodGet, endpoint, 0, time.Since(start), err)
		return fmt.Errorf("requesting %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		pe := errors.NewProviderError(endpoint, resp.StatusCode, msg)
		logging.LogAPICall(logger, http.MethodGet, endpoint, resp.StatusCode, time.Since(start), pe)
		return pe
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		de := errors.NewDataError(endpoint, asset, "decoding response", err)
		logging.LogAPICall(logger, http.MethodGet, endpoint, resp.StatusCode, time.Since(start), de)
		return de
	}

	logging.LogAPICall(logger, http.MethodGet, endpoint, resp.StatusCode, time.Since(start), nil)
	return nil
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}
