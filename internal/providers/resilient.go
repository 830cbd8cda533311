package providers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/geodata"
	"github.com/MikeSquared-Agency/Georisk/internal/metrics"
)

const (
	DefaultTimeout = 5 * time.Second

	// CategoryCircuitOpen and CategoryRateLimited extend the geodata failure
	// categories with the guard's own refusals.
	CategoryCircuitOpen = "circuit_open"
	CategoryRateLimited = "rate_limited"
)

// ObservationCache stores primary observations between assessments.
type ObservationCache interface {
	Get(ctx context.Context, key string) (Observation, bool, error)
	Set(ctx context.Context, key string, obs Observation) error
}

// FallbackEvent describes one primary failure that was answered by a fallback.
type FallbackEvent struct {
	Factor   catalog.FactorID
	Category string
	Cause    string
	Point    geodata.Point
	At       time.Time
}

// Options configures the guard every provider shares.
type Options struct {
	Timeout      time.Duration
	RateLimitRPM int

	BreakerThreshold   int
	BreakerOpenTimeout time.Duration
	BreakerMaxRequests int

	Cache      ObservationCache
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	OnFallback func(ctx context.Context, ev FallbackEvent)
}

// DefaultOptions returns the production guard settings.
func DefaultOptions() Options {
	return Options{
		Timeout:            DefaultTimeout,
		RateLimitRPM:       60,
		BreakerThreshold:   5,
		BreakerOpenTimeout: 30 * time.Second,
		BreakerMaxRequests: 1,
	}
}

type primaryFunc func(ctx context.Context, p geodata.Point, fc FetchContext) (Observation, error)
type fallbackFunc func(ctx context.Context, p geodata.Point, fc FetchContext, cause error) Observation

// Guarded wraps a primary lookup with cache, timeout, rate limit and
// circuit breaker, and answers every failure with exactly one fallback call.
type Guarded struct {
	factor     catalog.FactorID
	primary    primaryFunc
	fallback   fallbackFunc
	cacheKey   func(p geodata.Point, fc FetchContext) string
	timeout    time.Duration
	limiter    ratelimit.RateLimiter
	breaker    circuitbreaker.CircuitBreaker[Observation]
	cache      ObservationCache
	metrics    *metrics.Metrics
	logger     *slog.Logger
	onFallback func(ctx context.Context, ev FallbackEvent)
}

func newGuarded(factor catalog.FactorID, primary primaryFunc, fallback fallbackFunc, opts Options) *Guarded {
	r := &Guarded{
		factor:     factor,
		primary:    primary,
		fallback:   fallback,
		timeout:    opts.Timeout,
		cache:      opts.Cache,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		onFallback: opts.OnFallback,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.cacheKey = func(p geodata.Point, _ FetchContext) string {
		return fmt.Sprintf("obs:%s:%s", factor, p.Key())
	}

	if opts.RateLimitRPM > 0 {
		r.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     opts.RateLimitRPM,
			Burst:    opts.RateLimitRPM,
			Interval: time.Minute,
		})
	}
	if opts.BreakerThreshold > 0 {
		threshold := uint32(opts.BreakerThreshold) // #nosec G115 -- bounded config value
		maxReq := opts.BreakerMaxRequests
		if maxReq <= 0 {
			maxReq = 1
		}
		r.breaker = circuitbreaker.New[Observation](circuitbreaker.Config{
			MaxRequests: uint32(maxReq), // #nosec G115 -- bounded config value
			Interval:    opts.BreakerOpenTimeout,
			Timeout:     opts.BreakerOpenTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		})
	}
	return r
}

func (r *Guarded) Factor() catalog.FactorID { return r.factor }

// Lookup runs only the guarded primary path: cache, rate limit, circuit
// breaker and timeout. It never falls back.
func (r *Guarded) Lookup(ctx context.Context, p geodata.Point, fc FetchContext) (Observation, error) {
	key := r.cacheKey(p, fc)
	if obs, ok := r.cached(ctx, key); ok {
		return obs, nil
	}

	start := time.Now()
	obs, err := r.callPrimary(ctx, p, fc)
	if err != nil {
		return Observation{}, err
	}
	r.metrics.ObserveProvider(string(r.factor), string(SourcePrimary), time.Since(start))
	obs.Factor = r.factor
	obs.Source = SourcePrimary
	obs.RawScore = clampScore(obs.RawScore)
	if r.cache != nil {
		if cerr := r.cache.Set(ctx, key, obs); cerr != nil {
			r.logger.Debug("observation cache write failed", "factor", r.factor, "error", cerr)
		}
	}
	return obs, nil
}

// Fetch answers from the primary path or, on any failure, from the fallback.
// Primary and fallback share one deadline of the configured timeout.
func (r *Guarded) Fetch(ctx context.Context, p geodata.Point, fc FetchContext) Result {
	deadline := time.Now().Add(r.timeout)
	obs, err := r.Lookup(ctx, p, fc)
	if err == nil {
		return PrimaryResult{Obs: obs}
	}

	category := r.categorize(err)
	r.logger.Warn("provider primary failed, using fallback",
		"factor", r.factor, "category", category, "point", p.Key(), "error", err)
	r.metrics.IncFallback(string(r.factor), category)
	if r.onFallback != nil {
		r.onFallback(ctx, FallbackEvent{
			Factor:   r.factor,
			Category: category,
			Cause:    err.Error(),
			Point:    p,
			At:       time.Now().UTC(),
		})
	}

	fbCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	fbStart := time.Now()
	fb := r.fallback(fbCtx, p, fc, err)
	r.metrics.ObserveProvider(string(r.factor), string(SourceFallback), time.Since(fbStart))
	fb.Factor = r.factor
	fb.Source = SourceFallback
	fb.RawScore = clampScore(fb.RawScore)
	if fb.Metadata == nil {
		fb.Metadata = map[string]any{}
	}
	fb.Metadata["fallbackCause"] = category
	return FallbackResult{Obs: fb, Cause: err, Category: category}
}

func (r *Guarded) cached(ctx context.Context, key string) (Observation, bool) {
	if r.cache == nil {
		return Observation{}, false
	}
	obs, ok, err := r.cache.Get(ctx, key)
	switch {
	case err != nil:
		r.metrics.IncCacheLookup(string(r.factor), "error")
		r.logger.Debug("observation cache read failed", "factor", r.factor, "error", err)
		return Observation{}, false
	case !ok:
		r.metrics.IncCacheLookup(string(r.factor), "miss")
		return Observation{}, false
	}
	r.metrics.IncCacheLookup(string(r.factor), "hit")
	obs.Source = SourcePrimary
	return obs, true
}

func (r *Guarded) callPrimary(ctx context.Context, p geodata.Point, fc FetchContext) (Observation, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, string(r.factor)); err != nil {
			return Observation{}, &guardError{category: CategoryRateLimited, err: err}
		}
	}
	if r.breaker == nil {
		return r.primary(ctx, p, fc)
	}
	var called bool
	obs, err := r.breaker.Execute(ctx, func(ctx context.Context) (Observation, error) {
		called = true
		return r.primary(ctx, p, fc)
	})
	if err != nil && !called {
		return Observation{}, &guardError{category: CategoryCircuitOpen, err: err}
	}
	return obs, err
}

func (r *Guarded) categorize(err error) string {
	if ge, ok := err.(*guardError); ok {
		return ge.category
	}
	return string(geodata.CategoryOf(err))
}

// CircuitState reports the breaker state: closed, half-open, open or disabled.
func (r *Guarded) CircuitState() string {
	if r.breaker == nil {
		return "disabled"
	}
	return r.breaker.State().String()
}

func (r *Guarded) Close() error {
	if r.limiter != nil {
		return r.limiter.Close()
	}
	return nil
}

type guardError struct {
	category string
	err      error
}

func (e *guardError) Error() string { return e.category + ": " + e.err.Error() }
func (e *guardError) Unwrap() error { return e.err }
