package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff and jitter.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry. Default: 2s.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration. Default: 30s.
	MaxBackoff time.Duration

	// Multiplier scales the backoff after each attempt. Default: 2.0.
	Multiplier float64

	// JitterFraction adds up to this fraction of the computed delay as
	// random extra wait (0.0 = no jitter). Jitter is only ever added, so
	// successive delays never shrink. Default: 0.25.
	JitterFraction float64

	// ShouldRetry classifies an error as retryable. If nil, IsRetryable is
	// used, which retries everything except fatal errors.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with the attempt that just
	// failed (1-based), its error, and the computed delay.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Sleep overrides the wait between attempts. Tests use it to record
	// delays without waiting.
	Sleep func(ctx context.Context, d time.Duration) error

	// Name labels log lines emitted by Do.
	Name string
}

// DefaultRetryConfig returns the retry configuration used for completion and
// search calls: 3 attempts, 2s base backoff doubling each attempt.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

// Do executes fn with retry logic according to cfg. Context cancellation
// stops retries immediately. After the last attempt the last error is
// returned unchanged.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that return a value. A server-requested
// Retry-After longer than the computed backoff replaces it, capped at
// MaxBackoff.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsRetryable
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	log := zap.L().With(zap.String("operation", cfg.Name))

	var zero T
	for attempt := 1; ; attempt++ {
		val, err := fn(ctx)
		switch {
		case err == nil:
			return val, nil
		case ctx.Err() != nil:
			return zero, err
		case !shouldRetry(err):
			log.Debug("retry: not retryable", zap.String("error_kind", Kind(err)), zap.Error(err))
			return zero, err
		case attempt >= cfg.MaxAttempts:
			log.Warn("retry: attempts exhausted", zap.Int("attempts", attempt), zap.Error(err))
			return zero, err
		}

		delay := computeBackoff(attempt-1, cfg)
		if ra := RetryAfter(err); ra > delay {
			delay = min(ra, cfg.MaxBackoff)
		}
		log.Warn("retry: attempt failed, backing off",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return zero, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

// computeBackoff returns base * multiplier^attempt plus non-negative jitter,
// where attempt is zero-based.
func computeBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}

	if cfg.JitterFraction > 0 {
		delay += rand.Float64() * delay * cfg.JitterFraction
	}

	return time.Duration(delay)
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error, time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		zap.L().Info("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Int("status", StatusCode(err)),
			zap.Error(err),
		)
	}
}
