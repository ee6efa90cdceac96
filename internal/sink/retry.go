package sink

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go-history-harvester/internal/model"
	"go-history-harvester/pkg/logger"
)

// RetryingSink retries failed writes of the wrapped sink with exponential
// backoff. The batch is re-sent whole; sinks are idempotent on id.
type RetryingSink struct {
	next   Sink
	config model.RetryConfig
	log    logger.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRetryingSink(next Sink, config model.RetryConfig, log logger.Logger) *RetryingSink {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.BackoffMultiplier < 1 {
		config.BackoffMultiplier = 1
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &RetryingSink{next: next, config: config, log: log, sleep: sleepContext}
}

func (r *RetryingSink) Write(ctx context.Context, partition string, docs []model.IndexedDocument) error {
	var err error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err = r.next.Write(ctx, partition, docs); err == nil {
			if attempt > 1 {
				r.log.Info("✅ Write to %s succeeded after %d attempts", partition, attempt)
			}
			return nil
		}
		if !retryable(ctx, err) || attempt == r.config.MaxAttempts {
			break
		}
		delay := r.nextDelay(attempt)
		r.log.Warn("🔄 Write to %s failed (attempt %d/%d): %v; retrying in %v",
			partition, attempt, r.config.MaxAttempts, err, delay)
		if serr := r.sleep(ctx, delay); serr != nil {
			break
		}
	}
	return err
}

// nextDelay is InitialDelay * multiplier^(attempt-1), capped at MaxDelay,
// with up to ±10% jitter.
func (r *RetryingSink) nextDelay(attempt int) time.Duration {
	delay := time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.BackoffMultiplier, float64(attempt-1)))
	if r.config.MaxDelay > 0 && delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}
	if r.config.Jitter && delay > 0 {
		delay += time.Duration(float64(delay) * 0.1 * (2*rand.Float64() - 1))
	}
	return delay
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
