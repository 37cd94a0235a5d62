// Package retry runs remote calls under a fixed-delay, bounded-attempt policy.
package retry

import (
	"context"
	"time"

	"cstats-bot/internal/config"

	"github.com/rs/zerolog"
	goretry "github.com/sethvargo/go-retry"
)

// Policy retries a call up to MaxAttempts times in total, sleeping Delay
// between attempts. There is no backoff growth and no jitter.
type Policy struct {
	MaxAttempts    int
	Delay          time.Duration
	AttemptTimeout time.Duration
	logger         zerolog.Logger
}

func NewPolicy(cfg *config.Config, logger zerolog.Logger) *Policy {
	return &Policy{
		MaxAttempts:    cfg.RetryAttempts,
		Delay:          cfg.RetryDelay,
		AttemptTimeout: cfg.APITimeout,
		logger:         logger,
	}
}

// Retryable marks err as transient. Errors that are not marked end Do immediately.
func Retryable(err error) error {
	return goretry.RetryableError(err)
}

// Do calls fn until it succeeds, returns a permanent error, or the attempts run
// out. The last error is returned unwrapped.
func (p *Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	backoff := goretry.WithMaxRetries(uint64(attempts-1), goretry.NewConstant(p.Delay))

	attempt := 0
	return goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		attemptCtx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			defer cancel()
		}

		err := fn(attemptCtx)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("op", op).
				Int("attempt", attempt).
				Int("max_attempts", attempts).
				Msg("remote call failed")
		}
		return err
	})
}
