// Package remote is the resilient call layer under every spreadsheet, mail
// and grader request: a shared throttle, failure classification and a
// retry loop that only gives up on fatal errors.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/gamesdesk/pkg/logger"
	"github.com/okian/gamesdesk/pkg/metrics"
)

const defaultWaitChunk = 30 * time.Second

// Caller runs remote operations under the throttle and retry policy.
type Caller struct {
	throttle    *Throttle
	policy      Policy
	maxAttempts int
	chunk       time.Duration
	sleep       Sleeper
	log         logger.Logger
}

// NewCaller creates a Caller. Without WithMaxAttempts it retries until the
// policy gives up, which only happens for fatal errors.
func NewCaller(opts ...Option) *Caller {
	c := &Caller{
		policy: DefaultPolicy(),
		chunk:  defaultWaitChunk,
		sleep:  Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("remote")
	}
	return c
}

// Do runs fn until it succeeds, the policy declares the failure fatal, the
// attempt budget runs out, or ctx is done.
func (c *Caller) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		if c.throttle != nil {
			if err := c.throttle.Wait(ctx); err != nil {
				return err
			}
		}

		err := fn(ctx)
		if err == nil {
			metrics.RecordRemoteCall(op, "ok")
			if attempt > 1 {
				c.log.Info(ctx, "remote call recovered", logger.String("op", op), logger.Int("attempts", attempt))
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.RecordRemoteCall(op, "canceled")
			return ctxErr
		}

		class, after := Classify(err)
		wait, retry := c.policy.Next(class, attempt)
		if !retry {
			metrics.RecordRemoteCall(op, "fatal")
			c.log.Error(ctx, "remote call failed permanently", logger.String("op", op), logger.Error(err))
			var ferr *FatalError
			if errors.As(err, &ferr) {
				return ferr
			}
			return &FatalError{Op: op, Err: err}
		}
		if c.maxAttempts > 0 && attempt >= c.maxAttempts {
			metrics.RecordRemoteCall(op, "exhausted")
			return fmt.Errorf("%w: %s after %d attempts: %w", ErrExhausted, op, attempt, err)
		}
		if after > wait {
			wait = capAt(after, c.policy.QuotaCap)
		}

		metrics.RecordRemoteRetry(class.String(), wait.Seconds())
		c.log.Warn(ctx, "remote call failed, retrying",
			logger.String("op", op),
			logger.String("class", class.String()),
			logger.Int("attempt", attempt),
			logger.Duration("wait", wait),
			logger.Error(err))

		if err := c.wait(ctx, op, wait); err != nil {
			return err
		}
	}
}

// Call is Do for operations that return a value.
func Call[T any](ctx context.Context, c *Caller, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := c.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// wait sleeps for total in slices no longer than the chunk size, logging
// progress between slices.
func (c *Caller) wait(ctx context.Context, op string, total time.Duration) error {
	remaining := total
	for remaining > 0 {
		step := remaining
		if step > c.chunk {
			step = c.chunk
		}
		if err := c.sleep(ctx, step); err != nil {
			return err
		}
		remaining -= step
		if remaining > 0 {
			c.log.Info(ctx, "still waiting before retry",
				logger.String("op", op),
				logger.Duration("remaining", remaining))
		}
	}
	return nil
}
