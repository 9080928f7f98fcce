package remote

import (
	"time"

	"github.com/okian/gamesdesk/pkg/logger"
)

// ThrottleOption configures a Throttle.
type ThrottleOption func(t *Throttle, interval *time.Duration)

// WithMinInterval sets the minimum spacing between calls. Zero disables it.
func WithMinInterval(d time.Duration) ThrottleOption {
	return func(_ *Throttle, interval *time.Duration) {
		if d >= 0 {
			*interval = d
		}
	}
}

// WithCallsPerMinute caps calls in any rolling minute.
func WithCallsPerMinute(n int) ThrottleOption {
	return func(t *Throttle, _ *time.Duration) {
		if n > 0 {
			t.perMinute = n
		}
	}
}

// WithThrottleClock injects the clock and sleeper, for tests.
func WithThrottleClock(now Clock, sleep Sleeper) ThrottleOption {
	return func(t *Throttle, _ *time.Duration) {
		if now != nil {
			t.now = now
		}
		if sleep != nil {
			t.sleep = sleep
		}
	}
}

// Option configures a Caller.
type Option func(*Caller)

// WithThrottle gates every attempt through t.
func WithThrottle(t *Throttle) Option {
	return func(c *Caller) { c.throttle = t }
}

// WithPolicy replaces the retry policy.
func WithPolicy(p Policy) Option {
	return func(c *Caller) { c.policy = p }
}

// WithMaxAttempts bounds attempts. Zero means retry until the policy gives up.
func WithMaxAttempts(n int) Option {
	return func(c *Caller) {
		if n >= 0 {
			c.maxAttempts = n
		}
	}
}

// WithWaitChunk sets the longest single sleep between progress logs.
func WithWaitChunk(d time.Duration) Option {
	return func(c *Caller) {
		if d > 0 {
			c.chunk = d
		}
	}
}

// WithSleeper injects the sleeper, for tests.
func WithSleeper(s Sleeper) Option {
	return func(c *Caller) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Caller) {
		if l != nil {
			c.log = l
		}
	}
}
