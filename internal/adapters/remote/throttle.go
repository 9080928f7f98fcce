package remote

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/gamesdesk/pkg/metrics"
)

// Throttle defaults.
const (
	defaultMinInterval    = time.Second
	defaultCallsPerMinute = 55
	windowBuffer          = 5 * time.Second
)

// Clock reports the current time.
type Clock func() time.Time

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Throttle is the gate every spreadsheet call passes through. It enforces a
// minimum spacing between calls and a cap on calls in any rolling minute.
// One Throttle is shared by all callers using the same credential.
type Throttle struct {
	mu        sync.Mutex
	spacing   *rate.Limiter
	perMinute int
	recent    []time.Time
	now       Clock
	sleep     Sleeper
}

// NewThrottle creates a Throttle.
func NewThrottle(opts ...ThrottleOption) *Throttle {
	t := &Throttle{
		perMinute: defaultCallsPerMinute,
		now:       time.Now,
		sleep:     Sleep,
	}
	interval := defaultMinInterval
	for _, opt := range opts {
		opt(t, &interval)
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	t.spacing = rate.NewLimiter(limit, 1)
	t.recent = make([]time.Time, 0, t.perMinute)
	return t
}

// Wait blocks until a call may be made and records it.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := t.now()
	var waited time.Duration

	// Rolling minute: once the window is full, wait until the oldest call
	// ages out, plus a small buffer.
	t.prune(start)
	if len(t.recent) >= t.perMinute {
		d := t.recent[0].Add(time.Minute + windowBuffer).Sub(start)
		if d > 0 {
			if err := t.sleep(ctx, d); err != nil {
				return err
			}
			waited += d
		}
		t.prune(t.now())
	}

	now := t.now()
	r := t.spacing.ReserveN(now, 1)
	if d := r.DelayFrom(now); d > 0 {
		if err := t.sleep(ctx, d); err != nil {
			r.CancelAt(now)
			return err
		}
		waited += d
	}

	t.recent = append(t.recent, t.now())
	if waited > 0 {
		metrics.RecordThrottleWait(waited.Seconds())
	}
	return nil
}

func (t *Throttle) prune(now time.Time) {
	cut := 0
	for cut < len(t.recent) && now.Sub(t.recent[cut]) >= time.Minute {
		cut++
	}
	if cut > 0 {
		t.recent = append(t.recent[:0], t.recent[cut:]...)
	}
}
