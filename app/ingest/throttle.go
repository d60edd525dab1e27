package ingest

import (
	"context"
	"sync"
	"time"
)

// Throttle enforces the minimum interval between consecutive titles during
// an ingestion run. It is a value object holding the time of last call, not
// hidden module state; the clock is injectable for tests.
type Throttle struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// NewThrottleWithClock is the test constructor.
func NewThrottleWithClock(interval time.Duration, now func() time.Time,
	sleep func(ctx context.Context, d time.Duration) error) *Throttle {
	return &Throttle{
		interval: interval,
		now:      now,
		sleep:    sleep,
	}
}

// Wait blocks until the interval since the previous call has elapsed, then
// records the new call time.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.last.IsZero() {
		elapsed := t.now().Sub(t.last)
		if remaining := t.interval - elapsed; remaining > 0 {
			if err := t.sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}

	t.last = t.now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
