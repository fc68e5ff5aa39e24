package lock

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// ErrTimeout is returned when the wait budget runs out before the lock is won.
var ErrTimeout = errors.New("timeout waiting for lock")

// Waiter retries acquisition on a fixed interval until a deadline computed
// once at entry. It gives no ordering guarantee between competing waiters.
type Waiter struct {
	Interval time.Duration
	Budget   time.Duration
}

func NewWaiter(interval, budget time.Duration) Waiter {
	return Waiter{Interval: interval, Budget: budget}
}

// Acquire makes one immediate attempt and then one per interval. It returns
// ErrTimeout when the next attempt would fall past the deadline, and the
// lock's own error for anything other than contention.
func (w Waiter) Acquire(ctx context.Context, l *FileLock) error {
	if !l.Enabled() {
		return nil
	}

	deadline := time.Now().Add(w.Budget)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	interval := w.Interval
	if interval <= 0 {
		interval = time.Millisecond
	}
	pacer := rate.NewLimiter(rate.Every(interval), 1)
	pacer.Allow()

	for {
		ok, err := l.Acquire()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := pacer.Wait(ctx); err != nil {
			return ErrTimeout
		}
	}
}
