package connection

import (
	"context"
	"errors"

	"github.com/DjordjeVuckovic/qstone/internal/lock"
)

// Critical runs fn while holding l, acquired through w. The lock is released
// on every exit from fn, panics included, and never when it was not won.
//
// An exhausted budget is reported as a timeout Outcome. The returned error is
// reserved for lock failures that are not contention, which are fatal.
func Critical(ctx context.Context, l *lock.FileLock, w lock.Waiter, fn func(ctx context.Context) Outcome) (out Outcome, err error) {
	if err := w.Acquire(ctx, l); err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return Outcome{Status: StatusTimeout, Err: err}, nil
		}
		return Outcome{}, err
	}
	defer func() {
		if rerr := l.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	return fn(ctx), nil
}
