package connection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
	"github.com/DjordjeVuckovic/qstone/internal/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastWait = lock.NewWaiter(5*time.Millisecond, 100*time.Millisecond)

func TestCritical_ReleasesOnEveryExit(t *testing.T) {
	tests := []struct {
		name string
		fn   func(ctx context.Context) Outcome
	}{
		{"success", func(context.Context) Outcome { return Success(200, []byte("{}")) }},
		{"transport error", func(context.Context) Outcome { return Failure(503, errors.New("unavailable")) }},
		{"timeout", func(context.Context) Outcome { return Failure(0, context.DeadlineExceeded) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "qstone.lock")
			l := lock.New(path)

			var sawMarker bool
			_, err := Critical(context.Background(), l, fastWait, func(ctx context.Context) Outcome {
				_, statErr := os.Stat(path)
				sawMarker = statErr == nil
				return tt.fn(ctx)
			})
			require.NoError(t, err)
			assert.True(t, sawMarker, "marker must exist inside the critical section")
			assert.NoFileExists(t, path)
		})
	}

	t.Run("panic", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "qstone.lock")
		assert.Panics(t, func() {
			_, _ = Critical(context.Background(), lock.New(path), fastWait, func(context.Context) Outcome {
				panic("backend exploded")
			})
		})
		assert.NoFileExists(t, path)
	})
}

func TestCritical_LockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qstone.lock")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	called := false
	out, err := Critical(context.Background(), lock.New(path), fastWait, func(context.Context) Outcome {
		called = true
		return Success(200, nil)
	})
	require.NoError(t, err)
	assert.False(t, called, "must never enter the critical section")
	assert.Equal(t, StatusTimeout, out.Status)
	assert.True(t, out.LockTimedOut())
	assert.FileExists(t, path, "a lock that was never won must not be released")
}

func TestCritical_UnwritableLockIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "qstone.lock")

	_, err := Critical(context.Background(), lock.New(path), fastWait, func(context.Context) Outcome {
		return Success(200, nil)
	})
	require.Error(t, err)
	assert.True(t, apperr.IsConfig(err))
}

func TestCritical_NoLock(t *testing.T) {
	out, err := Critical(context.Background(), lock.New(lock.NoLock), fastWait, func(context.Context) Outcome {
		return Success(200, []byte("ok"))
	})
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Equal(t, []byte("ok"), out.Body)
}

func TestFailure_Classification(t *testing.T) {
	assert.Equal(t, StatusTimeout, Failure(0, context.DeadlineExceeded).Status)
	assert.Equal(t, StatusTimeout, Failure(0, fmt.Errorf("poll: %w", context.DeadlineExceeded)).Status)
	assert.Equal(t, StatusTimeout, Failure(0, lock.ErrTimeout).Status)
	assert.Equal(t, StatusTransportError, Failure(500, errors.New("internal")).Status)
	assert.False(t, IsTimeout(nil))
}

func TestNewPacketID(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		id := NewPacketID()
		assert.GreaterOrEqual(t, id, int64(0))
		assert.Less(t, id, int64(1<<31))
		seen[id] = true
	}
	assert.Greater(t, len(seen), 990)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "transport-error", StatusTransportError.String())
	assert.Equal(t, "timeout", StatusTimeout.String())
}
