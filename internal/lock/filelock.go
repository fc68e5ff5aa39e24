// Package lock serializes access to a shared device across unrelated
// processes. The only state is the presence of a marker file.
package lock

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
)

// NoLock is the configuration sentinel meaning "no coordination".
const NoLock = "NONE"

// FileLock guards one marker path. Holding the lock means having created the
// marker; nothing about the holder is kept in memory.
type FileLock struct {
	path string
}

// New returns a lock on path. An empty path or NoLock disables coordination.
func New(path string) *FileLock {
	if strings.TrimSpace(path) == "" || path == NoLock {
		return &FileLock{}
	}
	return &FileLock{path: path}
}

func (l *FileLock) Path() string {
	return l.path
}

// Enabled reports whether a marker path is configured.
func (l *FileLock) Enabled() bool {
	return l.path != ""
}

// Acquire atomically creates the marker. It returns false when the marker
// already exists and a *apperr.ConfigError for any other filesystem failure,
// in which case no marker is left behind.
func (l *FileLock) Acquire() (bool, error) {
	if !l.Enabled() {
		return true, nil
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, apperr.NewConfigWrap("cannot create lock file "+l.path, err)
	}
	if err := closeFile(f); err != nil {
		// Not holding a marker we could not finish writing; nobody would release it.
		_ = os.Remove(l.path)
		return false, apperr.NewConfigWrap("cannot close lock file "+l.path, err)
	}
	return true, nil
}

var closeFile = (*os.File).Close

// Release removes the marker. It is a no-op when coordination is disabled or
// the marker is already gone.
func (l *FileLock) Release() error {
	if !l.Enabled() {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.NewConfigWrap("cannot remove lock file "+l.path, err)
	}
	return nil
}

// Held reports whether the marker currently exists, whoever created it.
func (l *FileLock) Held() bool {
	if !l.Enabled() {
		return false
	}
	_, err := os.Stat(l.path)
	return err == nil
}
