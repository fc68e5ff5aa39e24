package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/qstone/pkg/stringsutil"
)

// Lookup reads a single variable. os.LookupEnv is the usual source; tests
// pass a map.
type Lookup func(key string) (string, bool)

func OS() Lookup {
	return os.LookupEnv
}

func FromMap(m map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// String returns the trimmed value. Blank values count as unset.
func (l Lookup) String(key string) (string, bool) {
	v, ok := l(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (l Lookup) Int(key string) (int, bool, error) {
	v, ok := l.String(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return n, true, nil
}

// Duration parses a plain number as a count of unit ("30" with time.Second
// is 30s, "0.5" is 500ms) and falls back to time.ParseDuration ("1m30s").
func (l Lookup) Duration(key string, unit time.Duration) (time.Duration, bool, error) {
	v, ok := l.String(key)
	if !ok {
		return 0, false, nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(unit)), true, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, true, fmt.Errorf("%s must be a number or a duration, got %q", key, v)
	}
	return d, true, nil
}

// List splits a comma separated value, dropping blank entries.
func (l Lookup) List(key string) ([]string, bool) {
	v, ok := l.String(key)
	if !ok {
		return nil, false
	}
	parts := stringsutil.SplitNonEmpty(v, ",")
	return parts, len(parts) > 0
}
