// Package result turns backend-native response bodies into the canonical
// domain.ExecutionResult.
package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/DjordjeVuckovic/qstone/internal/domain"
)

var (
	ErrUnrecognized = errors.New("unrecognized result shape")
	// ErrNoData is returned for a rich object with neither measurements nor
	// counts, such as a bare mapping.
	ErrNoData = errors.New("result carries no measurements")
)

// DefaultRegister is preferred when a frequency table is keyed by register.
const DefaultRegister = "c"

// Provenance fills mode and origin when a backend omits them.
type Provenance struct {
	Mode   string
	Origin string
}

type richResult struct {
	Mapping      []int          `json:"mapping"`
	Measurements [][]int        `json:"measurements"`
	Counts       map[string]int `json:"counts"`
	Mode         string         `json:"mode"`
	Timestamp    int64          `json:"timestamp"`
	Origin       string         `json:"origin"`
}

var richKeys = []string{"mapping", "measurements", "counts"}

// Normalize accepts the three shapes backends are known to return:
//   - the rich object {mapping, measurements, counts, mode, timestamp, origin}
//     with any subset of keys present,
//   - a bare frequency table {"00": 1, "01": 9, ...},
//   - a register-keyed frequency table {"c": {"00": 1, ...}}, of which one
//     register is kept,
//   - a bare per-shot array [[0, 1], [1, 1], ...].
//
// An empty body, or the JSON literals null, "" and {}, yields the empty result
// without error.
func Normalize(body []byte, p Provenance) (domain.ExecutionResult, error) {
	body = bytes.TrimSpace(body)
	if isBlank(body) {
		return domain.EmptyResult(), nil
	}

	switch body[0] {
	case '[':
		var shots [][]int
		if err := json.Unmarshal(body, &shots); err != nil {
			return domain.EmptyResult(), fmt.Errorf("decode shots: %w", err)
		}
		return FromShots(shots, p), nil
	case '{':
		return normalizeObject(body, p)
	case '"':
		// Some gateways double-encode the payload as a JSON string.
		var inner string
		if err := json.Unmarshal(body, &inner); err != nil {
			return domain.EmptyResult(), fmt.Errorf("decode string payload: %w", err)
		}
		return Normalize([]byte(inner), p)
	default:
		return domain.EmptyResult(), ErrUnrecognized
	}
}

func normalizeObject(body []byte, p Provenance) (domain.ExecutionResult, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return domain.EmptyResult(), fmt.Errorf("decode object: %w", err)
	}
	if len(keys) == 0 {
		return domain.EmptyResult(), nil
	}

	for _, k := range richKeys {
		if _, ok := keys[k]; ok {
			var rich richResult
			if err := json.Unmarshal(body, &rich); err != nil {
				return domain.EmptyResult(), fmt.Errorf("decode result: %w", err)
			}
			return fromRich(rich, p)
		}
	}

	if reg, ok := pickRegister(keys); ok {
		return normalizeObject(keys[reg], p)
	}

	counts := make(map[string]int, len(keys))
	for k, v := range keys {
		if !isBitString(k) {
			return domain.EmptyResult(), fmt.Errorf("%w: key %q", ErrUnrecognized, k)
		}
		var n int
		if err := json.Unmarshal(v, &n); err != nil {
			return domain.EmptyResult(), fmt.Errorf("decode count for %q: %w", k, err)
		}
		counts[k] = n
	}
	return FromCounts(counts, p), nil
}

// FromShots builds a result from per-shot bit arrays.
func FromShots(shots [][]int, p Provenance) domain.ExecutionResult {
	r := domain.ExecutionResult{
		Measurements: shots,
		Counts:       domain.Tally(shots),
		Mapping:      domain.IdentityMapping(shotWidth(shots)),
	}
	return stamp(r, p)
}

// FromCounts builds a result from a frequency table.
func FromCounts(counts map[string]int, p Provenance) domain.ExecutionResult {
	r := domain.ExecutionResult{
		Measurements: [][]int{},
		Counts:       counts,
		Mapping:      domain.IdentityMapping(keyWidth(counts)),
	}
	return stamp(r, p)
}

// pickRegister reports which register of a register-keyed table to keep:
// DefaultRegister when present, otherwise the first name in sorted order.
// Registers are sampled independently, so their tables are not combined.
func pickRegister(keys map[string]json.RawMessage) (string, bool) {
	for _, v := range keys {
		v = bytes.TrimSpace(v)
		if len(v) == 0 || v[0] != '{' {
			return "", false
		}
	}
	if _, ok := keys[DefaultRegister]; ok {
		return DefaultRegister, true
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	slices.Sort(names)
	return names[0], true
}

func fromRich(rich richResult, p Provenance) (domain.ExecutionResult, error) {
	if len(rich.Measurements) == 0 && len(rich.Counts) == 0 {
		return domain.EmptyResult(), ErrNoData
	}
	r := domain.ExecutionResult{
		Mapping:      rich.Mapping,
		Measurements: rich.Measurements,
		Counts:       rich.Counts,
		Mode:         rich.Mode,
		Timestamp:    rich.Timestamp,
		Origin:       rich.Origin,
	}
	if r.Measurements == nil {
		r.Measurements = [][]int{}
	}
	if len(r.Counts) == 0 {
		r.Counts = domain.Tally(r.Measurements)
	}
	if len(r.Mapping) == 0 {
		width := shotWidth(r.Measurements)
		if width == 0 {
			width = keyWidth(r.Counts)
		}
		r.Mapping = domain.IdentityMapping(width)
	}
	return stamp(r, p), nil
}

func stamp(r domain.ExecutionResult, p Provenance) domain.ExecutionResult {
	if r.Mode == "" {
		r.Mode = p.Mode
	}
	if r.Origin == "" {
		r.Origin = p.Origin
	}
	if r.Timestamp == 0 {
		r.Timestamp = domain.Now()
	}
	if r.Counts == nil {
		r.Counts = map[string]int{}
	}
	if r.Mapping == nil {
		r.Mapping = []int{}
	}
	return r
}

func shotWidth(shots [][]int) int {
	w := 0
	for _, s := range shots {
		w = max(w, len(s))
	}
	return w
}

func keyWidth(counts map[string]int) int {
	w := 0
	for k := range counts {
		w = max(w, len(k))
	}
	return w
}

func isBitString(s string) bool {
	return s != "" && strings.Trim(s, "01") == ""
}

func isBlank(body []byte) bool {
	switch string(body) {
	case "", "null", `""`:
		return true
	}
	return false
}
