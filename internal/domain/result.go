package domain

import (
	"strings"
	"time"
)

const (
	ModeTagReal      = "real"
	ModeTagSimulated = "simulated"
	ModeTagRandom    = "random source"
	ModeTagRemote    = "remote"
)

// ExecutionResult is the normalized output of every backend.
//
// A failed run yields the empty result: all fields present, all empty.
// Callers must check IsEmpty rather than treat it as zero measurements.
type ExecutionResult struct {
	// Mapping[i] is the classical bit position reported at output index i.
	Mapping []int `json:"mapping"`
	// Measurements holds one bit array per shot, when the backend reports shots.
	Measurements [][]int `json:"measurements"`
	// Counts is the frequency table keyed by bit-string.
	Counts    map[string]int `json:"counts"`
	Mode      string         `json:"mode"`
	Timestamp int64          `json:"timestamp"`
	Origin    string         `json:"origin"`
}

// EmptyResult returns the well-formed failure value.
func EmptyResult() ExecutionResult {
	return ExecutionResult{
		Mapping:      []int{},
		Measurements: [][]int{},
		Counts:       map[string]int{},
	}
}

// IsEmpty reports whether the result carries no measurement data. Mapping
// and provenance alone do not make a result.
func (r ExecutionResult) IsEmpty() bool {
	return len(r.Measurements) == 0 && len(r.Counts) == 0
}

// Shots is the number of outcomes the result accounts for.
func (r ExecutionResult) Shots() int {
	if len(r.Counts) > 0 {
		total := 0
		for _, c := range r.Counts {
			total += c
		}
		return total
	}
	return len(r.Measurements)
}

// IdentityMapping returns [0, 1, ..., width-1].
func IdentityMapping(width int) []int {
	m := make([]int, width)
	for i := range m {
		m[i] = i
	}
	return m
}

// BitString renders one shot as a string of 0s and 1s.
func BitString(shot []int) string {
	var b strings.Builder
	b.Grow(len(shot))
	for _, bit := range shot {
		if bit != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Tally builds a frequency table from per-shot bit arrays.
func Tally(shots [][]int) map[string]int {
	counts := make(map[string]int, len(shots))
	for _, shot := range shots {
		counts[BitString(shot)]++
	}
	return counts
}

// Now is the completion timestamp in seconds since the epoch, UTC.
func Now() int64 {
	return time.Now().UTC().Unix()
}
