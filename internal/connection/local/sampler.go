package local

import (
	"math/rand/v2"
	"sync"
)

// Sampler draws uniformly random bit arrays. It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSampler(src rand.Source) *Sampler {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Sampler{rng: rand.New(src)}
}

// Sample returns shots arrays of width independent fair bits.
func (s *Sampler) Sample(width, shots int) [][]int {
	if width <= 0 || shots <= 0 {
		return [][]int{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]int, shots)
	for i := range out {
		shot := make([]int, width)
		for j := range shot {
			shot[j] = s.rng.IntN(2)
		}
		out[i] = shot
	}
	return out
}

// Tally draws shots bit-strings of the given width and returns only their
// frequency table, so memory grows with distinct outcomes rather than shots.
func (s *Sampler) Tally(width, shots int) map[string]int {
	counts := make(map[string]int)
	if width <= 0 || shots <= 0 {
		return counts
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, width)
	for range shots {
		for j := range buf {
			buf[j] = '0' + byte(s.rng.IntN(2))
		}
		counts[string(buf)]++
	}
	return counts
}
