// Package random provides the seedable pseudo-random source used by rule
// resolution.
//
// Seeded mode is a 32-bit linear congruential generator with the classic
// Numerical Recipes constants. Callers record seeds to reproduce output, so
// the multiplier, increment and modulus are part of the public contract and
// must never change. Unseeded mode reads crypto/rand.
//
// A Source is owned by one engine and is not safe for concurrent use.
package random

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/solatis/wordloom/internal/types"
)

// LCG constants. state = (state*Multiplier + Increment) mod 2^32.
const (
	Multiplier = 1664525
	Increment  = 1013904223
	modulus    = 1 << 32
)

// Source draws uniform floats, deterministic once seeded.
type Source struct {
	seeded bool
	seed   int64
	state  uint32
}

// New returns an unseeded source.
func New() *Source {
	return &Source{}
}

// NewSeeded returns a source already in deterministic mode.
func NewSeeded(seed int64) *Source {
	s := &Source{}
	s.SetSeed(seed)
	return s
}

// SetSeed switches to deterministic mode. The seed is reduced to its unsigned
// 32-bit representation, so -1 and 4294967295 produce the same stream.
func (s *Source) SetSeed(seed int64) {
	s.seeded = true
	s.seed = seed
	s.state = uint32(seed)
}

// ClearSeed reverts to the non-deterministic source.
func (s *Source) ClearSeed() {
	s.seeded = false
	s.seed = 0
	s.state = 0
}

// Seed returns the seed passed to SetSeed and whether the source is seeded.
func (s *Source) Seed() (int64, bool) {
	return s.seed, s.seeded
}

// Float64 returns a float in [0, 1).
func (s *Source) Float64() float64 {
	if s.seeded {
		// uint32 arithmetic wraps at 2^32, which is the modulus
		s.state = s.state*Multiplier + Increment
		return float64(s.state) / modulus
	}
	return cryptoFloat64()
}

// Intn returns an int in [lo, hi). Returns lo when the range is empty.
func (s *Source) Intn(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + int(s.Float64()*float64(hi-lo))
}

// Choice returns a uniformly chosen element of list.
func Choice[T any](s *Source, list []T) (T, error) {
	var zero T
	if len(list) == 0 {
		return zero, types.ErrEmptyChoice
	}
	return list[s.Intn(0, len(list))], nil
}

// WeightedChoice returns the first value whose cumulative weight is >= a
// uniform draw. Falls back to the last value when rounding leaves the draw
// above the final cumulative weight.
func WeightedChoice[T any](s *Source, values []T, cumulative []float64) (T, error) {
	var zero T
	if len(values) == 0 || len(cumulative) == 0 {
		return zero, types.ErrEmptyChoice
	}
	if len(values) != len(cumulative) {
		return zero, types.ErrLengthMismatch
	}
	r := s.Float64()
	prev := 0.0
	for i, c := range cumulative {
		// c == prev is a zero-weight entry; a draw of exactly 0 must skip it
		if r <= c && c > prev {
			return values[i], nil
		}
		prev = c
	}
	return values[len(values)-1], nil
}

// cryptoFloat64 builds a float from 53 random bits so the result stays below 1.0.
// Fail-safe returns 0 on RNG error.
func cryptoFloat64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	n := binary.BigEndian.Uint64(buf[:]) >> 11
	return float64(n) / (1 << 53)
}
