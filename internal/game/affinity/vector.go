// Package affinity tracks each player's standing across the magic schools and
// derives the progression tier held in each one.
package affinity

import (
	"math"

	"github.com/cory-johannsen/arcana/internal/game/school"
)

// Vector holds one affinity score per school.
//
// Invariant: once normalized, every component is in [0, 1] and the sum is at most 1.
type Vector [school.Count]float64

// Get returns the affinity held in s, or 0 for an unknown school.
func (v Vector) Get(s school.School) float64 {
	if !s.Valid() {
		return 0
	}
	return v[s]
}

// Sum returns the total affinity across all schools.
func (v Vector) Sum() float64 {
	var total float64
	for _, a := range v {
		total += a
	}
	return total
}

// IsZero reports whether every component is zero.
func (v Vector) IsZero() bool {
	for _, a := range v {
		if a != 0 {
			return false
		}
	}
	return true
}

// Add returns v with d added component-wise, clamped and normalized.
//
// Postcondition: the result satisfies the Vector invariant.
func (v Vector) Add(d Vector) Vector {
	for i := range v {
		v[i] += d[i]
	}
	return v.Normalized()
}

// Normalized clamps every component into [0, 1] and, when the sum exceeds 1,
// rescales every component by 1/sum.
//
// Postcondition: every component is in [0, 1]; Sum() <= 1 (within float rounding).
func (v Vector) Normalized() Vector {
	for i, a := range v {
		v[i] = clamp01(a)
	}
	if sum := v.Sum(); sum > 1 {
		for i := range v {
			v[i] /= sum
		}
	}
	return v
}

func clamp01(a float64) float64 {
	switch {
	case math.IsNaN(a), a < 0:
		return 0
	case a > 1:
		return 1
	default:
		return a
	}
}
