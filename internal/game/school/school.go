// Package school defines the fixed set of magic schools and their opposite pairing.
package school

import (
	"fmt"
	"strings"
)

// School identifies one of the eight magic schools.
type School uint8

const (
	Fire School = iota
	Water
	Earth
	Air
	Light
	Shadow
	Life
	Death
)

// Count is the number of schools.
const Count = 8

var names = [Count]string{
	Fire:   "fire",
	Water:  "water",
	Earth:  "earth",
	Air:    "air",
	Light:  "light",
	Shadow: "shadow",
	Life:   "life",
	Death:  "death",
}

var all = []School{Fire, Water, Earth, Air, Light, Shadow, Life, Death}

// All returns every school in stable iteration order.
//
// Postcondition: Returns a new slice of length Count; earlier entries win tie-breaks.
func All() []School {
	out := make([]School, len(all))
	copy(out, all)
	return out
}

// Valid reports whether s is one of the eight schools.
func (s School) Valid() bool {
	return s < Count
}

// String returns the lower-case name of s.
func (s School) String() string {
	if !s.Valid() {
		return fmt.Sprintf("school(%d)", uint8(s))
	}
	return names[s]
}

// Parse returns the School named by name (case-insensitive).
//
// Postcondition: Returns a valid School or a non-nil error.
func Parse(name string) (School, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range names {
		if candidate == n {
			return School(i), nil
		}
	}
	return 0, fmt.Errorf("unknown school %q", name)
}

// Opposite returns the school paired with s in the default graph.
//
// Precondition: s must be valid; an unknown school panics.
func Opposite(s School) School {
	o, ok := defaultGraph.Opposite(s)
	if !ok {
		panic(fmt.Sprintf("school.Opposite: %s has no opposite", s))
	}
	return o
}
