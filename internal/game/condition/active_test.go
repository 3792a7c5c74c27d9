package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arcana/internal/game/condition"
)

func TestSet_ApplyAndExpire(t *testing.T) {
	s := condition.NewSet()
	s.Apply("burning", 2, 1)
	assert.True(t, s.Has("burning"))

	assert.Empty(t, s.Tick())
	assert.Equal(t, []string{"burning"}, s.Tick())
	assert.False(t, s.Has("burning"))
}

func TestSet_ReapplyKeepsLongerAndStronger(t *testing.T) {
	s := condition.NewSet()
	s.Apply("stoneskin", 5, 1)
	s.Apply("stoneskin", 3, 4)

	a, ok := s.Get("stoneskin")
	require.True(t, ok)
	assert.Equal(t, condition.Active{Name: "stoneskin", Amplifier: 4, Remaining: 5}, a)
}

func TestSet_IgnoresNonPositiveDuration(t *testing.T) {
	s := condition.NewSet()
	s.Apply("x", 0, 1)
	s.Apply("", 3, 1)
	assert.Empty(t, s.All())
}

func TestSet_RemoveAndAll(t *testing.T) {
	s := condition.NewSet()
	s.Apply("b", 1, 0)
	s.Apply("a", 1, 0)
	assert.Equal(t, []string{"a", "b"}, []string{s.All()[0].Name, s.All()[1].Name})
	s.Remove("a")
	s.Remove("missing")
	assert.Len(t, s.All(), 1)
}

func TestPropertySet_ExpiresAfterLongestDuration(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := condition.NewSet()
		durations := rapid.SliceOfN(rapid.IntRange(1, 30), 1, 10).Draw(rt, "durations")
		longest := 0
		for _, d := range durations {
			s.Apply("e", d, 0)
			if d > longest {
				longest = d
			}
		}
		for i := 1; i < longest; i++ {
			s.Tick()
			if !s.Has("e") {
				rt.Fatalf("expired after %d ticks, want %d", i, longest)
			}
		}
		s.Tick()
		if s.Has("e") {
			rt.Fatalf("still active after %d ticks", longest)
		}
	})
}
