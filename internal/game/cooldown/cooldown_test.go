package cooldown_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arcana/internal/game/cooldown"
)

func TestTracker_StartAndExpire(t *testing.T) {
	tr := cooldown.NewTracker()
	p := uuid.New()
	tr.Start(p, "inferno_field", 2)
	assert.True(t, tr.Active(p, "inferno_field"))

	assert.Empty(t, tr.Tick())
	assert.Equal(t, 1, tr.Remaining(p, "inferno_field"))

	expired := tr.Tick()
	assert.Equal(t, []cooldown.Expired{{Player: p, Key: "inferno_field"}}, expired)
	assert.False(t, tr.Active(p, "inferno_field"))
}

func TestTracker_StartKeepsLonger(t *testing.T) {
	tr := cooldown.NewTracker()
	p := uuid.New()
	tr.Start(p, "k", 10)
	tr.Start(p, "k", 3)
	assert.Equal(t, 10, tr.Remaining(p, "k"))
}

func TestTracker_NonPositiveIgnored(t *testing.T) {
	tr := cooldown.NewTracker()
	p := uuid.New()
	tr.Start(p, "k", 0)
	assert.False(t, tr.Active(p, "k"))
}

func TestTracker_Clear(t *testing.T) {
	tr := cooldown.NewTracker()
	p := uuid.New()
	tr.Start(p, "a", 5)
	tr.Start(p, "b", 5)
	tr.Clear(p)
	assert.False(t, tr.Active(p, "a"))
	assert.False(t, tr.Active(p, "b"))
}

// Property: a marker started for n ticks is active for exactly n-1 Tick calls.
func TestPropertyTracker_ExpiresAfterExactlyN(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 50).Draw(t, "ticks")
		tr := cooldown.NewTracker()
		p := uuid.New()
		tr.Start(p, "k", n)
		for i := 1; i < n; i++ {
			tr.Tick()
			if !tr.Active(p, "k") {
				t.Fatalf("expired after %d of %d ticks", i, n)
			}
		}
		tr.Tick()
		if tr.Active(p, "k") {
			t.Fatalf("still active after %d ticks", n)
		}
	})
}
