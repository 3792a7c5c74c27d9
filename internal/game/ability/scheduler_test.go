package ability_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arcana/internal/game/ability"
	"github.com/cory-johannsen/arcana/internal/game/perk"
)

var testParams = perk.AbilityParams{
	Effect:          "test",
	ManaCostPerTick: 2,
	CooldownTicks:   30,
	HalfExtents:     perk.Extents{X: 1, Y: 1, Z: 1},
}

func supplierFor(c *fakeCaster, params perk.AbilityParams, a ability.Ability) ability.Supplier {
	return func() (*ability.State, error) {
		return ability.NewState(c.ID(), "test_field", params, a), nil
	}
}

func TestScheduler_ToggleTwiceLeavesNothingActive(t *testing.T) {
	j := &journal{}
	cd := &fakeCooldowns{}
	s := ability.NewScheduler(nil, cd, nil)
	c := newCaster(100)
	a := &scriptedAbility{j: j}

	started, err := s.ToggleOrStart(c, supplierFor(c, testParams, a))
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, s.IsActive(c.ID()))

	started, err = s.ToggleOrStart(c, supplierFor(c, testParams, a))
	require.NoError(t, err)
	assert.False(t, started)
	assert.False(t, s.IsActive(c.ID()))
	assert.Equal(t, 0, s.ActiveCount())
	assert.Equal(t, 1, j.count("release"))
	require.Len(t, cd.calls, 1)
	assert.Equal(t, cooldownCall{player: c.ID(), key: "test_field", ticks: 30}, cd.calls[0])
}

func TestScheduler_SupplierError(t *testing.T) {
	s := ability.NewScheduler(nil, nil, nil)
	c := newCaster(10)
	boom := errors.New("boom")
	started, err := s.ToggleOrStart(c, func() (*ability.State, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, started)
	assert.False(t, s.IsActive(c.ID()))

	_, err = s.ToggleOrStart(c, func() (*ability.State, error) { return nil, nil })
	assert.ErrorIs(t, err, ability.ErrNilState)
}

func TestScheduler_TickPaysBeforeEffectAndRendersAfter(t *testing.T) {
	j := &journal{}
	s := ability.NewScheduler(&fakeRenderer{j: j}, nil, nil)
	c := newCaster(10)
	_, err := s.ToggleOrStart(c, supplierFor(c, testParams, &scriptedAbility{j: j}))
	require.NoError(t, err)

	s.Tick(c)
	assert.Equal(t, 8, c.Mana())
	assert.Equal(t, []string{"tick", "render"}, j.list())
	st, ok := s.Active(c.ID())
	require.True(t, ok)
	assert.Equal(t, int64(1), st.Ticks())
}

func TestScheduler_ZeroManaTerminatesAndReleasesOnce(t *testing.T) {
	j := &journal{}
	cd := &fakeCooldowns{}
	s := ability.NewScheduler(&fakeRenderer{j: j}, cd, nil)
	c := newCaster(0)
	_, err := s.ToggleOrStart(c, supplierFor(c, testParams, &scriptedAbility{j: j}))
	require.NoError(t, err)

	s.Tick(c)
	s.Tick(c)
	assert.False(t, s.IsActive(c.ID()))
	assert.Equal(t, []string{"release"}, j.list())
	assert.Equal(t, 0, c.Mana())
	assert.Len(t, cd.calls, 1)
}

func TestScheduler_RunsUntilManaExhausted(t *testing.T) {
	j := &journal{}
	s := ability.NewScheduler(nil, nil, nil)
	c := newCaster(5)
	_, err := s.ToggleOrStart(c, supplierFor(c, testParams, &scriptedAbility{j: j}))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		s.Tick(c)
	}
	assert.Equal(t, 1, c.Mana())
	assert.Equal(t, 2, j.count("tick"))
	assert.Equal(t, 1, j.count("release"))
	assert.False(t, s.IsActive(c.ID()))
}

func TestScheduler_FractionalCostChargesAtLeastOne(t *testing.T) {
	params := testParams
	params.ManaCostPerTick = 0.2
	s := ability.NewScheduler(nil, nil, nil)
	c := newCaster(3)
	_, err := s.ToggleOrStart(c, supplierFor(c, params, &scriptedAbility{j: &journal{}}))
	require.NoError(t, err)

	s.Tick(c)
	assert.Equal(t, 2, c.Mana())

	params.ManaCostPerTick = 2.6
	c2 := newCaster(10)
	_, err = s.ToggleOrStart(c2, supplierFor(c2, params, &scriptedAbility{j: &journal{}}))
	require.NoError(t, err)
	s.Tick(c2)
	assert.Equal(t, 7, c2.Mana())
}

func TestScheduler_AbilityEndingItselfReleases(t *testing.T) {
	j := &journal{}
	s := ability.NewScheduler(&fakeRenderer{j: j}, nil, nil)
	c := newCaster(100)
	_, err := s.ToggleOrStart(c, supplierFor(c, testParams, &scriptedAbility{j: j, stopAfter: 2}))
	require.NoError(t, err)

	s.Tick(c)
	s.Tick(c)
	s.Tick(c)
	assert.Equal(t, []string{"tick", "render", "tick", "release"}, j.list())
	assert.Equal(t, 96, c.Mana())
}

func TestScheduler_PurgeSkipsRelease(t *testing.T) {
	j := &journal{}
	cd := &fakeCooldowns{}
	s := ability.NewScheduler(nil, cd, nil)
	c := newCaster(100)
	_, err := s.ToggleOrStart(c, supplierFor(c, testParams, &scriptedAbility{j: j}))
	require.NoError(t, err)

	assert.True(t, s.Purge(c.ID()))
	assert.False(t, s.Purge(c.ID()))
	assert.False(t, s.IsActive(c.ID()))
	assert.Empty(t, j.list())
	assert.Empty(t, cd.calls)
}

func TestScheduler_DoubleStopReleasesOnce(t *testing.T) {
	j := &journal{}
	s := ability.NewScheduler(nil, nil, nil)
	c := newCaster(100)
	_, err := s.ToggleOrStart(c, supplierFor(c, testParams, &scriptedAbility{j: j}))
	require.NoError(t, err)

	assert.True(t, s.Stop(c))
	assert.False(t, s.Stop(c))
	assert.Equal(t, 1, j.count("release"))
}

func TestScheduler_ConcurrentStopReleasesOnce(t *testing.T) {
	j := &journal{}
	s := ability.NewScheduler(nil, nil, nil)
	c := newCaster(100)
	_, err := s.ToggleOrStart(c, supplierFor(c, testParams, &scriptedAbility{j: j}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop(c)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, j.count("release"))
}

func TestScheduler_TickWithoutAbilityIsNoop(t *testing.T) {
	s := ability.NewScheduler(nil, nil, nil)
	c := newCaster(10)
	s.Tick(c)
	assert.Equal(t, 10, c.Mana())
}

func TestScheduler_CloseDropsEverything(t *testing.T) {
	j := &journal{}
	s := ability.NewScheduler(nil, nil, nil)
	for i := 0; i < 3; i++ {
		c := newCaster(10)
		_, err := s.ToggleOrStart(c, supplierFor(c, testParams, &scriptedAbility{j: j}))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.ActiveCount())
	s.Close()
	assert.Equal(t, 0, s.ActiveCount())
	assert.Empty(t, j.list())
}

func TestScheduler_AtMostOneActiveAndOneReleasePerStart(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		j := &journal{}
		s := ability.NewScheduler(nil, nil, nil)
		c := newCaster(rapid.IntRange(0, 50).Draw(rt, "mana"))
		starts := 0
		ops := rapid.SliceOfN(rapid.IntRange(0, 2), 1, 40).Draw(rt, "ops")
		for _, op := range ops {
			switch op {
			case 0:
				started, err := s.ToggleOrStart(c, supplierFor(c, testParams, &scriptedAbility{j: j}))
				if err != nil {
					rt.Fatalf("unexpected error: %v", err)
				}
				if started {
					starts++
				}
			case 1:
				s.Tick(c)
			case 2:
				s.Stop(c)
			}
			if s.ActiveCount() > 1 {
				rt.Fatalf("more than one active ability")
			}
			if c.Mana() < 0 {
				rt.Fatalf("mana went negative: %d", c.Mana())
			}
		}
		active := 0
		if s.IsActive(c.ID()) {
			active = 1
		}
		if got := j.count("release"); got != starts-active {
			rt.Fatalf("releases = %d, want %d", got, starts-active)
		}
	})
}
