package affinity_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arcana/internal/game/affinity"
	"github.com/cory-johannsen/arcana/internal/game/school"
)

const epsilon = 1e-9

func testParams() affinity.Params {
	return affinity.Params{
		GainMultiplier:          0.01,
		OpposingPenaltyFraction: 0.66,
		Thresholds:              affinity.DefaultThresholds(),
	}
}

func newLedger(t testing.TB, p affinity.Params) *affinity.Ledger {
	t.Helper()
	l, err := affinity.NewLedger(nil, p, zap.NewNop())
	require.NoError(t, err)
	return l
}

type recorder struct {
	calls [][]affinity.TierChange
}

func (r *recorder) OnTierChange(_ uuid.UUID, changes []affinity.TierChange) {
	r.calls = append(r.calls, changes)
}

func uniform(a float64) affinity.Vector {
	var v affinity.Vector
	for i := range v {
		v[i] = a
	}
	return v
}

func TestNewLedger_RejectsInvalidParams(t *testing.T) {
	p := testParams()
	p.GainMultiplier = 0
	_, err := affinity.NewLedger(nil, p, nil)
	assert.Error(t, err)

	p = testParams()
	p.OpposingPenaltyFraction = 1.5
	_, err = affinity.NewLedger(nil, p, nil)
	assert.Error(t, err)
}

func TestApplyDelta_FireScenarioFromZero(t *testing.T) {
	l := newLedger(t, testParams())
	p := uuid.New()
	l.Track(p, affinity.Vector{})

	l.ApplyDelta(p, school.Fire, 100)

	v := l.Snapshot(p)
	assert.InDelta(t, 0.01, v.Get(school.Fire), epsilon)
	for _, s := range school.All() {
		if s != school.Fire {
			assert.Equal(t, 0.0, v.Get(s), "school %s should clamp to zero", s)
		}
	}
}

func TestApplyDelta_PenaltySplit(t *testing.T) {
	l := newLedger(t, testParams())
	p := uuid.New()
	l.Track(p, uniform(0.1))

	l.ApplyDelta(p, school.Fire, 100)

	v := l.Snapshot(p)
	other := 0.1 - (0.01*0.34)/6
	assert.InDelta(t, 0.11, v.Get(school.Fire), epsilon)
	assert.InDelta(t, 0.1-0.0066, v.Get(school.Water), epsilon)
	for _, s := range []school.School{school.Earth, school.Air, school.Light, school.Shadow, school.Life, school.Death} {
		assert.InDelta(t, other, v.Get(s), epsilon, "school %s", s)
	}
	assert.Less(t, v.Sum(), 1.0)
}

func TestApplyDelta_RenormalizesWhenSumExceedsOne(t *testing.T) {
	p := testParams()
	p.GainMultiplier = 100
	p.OpposingPenaltyFraction = 1
	l := newLedger(t, p)
	id := uuid.New()
	var start affinity.Vector
	start[school.Earth] = 0.6
	start[school.Fire] = 0.3
	l.Track(id, start)

	// gain 0.5 to fire; the full penalty lands on water, which is already zero
	l.ApplyDelta(id, school.Fire, 0.5)

	v := l.Snapshot(id)
	assert.InDelta(t, 1.0, v.Sum(), epsilon)
	assert.InDelta(t, 0.8/1.4, v.Get(school.Fire), epsilon)
	assert.InDelta(t, 0.6/1.4, v.Get(school.Earth), epsilon)
}

func TestApplyDelta_OppositeRoundTripIsNotIdentity(t *testing.T) {
	l := newLedger(t, testParams())
	p := uuid.New()
	l.Track(p, affinity.Vector{})

	l.ApplyDelta(p, school.Fire, 100)
	l.ApplyDelta(p, school.Water, 100)

	v := l.Snapshot(p)
	// fire was 0.01, loses 0.0066 to water's cast; water clamped to 0 then gains 0.01
	assert.InDelta(t, 0.01-0.0066, v.Get(school.Fire), epsilon)
	assert.InDelta(t, 0.01, v.Get(school.Water), epsilon)
}

func TestApplySpend_SplitsManaAcrossSchools(t *testing.T) {
	l := newLedger(t, testParams())
	p := uuid.New()
	l.Track(p, uniform(0.1))

	l.ApplySpend(p, []school.School{school.Fire, school.Earth}, 200)

	v := l.Snapshot(p)
	gain := 0.01
	rest := gain * 0.34 / 6
	// fire: +gain from itself, -rest from earth's cast
	assert.InDelta(t, 0.1+gain-rest, v.Get(school.Fire), epsilon)
	assert.InDelta(t, 0.1+gain-rest, v.Get(school.Earth), epsilon)
	assert.InDelta(t, 0.1-gain*0.66-rest, v.Get(school.Water), epsilon)
	assert.InDelta(t, 0.1-gain*0.66-rest, v.Get(school.Air), epsilon)
	assert.InDelta(t, 0.1-2*rest, v.Get(school.Light), epsilon)
}

func TestApplySpend_SingleNotificationPerCast(t *testing.T) {
	p := testParams()
	p.GainMultiplier = 0.5
	l := newLedger(t, p)
	rec := &recorder{}
	l.Subscribe(rec)
	id := uuid.New()
	l.Track(id, affinity.Vector{})

	// 0.25 gain per school: both fire and earth reach novice
	l.ApplySpend(id, []school.School{school.Fire, school.Earth}, 100)

	require.Len(t, rec.calls, 1)
	assert.ElementsMatch(t, []affinity.TierChange{
		{School: school.Fire, From: affinity.TierNone, To: affinity.TierNovice},
		{School: school.Earth, From: affinity.TierNone, To: affinity.TierNovice},
	}, rec.calls[0])
}

func TestApplyDelta_NoNotificationWithoutTierChange(t *testing.T) {
	l := newLedger(t, testParams())
	rec := &recorder{}
	l.Subscribe(rec)
	id := uuid.New()
	l.Track(id, affinity.Vector{})

	l.ApplyDelta(id, school.Fire, 100)
	assert.Empty(t, rec.calls)
}

func TestApplyDelta_NoOppositeSpreadsOverAllOthers(t *testing.T) {
	graph, err := school.NewGraph([]school.Pair{{A: school.Light, B: school.Shadow}})
	require.NoError(t, err)
	l, err := affinity.NewLedger(graph, testParams(), nil)
	require.NoError(t, err)
	id := uuid.New()
	l.Track(id, uniform(0.1))

	l.ApplyDelta(id, school.Fire, 100)

	v := l.Snapshot(id)
	assert.InDelta(t, 0.11, v.Get(school.Fire), epsilon)
	for _, s := range school.All() {
		if s != school.Fire {
			assert.InDelta(t, 0.1-0.01/7, v.Get(s), epsilon, "school %s", s)
		}
	}
}

func TestApplyDelta_UntrackedPlayerIsLoggedNoOp(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l, err := affinity.NewLedger(nil, testParams(), zap.New(core))
	require.NoError(t, err)
	id := uuid.New()

	l.ApplyDelta(id, school.Fire, 100)

	assert.False(t, l.Tracked(id))
	assert.True(t, l.Snapshot(id).IsZero())
	assert.NotZero(t, logs.FilterMessage("affinity update for untracked player").Len())
}

func TestApplyDelta_InvalidManaIgnored(t *testing.T) {
	l := newLedger(t, testParams())
	id := uuid.New()
	l.Track(id, affinity.Vector{})
	for _, mana := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		l.ApplyDelta(id, school.Fire, mana)
	}
	assert.True(t, l.Snapshot(id).IsZero())
}

func TestReset(t *testing.T) {
	l := newLedger(t, testParams())
	rec := &recorder{}
	l.Subscribe(rec)
	id := uuid.New()

	assert.True(t, errors.Is(l.Reset(id), affinity.ErrNothingToReset))

	var v affinity.Vector
	v[school.Life] = 0.5
	l.Track(id, v)
	require.NoError(t, l.Reset(id))
	assert.True(t, l.Snapshot(id).IsZero())
	require.Len(t, rec.calls, 1)
	assert.Equal(t, affinity.TierAdept, rec.calls[0][0].From)

	assert.ErrorIs(t, l.Reset(id), affinity.ErrNothingToReset)
}

func TestSet_ClampsAndNotifies(t *testing.T) {
	l := newLedger(t, testParams())
	rec := &recorder{}
	l.Subscribe(rec)
	id := uuid.New()
	l.Track(id, affinity.Vector{})

	l.Set(id, school.Death, 3)

	assert.Equal(t, 1.0, l.Affinity(id, school.Death))
	assert.Equal(t, affinity.TierMaster, l.Tier(id, school.Death))
	require.Len(t, rec.calls, 1)
}

func TestForget_ReturnsFinalVector(t *testing.T) {
	l := newLedger(t, testParams())
	id := uuid.New()
	l.Track(id, uniform(0.1))
	v, ok := l.Forget(id)
	assert.True(t, ok)
	assert.InDelta(t, 0.8, v.Sum(), epsilon)
	assert.False(t, l.Tracked(id))
}

func TestMemoryStore_SaveLoad(t *testing.T) {
	s := affinity.NewMemoryStore()
	id := uuid.New()
	_, ok, err := s.Load(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(context.Background(), id, uniform(0.05)))
	v, ok, err := s.Load(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uniform(0.05), v)
}

// Property: after any sequence of spends every component is in [0,1] and the sum is at most 1.
func TestPropertyApplySpend_BoundedNormalized(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := affinity.Params{
			GainMultiplier:          rapid.Float64Range(0.001, 100).Draw(t, "gain"),
			OpposingPenaltyFraction: rapid.Float64Range(0, 1).Draw(t, "fraction"),
			Thresholds:              affinity.DefaultThresholds(),
		}
		l, err := affinity.NewLedger(nil, p, nil)
		if err != nil {
			t.Fatalf("NewLedger: %v", err)
		}
		id := uuid.New()
		l.Track(id, affinity.Vector{})
		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			schools := rapid.SliceOfN(rapid.SampledFrom(school.All()), 1, 3).Draw(t, "schools")
			mana := rapid.Float64Range(0.1, 5000).Draw(t, "mana")
			l.ApplySpend(id, schools, mana)
		}
		v := l.Snapshot(id)
		for s, a := range v {
			if a < 0 || a > 1 {
				t.Fatalf("school %d out of range: %v", s, a)
			}
		}
		if v.Sum() > 1+epsilon {
			t.Fatalf("sum %v exceeds 1", v.Sum())
		}
	})
}
