package affinity

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/arcana/internal/game/school"
)

// Tier is the discrete progression level derived from a single school's affinity.
type Tier int

const (
	TierNone Tier = iota
	TierNovice
	TierAdept
	TierMaster
)

// MaxTier is the highest attainable tier.
const MaxTier = TierMaster

// String returns the display name of t.
func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierNovice:
		return "novice"
	case TierAdept:
		return "adept"
	case TierMaster:
		return "master"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Thresholds are the minimum affinities, in percent, for tiers 1 through 3.
type Thresholds struct {
	Novice int `mapstructure:"novice"`
	Adept  int `mapstructure:"adept"`
	Master int `mapstructure:"master"`
}

// DefaultThresholds returns 20/40/75 percent.
func DefaultThresholds() Thresholds {
	return Thresholds{Novice: 20, Adept: 40, Master: 75}
}

// Validate checks that thresholds are strictly increasing within (0, 100].
func (t Thresholds) Validate() error {
	if t.Novice <= 0 || t.Master > 100 {
		return fmt.Errorf("tier thresholds must lie in (0, 100], got %d/%d/%d", t.Novice, t.Adept, t.Master)
	}
	if t.Novice >= t.Adept || t.Adept >= t.Master {
		return errors.New("tier thresholds must be strictly increasing")
	}
	return nil
}

// TierOf maps an affinity in [0, 1] to its tier.
//
// Postcondition: the result is non-decreasing in a.
func (t Thresholds) TierOf(a float64) Tier {
	switch {
	case a >= percent(t.Master):
		return TierMaster
	case a >= percent(t.Adept):
		return TierAdept
	case a >= percent(t.Novice):
		return TierNovice
	default:
		return TierNone
	}
}

// Tiers maps every component of v to its tier.
func (t Thresholds) Tiers(v Vector) [school.Count]Tier {
	var out [school.Count]Tier
	for i, a := range v {
		out[i] = t.TierOf(a)
	}
	return out
}

// TierOf maps a using DefaultThresholds.
func TierOf(a float64) Tier {
	return DefaultThresholds().TierOf(a)
}

// percent converts p to the fraction p/100 (20 yields exactly 0.2).
func percent(p int) float64 {
	return float64(p) / 100
}
