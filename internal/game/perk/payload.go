package perk

import (
	"errors"
	"fmt"
	"math"
)

// Variant discriminates the payload shapes a perk definition may carry.
type Variant int

const (
	VariantMarker Variant = iota
	VariantAmount
	VariantTimed
	VariantAbility
	VariantCharge
)

var variantNames = map[Variant]string{
	VariantMarker:  "marker",
	VariantAmount:  "amount",
	VariantTimed:   "timed",
	VariantAbility: "ability",
	VariantCharge:  "charge",
}

// String returns the YAML name of v.
func (v Variant) String() string {
	if n, ok := variantNames[v]; ok {
		return n
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// ParseVariant returns the Variant with the given YAML name.
func ParseVariant(name string) (Variant, error) {
	for v, n := range variantNames {
		if n == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown perk variant %q", name)
}

// Payload is the variant-specific data of a perk definition.
// The set of implementations is closed: Marker, Amount, Timed, AbilityParams and Charge.
type Payload interface {
	Variant() Variant
	validate() error
}

// Marker is a perk that carries no data; holding it is the whole effect.
type Marker struct{}

// Amount is a perk with a single numeric magnitude.
type Amount struct {
	Value float64
}

// Timed is a perk with a magnitude applied for a number of ticks.
type Timed struct {
	Amount        float64
	DurationTicks int
}

// Extents are the half-sizes of an ability field along each axis.
type Extents struct {
	X, Y, Z float64
}

// AbilityParams configures a channeled ability granted by a perk.
type AbilityParams struct {
	// Effect names the ability implementation that runs the field.
	Effect          string
	// Status names the status or buff the field applies, if any.
	Status          string
	ManaCostPerTick float64
	CooldownTicks   int
	HalfExtents     Extents
	// Magnitudes holds effect-specific numbers such as damage or amplifier.
	// Shared by every resolution of the definition; must not be modified.
	Magnitudes      map[string]float64
}

// Magnitude returns the named magnitude, or 0 when absent.
func (a AbilityParams) Magnitude(name string) float64 {
	return a.Magnitudes[name]
}

// Charge is a perk that accumulates up to MaxCharges, each worth Amount when discharged.
type Charge struct {
	MaxCharges int
	Amount     float64
}

func (Marker) Variant() Variant        { return VariantMarker }
func (Amount) Variant() Variant        { return VariantAmount }
func (Timed) Variant() Variant         { return VariantTimed }
func (AbilityParams) Variant() Variant { return VariantAbility }
func (Charge) Variant() Variant        { return VariantCharge }

func (Marker) validate() error { return nil }

func (a Amount) validate() error {
	return finite("amount", a.Value)
}

func (t Timed) validate() error {
	if t.DurationTicks <= 0 {
		return fmt.Errorf("duration_ticks must be > 0, got %d", t.DurationTicks)
	}
	return finite("amount", t.Amount)
}

func (a AbilityParams) validate() error {
	if a.Effect == "" {
		return errors.New("effect must not be empty")
	}
	if !(a.ManaCostPerTick >= 0) || math.IsInf(a.ManaCostPerTick, 0) {
		return fmt.Errorf("mana_cost_per_tick must be a finite value >= 0, got %v", a.ManaCostPerTick)
	}
	if a.CooldownTicks < 0 {
		return fmt.Errorf("cooldown_ticks must be >= 0, got %d", a.CooldownTicks)
	}
	e := a.HalfExtents
	if !(e.X > 0 && e.Y > 0 && e.Z > 0) {
		return fmt.Errorf("half_extents must be positive, got %v", e)
	}
	for name, m := range a.Magnitudes {
		if err := finite("magnitude "+name, m); err != nil {
			return err
		}
	}
	return nil
}

func (c Charge) validate() error {
	if c.MaxCharges <= 0 {
		return fmt.Errorf("max_charges must be > 0, got %d", c.MaxCharges)
	}
	return finite("amount", c.Amount)
}

func finite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be finite, got %v", name, v)
	}
	return nil
}
