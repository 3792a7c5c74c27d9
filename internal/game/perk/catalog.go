// Package perk resolves which gameplay perks a player holds from their school tiers.
package perk

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/arcana/internal/game/affinity"
	"github.com/cory-johannsen/arcana/internal/game/school"
)

// Kind identifies a perk effect independently of the school granting it.
type Kind string

// ErrInvalidDefinition is wrapped by every catalog construction error.
var ErrInvalidDefinition = errors.New("invalid perk definition")

// Definition is an immutable perk granted at Tier in School.
type Definition struct {
	Kind    Kind
	School  school.School
	Tier    affinity.Tier
	Payload Payload
}

// Variant returns the payload variant of d.
func (d *Definition) Variant() Variant {
	return d.Payload.Variant()
}

// Key addresses the perks granted at one tier of one school.
type Key struct {
	School school.School
	Tier   affinity.Tier
}

// Catalog is the read-only table of perk definitions.
// It is never mutated after NewCatalog returns; concurrent reads need no locking.
type Catalog struct {
	defs  map[Key][]*Definition
	count int
}

// NewCatalog validates defs and builds a Catalog preserving their order within each key.
//
// Postcondition: Returns a Catalog, or an error wrapping ErrInvalidDefinition that
// names the first offending definition. No partial catalog is returned.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[Key][]*Definition)}
	seen := make(map[Key]map[Kind]bool)
	for i := range defs {
		d := defs[i]
		if err := validateDefinition(d); err != nil {
			return nil, fmt.Errorf("%w: #%d (%s): %v", ErrInvalidDefinition, i, d.Kind, err)
		}
		k := Key{School: d.School, Tier: d.Tier}
		if seen[k] == nil {
			seen[k] = make(map[Kind]bool)
		}
		if seen[k][d.Kind] {
			return nil, fmt.Errorf("%w: #%d: %s defined twice for %s tier %d", ErrInvalidDefinition, i, d.Kind, d.School, d.Tier)
		}
		seen[k][d.Kind] = true
		c.defs[k] = append(c.defs[k], &d)
		c.count++
	}
	return c, nil
}

func validateDefinition(d Definition) error {
	if d.Kind == "" {
		return errors.New("kind must not be empty")
	}
	if !d.School.Valid() {
		return fmt.Errorf("unknown school %s", d.School)
	}
	if d.Tier < affinity.TierNone || d.Tier > affinity.MaxTier {
		return fmt.Errorf("tier must be in [0, %d], got %d", affinity.MaxTier, d.Tier)
	}
	if d.Payload == nil {
		return errors.New("payload must not be nil")
	}
	return d.Payload.validate()
}

// DefinitionsFor returns the perks granted at tier t of school s, in configuration order.
//
// Postcondition: Returns a new slice (possibly empty); the definitions are shared and must not be modified.
func (c *Catalog) DefinitionsFor(s school.School, t affinity.Tier) []*Definition {
	src := c.defs[Key{School: s, Tier: t}]
	out := make([]*Definition, len(src))
	copy(out, src)
	return out
}

// TotalCount returns the number of definitions in the catalog.
func (c *Catalog) TotalCount() int {
	return c.count
}

// AllKeys returns every populated key ordered by school then tier.
func (c *Catalog) AllKeys() []Key {
	keys := make([]Key, 0, len(c.defs))
	for k := range c.defs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].School != keys[j].School {
			return keys[i].School < keys[j].School
		}
		return keys[i].Tier < keys[j].Tier
	})
	return keys
}
