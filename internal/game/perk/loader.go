package perk

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/arcana/internal/game/affinity"
	"github.com/cory-johannsen/arcana/internal/game/school"
)

// perkFile is the YAML layout of one catalog file.
type perkFile struct {
	Perks []perkYAML `yaml:"perks"`
}

type extentsYAML struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

type perkYAML struct {
	Kind            string             `yaml:"kind"`
	School          string             `yaml:"school"`
	Tier            int                `yaml:"tier"`
	Variant         string             `yaml:"variant"`
	Amount          float64            `yaml:"amount"`
	DurationTicks   int                `yaml:"duration_ticks"`
	Effect          string             `yaml:"effect"`
	Status          string             `yaml:"status"`
	ManaCostPerTick float64            `yaml:"mana_cost_per_tick"`
	CooldownTicks   int                `yaml:"cooldown_ticks"`
	HalfExtents     extentsYAML        `yaml:"half_extents"`
	Magnitudes      map[string]float64 `yaml:"magnitudes"`
	MaxCharges      int                `yaml:"max_charges"`
}

func (p perkYAML) definition() (Definition, error) {
	s, err := school.Parse(p.School)
	if err != nil {
		return Definition{}, err
	}
	v, err := ParseVariant(p.Variant)
	if err != nil {
		return Definition{}, err
	}
	var payload Payload
	switch v {
	case VariantMarker:
		payload = Marker{}
	case VariantAmount:
		payload = Amount{Value: p.Amount}
	case VariantTimed:
		payload = Timed{Amount: p.Amount, DurationTicks: p.DurationTicks}
	case VariantAbility:
		payload = AbilityParams{
			Effect:          p.Effect,
			Status:          p.Status,
			ManaCostPerTick: p.ManaCostPerTick,
			CooldownTicks:   p.CooldownTicks,
			HalfExtents:     Extents{X: p.HalfExtents.X, Y: p.HalfExtents.Y, Z: p.HalfExtents.Z},
			Magnitudes:      p.Magnitudes,
		}
	case VariantCharge:
		payload = Charge{MaxCharges: p.MaxCharges, Amount: p.Amount}
	}
	return Definition{
		Kind:    Kind(p.Kind),
		School:  s,
		Tier:    affinity.Tier(p.Tier),
		Payload: payload,
	}, nil
}

// Parse decodes one YAML catalog document into definitions.
// Unknown fields are rejected.
func Parse(data []byte) ([]Definition, error) {
	var f perkFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	defs := make([]Definition, 0, len(f.Perks))
	for i, p := range f.Perks {
		d, err := p.definition()
		if err != nil {
			return nil, fmt.Errorf("%w: perk #%d (%s): %v", ErrInvalidDefinition, i, p.Kind, err)
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// LoadDirectory reads every *.yaml file in dir in lexicographic order and
// builds a Catalog from all of their definitions.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a complete Catalog, or an error if any file fails to read,
// parse or validate.
func LoadDirectory(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading perk dir %q: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var defs []Definition
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		fileDefs, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		defs = append(defs, fileDefs...)
	}
	catalog, err := NewCatalog(defs)
	if err != nil {
		return nil, fmt.Errorf("building perk catalog from %q: %w", dir, err)
	}
	return catalog, nil
}
