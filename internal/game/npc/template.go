// Package npc provides NPC templates and the live instances ability fields act on.
package npc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/arcana/internal/game/ability"
)

// Point is a YAML-friendly position.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Vec converts p to an ability.Vec3.
func (p Point) Vec() ability.Vec3 {
	return ability.Vec3{X: p.X, Y: p.Y, Z: p.Z}
}

// Template defines a reusable NPC archetype loaded from YAML.
type Template struct {
	ID    string  `yaml:"id"`
	Name  string  `yaml:"name"`
	MaxHP float64 `yaml:"max_hp"`
	// Spawns lists the positions populated at startup.
	Spawns []Point `yaml:"spawns"`
}

// Validate checks that the template satisfies basic invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty and MaxHP > 0.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("npc template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("npc template %q: name must not be empty", t.ID)
	}
	if !(t.MaxHP > 0) {
		return fmt.Errorf("npc template %q: max_hp must be > 0", t.ID)
	}
	return nil
}

// LoadTemplateFromBytes parses a single NPC template from raw YAML bytes.
//
// Postcondition: Returns a validated *Template, or an error. Unknown fields are rejected.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var t Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("parsing npc template: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTemplates loads every *.yaml file in dir, sorted by ID.
// A missing directory yields no templates.
//
// Postcondition: template IDs are unique.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading npc dir %q: %w", dir, err)
	}
	seen := make(map[string]bool)
	var out []*Template
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		t, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("%s: duplicate npc template %q", path, t.ID)
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
