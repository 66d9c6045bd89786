// Package continents serves the static pollution facts shown on the globe
// page.
package continents

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed facts.yaml
var factsYAML []byte

// Position places a continent marker on the globe.
type Position struct {
	Lat   float64 `yaml:"lat" json:"lat"`
	Lon   float64 `yaml:"lon" json:"lon"`
	Color string  `yaml:"color" json:"color"`
}

// Pollutant is one fact card. Level is a 0-100 relative intensity.
type Pollutant struct {
	Name        string `yaml:"name" json:"name"`
	Icon        string `yaml:"icon" json:"icon"`
	Level       int    `yaml:"level" json:"level"`
	Severity    string `yaml:"severity" json:"severity"`
	Description string `yaml:"description" json:"description"`
}

// Continent groups the facts for one region.
type Continent struct {
	Key        string      `yaml:"-" json:"key"`
	Title      string      `yaml:"title" json:"title"`
	Citation   string      `yaml:"citation" json:"citation"`
	Position   Position    `yaml:"position" json:"position"`
	Pollutants []Pollutant `yaml:"pollutants" json:"pollutants"`
}

// Catalog is the parsed set of continents.
type Catalog struct {
	byKey map[string]Continent
	keys  []string
}

// Load parses the embedded facts.
func Load() (*Catalog, error) {
	return Parse(factsYAML)
}

// Parse builds a Catalog from YAML keyed by continent.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]Continent
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("continents: %w", err)
	}

	c := &Catalog{byKey: make(map[string]Continent, len(raw))}
	for key, cont := range raw {
		key = strings.ToUpper(key)
		for _, p := range cont.Pollutants {
			if p.Level < 0 || p.Level > 100 {
				return nil, fmt.Errorf("continents: %s/%s level %d out of range", key, p.Name, p.Level)
			}
		}
		cont.Key = key
		c.byKey[key] = cont
		c.keys = append(c.keys, key)
	}
	sort.Strings(c.keys)
	return c, nil
}

// All returns every continent ordered by key.
func (c *Catalog) All() []Continent {
	out := make([]Continent, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.byKey[k])
	}
	return out
}

// Get looks a continent up by key, ignoring case.
func (c *Catalog) Get(key string) (Continent, bool) {
	cont, ok := c.byKey[strings.ToUpper(strings.TrimSpace(key))]
	return cont, ok
}
