package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration parses yaml values like "3s" or "1500ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// CatalogEntry describes one movement task in the session plan.
type CatalogEntry struct {
	// Name must be one of the exercise names known to the scorer
	// ("Hand Open/Close", "Wrist Flexion", "Finger Pinch").
	Name string `yaml:"name"`

	// Joint is the joint reported in the per-joint breakdown for this
	// exercise.
	Joint string `yaml:"joint"`

	// Dwell overrides the global per-exercise tracking time when set.
	Dwell Duration `yaml:"dwell"`
}

// Catalog is the ordered exercise plan a session attempt walks through.
type Catalog struct {
	Exercises []CatalogEntry `yaml:"exercises"`
}

// LoadCatalog reads the yaml exercise plan from path.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Exercises) == 0 {
		return nil, fmt.Errorf("catalog %s lists no exercises", path)
	}
	for i, e := range c.Exercises {
		if e.Name == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
	}
	return &c, nil
}

// DefaultCatalog is the built-in three-exercise hand plan, used when no
// catalog file is configured.
func DefaultCatalog() *Catalog {
	return &Catalog{Exercises: []CatalogEntry{
		{Name: "Hand Open/Close", Joint: "Hand"},
		{Name: "Wrist Flexion", Joint: "Wrist"},
		{Name: "Finger Pinch", Joint: "Finger"},
	}}
}
