// Package config holds the engine configuration threaded into every episode.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full ifcore configuration.
type Config struct {
	// Entity ids with engine-level meaning.
	PlayerID    string `yaml:"player_id"`
	InventoryID string `yaml:"inventory_id"`
	RoomType    string `yaml:"room_type"`

	Predicates PredicateNames `yaml:"predicates"`

	// Pairs of unary predicates that may never hold for the same entity at once,
	// e.g. [open, closed]. Enforced by the world state store.
	Exclusive [][2]string `yaml:"exclusive"`

	// Maximum number of event cascade passes per turn.
	MaxCascadeDepth int `yaml:"max_cascade_depth"`

	Log LogConfig `yaml:"log"`
}

// PredicateNames names the predicates the engine interprets structurally.
type PredicateNames struct {
	At     string `yaml:"at"`     // at(thing, room)
	In     string `yaml:"in"`     // in(thing, container)
	On     string `yaml:"on"`     // on(thing, support)
	Exit   string `yaml:"exit"`   // exit(room, room, direction)
	Closed string `yaml:"closed"` // closed(container) hides its contents
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PlayerID:    "player",
		InventoryID: "inventory",
		RoomType:    "room",
		Predicates: PredicateNames{
			At:     "at",
			In:     "in",
			On:     "on",
			Exit:   "exit",
			Closed: "closed",
		},
		MaxCascadeDepth: 10,
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load reads a YAML config file on top of Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decode %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that required fields are set.
func (c Config) Validate() error {
	switch {
	case c.PlayerID == "":
		return fmt.Errorf("config: player_id must not be empty")
	case c.InventoryID == "":
		return fmt.Errorf("config: inventory_id must not be empty")
	case c.RoomType == "":
		return fmt.Errorf("config: room_type must not be empty")
	case c.Predicates.At == "" || c.Predicates.In == "" || c.Predicates.On == "":
		return fmt.Errorf("config: at/in/on predicate names must not be empty")
	case c.MaxCascadeDepth < 1:
		return fmt.Errorf("config: max_cascade_depth must be at least 1, got %d", c.MaxCascadeDepth)
	}
	for _, pair := range c.Exclusive {
		if pair[0] == "" || pair[1] == "" || pair[0] == pair[1] {
			return fmt.Errorf("config: invalid exclusive pair %v", pair)
		}
	}
	return nil
}

// IsContainment reports whether pred is one of the containment relations checked for cycles.
func (c Config) IsContainment(pred string) bool {
	return pred == c.Predicates.In || pred == c.Predicates.On
}
