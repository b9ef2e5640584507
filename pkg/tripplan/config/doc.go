/*
Package config provides type-safe configuration extraction from map[string]any
and the typed planner Settings built on top of it.

# Accessors

Config wraps a decoded YAML or JSON document. Accessors take a key and a
default; the default is returned when the key is missing or holds a value of
the wrong type. Keys may be dotted paths into nested sections:

	cfg, err := config.FromFile("tripplan.yaml")
	if err != nil {
	    return err
	}

	length := cfg.Int("share_code.length", 6)
	weights := cfg.FloatMap("scoring.weights", nil)
	scoring := cfg.Sub("scoring")

# Settings

Settings is the typed view consumed by the planner. SettingsFrom overlays a
Config on DefaultSettings and LoadSettings does the same for a file path:

	s, err := config.LoadSettings("tripplan.yaml")

A settings file only needs the values it changes:

	share_code:
	  length: 8
	scoring:
	  weights:
	    climate: 1
	    budget: 1
	    interest: 2
	journal:
	  driver: sqlite
	  path: tripplan.db

# Thread Safety

Config and Settings are safe for concurrent read access. The underlying maps
are not modified after creation.
*/
package config
