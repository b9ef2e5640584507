package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/randalmurphal/tripplan/pkg/tripplan/config"
)

// envConfig holds the environment overrides. Flags win over the
// environment, and the environment wins over the settings file.
type envConfig struct {
	ConfigPath    string `env:"TRIPPLAN_CONFIG"`
	LogLevel      string `env:"TRIPPLAN_LOG_LEVEL"`
	LogFormat     string `env:"TRIPPLAN_LOG_FORMAT"`
	JournalDriver string `env:"TRIPPLAN_JOURNAL_DRIVER"`
	JournalPath   string `env:"TRIPPLAN_JOURNAL_PATH"`
	HistorySize   int    `env:"TRIPPLAN_HISTORY_SIZE"`
}

func parseEnv() (envConfig, error) {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return envConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// apply overlays the values that are set on s.
func (e envConfig) apply(s *config.Settings) {
	if e.LogLevel != "" {
		s.Log.Level = e.LogLevel
	}
	if e.LogFormat != "" {
		s.Log.Format = e.LogFormat
	}
	if e.JournalDriver != "" {
		s.Journal.Driver = e.JournalDriver
	}
	if e.JournalPath != "" {
		s.Journal.Path = e.JournalPath
	}
	if e.HistorySize > 0 {
		s.History.MaxSize = e.HistorySize
	}
}
