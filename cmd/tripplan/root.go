package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/tripplan/pkg/tripplan"
	"github.com/randalmurphal/tripplan/pkg/tripplan/config"
	"github.com/randalmurphal/tripplan/pkg/tripplan/observability"
)

// app is the state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	jsonOut    bool

	settings config.Settings
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "tripplan",
		Short: "Rank destinations and estimate trip budgets",
		Long: `tripplan drives the trip planner core from the command line.
It ranks candidate destinations against a traveller's preferences,
estimates budgets, and can run a scripted planning session.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "settings file (yaml or json)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	flags.BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newRankCmd(a),
		newEstimateCmd(a),
		newCompareCmd(a),
		newStrategiesCmd(a),
		newDemoCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	envCfg, err := parseEnv()
	if err != nil {
		return err
	}
	path := a.configPath
	if path == "" {
		path = envCfg.ConfigPath
	}

	settings, err := config.LoadSettings(path)
	if err != nil {
		return err
	}
	envCfg.apply(&settings)
	if a.logLevel != "" {
		settings.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		settings.Log.Format = a.logFormat
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	logger, err := observability.NewLogger(cmd.ErrOrStderr(), settings.Log.Level, settings.Log.Format)
	if err != nil {
		return err
	}
	a.settings = settings
	a.logger = logger
	return nil
}

func (a *app) planner() (*tripplan.Planner, error) {
	return tripplan.New(
		tripplan.WithSettings(a.settings),
		tripplan.WithLogger(a.logger),
	)
}
