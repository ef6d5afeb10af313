package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/codeGROOVE-dev/exposure/pkg/config"
	"github.com/codeGROOVE-dev/exposure/pkg/exposure"
	"github.com/codeGROOVE-dev/exposure/pkg/metrics"
)

//nolint:gochecknoglobals // Cobra boilerplate
var (
	directory    string
	directoryURL string
	envFile      string
	noCache      bool
	debug        bool
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "exposure",
	Short: "Score people-search listings and project exposure onto related catalogs",
	Long: `exposure decides whether listings found on people-search and data-broker
catalogs are really about a given person, and infers likely listings on catalogs
owned by or reselling from the ones that matched.

Configuration comes from EXPOSURE_* environment variables and an optional .env
file; flags override both.`,
	SilenceUsage: true,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().StringVar(&directory, "directory", "", "YAML source directory file (default: built-in directory)")
	rootCmd.PersistentFlags().StringVar(&directoryURL, "directory-url", "", "URL of a YAML source directory")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to read (default: ./.env if present)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable caching of fetched directories")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig merges the environment with any flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Read(files...)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("directory") {
		cfg.Directory = directory
		cfg.DirectoryURL = ""
	}
	if flags.Changed("directory-url") {
		cfg.DirectoryURL = directoryURL
		if !flags.Changed("directory") {
			cfg.Directory = ""
		}
	}
	if flags.Changed("debug") {
		cfg.Debug = debug
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns a console logger on stderr.
func newLogger(cfg *config.Config) *slog.Logger {
	level := log.InfoLevel
	if cfg.Debug {
		level = log.DebugLevel
	}
	return slog.New(log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	}))
}

// setup loads configuration, the directory and a Scanner for a command.
func setup(cmd *cobra.Command, m *metrics.Metrics) (*config.Config, *slog.Logger, *exposure.Scanner, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	g, err := loadGraph(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load directory: %w", err)
	}
	logger.Debug("directory loaded", "sources", g.Len())

	s, err := exposure.New(
		exposure.WithLogger(logger),
		exposure.WithGraph(g),
		exposure.WithThresholds(cfg.Thresholds),
		exposure.WithConcurrency(cfg.Concurrency),
		exposure.WithMetrics(m),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, s, nil
}
