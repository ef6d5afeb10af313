package main

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/codeGROOVE-dev/exposure/pkg/metrics"
	"github.com/codeGROOVE-dev/exposure/pkg/server"
)

//nolint:gochecknoglobals // Cobra boilerplate
var addr string

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scoring API over HTTP",
	Long: `Serve the validate, project and scan operations as a JSON API, with
Prometheus metrics on /metrics. Stops gracefully on SIGINT or SIGTERM.

Example:
  exposure serve --addr :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from EXPOSURE_ADDR or :8080)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	m := metrics.New(prometheus.DefaultRegisterer)
	cfg, logger, scanner, err := setup(cmd, m)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.New(scanner, server.WithLogger(logger)).Run(ctx, cfg.Addr)
}
