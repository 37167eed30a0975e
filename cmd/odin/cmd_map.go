package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/odinkg/odin/internal/config"
	"github.com/odinkg/odin/internal/dbpool"
	"github.com/odinkg/odin/internal/workflow"
)

func newMapCmd() *cobra.Command {
	var (
		configPath  string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Run the mapping workflow described by a workflow file",
		Long: `Runs every stage of the workflow in order. A stage whose output directory
is marked complete is skipped, so an interrupted or failed run resumes at the
first incomplete stage.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signalContext()
			defer stop()

			if err := runMap(ctx, newLogger(), configPath, metricsAddr); err != nil {
				fatal("map", err)
			}
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "workflow.yaml", "Workflow file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	return cmd
}

func runMap(ctx context.Context, log *logrus.Logger, configPath, metricsAddr string) error {
	wf, err := config.LoadWorkflow(configPath)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		stopMetrics := serveMetrics(metricsAddr, log)
		defer stopMetrics()
	}

	var deps workflow.Deps

	if wf.Persist != nil {
		records, pool, err := openStore(ctx, wf.Persist.DatabaseURL.Value(), dbpool.DefaultMaxConns, log)
		if err != nil {
			return err
		}
		defer pool.Close()

		deps.Saver = records
	}

	p, err := workflow.Build(wf, deps, log)
	if err != nil {
		return err
	}

	return p.Execute(ctx)
}

// serveMetrics exposes /metrics until the returned function is called.
func serveMetrics(addr string, log logrus.FieldLogger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()

	log.WithField("addr", addr).Info("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		srv.Shutdown(ctx) //nolint:errcheck,gosec // best effort on exit
	}
}
