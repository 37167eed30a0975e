package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/odinkg/odin/internal/api"
	"github.com/odinkg/odin/internal/config"
	"github.com/odinkg/odin/internal/similarity"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the similarity HTTP API",
		Long: `Serves POST /graph-similarity and /api/v1/similarity, GET /api/v1/health and
GET /metrics. When DATABASE_URL is set, exported records are served from
/api/v1/records as well. Configuration comes from the environment.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signalContext()
			defer stop()

			if err := runServe(ctx); err != nil {
				fatal("serve", err)
			}
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := newLogger()

	deps := &api.RouterDeps{
		Log:          log,
		Similarity:   similarity.NewService(log, cfg.PathWorkers),
		CORSOrigins:  cfg.CORSOrigins,
		Version:      config.Version,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}

	if url := cfg.DatabaseURL.Value(); url != "" {
		records, pool, err := openStore(ctx, url, cfg.DBMaxConns, log)
		if err != nil {
			return err
		}
		defer pool.Close()

		deps.DB = pool
		deps.Records = records
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)

	go func() {
		log.WithField("addr", cfg.Addr()).Info("similarity service listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
