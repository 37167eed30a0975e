package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/odinkg/odin/internal/config"
	"github.com/odinkg/odin/internal/db"
	"github.com/odinkg/odin/internal/db/migrations"
	"github.com/odinkg/odin/internal/dbpool"
	"github.com/odinkg/odin/internal/store"
)

// Build-time variables set via ldflags.
var (
	commit    = ""
	buildDate = ""
)

var (
	flagLogLevel  string
	flagLogFormat string
	flagFmt       string
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("odin version %s (commit: %s, built: %s)", config.Version, commit, buildDate)
	}
	return fmt.Sprintf("odin version %s", config.Version)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "odin",
		Short:        "Map catalog records onto a knowledge graph and compare them by shared ancestors",
		Version:      versionString(),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveLogFlags(cmd)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug|info|warn|error (env: LOG_LEVEL)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format: text|json (env: LOG_FORMAT)")
	root.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table|quiet")

	root.AddCommand(newMapCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newSimilarityCmd())
	root.AddCommand(newRecordsCmd())
	root.AddCommand(newLabelsCmd())
	root.AddCommand(newReduceDumpCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveLogFlags lets LOG_LEVEL and LOG_FORMAT fill flags left at default.
func resolveLogFlags(cmd *cobra.Command) {
	if !cmd.Flags().Changed("log-level") {
		if v := os.Getenv("LOG_LEVEL"); v != "" {
			flagLogLevel = v
		}
	}
	if !cmd.Flags().Changed("log-format") {
		if v := os.Getenv("LOG_FORMAT"); v != "" {
			flagLogFormat = v
		}
	}
}

func newLogger() *logrus.Logger {
	return config.NewLogger(os.Stderr, flagLogLevel, flagLogFormat)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openStore connects to Postgres, applies migrations and returns the record
// store. The caller closes the pool.
func openStore(ctx context.Context, url string, maxConns int32, log logrus.FieldLogger) (*store.RecordStore, *dbpool.Pool, error) {
	pool, err := dbpool.NewPool(ctx, url, maxConns)
	if err != nil {
		return nil, nil, err
	}

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		pool.Close()
		return nil, nil, err
	}

	log.WithField("schema_version", db.SchemaVersion()).Info("database ready")

	return store.NewRecordStore(pool, log), pool, nil
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	os.Exit(1)
}
