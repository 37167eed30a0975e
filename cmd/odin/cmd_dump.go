package main

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/odinkg/odin/internal/dump"
)

func newLabelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labels <records-dir> <label-dump> <output>",
		Short: "Extract labels for every entity referenced by exported records",
		Long: `Collects the mapped entities and hierarchy nodes of the records in
<records-dir> and writes one {"id","label"} line per entity found in the
label dump.`,
		Args: cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signalContext()
			defer stop()

			n, err := runLabels(ctx, newLogger(), args[0], args[1], args[2])
			if err != nil {
				fatal("labels", err)
			}
			output(map[string]int{"labels": n}, strconv.Itoa(n))
		},
	}
}

func runLabels(ctx context.Context, log logrus.FieldLogger, recordsDir, labelDump, out string) (int, error) {
	ids, err := dump.CollectEntities(ctx, log, recordsDir)
	if err != nil {
		return 0, err
	}

	log.WithField("entities", len(ids)).Info("collected entities")

	return dump.FilterLabels(ctx, log, labelDump, out, ids)
}

func newReduceDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reduce-dump <hierarchy-dump> <output>",
		Short: "Drop hierarchy dump lines that no path search can reach",
		Long: `Keeps entities that have subclass parents or are themselves a parent, and
drops parent references to everything else.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signalContext()
			defer stop()

			stats, err := dump.ReduceHierarchy(ctx, newLogger(), args[0], args[1])
			if err != nil {
				fatal("reduce dump", err)
			}
			output(stats, strconv.Itoa(stats.Output))
		},
	}
}
