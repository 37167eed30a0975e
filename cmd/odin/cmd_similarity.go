package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/odinkg/odin/client"
	"github.com/odinkg/odin/internal/similarity"
)

func newSimilarityCmd() *cobra.Command {
	var (
		method   string
		distance int
		url      string
		workers  int
	)
	cmd := &cobra.Command{
		Use:   "similarity <left.json> <right.json>",
		Short: "Find hierarchy paths between two exported records",
		Long: `Computes the paths joining the mapped entities of two records through
shared ancestors. Without --url the computation runs locally; with --url the
records are uploaded to a running odin service.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			var opts client.Options
			opts.Method = method
			if cmd.Flags().Changed("distance") {
				opts.Distance = &distance
			}

			ctx, stop := signalContext()
			defer stop()

			var (
				res *client.SimilarityResult
				err error
			)
			if url != "" {
				res, err = remoteSimilarity(ctx, client.New(url), args[0], args[1], &opts)
			} else {
				res, err = localSimilarity(ctx, newLogger(), workers, args[0], args[1], opts)
			}
			if err != nil {
				fatal("similarity", err)
			}
			printSimilarity(res)
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", similarity.MethodClosest, "Selection method: closest|distance")
	cmd.Flags().IntVarP(&distance, "distance", "d", 0, "Path length in nodes to select")
	cmd.Flags().StringVar(&url, "url", "", "odin service URL (env: ODIN_URL)")
	cmd.Flags().IntVar(&workers, "workers", 4, "Path search workers for local runs")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("url") {
			url = os.Getenv("ODIN_URL")
		}
	}
	return cmd
}

func localSimilarity(ctx context.Context, log logrus.FieldLogger, workers int, leftPath, rightPath string, opts client.Options) (*client.SimilarityResult, error) {
	left, err := similarity.LoadDataset(leftPath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", leftPath, err)
	}

	right, err := similarity.LoadDataset(rightPath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", rightPath, err)
	}

	svc := similarity.NewService(log, workers)

	res, err := svc.Compute(ctx, left, right, similarity.Options{Method: opts.Method, Distance: opts.Distance})
	if err != nil {
		return nil, err
	}
	return toClientResult(res), nil
}

func remoteSimilarity(ctx context.Context, c *client.Client, leftPath, rightPath string, opts *client.Options) (*client.SimilarityResult, error) {
	left, err := os.Open(leftPath) //nolint:gosec // path from the command line
	if err != nil {
		return nil, err
	}
	defer left.Close() //nolint:errcheck // read-only

	right, err := os.Open(rightPath) //nolint:gosec // path from the command line
	if err != nil {
		return nil, err
	}
	defer right.Close() //nolint:errcheck // read-only

	return c.Similarity.Compute(ctx, left, right, opts)
}

// toClientResult converts a local result to the wire shape so both modes
// print the same way.
func toClientResult(res *similarity.Result) *client.SimilarityResult {
	out := &client.SimilarityResult{
		Metadata: client.ResultMetadata{
			Method:          res.Metadata.Method,
			Datasets:        res.Metadata.Datasets,
			TotalPathCount:  res.Metadata.TotalPathCount,
			ResultPathCount: res.Metadata.ResultPathCount,
		},
		Similarity: client.Stats{
			Min:  res.Similarity.Min,
			Max:  res.Similarity.Max,
			Mean: res.Similarity.Mean,
			Sum:  res.Similarity.Sum,
		},
		Paths: make([]client.Path, len(res.Paths)),
	}
	for i, p := range res.Paths {
		out.Paths[i] = client.Path{Shared: p.Shared, Nodes: p.Nodes}
	}
	return out
}

func printSimilarity(res *client.SimilarityResult) {
	if flagFmt == "table" {
		formatTable([]string{"SHARED", "LENGTH", "NODES"}, pathRows(res.Paths))
		return
	}
	output(res, strconv.Itoa(res.Metadata.ResultPathCount))
}

func pathRows(paths []client.Path) [][]string {
	rows := make([][]string, len(paths))
	for i, p := range paths {
		rows[i] = []string{p.Shared, strconv.Itoa(len(p.Nodes)), strings.Join(p.Nodes, " > ")}
	}
	return rows
}
