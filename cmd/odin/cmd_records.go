package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odinkg/odin/client"
)

func newRecordsCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Query records persisted by a running odin service",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveLogFlags(cmd)
			if !cmd.Flags().Changed("url") {
				if v := os.Getenv("ODIN_URL"); v != "" {
					url = v
				}
			}
		},
	}
	cmd.PersistentFlags().StringVar(&url, "url", "http://127.0.0.1:8090", "odin service URL (env: ODIN_URL)")

	cmd.AddCommand(newRecordsGetCmd(&url))
	cmd.AddCommand(newRecordsMappedToCmd(&url))
	return cmd
}

func newRecordsGetCmd(url *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <iri>",
		Short: "Print a persisted record",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			rec, err := client.New(*url).Records.Get(cmd.Context(), args[0])
			if err != nil {
				fatal("get record", err)
			}
			output(rec, args[0])
		},
	}
}

func newRecordsMappedToCmd(url *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mapped-to <entity-id>",
		Short: "List the records mapped to a graph entity",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			res, err := client.New(*url).Records.MappedTo(cmd.Context(), args[0])
			if err != nil {
				fatal("list records", err)
			}

			switch flagFmt {
			case "table":
				rows := make([][]string, len(res.Records))
				for i, iri := range res.Records {
					rows[i] = []string{iri}
				}
				formatTable([]string{"RECORD"}, rows)
			default:
				output(res, strings.Join(res.Records, "\n"))
			}
		},
	}
}
