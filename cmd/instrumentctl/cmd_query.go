package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"instrumentsync/internal/gateway/repository/instrument"
)

func newLatestCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "latest",
		Short: "List the most recent instruments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, func(rt *runtime) error {
				records, err := rt.stores.Records.Latest(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("latest: %w", err)
				}
				return printRecords(cmd.OutOrStdout(), records)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", instrument.DefaultLatest, "number of records")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var cusip string
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find instruments by CUSIP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, func(rt *runtime) error {
				records, err := rt.stores.Records.SearchByCUSIP(cmd.Context(), cusip)
				if err != nil {
					return fmt.Errorf("search: %w", err)
				}
				return printRecords(cmd.OutOrStdout(), records)
			})
		},
	}
	cmd.Flags().StringVar(&cusip, "cusip", "", "CUSIP to match (required)")
	_ = cmd.MarkFlagRequired("cusip")
	return cmd
}

func newShowCmd() *cobra.Command {
	var universeID int64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored CSV artifacts of a record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, func(rt *runtime) error {
				prefix := strconv.FormatInt(universeID, 10) + "/"
				keys, err := rt.stores.Objects.List(cmd.Context(), prefix)
				if err != nil {
					return fmt.Errorf("list artifacts: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(keys) == 0 {
					fmt.Fprintf(out, "no artifacts under %s\n", prefix)
					return nil
				}
				for _, key := range keys {
					body, err := rt.stores.Objects.Get(cmd.Context(), key)
					if err != nil {
						return fmt.Errorf("get %s: %w", key, err)
					}
					fmt.Fprintf(out, "== %s\n%s\n", key, strings.TrimRight(string(body), "\n"))
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&universeID, "universe-id", 0, "universe id (required)")
	_ = cmd.MarkFlagRequired("universe-id")
	return cmd
}

func printRecords(out io.Writer, records []instrument.Record) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UNIVERSE_ID\tPRE_RISK\tON_RISK\tCUSIP\tISIN\tCREATED_AT")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.UniverseID, r.PreRisk, r.OnRisk, r.CUSIP, r.ISIN, r.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
