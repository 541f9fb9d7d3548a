package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"instrumentsync/internal/gateway/service/submission"
)

func newSubmitCmd() *cobra.Command {
	var in submission.Input
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Insert an instrument and upload its artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, func(rt *runtime) error {
				res, err := rt.pipeline.Submit(cmd.Context(), in)
				return report(cmd.OutOrStdout(), res, err)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.PreRisk, "pre-risk", "", "pre-trade risk classifier (required)")
	f.StringVar(&in.OnRisk, "on-risk", "", "on-trade risk classifier (required)")
	f.StringVar(&in.CUSIP, "cusip", "", "9-character CUSIP (required)")
	f.StringVar(&in.ISIN, "isin", "", "12-character ISIN (required)")
	return cmd
}

func newRetryCmd() *cobra.Command {
	var (
		universeID int64
		keys       []string
	)
	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-upload artifacts of a committed record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, func(rt *runtime) error {
				res, err := rt.pipeline.RetryUploads(cmd.Context(), universeID, keys)
				return report(cmd.OutOrStdout(), res, err)
			})
		},
	}
	f := cmd.Flags()
	f.Int64Var(&universeID, "universe-id", 0, "universe id of the committed record (required)")
	f.StringSliceVar(&keys, "key", nil, "artifact key to retry (repeatable; default all)")
	_ = cmd.MarkFlagRequired("universe-id")
	return cmd
}

// report prints the outcome. A partial upload still prints the universe id,
// since the record exists and only the listed keys need a retry.
func report(out io.Writer, res submission.Result, err error) error {
	var partial *submission.PartialUploadError
	if errors.As(err, &partial) {
		fmt.Fprintf(out, "universe_id: %d (saved, artifacts incomplete)\n", partial.UniverseID)
		for _, f := range partial.Failed {
			fmt.Fprintf(out, "  failed %s: %v\n", f.Key, f.Err)
		}
		fmt.Fprintf(out, "retry with: instrumentctl retry --universe-id=%d", partial.UniverseID)
		for _, key := range partial.FailedKeys() {
			fmt.Fprintf(out, " --key=%s", key)
		}
		fmt.Fprintln(out)
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "universe_id: %d\n", res.UniverseID)
	for _, key := range res.Keys {
		fmt.Fprintf(out, "  uploaded %s\n", key)
	}
	return nil
}
