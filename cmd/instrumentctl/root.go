package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"instrumentsync/internal/gateway/app"
	"instrumentsync/internal/gateway/config"
	"instrumentsync/internal/gateway/logging"
	"instrumentsync/internal/gateway/service/submission"
)

// version is set at build time via -ldflags.
var version = "dev"

type runtime struct {
	stores   *app.Stores
	pipeline *submission.Pipeline
	logger   *zap.Logger
}

func (r *runtime) Close() error {
	_ = r.logger.Sync()
	return r.stores.Close()
}

// openRuntime builds the stores from the environment. Tests replace it.
var openRuntime = func(ctx context.Context) (*runtime, error) {
	cfg, err := config.LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	stores, err := app.InitStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	pipeline, err := app.NewPipeline(cfg, stores, logger)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	return &runtime{stores: stores, pipeline: pipeline, logger: logger}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "instrumentctl",
		Short:         "Submit instrument records and repair their CSV artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
	}
	root.AddCommand(newSubmitCmd())
	root.AddCommand(newRetryCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newLatestCmd())
	root.AddCommand(newSearchCmd())
	return root
}

// withRuntime opens the stores for the duration of one command.
func withRuntime(cmd *cobra.Command, fn func(*runtime) error) error {
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	return fn(rt)
}
