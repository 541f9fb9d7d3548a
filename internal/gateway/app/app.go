package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"instrumentsync/internal/gateway/config"
	"instrumentsync/internal/gateway/handler"
	"instrumentsync/internal/gateway/logging"
	"instrumentsync/internal/gateway/server"
)

type App struct {
	server *server.Server
	stores *Stores
	logger *zap.Logger
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return NewWithConfig(ctx, cfg, logger)
}

func NewWithConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	// Dependencies
	stores, err := InitStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	pipeline, err := NewPipeline(cfg, stores, logger)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}

	submitHandler := handler.NewSubmitHandler(pipeline, logger.Named("http"))
	dashboardHandler := handler.NewDashboardHandler(stores.Records, logger.Named("http"))

	// Routing & Server
	mux := server.NewMux(submitHandler, dashboardHandler, logger.Named("http"))
	srv := server.New(cfg.Port, mux, logger)

	return &App{
		server: srv,
		stores: stores,
		logger: logger,
	}, nil
}

func (a *App) Logger() *zap.Logger { return a.logger }

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.stores.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	_ = a.logger.Sync()
	return err
}
