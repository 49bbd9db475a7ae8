package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/config"
	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/infra/db"
	httpinfra "github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/infra/http"
	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/infra/memstore"
	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/usecase"
)

var memoryStore bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portfolio API",
	Long:  `Start the HTTP API. Tables are migrated before the listener opens.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&memoryStore, "memory", false, "Keep records in process memory instead of Postgres")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	gin.SetMode(ginMode(cfg.LogLevel))

	ctx := cmd.Context()
	srv, closeStore, err := buildServer(ctx, cfg, memoryStore)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			zap.L().Warn("closing rate limiter", zap.Error(err))
		}
		if err := closeStore(); err != nil {
			zap.L().Warn("closing store", zap.Error(err))
		}
	}()
	return srv.Run(ctx)
}

// buildServer opens the record store and wires the API on top of it. The
// returned func releases the store.
func buildServer(ctx context.Context, cfg config.Config, inMemory bool) (*httpinfra.Server, func() error, error) {
	if inMemory {
		store := memstore.New()
		zap.L().Info("records kept in memory; nothing survives a restart")
		srv := httpinfra.NewServerWithDeps(cfg, httpinfra.ServerDeps{
			Service: usecase.NewPortfolioService(store.Portfolios(), store.Histories()),
			Mode:    "memory",
		})
		return srv, func() error { return nil }, nil
	}

	store, err := db.NewStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init store: %w", err)
	}
	if store.DB != nil {
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return httpinfra.NewServer(cfg, store), store.Close, nil
}

func ginMode(level string) string {
	if strings.ToLower(level) == "debug" {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}
