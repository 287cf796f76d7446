package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/racerstats/laptimer/pkg/catalog"
	"github.com/racerstats/laptimer/pkg/config"
	"github.com/racerstats/laptimer/pkg/http"
	"github.com/racerstats/laptimer/pkg/logger"
	"github.com/racerstats/laptimer/pkg/spatialindex"
	"github.com/racerstats/laptimer/pkg/storage/sqlite"
	"go.uber.org/zap"
)

var (
	configDir    = flag.String("config", "./data", "directory holding an optional config.yaml")
	useRateLimit = flag.Bool("rate_limit", true, "apply the global API rate limiter")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		panic(err)
	}
	logger, err := logger.NewFor(cfg.LogDev)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cleanup, err := NewContext()
	if err != nil {
		panic(err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		logger.Fatal("create data directory", zap.Error(err))
	}
	db, err := sqlite.NewDB(ctx, cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", zap.Error(err), zap.String("path", cfg.DBPath))
	}
	defer db.Close()
	if err := db.MigrateUp(); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	catalogConfig, err := cfg.Catalog()
	if err != nil {
		logger.Fatal("catalog config", zap.Error(err))
	}
	trackService := catalog.NewService(logger, sqlite.NewTrackStore(db), spatialindex.NewRtree(), catalogConfig)
	if err := trackService.Warm(ctx); err != nil {
		logger.Fatal("warm track index", zap.Error(err))
	}

	api := http.NewServer(logger)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- api.Use(ctx, *cfg, *useRateLimit, trackService)
	}()

	select {
	case signal := <-http.GracefulShutdown():
		logger.Info("Laptimer Server Stopping", zap.String("signal", signal.String()))
		cleanup()
		err = <-serveErr
	case err = <-serveErr:
		cleanup()
	}
	if err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return
	}
	logger.Info("Laptimer Server Stopped")
}

func NewContext() (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	cb := func() {
		cancel()
	}

	return ctx, cb, nil
}
