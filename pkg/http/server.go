package http

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/racerstats/laptimer/pkg/config"
	http_router "github.com/racerstats/laptimer/pkg/http/router"
	"github.com/racerstats/laptimer/pkg/http/router/controllers"
	http_server "github.com/racerstats/laptimer/pkg/http/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Log *zap.Logger
}

func NewServer(log *zap.Logger) *Server {
	return &Server{Log: log}
}

// Use serves the API until ctx is cancelled or the listener fails.
func (s *Server) Use(
	ctx context.Context,
	cfg config.Config,

	useRateLimit bool,
	trackService controllers.TrackService,
) error {
	serverConfig := http_server.Config{
		Port:    cfg.APIPort,
		Timeout: cfg.APITimeout,
	}

	api := http_router.NewAPI(s.Log, trackService, cfg.Timing(), http_router.Options{
		UseRateLimit:   useRateLimit,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Run(gctx, serverConfig)
	})

	return g.Wait()
}

// GracefulShutdown delivers the first SIGINT or SIGTERM.
func GracefulShutdown() <-chan os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return quit
}
