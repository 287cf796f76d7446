package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/racerstats/laptimer/pkg/http/router/controllers"
	router_helper "github.com/racerstats/laptimer/pkg/http/router/routerhelper"
	http_server "github.com/racerstats/laptimer/pkg/http/server"
	"github.com/racerstats/laptimer/pkg/timing"
	"github.com/rs/cors"
	"go.uber.org/zap"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	UseRateLimit   bool
	RateLimitRPS   float64
	RateLimitBurst int
}

type API struct {
	log          *zap.Logger
	trackService controllers.TrackService
	hub          *controllers.Hub
	opts         Options
}

func NewAPI(log *zap.Logger, trackService controllers.TrackService, timingConfig timing.Config, opts Options) *API {
	return &API{
		log:          log,
		trackService: trackService,
		hub:          controllers.NewHub(log, trackService, timingConfig),
		opts:         opts,
	}
}

//	@title			Laptimer API
//	@version		1.0
//	@description	Track catalog and live lap timing.

// @host		localhost
// @BasePath	/api
func (api *API) Handler() http.Handler {
	router := httprouter.New()

	corsHandler := cors.New(cors.Options{ //nolint:gocritic // ignore
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Location"},
		AllowCredentials: true,
		MaxAge:           300, //nolint:mnd // ignore
	})

	router.GET("/doc/*any", swaggerHandler)
	router.GET("/ws/live", api.serveLive)

	group := router_helper.NewRouteGroup(router, "/api")
	controllers.New(api.trackService, api.log).Routes(group)

	var mwChain []alice.Constructor
	mwChain = append(mwChain, corsHandler.Handler, EnforceJSONHandler, api.recoverPanic,
		RealIP, Heartbeat("healthz"), Logger(api.log))
	if api.opts.UseRateLimit {
		mwChain = append(mwChain, Limit(api.opts.RateLimitRPS, api.opts.RateLimitBurst))
	}
	return alice.New(mwChain...).Then(router)
}

// Run serves until ctx is cancelled, then drains requests and closes live connections.
func (api *API) Run(ctx context.Context, config http_server.Config) error {
	srv := http_server.New(ctx, api.Handler(), config)
	api.log.Info(fmt.Sprintf("API run on port %d", config.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		api.hub.RemoveAllUser()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		api.log.Error("HTTP server stopped", zap.Error(err))
		return err

	case <-ctx.Done():
		api.log.Info("Context canceled, shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		api.hub.RemoveAllUser()
		return err
	}
}

func swaggerHandler(res http.ResponseWriter, req *http.Request, p httprouter.Params) {
	httpSwagger.WrapHandler(res, req)
}
