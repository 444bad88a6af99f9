package api

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hilthontt/watchparty/internal/infrastructure/configs"
	"github.com/hilthontt/watchparty/internal/infrastructure/logging"
	"github.com/hilthontt/watchparty/internal/infrastructure/metrics"
	"github.com/hilthontt/watchparty/internal/infrastructure/ratelimiter"
	eventsHandler "github.com/hilthontt/watchparty/internal/presentation/handler/events"
	healthHandler "github.com/hilthontt/watchparty/internal/presentation/handler/health"
	roomHandler "github.com/hilthontt/watchparty/internal/presentation/handler/rooms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const apiTimeout = 60 * time.Second

type Application struct {
	config        configs.Config
	roomHandler   *roomHandler.Handler
	eventsHandler *eventsHandler.Handler
	healthHandler *healthHandler.Handler
	metrics       *metrics.Metrics
	logger        *zap.SugaredLogger
	ratelimiter   ratelimiter.Limiter
	onShutdown    []func()
}

// NewApplication wires the HTTP surface. A nil limiter disables rate
// limiting.
func NewApplication(
	config configs.Config,
	roomHandler *roomHandler.Handler,
	eventsHandler *eventsHandler.Handler,
	healthHandler *healthHandler.Handler,
	metrics *metrics.Metrics,
	logger *zap.SugaredLogger,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:        config,
		roomHandler:   roomHandler,
		eventsHandler: eventsHandler,
		healthHandler: healthHandler,
		metrics:       metrics,
		logger:        logger,
		ratelimiter:   ratelimiter,
	}
}

// OnShutdown registers fn to run when the server starts shutting down. Long
// lived streams only end once the event bus closes, so main registers the
// bus here.
func (app *Application) OnShutdown(fn func()) {
	app.onShutdown = append(app.onShutdown, fn)
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   app.config.HTTP.AllowedHeaders,
		ExposedHeaders:   []string{"X-Auth-Token", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if app.ratelimiter != nil {
		r.Use(app.rateLimiterMiddleware)
	}
	r.Use(app.metricsMiddleware)

	r.Get("/events", app.eventsHandler.StreamHandler)
	r.Get("/ws", app.eventsHandler.WebSocketHandler)
	r.Get("/longpoll", app.eventsHandler.PollHandler)

	r.Get("/health", app.healthHandler.GetHealth)
	r.Get("/healthz", app.healthHandler.GetHealth)
	r.Handle("/metrics", app.metrics.Handler())
	r.Handle("/debug/vars", expvar.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(apiTimeout))

		r.Post("/join", app.roomHandler.JoinHandler)

		r.Group(func(r chi.Router) {
			r.Use(app.requireToken)

			r.Post("/leave", app.roomHandler.LeaveHandler)
			r.Get("/room", app.roomHandler.GetRoomHandler)

			r.Put("/video", app.roomHandler.UpdateVideoHandler)
			r.Post("/video/next", app.roomHandler.NextVideoHandler)

			r.Get("/queue", app.roomHandler.GetQueueHandler)
			r.Post("/queue", app.roomHandler.AddToQueueHandler)
			r.Put("/queue/order", app.roomHandler.ReorderQueueHandler)
			r.Delete("/queue/{itemId}", app.roomHandler.RemoveFromQueueHandler)

			r.Get("/messages", app.roomHandler.GetMessagesHandler)
			r.Post("/messages", app.roomHandler.SendMessageHandler)
		})
	})

	return otelhttp.NewHandler(r, "watchparty",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Run serves mux until ctx is cancelled, then shuts down gracefully.
func (app *Application) Run(ctx context.Context, mux http.Handler) error {
	log := logging.For(app.logger, logging.General, logging.Startup)

	srv := &http.Server{
		Addr:         app.config.HTTP.Addr(),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  app.config.HTTP.IdleTimeout,
	}
	for _, fn := range app.onShutdown {
		srv.RegisterOnShutdown(fn)
	}

	shutdown := make(chan error, 1)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.HTTP.ShutdownTimeout)
		defer cancel()

		logging.For(app.logger, logging.General, logging.Shutdown).Infow("shutting down server", "addr", srv.Addr)

		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	log.Infow("server has started", "addr", srv.Addr)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	log.Infow("server has stopped", "addr", srv.Addr)

	return nil
}
