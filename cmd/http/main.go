package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/hilthontt/watchparty/internal/application/room"
	"github.com/hilthontt/watchparty/internal/domain"
	"github.com/hilthontt/watchparty/internal/infrastructure/configs"
	"github.com/hilthontt/watchparty/internal/infrastructure/database"
	"github.com/hilthontt/watchparty/internal/infrastructure/eventbus"
	"github.com/hilthontt/watchparty/internal/infrastructure/events"
	"github.com/hilthontt/watchparty/internal/infrastructure/logging"
	"github.com/hilthontt/watchparty/internal/infrastructure/messaging"
	"github.com/hilthontt/watchparty/internal/infrastructure/metrics"
	"github.com/hilthontt/watchparty/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/watchparty/internal/infrastructure/repository"
	"github.com/hilthontt/watchparty/internal/infrastructure/tracing"
	"github.com/hilthontt/watchparty/internal/presentation/api"
	eventsHandler "github.com/hilthontt/watchparty/internal/presentation/handler/events"
	healthHandler "github.com/hilthontt/watchparty/internal/presentation/handler/health"
	roomHandler "github.com/hilthontt/watchparty/internal/presentation/handler/rooms"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := configs.Load(configs.DetermineConfigPath(os.Args[1:]))
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync()

	log := logging.For(logger, logging.General, logging.Startup)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			log.Warnw("failed to flush traces", "error", err)
		}
	}()

	store, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New()
	bus := eventbus.New(
		eventbus.WithBufferSize(cfg.EventBus.BufferSize),
		eventbus.WithObserver(m),
		eventbus.WithLogger(logger),
	)
	defer bus.Close()

	svc := room.NewService(store, bus, logger, room.WithHistoryLimit(cfg.Room.HistoryLimit))

	var limiter ratelimiter.Limiter
	if cfg.RateLimiter.Enabled {
		rl := ratelimiter.NewFixedWindowRateLimiter(cfg.RateLimiter.RequestsPerTimeFrame, cfg.RateLimiter.TimeFrame)
		defer rl.Close()
		limiter = rl
	}

	app := api.NewApplication(*cfg,
		roomHandler.NewHandler(svc, logger),
		eventsHandler.NewHandler(bus, eventsHandler.Config{
			KeepAlive:      cfg.Stream.KeepAlive,
			PollTimeout:    cfg.Poll.Timeout,
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
		}, m, logger),
		healthHandler.NewHandler(store, bus),
		m,
		logger,
		limiter,
	)
	app.OnShutdown(bus.Close)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("subscribers", expvar.Func(func() any {
		return bus.SubscriberCount()
	}))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.Run(gctx, app.Mount())
	})

	if cfg.AMQP.Enabled {
		rmq, err := messaging.NewRabbitMQ(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		defer rmq.Close()

		mirror := events.NewMirror(rmq, logger)
		g.Go(func() error {
			if err := mirror.Run(gctx, bus); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("event mirror: %w", err)
			}
			return nil
		})
		log.Infow("mirroring events to RabbitMQ", "exchange", cfg.AMQP.Exchange)
	}

	return g.Wait()
}

func openStore(ctx context.Context, cfg configs.StoreConfig, logger *zap.SugaredLogger) (domain.RoomStore, func(), error) {
	if cfg.Driver == "memory" {
		return repository.NewMemoryStore(uint(cfg.MessageCapacity)), func() {}, nil
	}

	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	store, err := repository.NewGormStore(ctx, db)
	if err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}

	return store, func() {
		if err := database.Close(db); err != nil {
			logger.Warnw("failed to close database", "error", err)
		}
	}, nil
}
