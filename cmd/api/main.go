// @title                       Booking Approval API
// @version                     1.0
// @description                 Booking requests approved by a team manager and then an administrator.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/deskflow/booking-approval/internal/api"
	"github.com/deskflow/booking-approval/internal/api/handler"
	"github.com/deskflow/booking-approval/internal/core/ports"
	"github.com/deskflow/booking-approval/internal/infrastructure/db/memory"
	mongodb "github.com/deskflow/booking-approval/internal/infrastructure/db/mongo"
	"github.com/deskflow/booking-approval/internal/infrastructure/db/postgres"
	redisdb "github.com/deskflow/booking-approval/internal/infrastructure/db/redis"
	"github.com/deskflow/booking-approval/internal/pkg/config"
	"github.com/deskflow/booking-approval/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "booking-api",
	})

	if err := run(cfg); err != nil {
		log := logger.Get()
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logger.Get()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger.Component(log, "store"))
	if err != nil {
		return err
	}
	defer st.close()

	checks := []handler.DependencyCheck{{Name: cfg.StoreDriver, Ping: st.ping}}

	var idempotency ports.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		idempotency = redisdb.NewIdempotencyStore(rdb)
		checks = append(checks, handler.DependencyCheck{Name: "redis", Ping: redisdb.Pinger(rdb)})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("idempotency store enabled")
	}

	e := api.NewRouter(api.Deps{
		Users:        st.users,
		Bookings:     st.bookings,
		Idempotency:  idempotency,
		HealthChecks: checks,
		JWTSecret:    cfg.Auth.JWTSecret,
		TokenTTL:     cfg.Auth.TokenTTL,
		BcryptCost:   cfg.Auth.BcryptCost,
		CORSOrigins:  cfg.AllowedOrigins(),
		Logger:       logger.Component(log, "http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type store struct {
	users    ports.UserRepository
	bookings ports.BookingRepository
	ping     func(context.Context) error
	close    func()
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN})
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			_ = postgres.Close(db)
			return nil, err
		}
		log.Info().Msg("postgres connected and migrated")
		return &store{
			users:    postgres.NewUserRepository(db),
			bookings: postgres.NewBookingRepository(db),
			ping:     postgres.Pinger(db),
			close:    func() { _ = postgres.Close(db) },
		}, nil

	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo connected")
		return &store{
			users:    mongodb.NewUserRepository(db),
			bookings: mongodb.NewBookingRepository(db),
			ping:     mongodb.Pinger(db),
			close:    func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case config.DriverMemory:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		m := memory.NewStore()
		return &store{
			users:    m.Users(),
			bookings: m.Bookings(),
			ping:     m.Ping,
			close:    func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
