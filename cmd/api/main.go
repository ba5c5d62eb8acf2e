package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/99minutos/account-service/internal/api"
	"github.com/99minutos/account-service/internal/api/handler"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/core/service"
	"github.com/99minutos/account-service/internal/infrastructure/config"
	mongostore "github.com/99minutos/account-service/internal/infrastructure/db/mongo"
	pgstore "github.com/99minutos/account-service/internal/infrastructure/db/postgres"
	rediscache "github.com/99minutos/account-service/internal/infrastructure/db/redis"
	"github.com/99minutos/account-service/internal/infrastructure/messaging/kafka"
	"github.com/99minutos/account-service/internal/infrastructure/queue"
	"github.com/99minutos/account-service/internal/infrastructure/security"
	"github.com/99minutos/account-service/pkg/logger"
)

const serviceName = "account-service"

var version = "dev"

func main() {
	cfg := config.MustLoad()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
		Version: version,
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("service stopped with error")
	}
}

type auditStore interface {
	ports.AuditSink
	ports.AuditReader
}

// stores is the persistence wiring chosen by STORE_DRIVER.
type stores struct {
	tx    ports.TxManager
	users ports.UserStore
	roles ports.RoleStore
	audit auditStore
	ping  handler.Pinger
	close func(ctx context.Context) error
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := service.SystemClock{}

	key, err := cfg.SigningKey()
	if err != nil {
		return err
	}
	codec, err := security.NewJWTCodec(key, cfg.Auth.JWTTTL)
	if err != nil {
		return err
	}
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)

	st, err := openStores(ctx, cfg, clock)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Error().Err(err).Msg("store close failed")
		}
	}()
	log.Info().Str("driver", cfg.Store.Driver).Msg("store connected")

	rdb, err := rediscache.Connect(ctx, rediscache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()
	cache := rediscache.NewProfileCache(rdb, cfg.Redis.ProfileTTL)

	publisher := kafka.NewPublisher(kafka.Config{Brokers: cfg.Kafka.Brokers})
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("kafka writer close failed")
		}
	}()

	dispatcher := queue.NewDispatcher(cfg.Events.Workers, cfg.Events.Buffer, publisher, logger.Component("events"))
	dispatcher.Start(context.Background())

	authService := service.NewAuthService(service.AuthDeps{
		Tx:     st.tx,
		Users:  st.users,
		Roles:  st.roles,
		Audit:  st.audit,
		Hasher: hasher,
		Tokens: codec,
		Cache:  cache,
		Events: dispatcher,
		Clock:  clock,
		Topics: service.Topics{
			Registration: cfg.Kafka.TopicRegistration,
			Login:        cfg.Kafka.TopicLogin,
		},
	}, logger.Component("auth"))
	roleService := service.NewRoleService(st.tx, st.roles, st.audit, logger.Component("roles"))
	statsService := service.NewStatsService(st.users, st.audit, logger.Component("stats"))
	guard := service.NewAccessGuard(codec, clock, logger.Component("guard"))

	if err := roleService.EnsureRoles(ctx, cfg.Auth.SeedRoles...); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	e := api.NewRouter(api.Deps{
		Auth:   authService,
		Roles:  roleService,
		Stats:  statsService,
		Guard:  guard,
		Logger: logger.Component("http"),
		Health: map[string]handler.Pinger{
			cfg.Store.Driver: st.ping,
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		},
	})

	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-srvErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("event queue not fully drained")
	}

	log.Info().Msg("shutdown complete")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, clock ports.Clock) (*stores, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := pgstore.Connect(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, err
		}
		if err := pgstore.RunMigrations(ctx, db); err != nil {
			closeGorm(db)
			return nil, err
		}
		return &stores{
			tx:    pgstore.NewTxManager(db),
			users: pgstore.NewAccountRepository(db),
			roles: pgstore.NewRoleRepository(db),
			audit: pgstore.NewAuditRepository(db, clock),
			ping: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			close: func(context.Context) error {
				closeGorm(db)
				return nil
			},
		}, nil

	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &stores{
			tx:    mongostore.NewTxManager(client),
			users: mongostore.NewAccountRepository(db),
			roles: mongostore.NewRoleRepository(db),
			audit: mongostore.NewAuditRepository(db, clock),
			ping: func(ctx context.Context) error {
				return client.Ping(ctx, nil)
			},
			close: client.Disconnect,
		}, nil
	}
}

func closeGorm(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
