package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/user-directory/internal/api/http"
	"github.com/spec-kit/user-directory/internal/api/http/handlers"
	"github.com/spec-kit/user-directory/internal/config"
	"github.com/spec-kit/user-directory/internal/events"
	"github.com/spec-kit/user-directory/internal/observability"
	"github.com/spec-kit/user-directory/internal/persistence"
	"github.com/spec-kit/user-directory/internal/repository"
	"github.com/spec-kit/user-directory/internal/service"
	"github.com/spec-kit/user-directory/internal/storage"
	"github.com/spec-kit/user-directory/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// Server owns the service's collaborators and its HTTP application.
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	postgres  *persistence.Postgres
	redis     *persistence.Redis
	storage   *storage.Storage
	forwarder *events.Forwarder
	metrics   *observability.Metrics

	Users *service.UserService
	App   *fiber.App
}

// New connects every configured dependency and assembles the HTTP application.
// Resources opened before a failure are released.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *Server, err error) {
	s := &Server{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	s.postgres, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	var userRepo repository.UserRepository
	if s.postgres.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err = persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		userRepo = repository.NewUserRepository(s.postgres.PoolHandle())
	} else {
		userRepo = repository.NewInMemoryUserRepository()
	}

	s.redis = persistence.NewRedis(cfg.Redis, logger)

	s.storage, err = storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("attachment storage: %w", err)
	}

	var publisher events.RedisPublisher
	if s.redis.Enabled() {
		publisher = s.redis.Client
	}
	broker, err := events.NewBroker(cfg.Events, publisher)
	if err != nil {
		return nil, fmt.Errorf("event broker: %w", err)
	}
	dispatcher := events.NewInMemoryDispatcher()
	s.forwarder = events.NewForwarder(broker, cfg.Events.Channel, logger)
	worker.StartEventWorkers(dispatcher, service.NewNotificationService(dispatcher, logger), s.forwarder)

	if cfg.Metrics.Enabled {
		s.metrics = observability.NewMetrics(cfg.Metrics.Prefix)
	}

	s.Users = service.NewUserService(service.UserDependencies{
		UserRepo:       userRepo,
		Attachments:    s.storage,
		Dispatcher:     dispatcher,
		Logger:         logger,
		Metrics:        s.metrics,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	})

	s.App = fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             cfg.App.BodyLimitBytes,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(s.App, logger, s.metrics, httptransport.MiddlewareConfig{
		Timeout:          cfg.App.RequestTimeout(),
		CORSAllowOrigins: cfg.App.CORSAllowOrigins,
	})
	httptransport.RegisterRoutes(s.App, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, s.postgres, s.redis),
		Users:   handlers.NewUsersHandler(s.Users, logger),
		Metrics: s.metrics,
	})
	return s, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.App.Addr()))
		errCh <- s.App.Listen(s.cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	if err := s.App.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases every dependency opened by New.
func (s *Server) Close() {
	var errs []error
	if s.forwarder != nil {
		errs = append(errs, s.forwarder.Close())
	}
	if s.storage != nil {
		errs = append(errs, s.storage.Close())
	}
	s.redis.Close()
	s.postgres.Close()
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("error releasing resources", zap.Error(err))
	}
}
