// Package server wires configuration, backends, services and handlers
// together and runs the HTTP server.
//
// New is the composition root: it opens the gateway selected by
// database.driver, connects the optional backends (Redis for idempotency
// keys, RabbitMQ for review events, S3 for avatars) and falls back to the
// in-process defaults when they are not configured.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sakif/coursehub/internal/auth"
	"github.com/sakif/coursehub/internal/config"
	"github.com/sakif/coursehub/internal/events"
	"github.com/sakif/coursehub/internal/handler"
	"github.com/sakif/coursehub/internal/idempotency"
	"github.com/sakif/coursehub/internal/repository"
	pgRepo "github.com/sakif/coursehub/internal/repository/postgres"
	sqliteRepo "github.com/sakif/coursehub/internal/repository/sqlite"
	"github.com/sakif/coursehub/internal/service"
	"github.com/sakif/coursehub/internal/storage"
)

// connectTimeout bounds each backend handshake at startup.
const connectTimeout = 10 * time.Second

// Server owns the router and every connection opened in New. Start closes
// them on shutdown.
type Server struct {
	router  http.Handler
	config  config.Config
	logger  *slog.Logger
	db      repository.Gateway
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// New builds a Server from cfg. On error everything opened so far is closed.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	s := &Server{config: cfg, logger: logger}
	if err := s.init(); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *Server) init() error {
	cfg := s.config
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	db, err := openGateway(cfg, s.logger)
	if err != nil {
		return err
	}
	s.db = db
	s.onClose("database", db.Close)

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	idem, err := s.openIdempotencyStore(ctx)
	if err != nil {
		return err
	}

	publisher := events.Publisher(events.Noop{})
	if cfg.AMQP.URL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, s.logger)
		if err != nil {
			return fmt.Errorf("connecting review events: %w", err)
		}
		dispatcher := events.NewDispatcher(amqpPub, cfg.AMQP.QueueSize, s.logger)
		dispatcher.Start()
		publisher = dispatcher
		s.onClose("amqp", dispatcher.Close)
	}

	// A nil *S3Store inside the interface would look configured, so the
	// interface stays nil unless a bucket is set.
	var avatars storage.AvatarStore
	if cfg.Storage.Bucket != "" {
		client, err := storage.NewS3Client(ctx, storage.Options{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			KeyPrefix: cfg.Storage.KeyPrefix,
		})
		if err != nil {
			return fmt.Errorf("configuring avatar storage: %w", err)
		}
		avatars = storage.NewS3Store(client, cfg.Storage.Bucket, cfg.Storage.KeyPrefix)
		s.logger.Info("avatar uploads enabled", slog.String("bucket", cfg.Storage.Bucket))
	}

	providers := Providers(cfg)
	for _, p := range providers {
		s.logger.Info("oauth provider enabled", slog.String("provider", p.Name()))
	}

	router, err := NewRouter(Deps{
		Gateway: db,
		Tokens:  tokens,
		Reviews: service.NewReviewService(db, idem, publisher, s.logger),
		Users:   service.NewUserService(db, passwords, avatars, s.logger),
		Auth:    service.NewAuthService(db, tokens, passwords, providers, s.logger),
		Cookies: handler.SessionCookies{
			TTL:    tokens.TTL(),
			Secure: cfg.Auth.CookieSecure,
		},
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("setting up routes: %w", err)
	}
	s.router = router
	return nil
}

func openGateway(cfg config.Config, logger *slog.Logger) (repository.Gateway, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := pgRepo.New(cfg.Database.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, nil
	case "sqlite", "":
		db, err := sqliteRepo.New(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

// openIdempotencyStore picks Redis when an address is configured. A pending
// key outlives the request timeout twice over and no longer.
func (s *Server) openIdempotencyStore(ctx context.Context) (idempotency.Store, error) {
	timeout := s.config.Server.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	pending := idempotency.WithPendingTTL(2 * timeout)

	if s.config.Redis.Addr == "" {
		return idempotency.NewMemoryStore(s.config.Idempotency.TTL, pending), nil
	}
	client, err := idempotency.NewRedisClient(ctx, s.config.Redis.Addr)
	if err != nil {
		return nil, err
	}
	s.onClose("redis", client.Close)
	s.logger.Info("idempotency keys stored in redis", slog.String("addr", s.config.Redis.Addr))
	return idempotency.NewRedisStore(client, s.config.Idempotency.TTL, pending), nil
}

// Providers returns the OAuth providers that have credentials configured.
func Providers(cfg config.Config) []auth.Provider {
	var out []auth.Provider
	google := auth.ProviderConfig(cfg.OAuth.Google)
	if google.Enabled() {
		out = append(out, auth.NewGoogleProvider(google))
	}
	github := auth.ProviderConfig(cfg.OAuth.GitHub)
	if github.Enabled() {
		out = append(out, auth.NewGitHubProvider(github))
	}
	return out
}

func (s *Server) onClose(name string, fn func() error) {
	s.closers = append(s.closers, namedCloser{name: name, close: fn})
}

// close releases connections in reverse order of opening.
func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		c := s.closers[i]
		if err := c.close(); err != nil {
			s.logger.Warn("closing "+c.name, slog.String("error", err.Error()))
		}
	}
	s.closers = nil
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes every backend.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("database", s.config.Database.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
