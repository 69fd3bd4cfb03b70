package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"github.com/tendant/stay-concierge/internal/config"
	"github.com/tendant/stay-concierge/internal/conversation"
	httpserver "github.com/tendant/stay-concierge/internal/http"
	"github.com/tendant/stay-concierge/internal/http/middleware"
	"github.com/tendant/stay-concierge/internal/memstore"
	"github.com/tendant/stay-concierge/internal/session"
	"github.com/tendant/stay-concierge/pkg/access"
	"github.com/tendant/stay-concierge/pkg/content"
	"github.com/tendant/stay-concierge/pkg/identity"
	"github.com/tendant/stay-concierge/pkg/repository"
)

const (
	storeFlag = "store"

	storePostgres = "postgres"
	storeMemory   = "memory"
)

var serveFlags = map[string]cobraflags.Flag{
	storeFlag: &cobraflags.StringFlag{
		Name:  storeFlag,
		Value: storePostgres,
		Usage: "Content backend (postgres, memory). memory keeps everything in process and is lost on exit",
	},
}

func newServeCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the channel webhook server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(logger, serveFlags[storeFlag].GetString())
		},
	}
	cobraflags.RegisterMap(cmd, serveFlags)
	return cmd
}

// services groups what the engine needs from a storage backend.
type services struct {
	identity *identity.Service
	content  *content.Service
	access   *access.Service
}

func postgresServices(cfg *config.Config, db *sql.DB, logger *slog.Logger) services {
	tenants := repository.NewTenantsRepository(db)
	memberships := repository.NewMembershipsRepository(db)
	return services{
		identity: identity.NewService(
			identity.Config{Timeout: cfg.StoreTimeout, Logger: logger},
			tenants,
			repository.NewManagersRepository(db),
			memberships,
			repository.NewSuggestionsRepository(db),
		),
		content: content.NewService(
			content.Config{Timeout: cfg.StoreTimeout, Logger: logger},
			repository.NewAssetsRepository(db),
			repository.NewContentRepository(db),
		),
		access: access.NewService(
			access.Config{Timeout: cfg.StoreTimeout, LinkBaseURL: cfg.LinkBaseURL, Logger: logger},
			tenants,
			memberships,
			repository.NewBookingsRepository(db),
		),
	}
}

func memoryServices(cfg *config.Config, store *memstore.Store, logger *slog.Logger) services {
	return services{
		identity: identity.NewService(
			identity.Config{Timeout: cfg.StoreTimeout, Logger: logger},
			store.Tenants(), store.Managers(), store.Memberships(), store.Suggestions(),
		),
		content: content.NewService(
			content.Config{Timeout: cfg.StoreTimeout, Logger: logger},
			store.Assets(), store.Content(),
		),
		access: access.NewService(
			access.Config{Timeout: cfg.StoreTimeout, LinkBaseURL: cfg.LinkBaseURL, Logger: logger},
			store.Tenants(), store.Memberships(), store.Bookings(),
		),
	}
}

func serve(logger *slog.Logger, backend string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.LinkBaseURL == "" {
		logger.Warn("LINK_BASE_URL is not set, invite and guest links will be bare codes")
	}

	var svc services
	switch backend {
	case storePostgres:
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("connected to database", "driver", cfg.DBDriver)
		svc = postgresServices(cfg, db, logger)
	case storeMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		svc = memoryServices(cfg, memstore.New(), logger)
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", backend, storePostgres, storeMemory)
	}

	var sessions session.Store
	if cfg.HasRedis() {
		redisStore, err := session.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisStore.Close()
		logger.Info("conversation sessions stored in redis")
		sessions = redisStore
	} else {
		logger.Warn("REDIS_URL is not set, conversation sessions are kept in memory")
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}

	engine := conversation.NewEngine(
		conversation.Config{TurnTimeout: cfg.TurnTimeout, Logger: logger},
		svc.identity,
		svc.content,
		svc.access,
		sessions,
	)
	dispatcher := conversation.NewDispatcher(engine)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:          logger,
		Dispatcher:      dispatcher,
		Auth:            middleware.NewWebhookAuth([]byte(cfg.WebhookSecret), cfg.WebhookIssuer),
		RateLimitConfig: cfg.RateLimit,
		SecurityHeaders: cfg.SecurityHeaders,
		Validation:      cfg.Validation,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.TurnTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	// Turns whose callers already left still finish and save their session.
	if err := dispatcher.Close(ctx); err != nil {
		logger.Error("dispatcher shutdown error", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

func dbConfig(cfg *config.Config) repository.Config {
	return repository.Config{
		Driver:   cfg.DBDriver,
		URL:      cfg.DBURL,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := repository.NewDB(dbConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
