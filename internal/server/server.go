// internal/server/server.go
// Package server hosts the HTTP session API in front of the registry,
// scanner, and executor.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/forgeqa/testforge/internal/browser"
	"github.com/forgeqa/testforge/internal/config"
	"github.com/forgeqa/testforge/internal/executor"
	"github.com/forgeqa/testforge/internal/llmclient"
	"github.com/forgeqa/testforge/internal/observability"
	"github.com/forgeqa/testforge/internal/scanner"
	"github.com/forgeqa/testforge/internal/session"
	"github.com/forgeqa/testforge/internal/store"
)

const shutdownGracePeriod = 30 * time.Second

// Server wires the driver, registry, storage, and HTTP surface together
// and owns their ordered shutdown.
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	dbPool     *pgxpool.Pool
	httpServer *http.Server

	driver   browser.Driver
	registry *session.Registry
	handlers *Handlers

	reaperCancel context.CancelFunc
}

// NewServer initializes the server and its dependencies.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	initCtx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	// Database is optional. Without it the session API still works; only
	// saved tests are unavailable.
	var pool *pgxpool.Pool
	var testStore *store.Store
	if cfg.Database.URL == "" {
		logger.Warn("Database URL (TESTFORGE_DATABASE_URL) is not set. Proceeding without saved-test persistence.")
	} else {
		var err error
		pool, err = pgxpool.New(initCtx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create database connection pool: %w", err)
		}
		testStore, err = store.New(initCtx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("Database connection established successfully.")
	}

	var generator *llmclient.StepGenerator
	if cfg.LLM.Enabled {
		client, err := llmclient.NewGeminiClient(cfg.LLM, logger)
		if err != nil {
			if pool != nil {
				pool.Close()
			}
			return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
		}
		generator = llmclient.NewStepGenerator(client, logger)
		logger.Info("Step generator initialized.", zap.String("model", cfg.LLM.Model))
	}

	driver := browser.NewPlaywrightDriver(cfg.Browser, logger)
	registry := session.NewRegistry(driver, cfg.Session, logger)
	scan := scanner.NewScanner(logger)
	exec := executor.NewExecutor(registry, cfg.Session, logger)

	handlers := NewHandlers(logger, registry, scan, exec, testStore, generator)

	return &Server{
		cfg:      cfg,
		logger:   logger.Named("server"),
		dbPool:   pool,
		driver:   driver,
		registry: registry,
		handlers: handlers,
	}, nil
}

// Start runs the HTTP listener and blocks until shutdown completes.
func (s *Server) Start() error {
	defer observability.Sync()

	r := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: r,
	}

	// Idle reaper runs for the life of the server.
	reaperCtx, reaperCancel := context.WithCancel(context.Background())
	s.reaperCancel = reaperCancel
	go s.registry.Run(reaperCtx)

	s.logger.Info("Session API starting.", zap.String("address", s.cfg.Server.ListenAddr))

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		s.logger.Info("Received shutdown signal, shutting down gracefully...")
		s.shutdown()
		close(idleConnsClosed)
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("HTTP server ListenAndServe error.", zap.Error(err))
		s.shutdown()
		return err
	}

	<-idleConnsClosed
	s.logger.Info("Session API stopped.")
	return nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	r.Use(middleware.Logger)

	r.Get("/healthz", s.handlers.HandleHealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		// Listing saved tests stays public so the authoring UI can render
		// the library before sign-in.
		r.Get("/tests", s.handlers.HandleListTests)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(s.cfg.Auth, s.logger))

			r.With(createLimitMiddleware(s.cfg.Server, s.logger)).
				Post("/sessions", s.handlers.HandleCreateSession)
			r.Delete("/sessions/{sessionID}", s.handlers.HandleCloseSession)
			r.Get("/sessions/{sessionID}/elements", s.handlers.HandleScanElements)
			r.Post("/sessions/{sessionID}/actions", s.handlers.HandleExecuteAction)
			r.Get("/sessions/{sessionID}/logs", s.handlers.HandleSessionLogs)

			r.Post("/tests", s.handlers.HandleSaveTest)
			r.Get("/tests/{testID}", s.handlers.HandleGetTest)
			r.Delete("/tests/{testID}", s.handlers.HandleDeleteTest)

			r.Post("/generate-steps", s.handlers.HandleGenerateSteps)
		})
	})

	return r
}

// shutdown tears the stack down in dependency order: listener first so no
// new work arrives, then sessions and the browser, then the database.
func (s *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()

	if s.reaperCancel != nil {
		s.reaperCancel()
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error.", zap.Error(err))
		}
	}

	s.logger.Info("Closing remaining sessions...")
	if err := s.registry.Shutdown(ctx); err != nil {
		s.logger.Error("Session registry shutdown error.", zap.Error(err))
	}

	if s.dbPool != nil {
		s.logger.Info("Closing database connections...")
		s.dbPool.Close()
	}
}
