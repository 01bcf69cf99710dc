package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rosterhq/playerapi/config"
	"github.com/rosterhq/playerapi/internal/db"
	"github.com/rosterhq/playerapi/internal/handlers"
	logmw "github.com/rosterhq/playerapi/internal/middleware"
	"github.com/rosterhq/playerapi/internal/mq"
	"github.com/rosterhq/playerapi/internal/services"
	"github.com/rosterhq/playerapi/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
	logger     *slog.Logger
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	broker, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open message broker: %w", err)
	}

	dialect, err := store.DialectFor(cfg.Database.Driver)
	if err != nil {
		_ = dbConn.Close()
		if broker != nil {
			_ = broker.Close()
		}
		return nil, err
	}

	playerRepo := store.NewPlayerRepository(dbConn, dialect)
	operatorRepo := store.NewOperatorRepository(dbConn, dialect)

	var events *services.PlayerEvents
	if broker != nil {
		events = services.NewPlayerEvents(broker, cfg.MQ.PlayerEventsChannel, logger)
	}
	playerService := services.NewPlayerService(playerRepo, events, logger)
	operatorService := services.NewOperatorService(operatorRepo)
	authHandler := handlers.NewAuthHandler(operatorService, logger, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	var playerWrites func(http.Handler) http.Handler
	if cfg.Auth.Required {
		playerWrites = authHandler.RequireAuth
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logmw.Logging(logger),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/rest/players", func(r chi.Router) {
		handlers.PlayerRouter(r, playerService, logger, playerWrites)
	})
	// Tokens cannot be signed without a secret.
	if cfg.Auth.JWTSecret != "" {
		router.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authHandler)
		})
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server configured",
		slog.String("addr", httpServer.Addr),
		slog.String("db_driver", dialect.Name()),
		slog.Bool("events", broker != nil),
		slog.Bool("auth_required", cfg.Auth.Required),
	)

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the broker and the
// database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.broker != nil {
		if closeErr := s.broker.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close broker: %w", closeErr))
		}
	}
	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close database: %w", closeErr))
		}
	}
	return err
}
