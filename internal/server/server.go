package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/orderdesk/apiserver/config"
	"github.com/orderdesk/apiserver/internal/auth"
	"github.com/orderdesk/apiserver/internal/clock"
	"github.com/orderdesk/apiserver/internal/db"
	"github.com/orderdesk/apiserver/internal/dbx"
	"github.com/orderdesk/apiserver/internal/handlers"
	"github.com/orderdesk/apiserver/internal/logging"
	"github.com/orderdesk/apiserver/internal/metrics"
	"github.com/orderdesk/apiserver/internal/mq"
	"github.com/orderdesk/apiserver/internal/services"
	"github.com/orderdesk/apiserver/internal/storage"
	"github.com/orderdesk/apiserver/internal/store"
	"github.com/orderdesk/apiserver/internal/store/memory"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the router is built from.
type Deps struct {
	Logger  logging.Logger
	Metrics *metrics.Metrics
	// Pinger backs /healthz. Nil means there is nothing to ping.
	Pinger handlers.Pinger
	Auth   *services.AuthService
	Users  *services.UserService
	Orders *services.OrderService
}

// NewRouter mounts every route with the shared middleware stack.
func NewRouter(d Deps) http.Handler {
	authMiddleware := handlers.RequireAuth(d.Auth, d.Logger, d.Metrics)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.RequestLogger(d.Logger),
		middleware.Recoverer,
		d.Metrics.Middleware,
		middleware.Timeout(60*time.Second),
	)

	router.Get("/healthz", handlers.Healthz(d.Pinger, d.Logger))
	router.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, handlers.NewAuthHandler(d.Auth, d.Logger, d.Metrics), authMiddleware)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, handlers.NewUserHandler(d.Users, d.Logger), authMiddleware)
	})
	router.Route("/requests", func(r chi.Router) {
		handlers.OrderRouter(r, handlers.NewOrderHandler(d.Orders, d.Logger), authMiddleware)
	})

	return router
}

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     http.Handler
	logger     logging.Logger
	db         *sql.DB
	queue      *mq.MQ
	objects    *storage.Storage
}

// New opens the configured backends and builds the router. The memory
// driver needs no external services, which makes it the test configuration.
func New(ctx context.Context, cfg config.Config, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{logger: logger}

	signer, err := auth.NewSigner(cfg.Auth.Secret, cfg.Auth.Algorithm)
	if err != nil {
		return nil, err
	}

	var (
		runner dbx.Runner
		repos  store.Repositories
		pinger handlers.Pinger
	)
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn(ctx, "using in-memory store; data is lost on exit")
		runner, repos = memory.Runner{}, memory.New()
	} else {
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		s.db = conn
		runner, repos, pinger = dbx.NewRunner(conn), store.Postgres{}, conn
	}

	var sender mq.Sender
	if cfg.MQ.Backend != "" {
		s.queue, err = mq.Open(ctx, cfg.MQ)
		if err != nil {
			s.close()
			return nil, err
		}
		sender = s.queue
	}

	var receipts services.ReceiptReader
	if cfg.Storage.Backend != "" {
		s.objects, err = storage.Open(ctx, cfg.Storage)
		if err != nil {
			s.close()
			return nil, err
		}
		receipts = s.objects
	}

	clk := clock.Real()
	events := mq.NewPublisher(sender, logger, clk)

	s.router = NewRouter(Deps{
		Logger:  logger,
		Metrics: metrics.New(),
		Pinger:  pinger,
		Auth:    services.NewAuthService(runner, repos, signer, clk, cfg.Auth.ShortTTL, cfg.Auth.LongTTL, cfg.Auth.BcryptCost),
		Users:   services.NewUserService(runner, repos, events, cfg.Auth.BcryptCost),
		Orders:  services.NewOrderService(runner, repos, events, receipts),
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler exposes the router, mostly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests and releases backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	ctx := context.Background()
	if s.objects != nil {
		if err := s.objects.Close(); err != nil {
			s.logger.Warn(ctx, "close storage failed", "error", err)
		}
	}
	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			s.logger.Warn(ctx, "close message queue failed", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn(ctx, "close database failed", "error", err)
		}
	}
}
