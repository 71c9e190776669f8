package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"finance-ledger/internal/config"
	"finance-ledger/internal/handler"
	"finance-ledger/internal/ledger"
	"finance-ledger/internal/repository"
	"finance-ledger/internal/service"
	"finance-ledger/migrations"
)

// Server represents the HTTP server
type Server struct {
	router *mux.Router
	server *http.Server
	db     *sql.DB
	logger *slog.Logger
	port   string
}

// NewServer connects to the database, applies migrations when enabled and
// wires the ledger engine, services and routes.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("Successfully connected to database", "host", cfg.DBHost, "database", cfg.DBName)

	if cfg.AutoMigrate {
		if err := migrations.Apply(ctx, db, logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Server{
		router: NewRouter(db, logger, cfg.DBLockTimeout),
		db:     db,
		logger: logger,
	}, nil
}

// NewRouter builds the full route table on top of db.
func NewRouter(db *sql.DB, logger *slog.Logger, lockTimeout time.Duration) *mux.Router {
	// Initialize store (Unit of Work)
	store := repository.NewStore(db, logger, repository.WithLockTimeout(lockTimeout))
	engine := ledger.NewEngine(store, logger)

	// Initialize services
	accountService := service.NewAccountService(store, logger)
	transactionService := service.NewTransactionService(store, engine, logger)
	budgetService := service.NewBudgetService(store, logger)

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(accountService, logger)
	transactionHandler := handler.NewTransactionHandler(transactionService, logger)
	budgetHandler := handler.NewBudgetHandler(budgetService, logger)
	healthHandler := handler.NewHealthHandler(db, logger)

	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	router.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	// Everything else is scoped to the caller's owner id
	api := router.NewRoute().Subrouter()
	api.Use(handler.OwnerMiddleware(logger))

	// Account routes
	api.HandleFunc("/accounts", accountHandler.CreateAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts", accountHandler.ListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}", accountHandler.GetAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}", accountHandler.UpdateAccount).Methods(http.MethodPut)
	api.HandleFunc("/accounts/{id}", accountHandler.DeleteAccount).Methods(http.MethodDelete)

	// Fixed paths first so they are not captured by {id}.
	api.HandleFunc("/transactions/stats", transactionHandler.Stats).Methods(http.MethodGet)
	api.HandleFunc("/transactions/category-stats", transactionHandler.CategoryStats).Methods(http.MethodGet)
	api.HandleFunc("/transactions", transactionHandler.CreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions", transactionHandler.ListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", transactionHandler.GetTransaction).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", transactionHandler.UpdateTransaction).Methods(http.MethodPut)
	api.HandleFunc("/transactions/{id}", transactionHandler.DeleteTransaction).Methods(http.MethodDelete)

	// Budget routes
	api.HandleFunc("/budgets", budgetHandler.CreateBudget).Methods(http.MethodPost)
	api.HandleFunc("/budgets", budgetHandler.ListBudgets).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{id}", budgetHandler.GetBudget).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{id}", budgetHandler.UpdateBudget).Methods(http.MethodPut)
	api.HandleFunc("/budgets/{id}", budgetHandler.DeleteBudget).Methods(http.MethodDelete)

	return router
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start listens on port and serves in the background. Port "0" picks a
// free port, which is returned.
func (s *Server) Start(port string) (string, error) {
	// Create listener first to get actual port
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	// Start server in a goroutine
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server stopped unexpectedly", "error", err)
		}
	}()

	return s.port, nil
}

// Stop drains in-flight requests, then closes the database pool.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	// Close database connection after in-flight requests finish
	if s.db != nil {
		if closeErr := s.db.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// StartServer creates the server and starts it on cfg.ServerPort.
func StartServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, string, error) {
	server, err := NewServer(ctx, cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		server.Stop(ctx)
		return nil, "", err
	}

	return server, port, nil
}
