// Package http provides the JSON API server.
package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"expensia/internal/auth"
	"expensia/internal/chat"
	applog "expensia/internal/log"
	"expensia/internal/services"
	"expensia/internal/storage"
)

// Server wires the API routes on top of the service layer.
type Server struct {
	http.Server

	auth         *auth.Service
	storage      *storage.SQLiteRepository
	transactions *services.TransactionService
	dashboard    *services.DashboardService
	export       *services.ExportService
	chatHandler  *chat.Handler

	limiter      *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures all routes and returns a ready-to-run server.
func NewServer(
	addr string,
	authService *auth.Service,
	repo *storage.SQLiteRepository,
	transactions *services.TransactionService,
	dashboard *services.DashboardService,
	export *services.ExportService,
	chatHandler *chat.Handler,
	logger *applog.Logger,
) *Server {
	s := &Server{
		auth:         authService,
		storage:      repo,
		transactions: transactions,
		dashboard:    dashboard,
		export:       export,
		chatHandler:  chatHandler,
		limiter:      newRateLimiter(),
	}

	router := mux.NewRouter()
	router.Use(applog.RequestMiddleware(logger))
	router.Use(s.rateLimit)

	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/ws", chatHandler.ServeWS)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.requireAuth)

	authed.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/auth/me", s.handleMe).Methods(http.MethodGet)

	authed.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)

	authed.HandleFunc("/income/add", s.handleAddIncome).Methods(http.MethodPost)
	authed.HandleFunc("/income/get", s.handleGetIncomes).Methods(http.MethodGet)
	authed.HandleFunc("/income/download", s.handleDownloadIncomes).Methods(http.MethodGet)
	authed.HandleFunc("/income/{id}", s.handleDeleteIncome).Methods(http.MethodDelete)

	authed.HandleFunc("/expense/add", s.handleAddExpense).Methods(http.MethodPost)
	authed.HandleFunc("/expense/get", s.handleGetExpenses).Methods(http.MethodGet)
	authed.HandleFunc("/expense/download", s.handleDownloadExpenses).Methods(http.MethodGet)
	authed.HandleFunc("/expense/{id}", s.handleDeleteExpense).Methods(http.MethodDelete)

	authed.HandleFunc("/trips", s.handleCreateTrip).Methods(http.MethodPost)
	authed.HandleFunc("/trips", s.handleListTrips).Methods(http.MethodGet)
	authed.HandleFunc("/trips/{id}/messages", s.handleListTripMessages).Methods(http.MethodGet)

	s.Server = http.Server{
		Addr:    addr,
		Handler: router,
	}

	return s
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Shutdown gracefully stops the server and its cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
