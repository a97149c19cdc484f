// Package httpapi provides the public HTTP JSON API: accounts, ideas,
// document generation, and exports.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/akarpov87/ideaforge/internal/common"
	"github.com/akarpov87/ideaforge/internal/logging"
	"github.com/akarpov87/ideaforge/internal/server/models"
	"github.com/akarpov87/ideaforge/internal/server/services"
)

// AccountService is the account surface the API needs.
type AccountService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Balance(ctx context.Context, userID string) (int, error)
	Transactions(ctx context.Context, userID string) ([]*models.CreditTransaction, error)
}

// IdeaService is the idea surface the API needs.
type IdeaService interface {
	CreateIdea(ctx context.Context, userID, title, ideaText, source string, tags []string) (*models.Idea, error)
	ListIdeas(ctx context.Context, userID string) ([]*models.Idea, error)
	GetIdea(ctx context.Context, userID, ideaID string) (*models.Idea, error)
	ListDocuments(ctx context.Context, userID, ideaID string) ([]*models.Document, error)
	ExportReadiness(ctx context.Context, userID, ideaID string) (services.ExportReadiness, error)
}

// GenerateService runs the credit-metered generation flow.
type GenerateService interface {
	Generate(ctx context.Context, userID, ideaID string, docType models.DocumentType) (*models.Document, error)
}

// ExportService renders and uploads export artifacts.
type ExportService interface {
	Export(ctx context.Context, userID, documentID string, format services.ExportFormat) (*services.ExportResult, error)
	ExportToStorage(ctx context.Context, userID, documentID string, format services.ExportFormat) (string, error)
}

// Server wires the services into a chi router.
type Server struct {
	accounts  AccountService
	ideas     IdeaService
	generator GenerateService
	exporter  ExportService
	logger    logging.Logger
	jwtSecret []byte
}

// NewServer constructs the API server.
func NewServer(accounts AccountService, ideas IdeaService, generator GenerateService, exporter ExportService, jwtSecret []byte, logger logging.Logger) *Server {
	return &Server{
		accounts:  accounts,
		ideas:     ideas,
		generator: generator,
		exporter:  exporter,
		logger:    logger,
		jwtSecret: jwtSecret,
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/me/credits", s.handleCredits)
			r.Get("/me/transactions", s.handleTransactions)

			r.Post("/ideas", s.handleCreateIdea)
			r.Get("/ideas", s.handleListIdeas)
			r.Get("/ideas/{ideaID}", s.handleGetIdea)
			r.Post("/ideas/{ideaID}/documents", s.handleGenerate)
			r.Get("/ideas/{ideaID}/documents", s.handleListDocuments)
			r.Get("/ideas/{ideaID}/export-readiness", s.handleExportReadiness)

			r.Get("/documents/{documentID}/export", s.handleExport)
			r.Post("/documents/{documentID}/export-url", s.handleExportURL)
		})
	})

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a service error to a JSON error response. Unrecognized
// errors become a 500 and are logged; the rest are the caller's fault and
// only get the status code.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrInsufficientCredits):
		status = http.StatusPaymentRequired
	case errors.Is(err, common.ErrIdeaNotFound),
		errors.Is(err, common.ErrUserNotFound),
		errors.Is(err, common.ErrorNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrUnauthorizedAccess):
		status = http.StatusForbidden
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, common.ErrInvariantViolation):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	}

	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": err.Error(),
			"type":    "error",
		},
	})
}
