package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/akarpov87/ideaforge/internal/common"
	"github.com/akarpov87/ideaforge/internal/server/models"
	"github.com/akarpov87/ideaforge/internal/server/services"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createIdeaRequest struct {
	Title    string   `json:"title"`
	IdeaText string   `json:"ideaText"`
	Source   string   `json:"source"`
	Tags     []string `json:"tags"`
}

type generateRequest struct {
	DocumentType string `json:"documentType"`
}

type exportURLRequest struct {
	Format string `json:"format"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"createdAt"`
}

type ideaResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	IdeaText  string    `json:"ideaText"`
	Source    string    `json:"source,omitempty"`
	Status    string    `json:"status"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type documentResponse struct {
	ID           string         `json:"id"`
	IdeaID       string         `json:"ideaId"`
	DocumentType string         `json:"documentType"`
	Title        string         `json:"title"`
	Version      int64          `json:"version"`
	Content      models.Content `json:"content"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

type transactionResponse struct {
	ID          string            `json:"id"`
	Amount      int               `json:"amount"`
	Type        string            `json:"transactionType"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

func toIdeaResponse(idea *models.Idea) ideaResponse {
	return ideaResponse{
		ID:        idea.ID,
		Title:     idea.Title,
		IdeaText:  idea.IdeaText,
		Source:    idea.Source,
		Status:    string(idea.Status),
		Tags:      idea.Tags,
		CreatedAt: idea.CreatedAt,
		UpdatedAt: idea.UpdatedAt,
	}
}

func toDocumentResponse(doc *models.Document) documentResponse {
	return documentResponse{
		ID:           doc.ID,
		IdeaID:       doc.IdeaID,
		DocumentType: string(doc.Type),
		Title:        doc.Title,
		Version:      doc.Version,
		Content:      doc.Content(),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func toTransactionResponse(tx *models.CreditTransaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Amount:      tx.Amount,
		Type:        string(tx.Type),
		Description: tx.Description,
		Metadata:    tx.Metadata,
		CreatedAt:   tx.CreatedAt,
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrInvariantViolation)
	}
	return nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Credits:   user.Credits(),
		CreatedAt: user.CreatedAt,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"accessToken": token})
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	balance, err := s.accounts.Balance(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"credits": balance})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.accounts.Transactions(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateIdea(w http.ResponseWriter, r *http.Request) {
	var req createIdeaRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	idea, err := s.ideas.CreateIdea(r.Context(), userIDFromContext(r.Context()), req.Title, req.IdeaText, req.Source, req.Tags)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toIdeaResponse(idea))
}

func (s *Server) handleListIdeas(w http.ResponseWriter, r *http.Request) {
	ideas, err := s.ideas.ListIdeas(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]ideaResponse, 0, len(ideas))
	for _, idea := range ideas {
		out = append(out, toIdeaResponse(idea))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetIdea(w http.ResponseWriter, r *http.Request) {
	idea, err := s.ideas.GetIdea(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "ideaID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toIdeaResponse(idea))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	doc, err := s.generator.Generate(r.Context(), userIDFromContext(r.Context()),
		chi.URLParam(r, "ideaID"), models.DocumentType(req.DocumentType))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.ideas.ListDocuments(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "ideaID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDocumentResponse(doc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExportReadiness(w http.ResponseWriter, r *http.Request) {
	readiness, err := s.ideas.ExportReadiness(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "ideaID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, readiness)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(services.ExportFormatMarkdown)
	}

	result, err := s.exporter.Export(r.Context(), userIDFromContext(r.Context()),
		chi.URLParam(r, "documentID"), services.ExportFormat(format))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
}

func (s *Server) handleExportURL(w http.ResponseWriter, r *http.Request) {
	var req exportURLRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Format == "" {
		req.Format = string(services.ExportFormatMarkdown)
	}

	url, err := s.exporter.ExportToStorage(r.Context(), userIDFromContext(r.Context()),
		chi.URLParam(r, "documentID"), services.ExportFormat(req.Format))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
