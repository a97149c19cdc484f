package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akarpov87/ideaforge/internal/common"
	"github.com/akarpov87/ideaforge/internal/server/models"
	"github.com/akarpov87/ideaforge/internal/server/repositories/repomanager"
)

// IdeaService manages the idea aggregate that documents hang off of.
type IdeaService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
}

// NewIdeaService constructs an IdeaService.
func NewIdeaService(db *sql.DB, repos repomanager.RepositoryManager) *IdeaService {
	return &IdeaService{db: db, repos: repos}
}

// CreateIdea stores a new idea for the user. Title and idea text are
// required; everything else is optional.
func (s *IdeaService) CreateIdea(ctx context.Context, userID, title, ideaText, source string, tags []string) (*models.Idea, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", common.ErrInvariantViolation)
	}
	if ideaText == "" {
		return nil, fmt.Errorf("%w: idea text is required", common.ErrInvariantViolation)
	}

	now := time.Now()
	idea := &models.Idea{
		UserID:    userID,
		Title:     title,
		IdeaText:  ideaText,
		Source:    source,
		Status:    models.IdeaStatusActive,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	idea, err := s.repos.Ideas(s.db).Create(ctx, idea)
	if err != nil {
		return nil, fmt.Errorf("error creating idea: %w", err)
	}

	return idea, nil
}

// ListIdeas returns all ideas belonging to the user.
func (s *IdeaService) ListIdeas(ctx context.Context, userID string) ([]*models.Idea, error) {
	ideas, err := s.repos.Ideas(s.db).FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing ideas: %w", err)
	}
	return ideas, nil
}

// GetIdea loads one idea, enforcing ownership.
func (s *IdeaService) GetIdea(ctx context.Context, userID, ideaID string) (*models.Idea, error) {
	idea, err := s.repos.Ideas(s.db).FindByID(ctx, ideaID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: %s", common.ErrIdeaNotFound, ideaID)
		}
		return nil, fmt.Errorf("error loading idea: %w", err)
	}
	if idea.UserID != userID {
		return nil, common.ErrUnauthorizedAccess
	}
	return idea, nil
}

// ListDocuments returns all document versions for an idea the user owns.
func (s *IdeaService) ListDocuments(ctx context.Context, userID, ideaID string) ([]*models.Document, error) {
	if _, err := s.GetIdea(ctx, userID, ideaID); err != nil {
		return nil, err
	}
	docs, err := s.repos.Documents(s.db).FindByIdeaID(ctx, ideaID)
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %w", err)
	}
	return docs, nil
}

// ExportReadiness reports whether the idea's documents form a complete
// export set.
func (s *IdeaService) ExportReadiness(ctx context.Context, userID, ideaID string) (ExportReadiness, error) {
	docs, err := s.ListDocuments(ctx, userID, ideaID)
	if err != nil {
		return ExportReadiness{}, err
	}
	return ValidateExportSet(docs), nil
}
