package documents

import (
	"context"

	"github.com/akarpov87/ideaforge/internal/server/models"
)

// Repository persists versioned documents. Save always inserts the next
// version for the document's (idea, type) pair; regeneration never overwrites
// an earlier version.
type Repository interface {
	Save(ctx context.Context, doc *models.Document) (*models.Document, error)
	FindByID(ctx context.Context, id string) (*models.Document, error)
	FindByIdeaID(ctx context.Context, ideaID string) ([]*models.Document, error)
}
