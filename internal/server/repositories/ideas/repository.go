package ideas

import (
	"context"

	"github.com/akarpov87/ideaforge/internal/server/models"
)

// Repository persists ideas. The generation flow only reads; writes come from
// the idea service.
type Repository interface {
	Create(ctx context.Context, idea *models.Idea) (*models.Idea, error)
	FindByID(ctx context.Context, id string) (*models.Idea, error)
	FindByUser(ctx context.Context, userID string) ([]*models.Idea, error)
}
