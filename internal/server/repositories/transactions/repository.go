package transactions

import (
	"context"

	"github.com/akarpov87/ideaforge/internal/server/models"
)

// Repository appends to and reads the credit ledger. There is deliberately no
// update or delete: the ledger is the immutable audit trail of every balance
// change.
type Repository interface {
	Record(ctx context.Context, tx *models.CreditTransaction) error
	FindByUser(ctx context.Context, userID string) ([]*models.CreditTransaction, error)
}
