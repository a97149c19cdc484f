package users

import (
	"context"

	"github.com/akarpov87/ideaforge/internal/server/models"
)

// Repository persists user accounts and their credit balances.
//
// UpdateCredits overwrites the balance with a caller-computed value and exists
// for administrative corrections. DeductCredits and AddCredits are the
// operations the generation flow uses: each is a single conditional statement
// at the storage layer, so two concurrent requests can never both pass the
// balance check on stale reads.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdateCredits sets the balance to newBalance. Narrow single-column write.
	UpdateCredits(ctx context.Context, userID string, newBalance int) error

	// DeductCredits atomically subtracts amount if the balance covers it,
	// returning the new balance. Returns common.ErrInsufficientCredits when it
	// does not, and common.ErrorNotFound when the user is missing.
	DeductCredits(ctx context.Context, userID string, amount int) (int, error)

	// AddCredits atomically adds amount to the balance, returning the new value.
	AddCredits(ctx context.Context, userID string, amount int) (int, error)
}
