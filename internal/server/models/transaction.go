package models

import (
	"fmt"
	"time"

	"github.com/akarpov87/ideaforge/internal/common"
	"github.com/google/uuid"
)

// TransactionType is the business reason for a balance change.
type TransactionType string

const (
	TxDeduct          TransactionType = "DEDUCT"
	TxAdd             TransactionType = "ADD"
	TxRefund          TransactionType = "REFUND"
	TxAdminAdjustment TransactionType = "ADMIN_ADJUSTMENT"
)

const maxTransactionDescription = 500

// CreditTransaction is a single row in the append-only credit ledger: the only
// durable record of why a balance changed. Rows are created once and never
// updated or deleted.
type CreditTransaction struct {
	ID          string
	UserID      string
	Amount      int
	Type        TransactionType
	Description string
	Metadata    map[string]string
	CreatedAt   time.Time
}

// NewCreditTransaction validates the sign/type pairing and description bounds
// at construction time. DEDUCT amounts are strictly negative, ADD and REFUND
// strictly positive, ADMIN_ADJUSTMENT either sign but never zero.
func NewCreditTransaction(userID string, amount int, txType TransactionType, description string, metadata map[string]string) (*CreditTransaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: transaction requires a user", common.ErrInvariantViolation)
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: transaction amount must not be zero", common.ErrInvariantViolation)
	}
	switch txType {
	case TxDeduct:
		if amount >= 0 {
			return nil, fmt.Errorf("%w: DEDUCT amount must be negative, got %d", common.ErrInvariantViolation, amount)
		}
	case TxAdd, TxRefund:
		if amount <= 0 {
			return nil, fmt.Errorf("%w: %s amount must be positive, got %d", common.ErrInvariantViolation, txType, amount)
		}
	case TxAdminAdjustment:
		// either sign
	default:
		return nil, fmt.Errorf("%w: unknown transaction type %q", common.ErrInvariantViolation, txType)
	}
	if len(description) == 0 || len(description) > maxTransactionDescription {
		return nil, fmt.Errorf("%w: description must be 1-%d characters", common.ErrInvariantViolation, maxTransactionDescription)
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &CreditTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	}, nil
}
