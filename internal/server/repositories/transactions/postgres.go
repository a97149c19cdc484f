// Package transactions provides the PostgreSQL-backed repository for the
// append-only credit ledger.
package transactions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akarpov87/ideaforge/internal/dbx"
	"github.com/akarpov87/ideaforge/internal/server/models"
)

// PostgresRepository implements ledger storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Record(ctx context.Context, tx *models.CreditTransaction) error {
	metadata, err := json.Marshal(tx.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query :=
		`INSERT INTO credit_transactions (id, user_id, amount, tx_type, description, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	_, err = r.db.ExecContext(ctx, query,
		tx.ID, tx.UserID, tx.Amount, tx.Type, tx.Description, metadata, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByUser(ctx context.Context, userID string) ([]*models.CreditTransaction, error) {
	query :=
		`SELECT id, user_id, amount, tx_type, description, metadata, created_at
		 FROM credit_transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.CreditTransaction
	for rows.Next() {
		tx := &models.CreditTransaction{}
		var rawMetadata []byte
		err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Type, &tx.Description, &rawMetadata, &tx.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		tx.Metadata = map[string]string{}
		if len(rawMetadata) > 0 {
			_ = json.Unmarshal(rawMetadata, &tx.Metadata)
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
