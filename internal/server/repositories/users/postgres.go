// Package users provides the PostgreSQL-backed repository for accounts and
// credit balances.
package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/akarpov87/ideaforge/internal/common"
	"github.com/akarpov87/ideaforge/internal/dbx"
	"github.com/akarpov87/ideaforge/internal/server/models"
)

// PostgresRepository implements user storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	prefs, err := json.Marshal(user.Preferences)
	if err != nil {
		return nil, fmt.Errorf("marshal preferences: %w", err)
	}

	query :=
		`INSERT INTO users (email, credits, active, preferences, salt, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at
		 `

	var id string
	var createdAt, updatedAt time.Time
	err = r.db.QueryRowContext(ctx, query,
		user.Email, user.Credits(), user.Active, prefs, user.Salt, user.Verifier).
		Scan(&id, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	created, err := models.ReconstructUser(id, user.Email, user.Credits(), user.Active, user.Preferences, createdAt, updatedAt)
	if err != nil {
		return nil, err
	}
	created.Salt = user.Salt
	created.Verifier = user.Verifier
	return created, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, email, credits, active, preferences, salt, password_hash, created_at, updated_at FROM users
		 WHERE id = $1
		 `
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, email, credits, active, preferences, salt, password_hash, created_at, updated_at FROM users
		 WHERE email = $1
		 `
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	var (
		id, email            string
		credits              int
		active               bool
		rawPrefs             []byte
		salt, verifier       []byte
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&id, &email, &credits, &active, &rawPrefs, &salt, &verifier, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	prefs := map[string]string{}
	if len(rawPrefs) > 0 {
		// tolerate historic rows with malformed preferences
		_ = json.Unmarshal(rawPrefs, &prefs)
	}

	user, err := models.ReconstructUser(id, email, credits, active, prefs, createdAt, updatedAt)
	if err != nil {
		return nil, err
	}
	user.Salt = salt
	user.Verifier = verifier
	return user, nil
}

// UpdateCredits overwrites the balance. The write touches only the credits
// column so concurrent updates to other fields are never lost.
func (r *PostgresRepository) UpdateCredits(ctx context.Context, userID string, newBalance int) error {
	query :=
		`UPDATE users SET credits = $2, updated_at = now()
		 WHERE id = $1
		 `
	res, err := r.db.ExecContext(ctx, query, userID, newBalance)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// DeductCredits performs the decrement-and-check in one statement. The WHERE
// guard is what closes the read-then-write race between concurrent
// generations for the same user.
func (r *PostgresRepository) DeductCredits(ctx context.Context, userID string, amount int) (int, error) {
	query :=
		`UPDATE users SET credits = credits - $2, updated_at = now()
		 WHERE id = $1 AND credits >= $2
		 RETURNING credits
		 `
	var balance int
	err := r.db.QueryRowContext(ctx, query, userID, amount).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("db error: %w", err)
	}

	// no row updated: either the user is missing or the balance is short
	var current int
	err = r.db.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrorNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return current, fmt.Errorf("%w: balance %d, need %d", common.ErrInsufficientCredits, current, amount)
}

// AddCredits atomically increments the balance.
func (r *PostgresRepository) AddCredits(ctx context.Context, userID string, amount int) (int, error) {
	query :=
		`UPDATE users SET credits = credits + $2, updated_at = now()
		 WHERE id = $1
		 RETURNING credits
		 `
	var balance int
	err := r.db.QueryRowContext(ctx, query, userID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return balance, nil
}
