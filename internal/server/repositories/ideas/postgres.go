// Package ideas provides the PostgreSQL-backed repository for ideas.
package ideas

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/akarpov87/ideaforge/internal/common"
	"github.com/akarpov87/ideaforge/internal/dbx"
	"github.com/akarpov87/ideaforge/internal/server/models"
)

// PostgresRepository implements idea storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const ideaColumns = `id, user_id, title, idea_text, source, status, notes, tags, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, idea *models.Idea) (*models.Idea, error) {
	tags, err := json.Marshal(idea.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}

	query :=
		`INSERT INTO ideas (user_id, title, idea_text, source, status, notes, tags)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		idea.UserID, idea.Title, idea.IdeaText, idea.Source, idea.Status, idea.Notes, tags).
		Scan(&idea.ID, &idea.CreatedAt, &idea.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return idea, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Idea, error) {
	query := `SELECT ` + ideaColumns + ` FROM ideas WHERE id = $1`

	idea, err := scanIdea(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return idea, nil
}

func (r *PostgresRepository) FindByUser(ctx context.Context, userID string) ([]*models.Idea, error) {
	query := `SELECT ` + ideaColumns + ` FROM ideas WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Idea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, idea)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdea(row rowScanner) (*models.Idea, error) {
	idea := &models.Idea{}
	var rawTags []byte
	err := row.Scan(&idea.ID, &idea.UserID, &idea.Title, &idea.IdeaText,
		&idea.Source, &idea.Status, &idea.Notes, &rawTags, &idea.CreatedAt, &idea.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(rawTags) > 0 {
		_ = json.Unmarshal(rawTags, &idea.Tags)
	}
	return idea, nil
}
