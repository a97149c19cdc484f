// Package documents provides the PostgreSQL-backed repository for versioned
// generated and analysis documents.
package documents

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

// PostgresRepository implements document storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save inserts the document as the next version of its (idea, type) pair.
// The version is computed and written in the same statement so regeneration
// never clobbers an earlier version.
func (r *PostgresRepository) Save(ctx context.Context, doc *models.Document) (*models.Document, error) {
	content, err := json.Marshal(doc.Content())
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}

	query :=
		`INSERT INTO documents (idea_id, user_id, doc_type, title, version, content)
		 VALUES ($1, $2, $3, $4,
		         COALESCE((SELECT MAX(version) FROM documents WHERE idea_id = $1 AND doc_type = $3), 0) + 1,
		         $5)
		 RETURNING id, version, created_at, updated_at
		 `

	var (
		id                   string
		version              int64
		createdAt, updatedAt time.Time
	)
	err = r.db.QueryRowContext(ctx, query,
		doc.IdeaID, doc.UserID, doc.Type, doc.Title, content).
		Scan(&id, &version, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return models.ReconstructDocument(id, doc.IdeaID, doc.UserID, doc.Type, doc.Title, version, doc.Content(), createdAt, updatedAt)
}

const documentColumns = `id, idea_id, user_id, doc_type, title, version, content, created_at, updated_at`

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

// FindByIdeaID returns the idea's documents, newest first. Rows whose stored
// content no longer satisfies the entity invariants are skipped rather than
// failing the whole read: downstream context assembly treats them as absent.
func (r *PostgresRepository) FindByIdeaID(ctx context.Context, ideaID string) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE idea_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ideaID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			if errors.Is(err, common.ErrInvariantViolation) {
				continue
			}
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		id, ideaID, userID   string
		docType              models.DocumentType
		title                string
		version              int64
		rawContent           []byte
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&id, &ideaID, &userID, &docType, &title, &version, &rawContent, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	return models.ReconstructDocument(id, ideaID, userID, docType, title, version,
		models.DecodeContent(rawContent), createdAt, updatedAt)
}
