package repomanager

import (
	"context"
	"database/sql"

	"github.com/akarpov87/ideaforge/internal/dbx"
	"github.com/akarpov87/ideaforge/internal/server/repositories/documents"
	"github.com/akarpov87/ideaforge/internal/server/repositories/ideas"
	"github.com/akarpov87/ideaforge/internal/server/repositories/transactions"
	"github.com/akarpov87/ideaforge/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX so services can run any
// repository against either the pool or an open transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Ideas(db dbx.DBTX) ideas.Repository
	Documents(db dbx.DBTX) documents.Repository
	Transactions(db dbx.DBTX) transactions.Repository
}
