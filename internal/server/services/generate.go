// Package services contains server-side business logic: the credit-metered
// generation flow, account and idea management, and the export helpers.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akarpov87/ideaforge/internal/aigen"
	"github.com/akarpov87/ideaforge/internal/common"
	"github.com/akarpov87/ideaforge/internal/logging"
	"github.com/akarpov87/ideaforge/internal/server/models"
	"github.com/akarpov87/ideaforge/internal/server/repositories/repomanager"
)

// GenerateService runs the credit-metered generation flow: load and authorize,
// deduct credits, call the generator, persist the document, and refund the
// deduction when anything after it fails. Every balance change leaves a ledger
// entry; the ledger write itself is best-effort audit logging.
type GenerateService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	gen    aigen.Generator
	logger logging.Logger

	now func() time.Time
}

// NewGenerateService constructs a GenerateService with its collaborators.
func NewGenerateService(db *sql.DB, repos repomanager.RepositoryManager, gen aigen.Generator, logger logging.Logger) *GenerateService {
	return &GenerateService{
		db:     db,
		repos:  repos,
		gen:    gen,
		logger: logger,
		now:    time.Now,
	}
}

// Generate produces a document of docType for the given idea, charging the
// user the type's credit cost.
//
// Failures before the deduction (missing idea, foreign idea, missing user,
// insufficient balance) are terminal and leave the balance untouched. Once
// credits are deducted, any failure — generator error, persistence error,
// caller cancellation, even a panic — triggers a compensating refund before
// the original error is returned. Nothing is thrown past this boundary.
func (s *GenerateService) Generate(ctx context.Context, userID, ideaID string, docType models.DocumentType) (doc *models.Document, err error) {
	if !docType.Valid() {
		return nil, fmt.Errorf("%w: unknown document type %q", common.ErrInvariantViolation, docType)
	}

	var deducted int
	defer func() {
		if p := recover(); p != nil {
			doc = nil
			err = fmt.Errorf("document generation panicked: %v", p)
			if deducted > 0 {
				s.compensate(ctx, userID, deducted, err)
			}
		}
	}()

	idea, err := s.repos.Ideas(s.db).FindByID(ctx, ideaID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: %s", common.ErrIdeaNotFound, ideaID)
		}
		return nil, fmt.Errorf("error loading idea: %w", err)
	}
	if idea.UserID != userID {
		return nil, common.ErrUnauthorizedAccess
	}

	existing, err := s.repos.Documents(s.db).FindByIdeaID(ctx, ideaID)
	if err != nil {
		return nil, fmt.Errorf("error loading documents: %w", err)
	}

	user, err := s.repos.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: %s", common.ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	cost := docType.CreditCost()
	if user.Credits() < cost {
		return nil, fmt.Errorf("%w: balance %d, need %d", common.ErrInsufficientCredits, user.Credits(), cost)
	}

	if cost > 0 {
		// each unit is validated against the domain invariant in memory;
		// the storage write below is a single conditional decrement
		for i := 0; i < cost; i++ {
			if err := user.DeductCredit(); err != nil {
				return nil, err
			}
		}
		if _, err := s.repos.Users(s.db).DeductCredits(ctx, userID, cost); err != nil {
			return nil, fmt.Errorf("error deducting credits: %w", err)
		}
		deducted = cost

		s.recordTransaction(ctx, userID, -cost, models.TxDeduct,
			fmt.Sprintf("%s generation for idea %s", docType.DisplayName(), ideaID),
			map[string]string{"idea_id": ideaID, "document_type": string(docType)})
	}

	genCtx := BuildGenerationContext(idea, existing)

	content, err := s.gen.GenerateDocument(ctx, docType, genCtx)
	if err != nil {
		err = fmt.Errorf("error generating document: %w", err)
		if deducted > 0 {
			s.compensate(ctx, userID, deducted, err)
		}
		return nil, err
	}

	title := fmt.Sprintf("%s - %s", docType.DisplayName(), s.now().Format("2006-01-02"))
	newDoc, err := models.NewDocument(ideaID, userID, docType, title, content)
	if err == nil {
		doc, err = s.repos.Documents(s.db).Save(ctx, newDoc)
	}
	if err != nil {
		err = fmt.Errorf("error saving document: %w", err)
		if deducted > 0 {
			s.compensate(ctx, userID, deducted, err)
		}
		return nil, err
	}

	s.logger.Info(ctx, "document generated",
		"user_id", userID, "idea_id", ideaID, "document_type", string(docType), "cost", cost)
	return doc, nil
}

// compensate refunds a deduction after a downstream failure. It runs on a
// context detached from caller cancellation so a timeout that killed the
// generation cannot also kill the refund. A failed refund is logged and given
// up on: the credits remain deducted until reconciled.
func (s *GenerateService) compensate(ctx context.Context, userID string, amount int, cause error) {
	ctx = context.WithoutCancel(ctx)

	if _, err := s.repos.Users(s.db).AddCredits(ctx, userID, amount); err != nil {
		s.logger.Error(ctx, "refund failed, credits remain deducted",
			"user_id", userID, "amount", amount, "error", err.Error(), "cause", cause.Error())
		return
	}

	s.recordTransaction(ctx, userID, amount, models.TxRefund,
		"refund for failed generation",
		map[string]string{"reason": cause.Error()})

	s.logger.Warn(ctx, "generation failed after deduction, credits refunded",
		"user_id", userID, "amount", amount, "cause", cause.Error())
}

// recordTransaction appends a ledger entry. The ledger write is best-effort:
// a failure is surfaced to the log, never to the caller.
func (s *GenerateService) recordTransaction(ctx context.Context, userID string, amount int, txType models.TransactionType, description string, metadata map[string]string) {
	tx, err := models.NewCreditTransaction(userID, amount, txType, description, metadata)
	if err != nil {
		s.logger.Error(ctx, "invalid ledger entry", "type", string(txType), "error", err.Error())
		return
	}
	if err := s.repos.Transactions(s.db).Record(ctx, tx); err != nil {
		s.logger.Error(ctx, "failed to record credit transaction",
			"type", string(txType), "user_id", userID, "amount", amount, "error", err.Error())
	}
}
