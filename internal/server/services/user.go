package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/akarpov87/ideaforge/internal/common"
	"github.com/akarpov87/ideaforge/internal/cryptox"
	"github.com/akarpov87/ideaforge/internal/dbx"
	"github.com/akarpov87/ideaforge/internal/logging"
	"github.com/akarpov87/ideaforge/internal/server/auth"
	"github.com/akarpov87/ideaforge/internal/server/config"
	"github.com/akarpov87/ideaforge/internal/server/models"
	"github.com/akarpov87/ideaforge/internal/server/repositories/repomanager"
)

const minPasswordLength = 8

// UserService handles accounts: registration with the starter credit grant,
// login, balance queries, the ledger view, and administrative credit grants.
type UserService struct {
	db                          *sql.DB
	repos                       repomanager.RepositoryManager
	logger                      logging.Logger
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	startingCredits             int
}

// NewUserService constructs a UserService from config.
func NewUserService(db *sql.DB, repos repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                          db,
		repos:                       repos,
		logger:                      logger,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		startingCredits:             cfg.StartingCredits,
	}
}

// Register creates an account and grants the starter credit balance. The
// grant is written to the ledger as an ADD entry.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", common.ErrInvariantViolation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrInvariantViolation, minPasswordLength)
	}

	repo := s.repos.Users(s.db)

	if _, err := repo.FindByEmail(ctx, email); err == nil {
		return nil, common.ErrEmailTaken
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error checking email: %w", err)
	}

	user, err := models.NewUser(email, s.startingCredits)
	if err != nil {
		return nil, err
	}
	user.Salt = cryptox.NewSalt()
	user.Verifier = cryptox.MakeVerifier([]byte(password), user.Salt)

	// the account row and its starter grant ledger entry land together
	var created *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		created, err = s.repos.Users(tx).Create(ctx, user)
		if err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		if s.startingCredits > 0 {
			grant, err := models.NewCreditTransaction(created.ID, s.startingCredits, models.TxAdd, "starter credit grant", nil)
			if err != nil {
				return err
			}
			if err := s.repos.Transactions(tx).Record(ctx, grant); err != nil {
				return fmt.Errorf("error recording starter grant: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", created.ID)
	return created, nil
}

// Login validates the credentials and returns a signed access token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repos.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn the same hashing cost as a real check
			cryptox.MakeVerifier([]byte(password), cryptox.NewSalt())
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	if !user.Active {
		return "", common.ErrorUnauthorized
	}

	if !cryptox.CheckPassword([]byte(password), user.Salt, user.Verifier) {
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}

	return token, nil
}

// Balance returns the user's current credit balance.
func (s *UserService) Balance(ctx context.Context, userID string) (int, error) {
	user, err := s.repos.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, fmt.Errorf("%w: %s", common.ErrUserNotFound, userID)
		}
		return 0, fmt.Errorf("error loading user: %w", err)
	}
	return user.Credits(), nil
}

// Transactions returns the user's ledger entries, newest first.
func (s *UserService) Transactions(ctx context.Context, userID string) ([]*models.CreditTransaction, error) {
	txs, err := s.repos.Transactions(s.db).FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading transactions: %w", err)
	}
	return txs, nil
}

// GrantCredits applies an administrative balance adjustment of either sign
// and records it as an ADMIN_ADJUSTMENT ledger entry. A negative adjustment
// fails with ErrInsufficientCredits when the balance cannot cover it.
func (s *UserService) GrantCredits(ctx context.Context, userID string, amount int, description string) (int, error) {
	if amount == 0 {
		return 0, fmt.Errorf("%w: adjustment amount must not be zero", common.ErrInvariantViolation)
	}

	repo := s.repos.Users(s.db)

	var balance int
	var err error
	if amount > 0 {
		balance, err = repo.AddCredits(ctx, userID, amount)
	} else {
		balance, err = repo.DeductCredits(ctx, userID, -amount)
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, fmt.Errorf("%w: %s", common.ErrUserNotFound, userID)
		}
		return 0, err
	}

	s.recordGrant(ctx, userID, amount, models.TxAdminAdjustment, description, nil)

	s.logger.Info(ctx, "credits adjusted", "user_id", userID, "amount", amount)
	return balance, nil
}

// recordGrant appends a ledger entry, logging instead of failing when the
// write does not land.
func (s *UserService) recordGrant(ctx context.Context, userID string, amount int, txType models.TransactionType, description string, metadata map[string]string) {
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
