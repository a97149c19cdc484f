package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpov87/ideaforge/internal/aigen"
	"github.com/akarpov87/ideaforge/internal/common"
	"github.com/akarpov87/ideaforge/internal/dbx"
	"github.com/akarpov87/ideaforge/internal/logging"
	"github.com/akarpov87/ideaforge/internal/server/models"
	"github.com/akarpov87/ideaforge/internal/server/repositories/documents"
	"github.com/akarpov87/ideaforge/internal/server/repositories/ideas"
	"github.com/akarpov87/ideaforge/internal/server/repositories/transactions"
	"github.com/akarpov87/ideaforge/internal/server/repositories/users"
)

type fakeUserRepo struct {
	mu       sync.Mutex
	balances map[string]int

	deductErr error
	addErr    error
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.balances[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return models.ReconstructUser(id, id+"@example.com", balance, true, nil, time.Now(), time.Now())
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, common.ErrorNotFound
}

func (f *fakeUserRepo) UpdateCredits(ctx context.Context, userID string, newBalance int) error {
	return errors.New("not implemented")
}

func (f *fakeUserRepo) DeductCredits(ctx context.Context, userID string, amount int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deductErr != nil {
		return 0, f.deductErr
	}
	balance, ok := f.balances[userID]
	if !ok {
		return 0, common.ErrorNotFound
	}
	if balance < amount {
		return 0, common.ErrInsufficientCredits
	}
	f.balances[userID] = balance - amount
	return f.balances[userID], nil
}

func (f *fakeUserRepo) AddCredits(ctx context.Context, userID string, amount int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return 0, f.addErr
	}
	if _, ok := f.balances[userID]; !ok {
		return 0, common.ErrorNotFound
	}
	f.balances[userID] += amount
	return f.balances[userID], nil
}

func (f *fakeUserRepo) balance(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID]
}

type fakeIdeaRepo struct {
	mu    sync.Mutex
	ideas map[string]*models.Idea
	calls int
}

func (f *fakeIdeaRepo) Create(ctx context.Context, idea *models.Idea) (*models.Idea, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeIdeaRepo) FindByID(ctx context.Context, id string) (*models.Idea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	idea, ok := f.ideas[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return idea, nil
}

func (f *fakeIdeaRepo) FindByUser(ctx context.Context, userID string) ([]*models.Idea, error) {
	return nil, errors.New("not implemented")
}

type fakeDocRepo struct {
	mu      sync.Mutex
	docs    []*models.Document
	saveErr error
	calls   int
}

func (f *fakeDocRepo) Save(ctx context.Context, doc *models.Document) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	saved, err := models.ReconstructDocument(
		fmt.Sprintf("doc-%d", len(f.docs)+1), doc.IdeaID, doc.UserID, doc.Type,
		doc.Title, int64(len(f.docs)+1), doc.Content(), time.Now(), time.Now())
	if err != nil {
		return nil, err
	}
	f.docs = append(f.docs, saved)
	return saved, nil
}

func (f *fakeDocRepo) FindByID(ctx context.Context, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeDocRepo) FindByIdeaID(ctx context.Context, ideaID string) ([]*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var out []*models.Document
	for _, d := range f.docs {
		if d.IdeaID == ideaID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeTxRepo struct {
	mu        sync.Mutex
	recorded  []*models.CreditTransaction
	recordErr error
}

func (f *fakeTxRepo) Record(ctx context.Context, tx *models.CreditTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, tx)
	return nil
}

func (f *fakeTxRepo) FindByUser(ctx context.Context, userID string) ([]*models.CreditTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CreditTransaction
	for _, tx := range f.recorded {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeTxRepo) entries() []*models.CreditTransaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.CreditTransaction(nil), f.recorded...)
}

type fakeRepoManager struct {
	users *fakeUserRepo
	ideas *fakeIdeaRepo
	docs  *fakeDocRepo
	txs   *fakeTxRepo

	// accounts and ideaOverride, when set, replace users and ideas with
	// repositories that also implement the write operations
	accounts     users.Repository
	ideaOverride ideas.Repository
}

func (f *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

func (f *fakeRepoManager) Users(db dbx.DBTX) users.Repository {
	if f.accounts != nil {
		return f.accounts
	}
	return f.users
}
func (f *fakeRepoManager) Ideas(db dbx.DBTX) ideas.Repository {
	if f.ideaOverride != nil {
		return f.ideaOverride
	}
	return f.ideas
}
func (f *fakeRepoManager) Documents(db dbx.DBTX) documents.Repository       { return f.docs }
func (f *fakeRepoManager) Transactions(db dbx.DBTX) transactions.Repository { return f.txs }

type fakeGenerator struct {
	mu      sync.Mutex
	content models.Content
	err     error
	panics  bool
	calls   int
}

func (f *fakeGenerator) GenerateDocument(ctx context.Context, docType models.DocumentType, genCtx aigen.GenerationContext) (models.Content, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.panics {
		panic("generator blew up")
	}
	return f.content, f.err
}

func newTestFixture(balance int) (*GenerateService, *fakeRepoManager, *fakeGenerator) {
	repos := &fakeRepoManager{
		users: &fakeUserRepo{balances: map[string]int{"user-1": balance}},
		ideas: &fakeIdeaRepo{ideas: map[string]*models.Idea{
			"idea-1": {ID: "idea-1", UserID: "user-1", Title: "Test", IdeaText: "an idea", Status: models.IdeaStatusActive},
		}},
		docs: &fakeDocRepo{},
		txs:  &fakeTxRepo{},
	}
	gen := &fakeGenerator{content: models.Content{"markdown": "# Generated"}}
	svc := NewGenerateService(nil, repos, gen, logging.NewSlogLogger(slog.New(slog.DiscardHandler)))
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }
	return svc, repos, gen
}

func TestGenerateService_Success(t *testing.T) {
	svc, repos, _ := newTestFixture(100)

	doc, err := svc.Generate(context.Background(), "user-1", "idea-1", models.DocTypePRD)
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, models.DocTypePRD, doc.Type)
	assert.Equal(t, "Product Requirements Document - 2025-03-14", doc.Title)
	assert.Equal(t, int64(1), doc.Version)
	assert.Equal(t, 50, repos.users.balance("user-1"))

	entries := repos.txs.entries()
	require.Len(t, entries, 1)
	assert.Equal(t, -50, entries[0].Amount)
	assert.Equal(t, models.TxDeduct, entries[0].Type)
	assert.Equal(t, "idea-1", entries[0].Metadata["idea_id"])
	assert.Equal(t, "prd", entries[0].Metadata["document_type"])
}

func TestGenerateService_InsufficientCredits(t *testing.T) {
	svc, repos, gen := newTestFixture(10)

	doc, err := svc.Generate(context.Background(), "user-1", "idea-1", models.DocTypePRD)
	require.ErrorIs(t, err, common.ErrInsufficientCredits)
	assert.Nil(t, doc)

	assert.Equal(t, 10, repos.users.balance("user-1"))
	assert.Empty(t, repos.txs.entries())
	assert.Zero(t, gen.calls)
}

func TestGenerateService_GenerationFailureRefunds(t *testing.T) {
	svc, repos, gen := newTestFixture(100)
	gen.content = nil
	gen.err = errors.New("model unavailable")

	doc, err := svc.Generate(context.Background(), "user-1", "idea-1", models.DocTypePRD)
	require.Error(t, err)
	assert.Nil(t, doc)

	assert.Equal(t, 100, repos.users.balance("user-1"))

	entries := repos.txs.entries()
	require.Len(t, entries, 2)
	assert.Equal(t, models.TxDeduct, entries[0].Type)
	assert.Equal(t, -50, entries[0].Amount)
	assert.Equal(t, models.TxRefund, entries[1].Type)
	assert.Equal(t, 50, entries[1].Amount)
	assert.Contains(t, entries[1].Metadata["reason"], "model unavailable")
}

func TestGenerateService_PersistFailureRefunds(t *testing.T) {
	svc, repos, _ := newTestFixture(100)
	repos.docs.saveErr = errors.New("disk full")

	doc, err := svc.Generate(context.Background(), "user-1", "idea-1", models.DocTypeRoadmap)
	require.Error(t, err)
	assert.Nil(t, doc)
	assert.Equal(t, 100, repos.users.balance("user-1"))

	entries := repos.txs.entries()
	require.Len(t, entries, 2)
	assert.Equal(t, models.TxRefund, entries[1].Type)
}

func TestGenerateService_UnauthorizedIdea(t *testing.T) {
	svc, repos, gen := newTestFixture(100)
	repos.ideas.ideas["idea-1"].UserID = "someone-else"

	doc, err := svc.Generate(context.Background(), "user-1", "idea-1", models.DocTypePRD)
	require.ErrorIs(t, err, common.ErrUnauthorizedAccess)
	assert.Nil(t, doc)

	assert.Equal(t, 100, repos.users.balance("user-1"))
	assert.Empty(t, repos.txs.entries())
	assert.Zero(t, gen.calls)
	assert.Zero(t, repos.docs.calls)
}

func TestGenerateService_IdeaNotFound(t *testing.T) {
	svc, _, _ := newTestFixture(100)

	_, err := svc.Generate(context.Background(), "user-1", "missing", models.DocTypePRD)
	require.ErrorIs(t, err, common.ErrIdeaNotFound)
}

func TestGenerateService_UnknownDocumentType(t *testing.T) {
	svc, repos, _ := newTestFixture(100)

	_, err := svc.Generate(context.Background(), "user-1", "idea-1", models.DocumentType("poem"))
	require.ErrorIs(t, err, common.ErrInvariantViolation)
	assert.Zero(t, repos.ideas.calls)
}

func TestGenerateService_AnalysisIsFree(t *testing.T) {
	svc, repos, _ := newTestFixture(0)

	doc, err := svc.Generate(context.Background(), "user-1", "idea-1", models.DocTypeStartupAnalysis)
	require.Error(t, err) // plain markdown is not a valid analysis shape
	assert.Nil(t, doc)
	assert.Equal(t, 0, repos.users.balance("user-1"))
	assert.Empty(t, repos.txs.entries())
}

func TestGenerateService_AnalysisGeneratesWithZeroBalance(t *testing.T) {
	svc, repos, gen := newTestFixture(0)
	gen.content = models.Content{"score": 7.5, "feedback": "promising"}

	doc, err := svc.Generate(context.Background(), "user-1", "idea-1", models.DocTypeHackathonAnalysis)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, 0, repos.users.balance("user-1"))
	assert.Empty(t, repos.txs.entries())
}

func TestGenerateService_PanicIsContainedAndRefunded(t *testing.T) {
	svc, repos, gen := newTestFixture(100)
	gen.panics = true

	doc, err := svc.Generate(context.Background(), "user-1", "idea-1", models.DocTypePRD)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Nil(t, doc)

	assert.Equal(t, 100, repos.users.balance("user-1"))
	entries := repos.txs.entries()
	require.Len(t, entries, 2)
	assert.Equal(t, models.TxRefund, entries[1].Type)
}

func TestGenerateService_RefundSurvivesCancelledContext(t *testing.T) {
	svc, repos, gen := newTestFixture(100)
	ctx, cancel := context.WithCancel(context.Background())
	gen.err = context.Canceled
	cancel()

	_, err := svc.Generate(ctx, "user-1", "idea-1", models.DocTypePRD)
	require.Error(t, err)
	assert.Equal(t, 100, repos.users.balance("user-1"))
}

func TestGenerateService_RefundFailureLeavesDeduction(t *testing.T) {
	svc, repos, gen := newTestFixture(100)
	gen.err = errors.New("model unavailable")
	repos.users.addErr = errors.New("database down")

	_, err := svc.Generate(context.Background(), "user-1", "idea-1", models.DocTypePRD)
	require.Error(t, err)

	// refund could not land; the deduction stays, and no refund entry is faked
	assert.Equal(t, 50, repos.users.balance("user-1"))
	for _, tx := range repos.txs.entries() {
		assert.NotEqual(t, models.TxRefund, tx.Type)
	}
}

func TestGenerateService_LedgerFailureDoesNotFailGeneration(t *testing.T) {
	svc, repos, _ := newTestFixture(100)
	repos.txs.recordErr = errors.New("ledger table locked")

	doc, err := svc.Generate(context.Background(), "user-1", "idea-1", models.DocTypePRD)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, 50, repos.users.balance("user-1"))
}

func TestGenerateService_ConcurrentRequestsNeverOverdraw(t *testing.T) {
	svc, repos, _ := newTestFixture(75)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Generate(context.Background(), "user-1", "idea-1", models.DocTypePRD)
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			failures++
			assert.ErrorIs(t, err, common.ErrInsufficientCredits)
		}
	}
	require.Equal(t, 1, failures)
	assert.Equal(t, 25, repos.users.balance("user-1"))
}
