package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpov87/ideaforge/internal/common"
	"github.com/akarpov87/ideaforge/internal/server/models"
)

type creatingIdeaRepo struct {
	fakeIdeaRepo
	nextID int
}

func (f *creatingIdeaRepo) Create(ctx context.Context, idea *models.Idea) (*models.Idea, error) {
	f.nextID++
	idea.ID = fmt.Sprintf("idea-%d", f.nextID)
	if f.ideas == nil {
		f.ideas = map[string]*models.Idea{}
	}
	f.ideas[idea.ID] = idea
	return idea, nil
}

func (f *creatingIdeaRepo) FindByUser(ctx context.Context, userID string) ([]*models.Idea, error) {
	var out []*models.Idea
	for _, idea := range f.ideas {
		if idea.UserID == userID {
			out = append(out, idea)
		}
	}
	return out, nil
}

func newIdeaFixture() (*IdeaService, *creatingIdeaRepo, *fakeDocRepo) {
	ideaRepo := &creatingIdeaRepo{}
	docRepo := &fakeDocRepo{}
	repos := &fakeRepoManager{ideas: &ideaRepo.fakeIdeaRepo, docs: docRepo, ideaOverride: ideaRepo}
	return NewIdeaService(nil, repos), ideaRepo, docRepo
}

func TestIdeaService_CreateAndGet(t *testing.T) {
	svc, _, _ := newIdeaFixture()

	idea, err := svc.CreateIdea(context.Background(), "user-1", "Marketplace", "a marketplace for ideas", "web", []string{"b2b"})
	require.NoError(t, err)
	require.NotEmpty(t, idea.ID)
	assert.Equal(t, models.IdeaStatusActive, idea.Status)

	got, err := svc.GetIdea(context.Background(), "user-1", idea.ID)
	require.NoError(t, err)
	assert.Equal(t, idea.ID, got.ID)

	_, err = svc.GetIdea(context.Background(), "intruder", idea.ID)
	require.ErrorIs(t, err, common.ErrUnauthorizedAccess)

	_, err = svc.GetIdea(context.Background(), "user-1", "missing")
	require.ErrorIs(t, err, common.ErrIdeaNotFound)
}

func TestIdeaService_CreateValidation(t *testing.T) {
	svc, _, _ := newIdeaFixture()

	_, err := svc.CreateIdea(context.Background(), "user-1", "", "text", "", nil)
	require.ErrorIs(t, err, common.ErrInvariantViolation)

	_, err = svc.CreateIdea(context.Background(), "user-1", "Title", "", "", nil)
	require.ErrorIs(t, err, common.ErrInvariantViolation)
}

func TestIdeaService_ListIdeas(t *testing.T) {
	svc, _, _ := newIdeaFixture()

	_, err := svc.CreateIdea(context.Background(), "user-1", "One", "first", "", nil)
	require.NoError(t, err)
	_, err = svc.CreateIdea(context.Background(), "user-2", "Two", "second", "", nil)
	require.NoError(t, err)

	ideas, err := svc.ListIdeas(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, ideas, 1)
	assert.Equal(t, "One", ideas[0].Title)
}

func TestIdeaService_ListDocuments(t *testing.T) {
	svc, _, docRepo := newIdeaFixture()

	idea, err := svc.CreateIdea(context.Background(), "user-1", "One", "first", "", nil)
	require.NoError(t, err)

	doc, err := models.ReconstructDocument("d1", idea.ID, "user-1", models.DocTypePRD, "PRD", 1,
		models.Content{"markdown": "# PRD"}, time.Now(), time.Now())
	require.NoError(t, err)
	docRepo.docs = append(docRepo.docs, doc)

	docs, err := svc.ListDocuments(context.Background(), "user-1", idea.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = svc.ListDocuments(context.Background(), "intruder", idea.ID)
	require.ErrorIs(t, err, common.ErrUnauthorizedAccess)
}

func TestIdeaService_ExportReadiness(t *testing.T) {
	svc, _, docRepo := newIdeaFixture()

	idea, err := svc.CreateIdea(context.Background(), "user-1", "One", "first", "", nil)
	require.NoError(t, err)

	readiness, err := svc.ExportReadiness(context.Background(), "user-1", idea.ID)
	require.NoError(t, err)
	assert.False(t, readiness.IsValid)
	assert.Len(t, readiness.MissingDocuments, 4)

	for i, dt := range exportRequiredTypes {
		doc, err := models.ReconstructDocument(fmt.Sprintf("d%d", i), idea.ID, "user-1", dt, "doc", 1,
			models.Content{"markdown": "body"}, time.Now(), time.Now())
		require.NoError(t, err)
		docRepo.docs = append(docRepo.docs, doc)
	}

	readiness, err = svc.ExportReadiness(context.Background(), "user-1", idea.ID)
	require.NoError(t, err)
	assert.True(t, readiness.IsValid)
}
