package models

import (
	"fmt"
	"time"

	"github.com/akarpov87/ideaforge/internal/common"
)

// Document is a generated or analysis artifact tied to one idea and one user.
// IdeaID, UserID and Type never change after creation; regeneration produces a
// new version through the repository rather than mutating this value. The
// content field is unexported so stored state can only be read through the
// deep-copying Content accessor.
type Document struct {
	ID        string
	IdeaID    string
	UserID    string
	Type      DocumentType
	Title     string
	Version   int64
	content   Content
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDocument creates a document, validating the content shape for its type.
// The ID and version are assigned by the repository on save.
func NewDocument(ideaID, userID string, docType DocumentType, title string, content Content) (*Document, error) {
	if err := validateContent(docType, content); err != nil {
		return nil, err
	}
	now := time.Now()
	return &Document{
		IdeaID:    ideaID,
		UserID:    userID,
		Type:      docType,
		Title:     title,
		content:   content.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ReconstructDocument rebuilds a stored document, running the same invariant
// check as NewDocument so invalid rows surface at the load boundary.
func ReconstructDocument(id, ideaID, userID string, docType DocumentType, title string, version int64, content Content, createdAt, updatedAt time.Time) (*Document, error) {
	if err := validateContent(docType, content); err != nil {
		return nil, err
	}
	return &Document{
		ID:        id,
		IdeaID:    ideaID,
		UserID:    userID,
		Type:      docType,
		Title:     title,
		Version:   version,
		content:   content.Clone(),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// Content returns a deep, independent copy of the payload. Mutating the
// returned map never affects the stored entity.
func (d *Document) Content() Content {
	return d.content.Clone()
}

// validateContent enforces the per-type content shape. Analysis documents
// must carry either the legacy rubric fields or the summarized score/feedback
// pair; both shapes remain accepted because stored documents predate the
// summarized producer. Generated documents only need non-empty content — the
// exporter tolerates their loose shapes.
func validateContent(docType DocumentType, content Content) error {
	if !docType.Valid() {
		return fmt.Errorf("%w: unknown document type %q", common.ErrInvariantViolation, docType)
	}
	if content == nil {
		return fmt.Errorf("%w: document content is required", common.ErrInvariantViolation)
	}
	if !docType.IsAnalysis() {
		if content.IsEmpty() {
			return fmt.Errorf("%w: document content is empty", common.ErrInvariantViolation)
		}
		return nil
	}

	if hasLegacyAnalysisShape(content) || hasSummaryAnalysisShape(content) {
		return nil
	}
	return fmt.Errorf("%w: analysis content needs either the legacy rubric fields or a score/feedback pair", common.ErrInvariantViolation)
}

func hasLegacyAnalysisShape(content Content) bool {
	for _, key := range []string{"viabilityScore", "innovationScore", "marketScore"} {
		if _, ok := content.Number(key); !ok {
			return false
		}
	}
	return true
}

func hasSummaryAnalysisShape(content Content) bool {
	if _, ok := content.Number("score"); !ok {
		return false
	}
	return content.String("feedback") != ""
}
