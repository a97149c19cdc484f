// Package aigen defines the document-generation boundary. The core treats the
// generator as an opaque collaborator: it either returns structured content or
// fails; everything else (provider, prompts, retries) is an implementation
// detail behind the interface.
package aigen

import (
	"context"

	"github.com/akarpov87/ideaforge/internal/server/models"
)

// GenerationContext is the assembled input for one generation call: the idea
// text plus the most relevant excerpts of previously generated documents.
// Absent fields stay zero-valued.
type GenerationContext struct {
	IdeaText                string
	AnalysisScore           *float64
	AnalysisFeedback        string
	ExistingPRD             string
	ExistingTechnicalDesign string
	ExistingArchitecture    string
}

// Generator produces content for one document type from a generation context.
type Generator interface {
	GenerateDocument(ctx context.Context, docType models.DocumentType, genCtx GenerationContext) (models.Content, error)
}
