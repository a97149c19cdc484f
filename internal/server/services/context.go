package services

import (
	"github.com/akarpov87/ideaforge/internal/aigen"
	"github.com/akarpov87/ideaforge/internal/server/models"
)

// BuildGenerationContext assembles the generator input from an idea and the
// documents it already has. Missing or malformed pieces are treated as absent
// rather than errors: assembly is total, validation happened at the storage
// boundary.
//
// When several versions of a document exist, the most recent one wins.
func BuildGenerationContext(idea *models.Idea, docs []*models.Document) aigen.GenerationContext {
	genCtx := aigen.GenerationContext{IdeaText: idea.IdeaText}

	latest := map[models.DocumentType]*models.Document{}
	for _, d := range docs {
		cur, ok := latest[d.Type]
		if !ok || d.CreatedAt.After(cur.CreatedAt) {
			latest[d.Type] = d
		}
	}

	var analysis *models.Document
	for _, t := range []models.DocumentType{models.DocTypeStartupAnalysis, models.DocTypeHackathonAnalysis} {
		d, ok := latest[t]
		if !ok {
			continue
		}
		if analysis == nil || d.CreatedAt.After(analysis.CreatedAt) {
			analysis = d
		}
	}
	if analysis != nil {
		content := analysis.Content()
		if score, ok := content.Number("score"); ok {
			genCtx.AnalysisScore = &score
		}
		genCtx.AnalysisFeedback = content.String("feedback")
	}

	if d, ok := latest[models.DocTypePRD]; ok {
		genCtx.ExistingPRD = d.Content().Text()
	}
	if d, ok := latest[models.DocTypeTechnicalDesign]; ok {
		genCtx.ExistingTechnicalDesign = d.Content().Text()
	}
	if d, ok := latest[models.DocTypeArchitecture]; ok {
		genCtx.ExistingArchitecture = d.Content().Text()
	}

	return genCtx
}
