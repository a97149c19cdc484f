package services

import "github.com/akarpov87/ideaforge/internal/server/models"

// exportRequiredTypes is the document set an idea needs before a full export
// package makes sense. Analyses are advisory and not required.
var exportRequiredTypes = []models.DocumentType{
	models.DocTypePRD,
	models.DocTypeTechnicalDesign,
	models.DocTypeArchitecture,
	models.DocTypeRoadmap,
}

// ExportReadiness reports whether an idea's documents form a complete export
// set, and if not, which pieces are missing or empty.
type ExportReadiness struct {
	IsValid          bool                  `json:"isValid"`
	MissingDocuments []models.DocumentType `json:"missingDocuments"`
	EmptyDocuments   []models.DocumentType `json:"emptyDocuments"`
}

// ValidateExportSet checks the given documents against the required export
// set. A type counts as empty when a document exists but none of its versions
// has extractable text. The check never fails; absence is data, not an error.
func ValidateExportSet(docs []*models.Document) ExportReadiness {
	byType := map[models.DocumentType][]*models.Document{}
	for _, d := range docs {
		byType[d.Type] = append(byType[d.Type], d)
	}

	readiness := ExportReadiness{
		MissingDocuments: []models.DocumentType{},
		EmptyDocuments:   []models.DocumentType{},
	}

	for _, t := range exportRequiredTypes {
		versions, ok := byType[t]
		if !ok {
			readiness.MissingDocuments = append(readiness.MissingDocuments, t)
			continue
		}
		hasText := false
		for _, d := range versions {
			if d.Content().Text() != "" {
				hasText = true
				break
			}
		}
		if !hasText {
			readiness.EmptyDocuments = append(readiness.EmptyDocuments, t)
		}
	}

	readiness.IsValid = len(readiness.MissingDocuments) == 0 && len(readiness.EmptyDocuments) == 0
	return readiness
}
