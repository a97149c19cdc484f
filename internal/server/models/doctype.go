package models

// DocumentType identifies the kind of artifact generated or analyzed for an idea.
type DocumentType string

const (
	DocTypePRD               DocumentType = "prd"
	DocTypeTechnicalDesign   DocumentType = "technical_design"
	DocTypeArchitecture      DocumentType = "architecture"
	DocTypeRoadmap           DocumentType = "roadmap"
	DocTypeStartupAnalysis   DocumentType = "startup_analysis"
	DocTypeHackathonAnalysis DocumentType = "hackathon_analysis"
)

// TypeConfig carries the static per-type settings: what the type is called in
// titles and how many credits one generation costs.
type TypeConfig struct {
	DisplayName string
	CreditCost  int
}

// DocumentTypeConfigs is the static per-type credit-cost table. Costs are not
// user-configurable; analyses are free, generated documents are metered.
var DocumentTypeConfigs = map[DocumentType]TypeConfig{
	DocTypePRD:               {DisplayName: "Product Requirements Document", CreditCost: 50},
	DocTypeTechnicalDesign:   {DisplayName: "Technical Design", CreditCost: 75},
	DocTypeArchitecture:      {DisplayName: "Architecture", CreditCost: 75},
	DocTypeRoadmap:           {DisplayName: "Roadmap", CreditCost: 50},
	DocTypeStartupAnalysis:   {DisplayName: "Startup Analysis", CreditCost: 0},
	DocTypeHackathonAnalysis: {DisplayName: "Hackathon Analysis", CreditCost: 0},
}

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	_, ok := DocumentTypeConfigs[t]
	return ok
}

// CreditCost returns the number of credits one generation of this type costs.
func (t DocumentType) CreditCost() int {
	return DocumentTypeConfigs[t].CreditCost
}

// DisplayName returns the human-readable name used in document titles.
func (t DocumentType) DisplayName() string {
	return DocumentTypeConfigs[t].DisplayName
}

// IsAnalysis reports whether t is one of the analysis types, which carry a
// structured score payload instead of markdown.
func (t DocumentType) IsAnalysis() bool {
	return t == DocTypeStartupAnalysis || t == DocTypeHackathonAnalysis
}
