package models

import "time"

// IdeaStatus tracks where an idea sits in the user's workflow.
type IdeaStatus string

const (
	IdeaStatusDraft    IdeaStatus = "draft"
	IdeaStatusActive   IdeaStatus = "active"
	IdeaStatusArchived IdeaStatus = "archived"
)

// Idea is the parent aggregate owning zero or more documents. Generation
// reads the idea text and ownership; it never mutates the idea itself.
type Idea struct {
	ID        string
	UserID    string
	Title     string
	IdeaText  string
	Source    string
	Status    IdeaStatus
	Notes     string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
