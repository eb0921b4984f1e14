// Package dto contains data transfer objects for API v2 requests and responses.
package dto

import (
	"encoding/json"
	"time"

	"github.com/quicktest-hq/quicktest/internal/datastore/entities"
	"github.com/quicktest-hq/quicktest/internal/datastore/repository"
)

// FeedbackRequest is the body of create and update calls.
type FeedbackRequest struct {
	Result  string `json:"result"`
	Comment string `json:"comment"`
}

// FeedbackResponse is one feedback entry. CaseStatus is set on write responses
// and carries the case status after the server recomputed it.
type FeedbackResponse struct {
	ID         uint      `json:"id"`
	CaseID     uint      `json:"caseId"`
	TesterID   uint      `json:"testerId"`
	Result     string    `json:"result"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	CaseStatus string    `json:"caseStatus,omitempty"`
}

// NewFeedbackResponse converts a stored entry.
func NewFeedbackResponse(fb *entities.Feedback) FeedbackResponse {
	return FeedbackResponse{
		ID:        fb.ID,
		CaseID:    fb.CaseID,
		TesterID:  fb.TesterID,
		Result:    string(fb.Result),
		Comment:   fb.Comment,
		CreatedAt: fb.CreatedAt,
		UpdatedAt: fb.UpdatedAt,
	}
}

// FeedbackPage is a page of a case's feedback history.
type FeedbackPage struct {
	Items []FeedbackResponse  `json:"items"`
	Meta  repository.PageMeta `json:"meta"`
}

// ChangelogResponse is one audit entry.
type ChangelogResponse struct {
	ID         uint            `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   uint            `json:"entityId"`
	TesterID   uint            `json:"testerId"`
	Action     string          `json:"action"`
	Changes    json.RawMessage `json:"changes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// NewChangelogResponse converts a stored entry.
func NewChangelogResponse(e *entities.ChangelogEntry) ChangelogResponse {
	return ChangelogResponse{
		ID:         e.ID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		TesterID:   e.TesterID,
		Action:     e.Action,
		Changes:    json.RawMessage(e.Changes),
		CreatedAt:  e.CreatedAt,
	}
}

// ChangelogPage is a page of audit entries.
type ChangelogPage struct {
	Items []ChangelogResponse `json:"items"`
	Meta  repository.PageMeta `json:"meta"`
}
