package repository

import (
	"context"

	"github.com/quicktest-hq/quicktest/internal/datastore/entities"
	"github.com/quicktest-hq/quicktest/internal/status"
)

// WriteResult describes the outcome of a feedback write.
type WriteResult struct {
	Action     string            // changelog action that was recorded
	Feedback   entities.Feedback // the written row; for deletes, the row as it was
	SessionID  uint              // session owning the case
	CaseStatus status.Status     // case status after recompute
}

// FeedbackRepository records tester feedback and keeps case status in sync.
type FeedbackRepository interface {
	// Create adds a new feedback entry for caseID.
	Create(ctx context.Context, caseID, testerID uint, result status.Result, comment string) (*WriteResult, error)
	// Update changes result and comment of an existing entry. ID and CreatedAt are preserved.
	Update(ctx context.Context, feedbackID, testerID uint, result status.Result, comment string) (*WriteResult, error)
	// Delete removes an entry.
	Delete(ctx context.Context, feedbackID, testerID uint) (*WriteResult, error)

	// Get loads one entry.
	Get(ctx context.Context, feedbackID uint) (*entities.Feedback, error)
	// ListByCase returns a case's feedback history, newest first.
	ListByCase(ctx context.Context, caseID uint, page Page) ([]entities.Feedback, PageMeta, error)
	// LatestForTester returns the tester's current entry for a case.
	LatestForTester(ctx context.Context, caseID, testerID uint) (*entities.Feedback, error)
	// ListForCases returns every entry for the given cases.
	ListForCases(ctx context.Context, caseIDs []uint) ([]entities.Feedback, error)
	// RecomputeStatus re-derives and stores the cached status of a case.
	RecomputeStatus(ctx context.Context, caseID uint) (status.Status, error)
}
