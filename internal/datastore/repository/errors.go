package repository

import "github.com/quicktest-hq/quicktest/internal/errors"

// Sentinel errors for repository operations.
var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.NewStd("session not found")

	// ErrCaseNotFound indicates the requested test case does not exist.
	ErrCaseNotFound = errors.NewStd("test case not found")

	// ErrFeedbackNotFound indicates the requested feedback does not exist.
	ErrFeedbackNotFound = errors.NewStd("feedback not found")

	// ErrNotFeedbackOwner indicates a tester tried to change someone else's feedback.
	ErrNotFeedbackOwner = errors.NewStd("feedback belongs to another tester")

	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.NewStd("invalid input")
)
