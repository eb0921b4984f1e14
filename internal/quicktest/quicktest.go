// Package quicktest is the client-side core of the quick test page: it holds the
// tester's view model, applies optimistic feedback patches, reconciles them with
// the server through silent reloads, and persists UI state across reloads.
package quicktest

import (
	"context"

	"github.com/quicktest-hq/quicktest/internal/dashboard"
	"github.com/quicktest-hq/quicktest/internal/errors"
	"github.com/quicktest-hq/quicktest/internal/logger"
	"github.com/quicktest-hq/quicktest/internal/status"
)

// Backend is the REST collaborator the controller depends on.
// *client.Client satisfies it.
type Backend interface {
	GetDashboard(ctx context.Context, sessionID uint) (*dashboard.ViewModel, error)
	CreateFeedback(ctx context.Context, caseID uint, result status.Result, comment string) (*dashboard.FeedbackView, error)
	UpdateFeedback(ctx context.Context, feedbackID uint, result status.Result, comment string) (*dashboard.FeedbackView, error)
}

var (
	// ErrSubmissionInFlight is returned when a case already has a pending submission.
	ErrSubmissionInFlight = errors.NewStd("a submission for this case is already in flight")
	// ErrSubmissionFailed wraps network and validation failures of a submission.
	ErrSubmissionFailed = errors.NewStd("feedback submission failed")
	// ErrNotLoaded is returned when the dashboard has not been loaded yet.
	ErrNotLoaded = errors.NewStd("dashboard not loaded")
	// ErrCaseNotFound is returned when the case is not part of the current view model.
	ErrCaseNotFound = errors.NewStd("case not found")
	// ErrClosed is returned after Close.
	ErrClosed = errors.NewStd("controller closed")
)

// NotificationLevel is the severity of a user-visible notification.
type NotificationLevel string

const (
	LevelInfo  NotificationLevel = "info"
	LevelError NotificationLevel = "error"
)

// Notification is a transient message for the tester.
type Notification struct {
	Level   NotificationLevel
	CaseID  uint // zero for dashboard-wide messages
	Message string
	Err     error
}

// Notifier surfaces recoverable errors to the user.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

type logNotifier struct {
	log logger.Logger
}

func (l logNotifier) Notify(n Notification) {
	fields := []logger.Field{logger.Uint("case_id", n.CaseID)}
	if n.Err != nil {
		fields = append(fields, logger.Error(n.Err))
	}
	if n.Level == LevelError {
		l.log.Warn(n.Message, fields...)
		return
	}
	l.log.Info(n.Message, fields...)
}

func autoComment(result status.Result) string {
	return "Marked as " + string(result)
}
